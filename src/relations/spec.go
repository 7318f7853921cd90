package relations

import (
	"fmt"
	"sort"
	"strings"

	"syndrrel/src/helpers"
)

// Include asks With to attach Target's related documents under Column.
// Target is either a related bundle name or a local foreign key column.
type Include struct {
	Column string
	Target string
}

// Spec is an ordered list of includes
type Spec []Include

// SpecFromMap builds a Spec from column to target pairs, ordered by column
func SpecFromMap(m map[string]string) Spec {
	columns := make([]string, 0, len(m))
	for column := range m {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	spec := make(Spec, 0, len(columns))
	for _, column := range columns {
		spec = append(spec, Include{Column: column, Target: m[column]})
	}
	return spec
}

// ParseSpec reads "column=target" pairs separated by commas, e.g.
// "albums=albums, band=bandId". A bare name attaches under its own name.
func ParseSpec(s string) (Spec, error) {
	var spec Spec
	seen := make(map[string]bool)

	for _, part := range helpers.SplitAndTrim(s, ",") {
		column, target, found := strings.Cut(part, "=")
		column = helpers.StripQuotes(strings.TrimSpace(column))
		if found {
			target = helpers.StripQuotes(strings.TrimSpace(target))
		} else {
			target = column
		}
		if column == "" || target == "" {
			return nil, fmt.Errorf("%w: empty include in %q", ErrInvalidSpec, s)
		}
		if seen[column] {
			return nil, fmt.Errorf("%w: column %s is included twice", ErrInvalidSpec, column)
		}
		seen[column] = true
		spec = append(spec, Include{Column: column, Target: target})
	}
	return spec, nil
}

// String renders s in ParseSpec syntax
func (s Spec) String() string {
	parts := make([]string, len(s))
	for i, inc := range s {
		parts[i] = inc.Column + "=" + inc.Target
	}
	return strings.Join(parts, ", ")
}
