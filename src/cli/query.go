package cli

import (
	"fmt"

	"syndrrel/src/models"
	"syndrrel/src/relations"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CompileFilter compiles a boolean expression over document fields.
// Documents the expression fails on are treated as not matching.
func CompileFilter(source string, logger *zap.SugaredLogger) (func(models.Document) bool, error) {
	program, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid --where expression: %w", err)
	}
	return func(doc models.Document) bool {
		return evalFilter(program, doc, logger)
	}, nil
}

func evalFilter(program *vm.Program, doc models.Document, logger *zap.SugaredLogger) bool {
	output, err := expr.Run(program, map[string]interface{}(doc))
	if err != nil {
		logger.Debugf("Filter failed on document: %v", err)
		return false
	}
	matched, _ := output.(bool)
	return matched
}

func newQueryCommand(a *app) *cobra.Command {
	var bundleName, with, where string
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the documents of a bundle with related documents attached",
		Long: `Print the documents of a bundle as JSON. Related documents named by --with
are fetched with one batched query per relationship.

Examples:
  syndrrel query --bundle bands --with albums
  syndrrel query --bundle albums --with band=bandId
  syndrrel query --bundle albums --where 'year >= 1970 && name != "Waterloo"' --limit 5
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			spec, err := relations.ParseSpec(with)
			if err != nil {
				return err
			}

			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			bundle, ok := s.db.Bundle(bundleName)
			if !ok {
				return &relations.SchemaError{Table: bundleName, Err: relations.ErrTableNotFound}
			}

			var source relations.RowSource = bundle
			if where != "" || limit > 0 {
				collection := bundle.ToCollection()
				if where != "" {
					filter, err := CompileFilter(where, a.logger)
					if err != nil {
						return err
					}
					collection = collection.Filter(filter)
				}
				if limit > 0 {
					collection = collection.Limit(limit)
				}
				source = collection
			}

			rows, err := s.rel.With(ctx, source, spec)
			if err != nil {
				return err
			}

			expanded := make([]models.Document, len(rows))
			for i, row := range rows {
				expanded[i] = row.Expand()
			}
			encoded, err := json.MarshalIndent(expanded, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode results: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVar(&bundleName, "bundle", "", "Bundle to read")
	cmd.Flags().StringVar(&with, "with", "", `Relationships to attach, e.g. "albums" or "band=bandId"`)
	cmd.Flags().StringVar(&where, "where", "", "Filter expression over document fields")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of documents")
	cmd.MarkFlagRequired("bundle")
	return cmd
}
