package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLoadCommand(a *app) *cobra.Command {
	var seedFile string
	var replace bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Apply the schema and load seed documents",
		Long: `Apply the schema file to the data directory and add the documents of a
JSON seed file, then save every bundle.

Examples:
  syndrrel load --schema music.yaml                  # create empty bundles
  syndrrel load --schema music.yaml --seed seed.json # add seed documents
  syndrrel load --schema music.yaml --seed seed.json --replace
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var seed SeedData
			if seedFile != "" {
				if seed, err = ReadSeedFile(seedFile); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, name := range seed.Bundles() {
				bundle, ok := s.db.Bundle(name)
				if !ok {
					return fmt.Errorf("seed file names bundle %s which the schema does not declare", name)
				}
				docs := seed[name]
				if replace {
					for _, doc := range docs {
						if _, err := bundle.Put(doc); err != nil {
							return fmt.Errorf("seeding %s: %w", name, err)
						}
					}
				} else if _, err := bundle.BulkAdd(docs); err != nil {
					return fmt.Errorf("seeding %s: %w", name, err)
				}
				fmt.Fprintf(out, "   - %s: %d documents\n", name, len(docs))
			}

			if err := s.db.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, color.GreenString("✅ Loaded schema %s version %d into %s", s.schema.Name, s.schema.Version, a.args.DataDir))
			return nil
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "JSON file of bundle name to documents")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace documents with the same primary key")
	return cmd
}
