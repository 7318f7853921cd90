package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show bundles, indexes and declared relationships",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			cyan := color.New(color.FgCyan)
			yellow := color.New(color.FgYellow)

			fmt.Fprintf(out, "📋 Database %s, schema version %d\n", s.db.Name, s.db.VersionNumber())
			fmt.Fprintln(out, strings.Repeat("=", 60))

			registry := s.rel.Registry()
			for _, name := range s.db.Bundles() {
				bundle, _ := s.db.Bundle(name)
				bold.Fprintf(out, "%s", name)
				fmt.Fprintf(out, " (%d documents)\n", bundle.Count())
				cyan.Fprintf(out, "   spec: %s\n", bundle.Schema().Spec())

				for _, fk := range registry.Outbound(name) {
					yellow.Fprintf(out, "   %s -> %s.%s\n", fk.Index, fk.TargetTable, fk.TargetIndex)
				}
				for _, in := range registry.Inbound(name) {
					fmt.Fprintf(out, "   <- %s.%s\n", in.Table, in.ForeignKey.Index)
				}
			}
			return nil
		},
	}
}
