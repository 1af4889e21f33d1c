package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hatlonely/formlayout/registry"
	"github.com/spf13/cobra"
)

func newSeedCmd(a *app) *cobra.Command {
	options := &registry.SeedOptions{}
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Create sections, fields and options from a yaml or json seed file in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := registry.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			result, err := a.engine.Seeder.Seed(cmd.Context(), file, options)
			if err != nil {
				return err
			}
			return a.render(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "created %d sections, %d fields, %d options, skipped %d\n",
					result.Sections, result.Fields, result.Options, result.Skipped)
			})
		},
	}
	cmd.Flags().BoolVar(&options.SkipExisting, "skip-existing", false, "skip sections, fields and options that already exist")
	return cmd
}
