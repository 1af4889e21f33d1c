package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hatlonely/formlayout/form"
	"github.com/spf13/cobra"
)

func newOptionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "option",
		Short: "Manage the options of select and checkbox fields",
	}
	cmd.AddCommand(
		newOptionCreateCmd(a),
		newOptionUpdateCmd(a),
		newOptionDeleteCmd(a),
		newOptionListCmd(a),
		newOptionReorderCmd(a),
	)
	return cmd
}

func printOptions(w *tabwriter.Writer, options ...*form.Option) {
	fmt.Fprintln(w, "ORDER\tVALUE\tLABEL")
	for _, o := range options {
		fmt.Fprintf(w, "%d\t%s\t%s\n", o.SortOrder, o.Value, o.Label)
	}
}

func newOptionCreateCmd(a *app) *cobra.Command {
	option := &form.Option{}
	cmd := &cobra.Command{
		Use:   "create <field> <value>",
		Short: "Add an option, order 0 appends",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			option.Field = args[0]
			option.Value = args[1]
			if option.Label == "" {
				option.Label = args[1]
			}
			created, err := a.engine.FieldOptions.Create(cmd.Context(), option)
			if err != nil {
				return err
			}
			return a.render(created, func(w *tabwriter.Writer) { printOptions(w, created) })
		},
	}
	cmd.Flags().StringVar(&option.Label, "label", "", "option label, defaults to the value")
	cmd.Flags().IntVar(&option.SortOrder, "order", 0, "sort order, 0 appends")
	return cmd
}

func newOptionUpdateCmd(a *app) *cobra.Command {
	var (
		label string
		order int
	)
	cmd := &cobra.Command{
		Use:   "update <field> <value>",
		Short: "Update the label or order of an option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := &form.OptionPatch{}
			if cmd.Flags().Changed("label") {
				patch.Label = &label
			}
			if cmd.Flags().Changed("order") {
				patch.SortOrder = &order
			}
			updated, err := a.engine.FieldOptions.Update(cmd.Context(), args[0], args[1], patch)
			if err != nil {
				return err
			}
			return a.render(updated, func(w *tabwriter.Writer) { printOptions(w, updated) })
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "option label")
	cmd.Flags().IntVar(&order, "order", 0, "sort order")
	return cmd
}

func newOptionDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <field> <value>",
		Short: "Delete an option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.FieldOptions.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return a.render(map[string]string{"field": args[0], "deleted": args[1]}, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "deleted option %s of %s\n", args[1], args[0])
			})
		},
	}
}

func newOptionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <field>",
		Short: "List the options of a field in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := a.engine.FieldOptions.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(options, func(w *tabwriter.Writer) { printOptions(w, options...) })
		},
	}
}

func newOptionReorderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <field> <value>...",
		Short: "Renumber options in the given order, every value must be listed once",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := a.engine.FieldOptions.Reorder(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			return a.render(options, func(w *tabwriter.Writer) { printOptions(w, options...) })
		},
	}
}
