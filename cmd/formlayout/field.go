package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hatlonely/formlayout/form"
	"github.com/spf13/cobra"
)

func newFieldCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Create, update, delete and inspect fields",
	}
	cmd.AddCommand(
		newFieldCreateCmd(a),
		newFieldUpdateCmd(a),
		newFieldDeleteCmd(a),
		newFieldShowCmd(a),
		newFieldLayoutCmd(a),
	)
	return cmd
}

func newFieldCreateCmd(a *app) *cobra.Command {
	field := &form.Field{}
	var fieldType, section string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a field, order 0 leaves it unpositioned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			field.Name = args[0]
			field.Namespace = ns
			field.Type = form.FieldType(fieldType)
			field.Section = sectionArg(section)
			created, err := a.engine.Fields.Create(cmd.Context(), field)
			if err != nil {
				return err
			}
			return a.render(created, func(w *tabwriter.Writer) { printFields(w, []*form.Field{created}) })
		},
	}
	cmd.Flags().StringVar(&field.Label, "label", "", "field label")
	cmd.Flags().StringVar(&fieldType, "type", string(form.FieldTypeText), "text, email, phone, url, select, checkbox, textarea or number")
	cmd.Flags().StringVar(&section, "section", "-", "section name, - for unassigned")
	cmd.Flags().IntVar(&field.StepNumber, "step", 0, "step number hint")
	cmd.Flags().IntVar(&field.SortOrder, "order", 0, "sort order, 0 for unpositioned")
	cmd.Flags().BoolVar(&field.IsRequired, "required", false, "field is required")
	cmd.Flags().BoolVar(&field.IsVisible, "visible", true, "field is visible")
	cmd.Flags().StringVar(&field.HelpText, "help-text", "", "help text")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newFieldUpdateCmd(a *app) *cobra.Command {
	var (
		label, fieldType, section, helpText string
		step                                int
		required, visible                   bool
	)
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update the given attributes of a field, use layout commands to reposition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := &form.FieldPatch{}
			flags := cmd.Flags()
			if flags.Changed("label") {
				patch.Label = &label
			}
			if flags.Changed("type") {
				t := form.FieldType(fieldType)
				patch.Type = &t
			}
			if flags.Changed("section") {
				s := sectionArg(section)
				patch.Section = &s
			}
			if flags.Changed("step") {
				patch.StepNumber = &step
			}
			if flags.Changed("required") {
				patch.IsRequired = &required
			}
			if flags.Changed("visible") {
				patch.IsVisible = &visible
			}
			if flags.Changed("help-text") {
				patch.HelpText = &helpText
			}
			updated, err := a.engine.Fields.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return a.render(updated, func(w *tabwriter.Writer) { printFields(w, []*form.Field{updated}) })
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "field label")
	cmd.Flags().StringVar(&fieldType, "type", "", "field type")
	cmd.Flags().StringVar(&section, "section", "", "section name, - for unassigned")
	cmd.Flags().IntVar(&step, "step", 0, "step number hint")
	cmd.Flags().BoolVar(&required, "required", false, "field is required")
	cmd.Flags().BoolVar(&visible, "visible", false, "field is visible")
	cmd.Flags().StringVar(&helpText, "help-text", "", "help text")
	return cmd
}

func newFieldDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a field and its options, siblings are compacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.Fields.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.render(map[string]string{"deleted": args[0]}, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "deleted field %s\n", args[0])
			})
		},
	}
}

func newFieldShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := a.engine.Fields.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(field, func(w *tabwriter.Writer) { printFields(w, []*form.Field{field}) })
		},
	}
}

func newFieldLayoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "layout <section>",
		Short: "List the fields of a section in layout order, - for unassigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			fields, err := a.engine.Fields.GetLayout(cmd.Context(), ns, sectionArg(args[0]))
			if err != nil {
				return err
			}
			return a.render(fields, func(w *tabwriter.Writer) { printFields(w, fields) })
		},
	}
}
