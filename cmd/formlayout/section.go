package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hatlonely/formlayout/form"
	"github.com/spf13/cobra"
)

func newSectionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Create, update, delete and list sections",
	}
	cmd.AddCommand(
		newSectionCreateCmd(a),
		newSectionUpdateCmd(a),
		newSectionDeleteCmd(a),
		newSectionListCmd(a),
	)
	return cmd
}

func printSections(w *tabwriter.Writer, sections ...*form.Section) {
	fmt.Fprintln(w, "STEP\tNAME\tTITLE\tREQUIRED\tVISIBLE")
	for _, s := range sections {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", s.StepNumber, s.Name, s.Title, s.IsRequired, s.IsVisible)
	}
}

func newSectionCreateCmd(a *app) *cobra.Command {
	section := &form.Section{}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a section, step 0 appends after the last one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			section.Namespace = ns
			section.Name = args[0]
			created, err := a.engine.Sections.Create(cmd.Context(), section)
			if err != nil {
				return err
			}
			return a.render(created, func(w *tabwriter.Writer) { printSections(w, created) })
		},
	}
	cmd.Flags().StringVar(&section.Title, "title", "", "section title")
	cmd.Flags().IntVar(&section.StepNumber, "step", 0, "step number, 0 appends")
	cmd.Flags().BoolVar(&section.IsRequired, "required", false, "section is required")
	cmd.Flags().BoolVar(&section.IsVisible, "visible", true, "section is visible")
	cmd.Flags().StringVar(&section.Description, "description", "", "section description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newSectionUpdateCmd(a *app) *cobra.Command {
	var (
		title, description string
		step               int
		required, visible  bool
	)
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update the given attributes of a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			patch := &form.SectionPatch{}
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
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
			if flags.Changed("description") {
				patch.Description = &description
			}
			updated, err := a.engine.Sections.Update(cmd.Context(), ns, args[0], patch)
			if err != nil {
				return err
			}
			return a.render(updated, func(w *tabwriter.Writer) { printSections(w, updated) })
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "section title")
	cmd.Flags().IntVar(&step, "step", 0, "step number")
	cmd.Flags().BoolVar(&required, "required", false, "section is required")
	cmd.Flags().BoolVar(&visible, "visible", false, "section is visible")
	cmd.Flags().StringVar(&description, "description", "", "section description")
	return cmd
}

func newSectionDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a section, its fields move to the unassigned section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			moved, err := a.engine.Sections.Delete(cmd.Context(), ns, args[0])
			if err != nil {
				return err
			}
			result := map[string]any{"section": args[0], "reassignedFields": moved}
			return a.render(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "deleted section %s, %d fields moved to the unassigned section\n", args[0], moved)
			})
		},
	}
}

func newSectionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sections in step order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			sections, err := a.engine.Sections.List(cmd.Context(), ns)
			if err != nil {
				return err
			}
			return a.render(sections, func(w *tabwriter.Writer) { printSections(w, sections...) })
		},
	}
}
