package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/layout"
	"github.com/hatlonely/formlayout/registry"
	"github.com/hatlonely/formlayout/snapshot"
	"github.com/spf13/cobra"
)

func newLayoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Analyze and reorganize the positional layout of fields",
	}
	cmd.AddCommand(
		newLayoutAnalyzeCmd(a),
		newLayoutReorderCmd(a),
		newLayoutInsertCmd(a),
		newLayoutRemoveCmd(a),
		newLayoutMoveCmd(a),
		newLayoutAutoFixCmd(a),
		newLayoutExportCmd(a),
		newLayoutFormCmd(a),
	)
	return cmd
}

func printReport(w *tabwriter.Writer, report *layout.Report) {
	fmt.Fprintf(w, "section %s: %d fields\n", report.Ref, len(report.Fields))
	printFields(w, report.Fields)
	if len(report.Issues) == 0 {
		fmt.Fprintln(w, "no issues found")
		return
	}
	fmt.Fprintln(w, "SEVERITY\tKIND\tMESSAGE")
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "%s\t%s\t%s\n", issue.Severity, issue.Kind, issue.Message)
	}
}

func newLayoutAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <section>",
		Short: "Report duplicate, missing and unassigned positions of a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			report, err := a.engine.Analyzer.Analyze(cmd.Context(), ns, sectionArg(args[0]))
			if err != nil {
				return err
			}
			return a.render(report, func(w *tabwriter.Writer) { printReport(w, report) })
		},
	}
}

func newLayoutReorderCmd(a *app) *cobra.Command {
	var byLabel bool
	cmd := &cobra.Command{
		Use:   "reorder <section>",
		Short: "Renumber all fields of a section to 1..N",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			fields, err := a.engine.Reorganizer.AutoReorder(cmd.Context(), ns, sectionArg(args[0]), !byLabel)
			if err != nil {
				return err
			}
			return a.render(fields, func(w *tabwriter.Writer) { printFields(w, fields) })
		},
	}
	cmd.Flags().BoolVar(&byLabel, "by-label", false, "order by label instead of keeping the current relative order")
	return cmd
}

func newLayoutInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <field> <section> <position>",
		Short: "Place an unpositioned field at a position, shifting later fields down",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			position, err := positionArg(args[2])
			if err != nil {
				return err
			}
			fields, err := a.engine.Reorganizer.InsertAt(cmd.Context(), ns, args[0], sectionArg(args[1]), position)
			if err != nil {
				return err
			}
			return a.render(fields, func(w *tabwriter.Writer) { printFields(w, fields) })
		},
	}
}

func newLayoutRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <field>",
		Short: "Unassign a field's position and close the gap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			field, err := a.engine.Reorganizer.Remove(cmd.Context(), ns, args[0])
			if err != nil {
				return err
			}
			return a.render(field, func(w *tabwriter.Writer) { printFields(w, []*form.Field{field}) })
		},
	}
}

func newLayoutMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <field> <section> <position>",
		Short: "Move a positioned field within its section",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			position, err := positionArg(args[2])
			if err != nil {
				return err
			}
			fields, err := a.engine.Reorganizer.Move(cmd.Context(), ns, args[0], sectionArg(args[1]), position)
			if err != nil {
				return err
			}
			return a.render(fields, func(w *tabwriter.Writer) { printFields(w, fields) })
		},
	}
}

func newLayoutAutoFixCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "autofix <section>",
		Short: "Analyze a section and repair it when errors are found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			result, err := a.engine.Reorganizer.AutoFix(cmd.Context(), ns, sectionArg(args[0]))
			if err != nil {
				return err
			}
			return a.render(result, func(w *tabwriter.Writer) {
				printReport(w, result.Before)
				if !result.Repaired {
					fmt.Fprintln(w, "layout is healthy, nothing to repair")
					return
				}
				fmt.Fprintln(w, "repaired:")
				printReport(w, result.After)
			})
		},
	}
}

func newLayoutExportCmd(a *app) *cobra.Command {
	var dir, format string
	cmd := &cobra.Command{
		Use:   "export <section>",
		Short: "Export a timestamped layout snapshot of a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			f, err := snapshot.ParseFormat(format)
			if err != nil {
				return err
			}
			snap, err := a.engine.Exporter.Export(cmd.Context(), ns, sectionArg(args[0]))
			if err != nil {
				return err
			}
			path, err := snapshot.WriteFile(snap, dir, f)
			if err != nil {
				return err
			}
			result := map[string]any{"id": snap.ID, "path": path, "fields": len(snap.Fields)}
			return a.render(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "exported %d fields to %s (snapshot %s)\n", len(snap.Fields), path, snap.ID)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().StringVar(&format, "format", "json", "json or yaml")
	return cmd
}

func printForm(w *tabwriter.Writer, view *registry.FormView) {
	for _, s := range view.Sections {
		fmt.Fprintf(w, "[%d] %s\n", s.StepNumber, s.Title)
		for _, f := range s.Fields {
			mark := ""
			if f.IsRequired {
				mark = " *"
			}
			line := fmt.Sprintf("  %d. %s%s\t%s", f.SortOrder, f.Label, mark, f.Type)
			if len(f.Options) > 0 {
				values := make([]string, 0, len(f.Options))
				for _, o := range f.Options {
					values = append(values, o.Label)
				}
				line += "\t" + strings.Join(values, " | ")
			}
			fmt.Fprintln(w, line)
		}
	}
}

func newLayoutFormCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Render the visible form of the namespace in layout order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.ns()
			if err != nil {
				return err
			}
			view, err := a.engine.Fields.Form(cmd.Context(), ns)
			if err != nil {
				return err
			}
			return a.render(view, func(w *tabwriter.Writer) { printForm(w, view) })
		},
	}
}
