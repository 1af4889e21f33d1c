package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Browse archived layout snapshots",
	}
	cmd.AddCommand(newSnapshotListCmd(a), newSnapshotShowCmd(a))
	return cmd
}

var errNoArchive = errors.New("snapshot archive is not configured, set archive.type")

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <section>",
		Short: "List the snapshots of a section, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.engine.Archive == nil {
				return errNoArchive
			}
			ns, err := a.ns()
			if err != nil {
				return err
			}
			list, err := a.engine.Archive.List(cmd.Context(), form.SectionRef{Namespace: ns, Section: sectionArg(args[0])})
			if err != nil {
				return err
			}
			return a.render(list, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tEXPORTED AT\tFIELDS")
				for _, s := range list {
					fmt.Fprintf(w, "%s\t%s\t%d\n", s.ID, s.ExportedAt.Format(time.RFC3339), len(s.Fields))
				}
			})
		},
	}
}

func newSnapshotShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archived snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.engine.Archive == nil {
				return errNoArchive
			}
			s, err := a.engine.Archive.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(s, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "snapshot %s of %s exported at %s\n", s.ID, s.Ref(), s.ExportedAt.Format(time.RFC3339))
				fmt.Fprintln(w, "ORDER\tNAME\tLABEL\tTYPE\tOPTIONS")
				for _, f := range s.Fields {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", f.SortOrder, f.Name, f.Label, f.Type, len(f.Options))
				}
			})
		},
	}
}
