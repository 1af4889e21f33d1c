package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/hatlonely/formlayout/cfg"
	"github.com/hatlonely/formlayout/engine"
	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type app struct {
	configPath string
	namespace  string
	output     string

	out    io.Writer
	engine *engine.Engine
}

func (a *app) open(ctx context.Context) error {
	if a.engine != nil {
		return nil
	}
	switch a.output {
	case "text", "json", "yaml":
	default:
		return &form.InvalidArgumentError{Field: "output", Reason: "unsupported output format " + a.output}
	}

	options, err := engine.LoadOptions(a.configPath)
	if err != nil {
		return errors.WithMessage(err, "load config failed")
	}
	e, err := engine.NewEngineWithOptions(ctx, options)
	if err != nil {
		return err
	}
	a.engine = e
	return nil
}

func (a *app) close() error {
	if a.engine == nil {
		return nil
	}
	err := a.engine.Close()
	a.engine = nil
	return err
}

func (a *app) ns() (form.Namespace, error) {
	return form.ParseNamespace(a.namespace)
}

// render 按 --output 输出 v，text 格式使用 text 函数，text 为 nil 时退回 yaml
func (a *app) render(v any, text func(w *tabwriter.Writer)) error {
	switch a.output {
	case "json":
		buf, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "json.MarshalIndent failed")
		}
		_, err = fmt.Fprintln(a.out, string(buf))
		return err
	case "text":
		if text != nil {
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			text(w)
			return w.Flush()
		}
	}
	buf, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "yaml.Marshal failed")
	}
	_, err = a.out.Write(buf)
	return err
}

func engineHelp() string {
	return cfg.GenerateHelp(&engine.Options{}, engine.EnvPrefix)
}

// sectionArg 命令行中用 - 表示未分配分区
func sectionArg(s string) string {
	if s == "-" {
		return form.NoSection
	}
	return s
}

func sectionLabel(s string) string {
	if s == form.NoSection {
		return "-"
	}
	return s
}

func positionArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &form.InvalidArgumentError{Field: "position", Reason: "not an integer: " + s}
	}
	return n, nil
}

func printFields(w *tabwriter.Writer, fields []*form.Field) {
	fmt.Fprintln(w, "ORDER\tNAME\tLABEL\tTYPE\tSECTION\tSTEP\tREQUIRED\tVISIBLE")
	for _, f := range fields {
		order := strconv.Itoa(f.SortOrder)
		if !f.Positioned() {
			order = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%t\t%t\n",
			order, f.Name, f.Label, f.Type, sectionLabel(f.Section), f.StepNumber, f.IsRequired, f.IsVisible)
	}
}
