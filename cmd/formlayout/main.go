package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hatlonely/formlayout/engine"
	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run 执行命令并返回退出码：0 成功，2 请求被业务规则拒绝，1 其他错误
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		log.Default().Warn("close engine failed", "error", cerr)
	}
	if err == nil {
		return 0
	}
	if form.IsDomain(err) {
		return 2
	}
	return 1
}

// skipEngine 标记不需要打开存储的命令
const skipEngine = "skipEngine"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "formlayout",
		Short:         "Manage form sections, fields and their positional layout",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipEngine] != "" {
				return nil
			}
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("FORMLAYOUT_CONFIG"), "config file (json, yaml, toml or ini)")
	root.PersistentFlags().StringVarP(&a.namespace, "namespace", "n", string(form.NamespacePrimary), "form namespace: primary (A) or secondary (S)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		newSectionCmd(a),
		newFieldCmd(a),
		newOptionCmd(a),
		newLayoutCmd(a),
		newSnapshotCmd(a),
		newSeedCmd(a),
		newConfigCmd(a),
	)
	return root
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "help",
		Short:       "List every config key with its env variable and default",
		Annotations: map[string]string{skipEngine: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(a.out, engineHelp())
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Annotations: map[string]string{skipEngine: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := engine.LoadOptions(a.configPath)
			if err != nil {
				return err
			}
			return a.render(options, nil)
		},
	})
	return cmd
}
