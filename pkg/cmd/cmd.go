// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/sdkcore/pkg/app"
)

var (
	configPath string
	debug      bool

	// application 在 PersistentPreRunE 中初始化.
	application *app.App

	rootCmd = &cobra.Command{
		Use:          "sdkcore",
		Short:        "Presign object storage requests and inspect per-call execution metrics",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(configPath)
			if err != nil {
				return err
			}

			application = a
			cmd.SetContext(a.Context(cmd.Context()))

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if application == nil {
				return nil
			}

			return application.Close(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print verbose diagnostics")

	registerConfigsCommands()
	registerPresignCommands()
	registerMetricsCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// printJSON 以缩进 JSON 输出 v.
func printJSON(w io.Writer, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = w.Write(append(b, '\n'))

	return err
}
