package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yeisme/sdkcore/pkg/internal/storage"
	"github.com/yeisme/sdkcore/pkg/metrics"
	"github.com/yeisme/sdkcore/pkg/queue"
)

var (
	watchLimit int

	metricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "Execution metrics related commands",
	}

	metricsListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list the built-in metric descriptors",
		Aliases: []string{"ls", "l"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			enabled, err := metrics.ParseCategories(application.Config().Metrics.Categories)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-30s %-8s %-12s %s\n", "NAME", "KIND", "CATEGORIES", "ENABLED")

			for _, m := range metrics.DefaultMetrics() {
				fmt.Fprintf(out, "%-30s %-8s %-12s %t\n", m.Name(), m.Kind(), m.Categories(), enabled.Has(m.Categories()))
			}

			return nil
		},
	}

	metricsServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "expose /metrics and log periodic summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return application.ServeMetrics(cmd.Context())
		},
	}

	metricsWatchCmd = &cobra.Command{
		Use:   "watch",
		Short: "print execution records published to the message queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := storage.GetManagerFromContext(ctx).MQ(ctx)
			if err != nil {
				return err
			}

			topic := application.Config().MQ.Topic

			ch, err := client.Subscribe(ctx, topic)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", topic, err)
			}

			logger := application.Logger()
			logger.Info().Str("topic", topic).Msg("watching execution records")

			return watchRecords(ctx, ch, cmd.OutOrStdout(), logger, watchLimit)
		},
	}
)

// registerMetricsCommands 注册指标相关命令.
func registerMetricsCommands() {
	metricsWatchCmd.Flags().IntVarP(&watchLimit, "limit", "n", 0, "stop after n records (0 means no limit)")

	metricsCmd.AddCommand(metricsListCmd, metricsServeCmd, metricsWatchCmd)
	rootCmd.AddCommand(metricsCmd)
}

// watchRecords 逐行输出执行记录，无法解析的消息记录日志后跳过；limit <= 0 表示不限条数.
func watchRecords(ctx context.Context, ch <-chan *message.Message, out io.Writer, logger zerolog.Logger, limit int) error {
	for seen := 0; limit <= 0 || seen < limit; {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			env, err := queue.ParseExecutionRecord(msg)
			msg.Ack()

			if err != nil {
				logger.Warn().Err(err).Str("uuid", msg.UUID).Msg("skip undecodable record")

				continue
			}

			line, err := sonic.Marshal(env)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, string(line))

			seen++
		}
	}

	return nil
}
