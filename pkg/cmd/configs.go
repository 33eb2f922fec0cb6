package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/sdkcore/pkg/configs"
)

var (
	// config 子命令.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config not initialized")

				return nil
			}

			cfg := v.ConfigFileUsed()
			if cfg == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file used (defaults and SDKCORE_* env)")

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cfg)

			return nil
		},
	}

	// 以 JSON 打印生效的配置，--debug 时附带 viper 的 Debug 输出.
	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the current config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config not initialized.")

				return nil
			}

			if debug {
				v.DebugTo(cmd.ErrOrStderr())
			}

			cfg := *configs.GetConfig()
			cfg.S3.SecretAccessKey = mask(cfg.S3.SecretAccessKey)
			cfg.S3.SessionToken = mask(cfg.S3.SessionToken)
			cfg.MQ.NATS.Password = mask(cfg.MQ.NATS.Password)
			cfg.MQ.Redis.Password = mask(cfg.MQ.Redis.Password)

			if err := printJSON(cmd.OutOrStdout(), cfg); err != nil {
				return fmt.Errorf("failed to marshal config to JSON: %w", err)
			}

			return nil
		},
	}
)

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return "******"
}

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	configCmd.AddCommand(pathCmd)
	configCmd.AddCommand(debugCmd)

	rootCmd.AddCommand(configCmd)
}
