package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件管理",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "生成默认配置文件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("default config written to %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "覆盖已存在的文件")
	return cmd
}

// newConfigShowCmd 打印合并环境变量后的最终配置
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "打印当前生效的配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(config.GetConfig())
			if err != nil {
				return err
			}
			if configFileUsed != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", configFileUsed)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
