/*
 * @author: sun977
 * @date: 2026.10.19
 * @description: Cobra Root Command 定义
 */

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"neorecon/cmd/recon/scan"
	"neorecon/internal/config"
	"neorecon/internal/pkg/logger"
)

var (
	cfgFile string

	// configFileUsed 实际加载的配置文件，server 模式用于热加载
	configFileUsed string
)

var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "neorecon 端口扫描引擎 CLI",
	Long: `neorecon 是一个 TCP/UDP 端口扫描引擎，支持服务识别与操作系统推断。
既可以作为 HTTP 服务运行，也可以作为单机 CLI 工具使用。

示例:
  1.启动服务模式
	recon server --port 8000
  2.单机运行扫描
	recon scan port -t 192.168.1.0/28 -p 20-443 --show-closed --oj result.json
  3.生成默认配置
	recon config init configs/config.yaml
`,
	SilenceUsage: true,
	// 全局初始化：加载配置，CLI 日志由各子命令决定是否覆盖
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		initCLILogger(cmd)
		return nil
	},
}

func Execute() {
	// 全局 Panic Recovery
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] neorecon crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别 (debug, info, warn, error)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(scan.NewScanCmd())
	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// loadConfig 读取配置文件与 NEORECON_* 环境变量，结果写入全局配置
func loadConfig() error {
	loader := config.NewConfigLoader(cfgFile, config.EnvPrefix)
	cfg, err := loader.LoadConfig()
	if err != nil {
		return err
	}
	if level := viper.GetString("log.level"); level != "" {
		cfg.Log.Level = level
	}
	config.SetConfig(cfg)
	configFileUsed = loader.ConfigFileUsed()
	return nil
}

// initCLILogger 初始化 CLI 模式下的日志
// 表格输出走 stdout，日志统一写 stderr，默认只输出 warn 以上
func initCLILogger(cmd *cobra.Command) {
	flag := cmd.Flags().Lookup("log-level")
	level := "warn"
	if flag != nil && flag.Changed {
		level = flag.Value.String()
	}

	switch level {
	case "debug":
		pterm.EnableDebugMessages()
	case "info":
		pterm.DisableDebugMessages()
	case "warn", "error", "fatal":
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	}

	logConfig := &config.LogConfig{
		Level:  level,
		Format: "text",
		Output: "stderr",
	}
	if _, err := logger.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
	}
}
