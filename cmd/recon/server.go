/*
 * @author: sun977
 * @date: 2026.10.19
 * @description: Server 模式子命令，提供 HTTP 扫描接口
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"neorecon/internal/app/server"
	"neorecon/internal/config"
	"neorecon/internal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServerCmd() *cobra.Command {
	var (
		host     string
		port     int
		noReload bool
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "启动 HTTP 扫描服务",
		Long: `启动 HTTP 服务，对外提供 POST /api/v1/scan/port 与兼容旧前端的 POST /scan。

命令行参数优先级高于配置文件，配置文件修改后扫描参数与日志级别会自动热加载。

示例:
  recon server --host 127.0.0.1 --port 8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			watchFile := configFileUsed
			if noReload {
				watchFile = ""
			}
			return runServer(cfg, watchFile)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "监听地址 (默认取配置 server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "监听端口 (默认取配置 server.port)")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "禁用配置文件热加载")
	return cmd
}

// runServer 服务模式使用配置文件中的日志设置，而不是 CLI 日志
func runServer(cfg *config.Config, configFile string) error {
	if _, err := logger.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	app, err := server.NewApp(cfg, configFile)
	if err != nil {
		return fmt.Errorf("failed to create server app: %w", err)
	}
	if err := app.Start(); err != nil {
		return err
	}

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down neorecon server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
