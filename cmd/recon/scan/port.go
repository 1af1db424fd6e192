package scan

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/config"
	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/core/reporter"
	"neorecon/internal/core/scanner/port"
)

func NewPortScanCmd() *cobra.Command {
	opts := options.NewPortScanOptions()

	cmd := &cobra.Command{
		Use:   "port",
		Short: "TCP/UDP 端口扫描",
		Long: `对目标的连续端口区间进行 TCP 或 UDP 探测，识别开放端口上的服务并推断操作系统。
目标支持单个地址、主机名、CIDR、地址区间以及逗号分隔的组合。

示例:
  recon scan port -t 192.168.1.1 -p 20-25
  recon scan port -t 10.0.0.0/29 --start 1 --end 1024 --show-closed --oc result.csv
  recon scan port -t example.com -p 53 --proto udp --retries 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 注入全局输出参数
			opts.Output = globalOutputOptions

			if err := opts.Validate(); err != nil {
				return err
			}
			if err := opts.Output.Validate(); err != nil {
				return err
			}

			// 1. 命令行参数覆盖配置文件
			scanCfg := opts.ApplyTo(config.GetConfig().Scan)
			scanner, err := port.NewPortScanner(scanCfg)
			if err != nil {
				return err
			}

			// 2. Ctrl-C 取消会话，已完成的结果仍然输出
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req := opts.ToRequest()
			pterm.Info.Printfln("Starting %s port scan on %s (ports %d-%d)...", req.Protocol, req.Target, req.StartPort, req.EndPort)
			report, err := scanner.Run(ctx, req)
			if err != nil {
				kind, _ := model.ClassifyError(err)
				return fmt.Errorf("[%s] %w", kind, err)
			}

			// 3. 输出结果，reporter 自身不响应取消
			if err := reporter.FromOptions(opts.Output).Report(context.WithoutCancel(ctx), report); err != nil {
				return fmt.Errorf("failed to write results: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", opts.Target, "扫描目标 (IP/主机名/CIDR/区间)")
	flags.StringVarP(&opts.Port, "port", "p", opts.Port, "端口区间 (e.g., 80 或 20-443)，设置后覆盖 --start/--end")
	flags.IntVar(&opts.StartPort, "start", opts.StartPort, "起始端口")
	flags.IntVar(&opts.EndPort, "end", opts.EndPort, "结束端口")
	flags.StringVar(&opts.Protocol, "proto", opts.Protocol, "协议 (tcp/udp)")
	flags.BoolVar(&opts.ShowClosed, "show-closed", opts.ShowClosed, "输出 closed 端口")
	flags.BoolVar(&opts.ShowFiltered, "show-filtered", opts.ShowFiltered, "输出 filtered 端口")

	flags.IntVarP(&opts.Workers, "workers", "w", opts.Workers, "并发探测数 (默认取配置 scan.workers)")
	flags.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "单次探测超时 (默认取配置 scan.probe_timeout)")
	flags.DurationVar(&opts.Deadline, "deadline", opts.Deadline, "会话截止时长 (默认取配置 scan.session_deadline)")
	flags.IntVar(&opts.Rate, "rate", opts.Rate, "每秒最多发起的探测数，0 表示不限速")
	flags.IntVar(&opts.Retries, "retries", opts.Retries, "UDP 无响应时的重传次数 (默认取配置 scan.udp_retries)")
	flags.StringVar(&opts.Proxy, "proxy", opts.Proxy, "TCP 探测使用的 SOCKS5 代理 (socks5://host:port)")
	flags.StringVar(&opts.DNS, "dns-server", opts.DNS, "解析主机名使用的 DNS 服务器 (host:port)")

	cmd.MarkFlagRequired("target")

	return cmd
}
