package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm" // 引入 pterm 库用于控制台输出

	"neorecon/internal/core/model"
)

// ConsoleReporter 控制台输出
type ConsoleReporter struct {
	writer io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{writer: os.Stdout}
}

// WithWriter 输出到指定 writer（测试 / 重定向）
func (r *ConsoleReporter) WithWriter(w io.Writer) *ConsoleReporter {
	r.writer = w
	return r
}

func (r *ConsoleReporter) Report(ctx context.Context, report *model.ScanReport) error {
	if report == nil {
		return nil
	}

	if len(report.Results) == 0 {
		pterm.Warning.WithWriter(r.writer).Println("No results found.")
	} else if err := r.printTable(report.Results); err != nil {
		return err
	}

	r.printSummary(report.Summary)
	return nil
}

func (r *ConsoleReporter) printTable(results []model.ScanResult) error {
	headers, rows := tabulate(results)

	// 使用 pterm 渲染表格
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)

	err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false). // 简洁风格
		WithWriter(r.writer).
		WithData(tableData).
		Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func (r *ConsoleReporter) printSummary(s model.ScanSummary) {
	line := fmt.Sprintf("%d target(s), %d probe(s) in %s: %d open, %d closed, %d filtered, %d error",
		s.Targets, s.Total, s.Duration.Round(time.Millisecond), s.Open, s.Closed, s.Filtered, s.Errors)
	if s.TimedOut {
		pterm.Warning.WithWriter(r.writer).Println(line + " (session deadline reached)")
		return
	}
	pterm.Success.WithWriter(r.writer).Println(line)
}
