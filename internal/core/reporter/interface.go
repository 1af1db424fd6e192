/**
 * 结果输出接口定义
 * @author: sun977
 * @date: 2026.10.19
 * @description: 定义扫描报告的通用输出接口，解耦 Console/File 输出。
 */

package reporter

import (
	"context"
	"errors"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
)

// TabularData 是一个可以被渲染为表格的数据接口
// 任何想要在控制台漂亮打印或导出 CSV 的结果都应该实现此接口
type TabularData interface {
	Headers() []string
	Rows() [][]string
}

// Reporter 定义扫描报告的输出行为
type Reporter interface {
	Report(ctx context.Context, report *model.ScanReport) error
}

// MultiReporter 支持同时向多个目标输出 (e.g., Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

// Report 依次输出，单个失败不影响其余输出，错误合并返回
func (m *MultiReporter) Report(ctx context.Context, report *model.ScanReport) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromOptions 根据输出参数组装 Reporter
func FromOptions(out options.OutputOptions) *MultiReporter {
	var reporters []Reporter
	if !out.Quiet {
		reporters = append(reporters, NewConsoleReporter())
	}
	if out.OutputTxt != "" {
		reporters = append(reporters, NewFileReporter(out.OutputTxt, FormatTxt))
	}
	if out.OutputCsv != "" {
		reporters = append(reporters, NewCsvReporter(out.OutputCsv))
	}
	if out.OutputJson != "" {
		reporters = append(reporters, NewFileReporter(out.OutputJson, FormatJSON))
	}
	if out.OutputYaml != "" {
		reporters = append(reporters, NewFileReporter(out.OutputYaml, FormatYAML))
	}
	return NewMultiReporter(reporters...)
}

// tabulate 把结果列表合并为表头 + 行
func tabulate[T TabularData](items []T) ([]string, [][]string) {
	if len(items) == 0 {
		return nil, nil
	}
	headers := items[0].Headers()
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.Rows()...)
	}
	return headers, rows
}
