package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

// Format 文件输出格式
type Format string

const (
	FormatTxt  Format = "txt"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FileReporter 将完整报告（统计 + 结果）写入文件
type FileReporter struct {
	FilePath string
	Format   Format
}

func NewFileReporter(filePath string, format Format) *FileReporter {
	return &FileReporter{FilePath: filePath, Format: format}
}

func (r *FileReporter) Report(ctx context.Context, report *model.ScanReport) error {
	if report == nil {
		return nil
	}

	f, err := os.Create(r.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	switch r.Format {
	case FormatJSON:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		err = enc.Encode(report)
		if err == nil {
			err = enc.Close()
		}
	case FormatTxt:
		err = writeTxt(f, report)
	default:
		err = fmt.Errorf("unsupported output format %q", r.Format)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s output: %w", r.Format, err)
	}

	logger.Infof("Results saved to %s", r.FilePath)
	return nil
}

// writeTxt 每行一个结果，列对齐
func writeTxt(f *os.File, report *model.ScanReport) error {
	tw := tabwriter.NewWriter(f, 0, 4, 2, ' ', 0)
	headers, rows := tabulate(report.Results)
	if headers == nil {
		headers = model.ScanResult{}.Headers()
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	s := report.Summary
	fmt.Fprintf(tw, "\n# session %s: %d target(s), %d probe(s), %d open, %d closed, %d filtered, %d error\n",
		s.SessionID, s.Targets, s.Total, s.Open, s.Closed, s.Filtered, s.Errors)
	return tw.Flush()
}
