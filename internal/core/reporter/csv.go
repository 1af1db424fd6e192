package reporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

// CsvReporter 负责将结果导出为 CSV 文件
type CsvReporter struct {
	FilePath string
}

func NewCsvReporter(filePath string) *CsvReporter {
	return &CsvReporter{
		FilePath: filePath,
	}
}

func (r *CsvReporter) Report(ctx context.Context, report *model.ScanReport) error {
	if report == nil {
		return nil
	}
	return SaveCsvResult(r.FilePath, report.Results)
}

// SaveCsvResult 一次性将结果保存为 CSV，没有结果时只写表头
func SaveCsvResult(path string, results []model.ScanResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	// 写入 UTF-8 BOM，防止 Excel 打开乱码
	if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	w := csv.NewWriter(f)

	headers := model.ScanResult{}.Headers()
	_, rows := tabulate(results)

	// 1. 写入表头
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	// 2. 写入行数据（WriteAll 内部会 Flush）
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	logger.Infof("Results saved to %s", path)
	return nil
}
