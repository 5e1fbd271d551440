package httpapi

import (
	"bytes"
	"fmt"

	"wisefido-radmon/internal/models"

	"github.com/xuri/excelize/v2"
)

// HistoryExportHeader 历史导出表头
var HistoryExportHeader = []string{
	"Time",
	"Value (μSv/h)",
	"Status",
	"Duration",
}

const (
	historySheet = "History"
	statsSheet   = "Summary"
)

// GenerateHistoryExport 生成历史记录 Excel（新 -> 旧），附带统计页
func GenerateHistoryExport(records []models.HistoryRecord, stats models.HistoryStats) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，不能 defer Close

	index, err := f.NewSheet(historySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range HistoryExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(historySheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(historySheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(historySheet, "A", "A", 22); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(historySheet, "B", "D", 15); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, r := range records {
		row := i + 2
		values := []interface{}{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Value,
			r.Status.Label(),
			models.FormatElapsed(r.DurationSeconds),
		}
		for col, v := range values {
			if err := setCellValue(f, historySheet, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if _, err := f.NewSheet(statsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Total Readings", stats.Count},
		{"Average (μSv/h)", stats.Average},
		{"Maximum (μSv/h)", stats.Max},
	}
	for i, row := range summary {
		for col, v := range row {
			if err := setCellValue(f, statsSheet, col+1, i+1, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write summary: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
