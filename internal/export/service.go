package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

const (
	RecordsSheet = "CTEs"
	DebugSheet   = "Debug"
	ErrorsSheet  = "Erros"
)

// Service renders batch tables as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// RecordsXLSX writes the result table: header row, then one row per document.
func (s *Service) RecordsXLSX(t *entity.Table) ([]byte, error) {
	start := time.Now()
	rows := make([][]any, 0, t.Len())
	for _, r := range t.Rows {
		vals := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			vals[i] = r[c]
		}
		rows = append(rows, vals)
	}
	out, err := s.write(RecordsSheet, t.Columns, rows, func(f *excelize.File) {
		setWidths(f, RecordsSheet, len(t.Columns), 22)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "sheet", RecordsSheet, "rows", t.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// DebugXLSX writes the debug table. Success flags are boolean cells and a
// missing path is left empty.
func (s *Service) DebugXLSX(dt *entity.DebugTable) ([]byte, error) {
	start := time.Now()
	rows := make([][]any, 0, len(dt.Rows))
	for _, r := range dt.Rows {
		vals := make([]any, len(dt.Columns))
		for i, c := range dt.Columns {
			v, ok := r[c]
			if !ok || v == nil {
				continue
			}
			vals[i] = v
		}
		rows = append(rows, vals)
	}
	out, err := s.write(DebugSheet, dt.Columns, rows, func(f *excelize.File) {
		setWidths(f, DebugSheet, len(dt.Columns), 18)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "sheet", DebugSheet, "rows", len(dt.Rows), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// ErrorsXLSX writes one row per document that could not be parsed.
func (s *Service) ErrorsXLSX(errs []entity.ErrorRecord) ([]byte, error) {
	rows := make([][]any, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []any{e.Document, e.Error})
	}
	headers := []string{constants.ErrorDocumentColumn, constants.ErrorMessageColumn}
	out, err := s.write(ErrorsSheet, headers, rows, func(f *excelize.File) {
		_ = f.SetColWidth(ErrorsSheet, "A", "A", 40)
		_ = f.SetColWidth(ErrorsSheet, "B", "B", 80)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "sheet", ErrorsSheet, "rows", len(errs))
	return out, nil
}

func (s *Service) write(sheet string, headers []string, rows [][]any, layout func(*excelize.File)) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// NewFile starts with "Sheet1"; rename it so the workbook has exactly one sheet.
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}
	for r, vals := range rows {
		for c, v := range vals {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}
	if layout != nil {
		layout(f)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func setWidths(f *excelize.File, sheet string, n int, width float64) {
	if n == 0 {
		return
	}
	last, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return
	}
	_ = f.SetColWidth(sheet, "A", last, width)
}
