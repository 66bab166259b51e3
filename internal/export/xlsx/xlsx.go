// Package xlsx renders reports as Excel workbooks.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"caixa/internal/core"
	"caixa/internal/export"
	"caixa/internal/log"
)

const defaultSheet = "Sheet1"

// Encode writes the report as a workbook with one sheet per table.
func Encode(w io.Writer, r core.Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook builds the in-memory workbook for r. The caller closes it.
func Workbook(r core.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("number style: %w", err)
	}

	for _, s := range export.Layout(r) {
		if err := writeSheet(f, s, header, money); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.Name, err)
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(export.SheetDRE); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func writeSheet(f *excelize.File, s export.Sheet, headerStyle, moneyStyle int) error {
	if _, err := f.NewSheet(s.Name); err != nil {
		return err
	}
	width := 0
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
			return err
		}
		width = max(width, len(row))
	}
	if len(s.Rows) == 0 || width == 0 {
		return nil
	}

	last, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.Name, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	if len(s.Rows) > 1 {
		end, err := excelize.CoordinatesToCellName(width, len(s.Rows))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(s.Name, "B2", end, moneyStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(s.Name, "A", "A", 34); err != nil {
		return err
	}
	return f.SetPanes(s.Name, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	})
}

// Writer saves each report to a file under a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("xlsx output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Writer{dir: dir, logger: logger.With(log.FieldComponent, log.ComponentXLSX)}, nil
}

func (w *Writer) Name() string { return "xlsx" }

// Path returns where the report for requestID is written.
func (w *Writer) Path(requestID string) string {
	return filepath.Join(w.dir, "caixa-"+requestID+".xlsx")
}

// WriteReport writes to a temporary file and renames it into place.
func (w *Writer) WriteReport(ctx context.Context, requestID string, r core.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	path := w.Path(requestID)
	tmp := path + ".tmp"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move workbook into place: %w", err)
	}
	w.logger.InfoContext(ctx, "Workbook written", log.FieldRequestID, requestID, "path", path)
	return nil
}
