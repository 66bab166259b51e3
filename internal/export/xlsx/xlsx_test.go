package xlsx

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"caixa/internal/core"
	"caixa/internal/export"
)

func testReport() core.Report {
	r := core.NewReport(core.Realized)
	jan := core.Month(2024, 1)
	r.Periods = []core.PeriodKey{jan}
	r.DRE.Set(core.ClassGrossRevenue, jan, decimal.RequireFromString("1234.50"))
	r.DRE.Set(core.ClassGrossRevenue, core.TotalPeriod, decimal.RequireFromString("1234.50"))
	r.WorkingCapital.Set(core.WCCash, jan, decimal.NewFromInt(10))
	return r
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testReport()); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{export.SheetDRE, export.SheetDetail, export.SheetWorkingCapital, export.SheetTransactions}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, sheets[i], want[i])
		}
	}

	header, err := f.GetCellValue(export.SheetDRE, "B1")
	if err != nil || header != "01-2024" {
		t.Errorf("B1 = %q (%v), want 01-2024", header, err)
	}
	label, _ := f.GetCellValue(export.SheetDRE, "A2")
	if label != core.ClassGrossRevenue {
		t.Errorf("A2 = %q, want %q", label, core.ClassGrossRevenue)
	}
	raw, err := f.GetCellValue(export.SheetDRE, "B2", excelize.Options{RawCellValue: true})
	if err != nil || raw != "1234.5" {
		t.Errorf("B2 raw = %q (%v), want 1234.5", raw, err)
	}
}

func TestWriter_WriteReport(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := w.WriteReport(context.Background(), "req-1", testReport()); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if _, err := os.Stat(w.Path("req-1")); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
	if _, err := os.Stat(w.Path("req-1") + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestWriter_CancelledContext(t *testing.T) {
	w, err := NewWriter(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.WriteReport(ctx, "req-2", testReport()); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewWriter_RequiresDir(t *testing.T) {
	if _, err := NewWriter("", nil); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
