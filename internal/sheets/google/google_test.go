package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"caixa/internal/core"
)

// fakeSheets answers the handful of Sheets API calls the writer makes.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    []string
	added   []string
	cleared []string
	written map[string][][]any
	failGet bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sid"):
		if f.failGet {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		sheets := make([]map[string]any, 0, len(f.tabs))
		for _, t := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case strings.HasSuffix(path, "/spreadsheets/sid:batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.added = append(f.added, rq.AddSheet.Properties.Title)
		}
		w.Write([]byte(`{}`))

	case strings.HasSuffix(path, "/values:batchClear"):
		var req gsheet.BatchClearValuesRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.cleared = append(f.cleared, req.Ranges...)
		w.Write([]byte(`{}`))

	case strings.HasSuffix(path, "/values:batchUpdate"):
		var req gsheet.BatchUpdateValuesRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, d := range req.Data {
			f.written[d.Range] = d.Values
		}
		w.Write([]byte(`{}`))

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sid", "Caixa", nil)
}

func testReport() core.Report {
	r := core.NewReport(core.Realized)
	jan := core.Month(2024, 1)
	r.Periods = []core.PeriodKey{jan}
	r.DRE.Set(core.ClassGrossRevenue, jan, decimal.NewFromInt(500))
	return r
}

func TestClient_WriteReport(t *testing.T) {
	fake := &fakeSheets{
		tabs:    []string{"2024 Caixa DRE"},
		written: map[string][][]any{},
	}
	c := newTestClient(t, fake)

	if err := c.WriteReport(context.Background(), "req-1", testReport()); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	wantAdded := []string{"2024 Caixa Detalhamento", "2024 Caixa Capital de Giro", "2024 Caixa Lançamentos"}
	if strings.Join(fake.added, "|") != strings.Join(wantAdded, "|") {
		t.Errorf("added tabs = %v, want %v", fake.added, wantAdded)
	}
	if len(fake.cleared) != 4 || fake.cleared[0] != "'2024 Caixa DRE'" {
		t.Errorf("cleared = %v", fake.cleared)
	}

	dre, ok := fake.written["'2024 Caixa DRE'!A1"]
	if !ok {
		t.Fatalf("DRE tab not written; got %v", fake.written)
	}
	if len(dre) != 2 || dre[1][0] != core.ClassGrossRevenue || dre[1][1] != 500.0 {
		t.Errorf("DRE values = %v", dre)
	}
}

func TestClient_WriteReportReadFailure(t *testing.T) {
	fake := &fakeSheets{failGet: true, written: map[string][][]any{}}
	c := newTestClient(t, fake)

	if err := c.WriteReport(context.Background(), "req-1", testReport()); err == nil {
		t.Fatal("expected error when the spreadsheet cannot be read")
	}
	if len(fake.written) != 0 {
		t.Error("nothing should be written after a failed read")
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.WriteReport(context.Background(), "req", testReport()); err == nil {
		t.Fatal("expected error with uninitialized service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing spreadsheet ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sid"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sid", CredentialsFile: "/nonexistent/sa.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Caixa DRE", 2025, "2025 Caixa DRE"},
		{"Caixa Lançamentos", 2024, "2024 Caixa Lançamentos"},
		{"", 2023, ""},
		{"Caixa DRE", 0, "Caixa DRE"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("João's DRE"); got != "'João''s DRE'" {
		t.Errorf("quoteSheet = %q", got)
	}
}
