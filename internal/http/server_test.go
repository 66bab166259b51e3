package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"caixa/internal/core"
	"caixa/internal/middleware/ratelimit"
	"caixa/internal/services"
)

type fakeReports struct {
	filter    core.Filter
	buildErr  error
	imported  []core.Title
	importErr error
	refreshID uuid.UUID
	refresh   error
}

func (f *fakeReports) Build(_ context.Context, flt core.Filter) (core.Report, error) {
	f.filter = flt
	if f.buildErr != nil {
		return core.Report{}, f.buildErr
	}
	r := core.NewReport(core.Realized)
	jan := core.Month(2024, 1)
	r.Periods = []core.PeriodKey{jan}
	r.DRE.Set(core.ClassGrossRevenue, jan, decimal.NewFromInt(500))
	return r, nil
}

func (f *fakeReports) Import(_ context.Context, titles []core.Title) (int, error) {
	if f.importErr != nil {
		return 0, f.importErr
	}
	f.imported = titles
	return len(titles), nil
}

func (f *fakeReports) RequestRefresh(_ context.Context, flt core.Filter) (uuid.UUID, error) {
	f.filter = flt
	return f.refreshID, f.refresh
}

func newTestServer(t *testing.T, reports ReportAPI, opts ...ServerOption) *Server {
	t.Helper()
	srv := NewServer(":0", reports, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	healthy := newTestServer(t, &fakeReports{}, WithReadyCheck("store", func(context.Context) error { return nil }))
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(healthy, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}

	broken := newTestServer(t, &fakeReports{}, WithReadyCheck("store", func(context.Context) error { return errors.New("db closed") }))
	rr := do(broken, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db closed") {
		t.Errorf("readyz body = %s", rr.Body.String())
	}
}

func TestHandleReport(t *testing.T) {
	fake := &fakeReports{}
	srv := newTestServer(t, fake)

	rr := do(srv, http.MethodGet, "/api/report?accounts=A1&year=2024&projection=realized", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if fake.filter.Year != 2024 || len(fake.filter.AccountIDs) != 1 {
		t.Errorf("service got filter %+v", fake.filter)
	}

	var body struct {
		DRE map[string]map[string]string `json:"dre"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got := body.DRE[core.ClassGrossRevenue]["01-2024"]; got != "500" {
		t.Errorf("gross revenue Jan = %q, want 500", got)
	}
}

func TestHandleReport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		buildErr error
		want     int
	}{
		{"bad query", "/api/report?granularity=weekly", nil, http.StatusBadRequest},
		{"invalid filter", "/api/report", fmt.Errorf("%w: %w", services.ErrInvalidFilter, core.ErrInvalidPeriod), http.StatusBadRequest},
		{"timeout", "/api/report", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"fetch failure", "/api/report", errors.New("fetch titles for A1: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeReports{buildErr: tt.buildErr})
			rr := do(srv, http.MethodGet, tt.target, nil)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			var body ErrorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("error body = %s", rr.Body.String())
			}
			if strings.Contains(body.Error, "boom") {
				t.Error("internal error details must not leak")
			}
		})
	}
}

func TestHandleReportXLSX(t *testing.T) {
	srv := newTestServer(t, &fakeReports{})
	rr := do(srv, http.MethodGet, "/api/report.xlsx?year=2024", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "caixa-2024.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("DRE", "A2"); v != core.ClassGrossRevenue {
		t.Errorf("DRE!A2 = %q", v)
	}
}

func TestHandleImportTitles(t *testing.T) {
	fake := &fakeReports{}
	srv := newTestServer(t, fake)

	body := `[{"categoryCode":"1.01","nature":"payable","grossAmount":"50","dueDate":"10/01/2024","issueDate":"01/01/2024","accountId":"A1"}]`
	rr := do(srv, http.MethodPost, "/api/titles", strings.NewReader(body))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if len(fake.imported) != 1 || fake.imported[0].Nature != core.Payable {
		t.Errorf("imported = %+v", fake.imported)
	}

	if rr := do(srv, http.MethodPost, "/api/titles", strings.NewReader("not json")); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed body status = %d, want 422", rr.Code)
	}

	readOnly := newTestServer(t, &fakeReports{importErr: services.ErrReadOnly})
	if rr := do(readOnly, http.MethodPost, "/api/titles", strings.NewReader(body)); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("read-only status = %d, want 503", rr.Code)
	}
}

func TestHandleRefresh(t *testing.T) {
	id := uuid.New()
	fake := &fakeReports{refreshID: id}
	srv := newTestServer(t, fake)

	rr := do(srv, http.MethodPost, "/api/report/refresh?year=2024", nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), id.String()) {
		t.Errorf("body = %s, want request id %s", rr.Body.String(), id)
	}

	noQueue := newTestServer(t, &fakeReports{refresh: services.ErrQueueUnavailable})
	if rr := do(noQueue, http.MethodPost, "/api/report/refresh", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("no queue status = %d, want 503", rr.Code)
	}
}

func TestMethodAndRateLimits(t *testing.T) {
	srv := newTestServer(t, &fakeReports{}, WithRateLimit(ratelimit.Config{RequestsPerMinute: 1}))

	if rr := do(srv, http.MethodDelete, "/api/report", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d, want 405", rr.Code)
	}

	do(srv, http.MethodPost, "/api/report/refresh", nil)
	rr := do(srv, http.MethodPost, "/api/report/refresh", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second POST status = %d, want 429", rr.Code)
	}
	// Reads are not limited.
	if rr := do(srv, http.MethodGet, "/api/report", nil); rr.Code != http.StatusOK {
		t.Errorf("GET status = %d", rr.Code)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	srv := newTestServer(t, &fakeReports{})
	if rr := do(srv, http.MethodGet, "/.env", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
