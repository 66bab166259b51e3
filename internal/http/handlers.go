package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"caixa/internal/core"
	"caixa/internal/export/xlsx"
	"caixa/internal/log"
	"caixa/internal/middleware/trace"
	"caixa/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs every registered dependency check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(s.ready))
	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	NewJSONResponse().Status(code).Data(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.buildFromQuery(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := s.buildFromQuery(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Encode(&buf, report); err != nil {
		log.LogError(r.Context(), log.FromContext(r.Context()), "Workbook encoding failed", err, log.ComponentXLSX, log.OpExport, nil)
		InternalServerError(trace.GetRequestID(r.Context())).Write(w)
		return
	}

	name := "caixa"
	if len(report.Periods) > 0 {
		name = fmt.Sprintf("caixa-%d", report.Periods[0].Year)
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// buildFromQuery parses the filter and builds the report, writing the error
// response itself when it fails.
func (s *Server) buildFromQuery(w http.ResponseWriter, r *http.Request) (core.Report, bool) {
	requestID := trace.GetRequestID(r.Context())
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error(), requestID).Write(w)
		return core.Report{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.buildTimeout)
	defer cancel()

	report, err := s.reports.Build(ctx, f)
	if err != nil {
		s.writeServiceError(w, r, "Report build failed", err)
		return core.Report{}, false
	}
	return report, true
}

func (s *Server) handleImportTitles(w http.ResponseWriter, r *http.Request) {
	requestID := trace.GetRequestID(r.Context())
	titles, err := DecodeTitles(r.Body)
	if err != nil {
		UnprocessableEntityError(err.Error(), requestID).Write(w)
		return
	}

	n, err := s.reports.Import(r.Context(), titles)
	if err != nil {
		s.writeServiceError(w, r, "Title import failed", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(map[string]any{
		"imported":  n,
		"requestId": requestID,
	}).Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error(), trace.GetRequestID(r.Context())).Write(w)
		return
	}
	id, err := s.reports.RequestRefresh(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, "Report refresh request failed", err)
		return
	}
	NewJSONResponse().Status(http.StatusAccepted).Data(map[string]string{
		"requestId": id.String(),
	}).Write(w)
}

// writeServiceError maps service errors to status codes. Only unexpected
// failures are logged at Error.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	requestID := trace.GetRequestID(r.Context())
	logger := log.FromContext(r.Context())
	switch {
	case errors.Is(err, services.ErrInvalidFilter):
		BadRequestError(err.Error(), requestID).Write(w)
	case errors.Is(err, services.ErrQueueUnavailable), errors.Is(err, services.ErrReadOnly):
		ServiceUnavailableError(err.Error(), requestID).Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(r.Context(), msg, log.FieldError, err)
		ErrorResponse(http.StatusGatewayTimeout, "timed out", requestID).Write(w)
	default:
		logger.ErrorContext(r.Context(), msg, log.FieldError, err)
		InternalServerError(requestID).Write(w)
	}
}
