package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/log"
)

// ReportBuilder builds the consolidated report for a filter.
type ReportBuilder interface {
	Build(ctx context.Context, f core.Filter) (core.Report, error)
}

// ReportWriter is an export target for finished reports.
type ReportWriter interface {
	Name() string
	WriteReport(ctx context.Context, requestID string, r core.Report) error
}

// ReportWorker turns queued report requests into exported reports.
type ReportWorker struct {
	builder ReportBuilder
	writers []ReportWriter
	logger  *slog.Logger
}

func NewReportWorker(builder ReportBuilder, logger *slog.Logger, writers ...ReportWriter) *ReportWorker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ReportWorker{
		builder: builder,
		writers: writers,
		logger:  logger.With(log.FieldComponent, log.ComponentWorker),
	}
}

// HandleReportRequest builds the requested report and hands it to every
// writer. A failing writer does not stop the others; their errors are joined.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	id := msg.RequestID.String()
	start := time.Now()

	w.logger.InfoContext(ctx, "Processing report request",
		log.FieldRequestID, id,
		log.FieldYear, msg.Filter.Year,
		log.FieldGranularity, string(msg.Filter.Granularity),
		log.FieldProjection, string(msg.Filter.Projection))

	report, err := w.builder.Build(ctx, msg.Filter)
	if err != nil {
		return fmt.Errorf("build report %s: %w", id, err)
	}

	if len(w.writers) == 0 {
		w.logger.WarnContext(ctx, "No report writers configured, report discarded", log.FieldRequestID, id)
		return nil
	}

	var errs []error
	for _, wr := range w.writers {
		if err := wr.WriteReport(ctx, id, report); err != nil {
			w.logger.ErrorContext(ctx, "Failed to write report",
				log.FieldRequestID, id,
				log.FieldDestination, wr.Name(),
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("%s: %w", wr.Name(), err))
			continue
		}
		w.logger.InfoContext(ctx, "Report written",
			log.FieldRequestID, id,
			log.FieldDestination, wr.Name())
	}

	w.logger.InfoContext(ctx, "Report request done",
		log.FieldRequestID, id,
		log.FieldDuration, time.Since(start).Milliseconds(),
		log.FieldSuccess, len(errs) == 0)
	return errors.Join(errs...)
}
