// Package services orchestrates the report engine over its data sources,
// cache and message queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"caixa/internal/cache"
	"caixa/internal/core"
	"caixa/internal/engine"
	"caixa/internal/log"
	"caixa/internal/source"
)

var (
	// ErrInvalidFilter wraps every filter validation failure.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrQueueUnavailable is returned by RequestRefresh without a publisher.
	ErrQueueUnavailable = errors.New("report queue not configured")
	// ErrReadOnly is returned by Import when the source cannot store titles.
	ErrReadOnly = errors.New("data source is read-only")
)

// ReportRequestPublisher enqueues report builds for the worker.
type ReportRequestPublisher interface {
	PublishReportRequest(ctx context.Context, requestID uuid.UUID, f core.Filter) error
}

// ReportServiceConfig holds the tunables of the report service.
type ReportServiceConfig struct {
	// FetchConcurrency bounds concurrent title fetches (default: 4)
	FetchConcurrency int

	// OpenThreshold is the residual above which a title counts as open (default: 0.01)
	OpenThreshold decimal.Decimal

	// TransferPrefix marks intercompany transfer categories (default: "TRF")
	TransferPrefix string
}

// DefaultReportServiceConfig returns sensible defaults
func DefaultReportServiceConfig() ReportServiceConfig {
	return ReportServiceConfig{
		FetchConcurrency: 4,
		OpenThreshold:    core.Cent,
		TransferPrefix:   engine.DefaultTransferPrefix,
	}
}

// ReportService builds consolidated reports for a filter.
type ReportService struct {
	titles    source.TitleReader
	refs      source.ReferenceReader
	writer    source.TitleWriter
	cache     cache.Cache[core.Report]
	publisher ReportRequestPublisher
	config    ReportServiceConfig
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a ReportService.
type Option func(*ReportService)

// WithCache caches finished reports by normalized filter.
func WithCache(c cache.Cache[core.Report]) Option {
	return func(s *ReportService) { s.cache = c }
}

// WithPublisher enables RequestRefresh.
func WithPublisher(p ReportRequestPublisher) Option {
	return func(s *ReportService) { s.publisher = p }
}

// WithTitleWriter enables Import.
func WithTitleWriter(w source.TitleWriter) Option {
	return func(s *ReportService) { s.writer = w }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *ReportService) { s.logger = l }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ReportService) { s.now = now }
}

func NewReportService(titles source.TitleReader, refs source.ReferenceReader, config ReportServiceConfig, opts ...Option) *ReportService {
	if config.FetchConcurrency < 1 {
		config.FetchConcurrency = 1
	}
	s := &ReportService{
		titles: titles,
		refs:   refs,
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve fills the filter defaults: monthly granularity, realized
// projection, the current year and the current month as "now".
func (s *ReportService) Resolve(f core.Filter) (core.Filter, error) {
	today := s.now()
	if f.Granularity == "" {
		f.Granularity = core.Monthly
	}
	if f.Projection == "" {
		f.Projection = core.Realized
	}
	if f.Year == 0 {
		f.Year = today.Year()
	}
	if f.Now.IsTotal() {
		f.Now = core.Month(today.Year(), int(today.Month()))
	}
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return f.Normalized(), nil
}

// Build returns the consolidated report for f. Cached reports are shared, so
// callers must not modify the result.
func (s *ReportService) Build(ctx context.Context, f core.Filter) (core.Report, error) {
	f, err := s.Resolve(f)
	if err != nil {
		return core.Report{}, err
	}

	key := f.Key()
	if s.cache != nil {
		if r, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Report served from cache", log.FieldCacheHit, true, "key", key)
			return r, nil
		}
	}

	start := time.Now()
	ref, err := s.refs.LoadReference(ctx)
	if err != nil {
		return core.Report{}, fmt.Errorf("load reference: %w", err)
	}

	accounts := f.AccountIDs
	if len(accounts) == 0 {
		accounts = ref.AccountIDs()
		slices.Sort(accounts)
	}

	batches, err := s.fetch(ctx, accounts, fetchYear(f))
	if err != nil {
		return core.Report{}, err
	}

	opts := engine.DefaultOptions(f.Now)
	opts.OpenThreshold = s.config.OpenThreshold
	if s.config.TransferPrefix != "" {
		opts.TransferPrefix = s.config.TransferPrefix
	}
	opts.Logger = s.logger

	report := engine.BuildReport(batches, ref, f, opts)

	if s.cache != nil {
		s.cache.Set(key, report)
	}
	fields := log.NewFields().
		WithSelection(f.Year, string(f.Granularity), string(f.Projection), accounts, f.ProjectIDs).
		WithOperation(log.OpBuild)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	fields[log.FieldCacheHit] = false
	s.logger.InfoContext(ctx, "Report built", fields.ToSlice()...)
	return report, nil
}

// fetch loads the titles of every account concurrently. The first failure
// cancels the remaining fetches.
func (s *ReportService) fetch(ctx context.Context, accounts []string, year int) ([]engine.AccountTitles, error) {
	batches := make([]engine.AccountTitles, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.FetchConcurrency)
	for i, id := range accounts {
		i, id := i, id
		g.Go(func() error {
			titles, err := s.titles.ListTitles(gctx, id, year)
			if err != nil {
				return fmt.Errorf("fetch titles for account %s: %w", id, err)
			}
			batches[i] = engine.AccountTitles{AccountID: id, Titles: titles}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// fetchYear is the single year covered by the visible periods, or 0 when they
// span several years so each title is fetched once.
func fetchYear(f core.Filter) int {
	visible := f.Visible()
	if len(visible) == 0 {
		return f.Year
	}
	year := visible[0].Year
	for _, p := range visible[1:] {
		if p.Year != year {
			return 0
		}
	}
	return year
}

// Import stores titles and drops every cached report.
func (s *ReportService) Import(ctx context.Context, titles []core.Title) (int, error) {
	if s.writer == nil {
		return 0, ErrReadOnly
	}
	n, err := s.writer.ImportTitles(ctx, titles)
	if err != nil {
		return 0, fmt.Errorf("import titles: %w", err)
	}
	s.Invalidate()
	s.logger.InfoContext(ctx, "Titles imported", log.FieldCount, n, log.FieldOperation, log.OpImport)
	return n, nil
}

// Invalidate drops every cached report.
func (s *ReportService) Invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// RequestRefresh enqueues an asynchronous build of f and returns its request id.
func (s *ReportService) RequestRefresh(ctx context.Context, f core.Filter) (uuid.UUID, error) {
	if s.publisher == nil {
		return uuid.Nil, ErrQueueUnavailable
	}
	f, err := s.Resolve(f)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	if err := s.publisher.PublishReportRequest(ctx, id, f); err != nil {
		return uuid.Nil, fmt.Errorf("publish report request: %w", err)
	}
	s.logger.InfoContext(ctx, "Report refresh requested", log.FieldRequestID, id.String(), log.FieldOperation, log.OpPublish)
	return id, nil
}
