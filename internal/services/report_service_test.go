package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"caixa/internal/cache"
	"caixa/internal/core"
	"caixa/internal/source/memory"
)

var fixedNow = func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func revenueTitle(account, value string) core.Title {
	amount := dec(value)
	return core.Title{
		CategoryCode: "1.01",
		Nature:       core.Receivable,
		GrossAmount:  amount,
		IssueDate:    core.NewDate(2024, 1, 2),
		DueDate:      core.NewDate(2024, 1, 10),
		ClientName:   "ACME",
		Settlements: []core.Settlement{
			{Date: core.NewDate(2024, 1, 10), AccountID: account, Amount: decimal.NewNullDecimal(amount)},
		},
	}
}

func testStore() *memory.Store {
	ref := core.Reference{
		Classes: core.MapLookup[core.Classification]{"1.01": {ClassName: core.ClassGrossRevenue}},
		Accounts: core.MapLookup[core.AccountInfo]{
			"A1": {OpeningBalance: dec("1000")},
			"A2": {OpeningBalance: dec("200")},
		},
	}
	return memory.New(ref, []core.Title{revenueTitle("A1", "500"), revenueTitle("A2", "50")})
}

func TestReportService_BuildConsolidatesAccounts(t *testing.T) {
	store := testStore()
	svc := NewReportService(store, store, DefaultReportServiceConfig(), WithClock(fixedNow))

	r, err := svc.Build(context.Background(), core.Filter{Year: 2024})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	jan := core.Month(2024, 1)
	if got := r.DRE.Get(core.ClassGrossRevenue, jan); !got.Equal(dec("550")) {
		t.Errorf("gross revenue = %s, want 550", got)
	}
	if got := r.DRE.Get(core.ClassInitialCash, jan); !got.Equal(dec("1200")) {
		t.Errorf("initial cash = %s, want 1200", got)
	}
	if got := r.DRE.Get(core.ClassFinalCash, core.TotalPeriod); !got.Equal(dec("1750")) {
		t.Errorf("final cash = %s, want 1750", got)
	}

	single, err := svc.Build(context.Background(), core.Filter{Year: 2024, AccountIDs: []string{"A2"}})
	if err != nil {
		t.Fatalf("Build(A2): %v", err)
	}
	if got := single.DRE.Get(core.ClassFinalCash, core.TotalPeriod); !got.Equal(dec("250")) {
		t.Errorf("A2 final cash = %s, want 250", got)
	}
	if single.AccountID != "A2" {
		t.Errorf("AccountID = %q, want A2", single.AccountID)
	}
}

func TestReportService_Resolve(t *testing.T) {
	svc := NewReportService(nil, nil, DefaultReportServiceConfig(), WithClock(fixedNow))

	f, err := svc.Resolve(core.Filter{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.Granularity != core.Monthly || f.Projection != core.Realized || f.Year != 2025 || f.Now != core.Month(2025, 1) {
		t.Errorf("unexpected defaults: %+v", f)
	}

	_, err = svc.Resolve(core.Filter{Granularity: "weekly"})
	if !errors.Is(err, ErrInvalidFilter) || !errors.Is(err, core.ErrInvalidGranularity) {
		t.Errorf("Resolve(weekly) error = %v, want ErrInvalidFilter wrapping ErrInvalidGranularity", err)
	}
}

type countingReader struct {
	inner    *memory.Store
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     string
	mu       sync.Mutex
}

func (c *countingReader) ListTitles(ctx context.Context, accountID string, year int) ([]core.Title, error) {
	c.calls.Add(1)
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	c.mu.Lock()
	if n > c.peak.Load() {
		c.peak.Store(n)
	}
	c.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	if accountID == c.fail {
		return nil, errors.New("upstream unavailable")
	}
	return c.inner.ListTitles(ctx, accountID, year)
}

func TestReportService_CachesByFilter(t *testing.T) {
	store := testStore()
	reader := &countingReader{inner: store}
	c := cache.NewLRUCache[core.Report](8, time.Minute)
	svc := NewReportService(reader, store, DefaultReportServiceConfig(), WithClock(fixedNow), WithCache(c), WithTitleWriter(store))
	ctx := context.Background()

	if _, err := svc.Build(ctx, core.Filter{Year: 2024, AccountIDs: []string{"A2", "A1"}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := svc.Build(ctx, core.Filter{Year: 2024, AccountIDs: []string{"A1", "A2"}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := reader.calls.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2 (second build served from cache)", got)
	}

	if _, err := svc.Import(ctx, []core.Title{revenueTitle("A1", "1")}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if c.Size() != 0 {
		t.Errorf("cache size after import = %d, want 0", c.Size())
	}
	r, err := svc.Build(ctx, core.Filter{Year: 2024, AccountIDs: []string{"A1"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := r.DRE.Get(core.ClassGrossRevenue, core.Month(2024, 1)); !got.Equal(dec("501")) {
		t.Errorf("gross revenue after import = %s, want 501", got)
	}
}

func TestReportService_FetchFailureIsHardError(t *testing.T) {
	store := testStore()
	reader := &countingReader{inner: store, fail: "A2"}
	svc := NewReportService(reader, store, DefaultReportServiceConfig(), WithClock(fixedNow))

	_, err := svc.Build(context.Background(), core.Filter{Year: 2024})
	if err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestReportService_FetchConcurrencyLimit(t *testing.T) {
	ref := core.Reference{Accounts: core.MapLookup[core.AccountInfo]{}}
	for _, id := range []string{"A1", "A2", "A3", "A4", "A5", "A6"} {
		ref.Accounts[id] = core.AccountInfo{}
	}
	store := memory.New(ref, nil)
	reader := &countingReader{inner: store}
	svc := NewReportService(reader, store, ReportServiceConfig{FetchConcurrency: 2}, WithClock(fixedNow))

	if _, err := svc.Build(context.Background(), core.Filter{Year: 2024}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := reader.calls.Load(); got != 6 {
		t.Errorf("fetches = %d, want 6", got)
	}
	if got := reader.peak.Load(); got > 2 {
		t.Errorf("peak concurrent fetches = %d, want at most 2", got)
	}
}

type recordingPublisher struct {
	ids     []uuid.UUID
	filters []core.Filter
	err     error
}

func (p *recordingPublisher) PublishReportRequest(_ context.Context, id uuid.UUID, f core.Filter) error {
	p.ids = append(p.ids, id)
	p.filters = append(p.filters, f)
	return p.err
}

func TestReportService_RequestRefresh(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	svc := NewReportService(store, store, DefaultReportServiceConfig(), WithClock(fixedNow))
	if _, err := svc.RequestRefresh(ctx, core.Filter{}); !errors.Is(err, ErrQueueUnavailable) {
		t.Errorf("RequestRefresh without publisher error = %v, want ErrQueueUnavailable", err)
	}

	pub := &recordingPublisher{}
	svc = NewReportService(store, store, DefaultReportServiceConfig(), WithClock(fixedNow), WithPublisher(pub))
	id, err := svc.RequestRefresh(ctx, core.Filter{Year: 2024})
	if err != nil {
		t.Fatalf("RequestRefresh: %v", err)
	}
	if len(pub.ids) != 1 || pub.ids[0] != id {
		t.Fatalf("published ids = %v, want [%s]", pub.ids, id)
	}
	if pub.filters[0].Projection != core.Realized || pub.filters[0].Now != core.Month(2025, 1) {
		t.Errorf("published filter not resolved: %+v", pub.filters[0])
	}

	pub.err = errors.New("broker down")
	if _, err := svc.RequestRefresh(ctx, core.Filter{Year: 2024}); err == nil {
		t.Error("expected publish error")
	}
}

func TestReportService_ImportReadOnly(t *testing.T) {
	store := testStore()
	svc := NewReportService(store, store, DefaultReportServiceConfig())
	if _, err := svc.Import(context.Background(), nil); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Import error = %v, want ErrReadOnly", err)
	}
}
