package core

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Realized  Projection = "realized"
	Projected Projection = "projected"

	Monthly Granularity = "monthly"
	Annual  Granularity = "annual"
)

type (
	// Projection selects between the settled view and the view that also
	// counts open balances at their due dates.
	Projection string

	Granularity string

	// Transaction is one line of the flat ledger view.
	Transaction struct {
		Date        Date            `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Note        string          `json:"note,omitempty"`
		AccountID   string          `json:"accountId"`
		ProjectID   string          `json:"projectId,omitempty"`
	}

	// Report is everything the rendering layer consumes for one selection.
	Report struct {
		AccountID      string        `json:"accountId,omitempty"`
		ProjectID      string        `json:"projectId,omitempty"`
		Projection     Projection    `json:"projection"`
		Granularity    Granularity   `json:"granularity"`
		DRE            Matrix        `json:"dre"`
		Detail         DetailMatrix  `json:"detail"`
		Flows          Matrix        `json:"flows"`
		WorkingCapital Matrix        `json:"workingCapital"`
		Transactions   []Transaction `json:"transactions"`
		Periods        []PeriodKey   `json:"periods"`
		First          PeriodKey     `json:"first"`
		Last           PeriodKey     `json:"last"`
	}

	// Filter is the caller's selection.
	Filter struct {
		Granularity    Granularity `json:"granularity"`
		Year           int         `json:"year"`
		VisiblePeriods []PeriodKey `json:"visiblePeriods,omitempty"`
		AccountIDs     []string    `json:"accountIds,omitempty"`
		ProjectIDs     []string    `json:"projectIds,omitempty"`
		Projection     Projection  `json:"projection"`
		Now            PeriodKey   `json:"now,omitempty"`
	}
)

// NewReport returns an empty, structurally valid report.
func NewReport(projection Projection) Report {
	return Report{
		Projection:     projection,
		Granularity:    Monthly,
		DRE:            NewMatrix(),
		Detail:         make(DetailMatrix),
		Flows:          NewMatrix(),
		WorkingCapital: NewMatrix(),
		Transactions:   []Transaction{},
	}
}

func (p Projection) Validate() error {
	switch p {
	case Realized, Projected:
		return nil
	default:
		return ErrInvalidProjection
	}
}

func (g Granularity) Validate() error {
	switch g {
	case Monthly, Annual:
		return nil
	default:
		return ErrInvalidGranularity
	}
}

// Validate checks the filter's enumerations and period keys.
func (f Filter) Validate() error {
	if err := f.Granularity.Validate(); err != nil {
		return err
	}
	if err := f.Projection.Validate(); err != nil {
		return err
	}
	if f.Year < 1900 || f.Year > 9999 {
		return ErrInvalidPeriod
	}
	for _, p := range f.VisiblePeriods {
		if p.IsTotal() {
			return ErrInvalidPeriod
		}
		if (f.Granularity == Annual) != p.IsAnnual() {
			return ErrInvalidPeriod
		}
	}
	return nil
}

// Normalized returns a copy with sorted, deduplicated id lists and sorted
// visible periods, suitable for use as a cache key.
func (f Filter) Normalized() Filter {
	out := f
	out.AccountIDs = sortedUnique(f.AccountIDs)
	out.ProjectIDs = sortedUnique(f.ProjectIDs)
	out.VisiblePeriods = slices.Clone(f.VisiblePeriods)
	SortPeriodKeys(out.VisiblePeriods)
	out.VisiblePeriods = slices.Compact(out.VisiblePeriods)
	return out
}

// Key renders the normalized filter as a stable string.
func (f Filter) Key() string {
	n := f.Normalized()
	periods := make([]string, len(n.VisiblePeriods))
	for i, p := range n.VisiblePeriods {
		periods[i] = p.String()
	}
	return strings.Join([]string{
		string(n.Granularity),
		string(n.Projection),
		Year(n.Year).String(),
		n.Now.String(),
		strings.Join(n.AccountIDs, ","),
		strings.Join(n.ProjectIDs, ","),
		strings.Join(periods, ","),
	}, "|")
}

// Visible returns the periods the report should display: the explicit
// selection when present, otherwise the months of Year (monthly) or Year
// itself (annual).
func (f Filter) Visible() []PeriodKey {
	if len(f.VisiblePeriods) > 0 {
		return f.Normalized().VisiblePeriods
	}
	if f.Granularity == Annual {
		return []PeriodKey{Year(f.Year)}
	}
	return MonthsOf(f.Year)
}

// sortedUnique keeps empty ids: "" is the unassigned project.
func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.TrimSpace(v))
	}
	slices.Sort(out)
	return slices.Compact(out)
}
