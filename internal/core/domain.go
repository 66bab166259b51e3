package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Receivable Nature = "receivable"
	Payable    Nature = "payable"
)

// DateLayout is the textual form dates take at the boundary (DD/MM/YYYY).
const DateLayout = "02/01/2006"

type (
	Nature string

	Date struct {
		time.Time
	}

	// DepartmentShare is one department's percentage of a title.
	// A nil Percentage means the department takes the whole amount.
	DepartmentShare struct {
		DepartmentCode string           `json:"departmentCode" yaml:"departmentCode"`
		Percentage     *decimal.Decimal `json:"percentage,omitempty" yaml:"percentage,omitempty"`
	}

	// Settlement is one partial or full payment event against a title.
	Settlement struct {
		Date          Date                `json:"date"`
		AccountID     string              `json:"accountId"`
		Amount        decimal.NullDecimal `json:"amount"`
		SettledAmount decimal.NullDecimal `json:"settledAmount"`
	}

	// Title is a receivable or payable document as delivered by the fetch layer.
	Title struct {
		CategoryCode string            `json:"categoryCode"`
		Nature       Nature            `json:"nature"`
		GrossAmount  decimal.Decimal   `json:"grossAmount"`
		DueDate      Date              `json:"dueDate"`
		IssueDate    Date              `json:"issueDate"`
		ClientName   string            `json:"clientName"`
		Departments  []DepartmentShare `json:"departments"`
		Settlements  []Settlement      `json:"settlements"`
		ProjectID    string            `json:"projectId,omitempty"`
		AccountID    string            `json:"accountId,omitempty"` // issuing account
		Description  string            `json:"description,omitempty"`
		Note         string            `json:"note,omitempty"`
	}

	// DepartmentAllocation is the portion of an entry charged to one department.
	DepartmentAllocation struct {
		DepartmentCode string          `json:"departmentCode"`
		Amount         decimal.Decimal `json:"amount"`
	}

	// LedgerEntry is a normalized, unsigned ledger line built from one settlement
	// (or, when Open is set, from the residual open balance of a title).
	LedgerEntry struct {
		Nature           Nature                 `json:"nature"`
		Date             Date                   `json:"date"`
		AccountID        string                 `json:"accountId"`
		Amount           decimal.Decimal        `json:"amount"`
		CategoryCode     string                 `json:"categoryCode"`
		CounterpartyName string                 `json:"counterpartyName"`
		Allocations      []DepartmentAllocation `json:"departmentAllocations"`
		ProjectID        string                 `json:"projectId,omitempty"`
		Description      string                 `json:"description,omitempty"`
		Note             string                 `json:"note,omitempty"`
		Open             bool                   `json:"open,omitempty"`
	}

	// GiroItem feeds the working-capital projection. PaymentDate is nil for
	// residual open balances.
	GiroItem struct {
		Nature           Nature          `json:"nature"`
		IssueDate        Date            `json:"issueDate"`
		DueDate          Date            `json:"dueDate"`
		PaymentDate      *Date           `json:"paymentDate,omitempty"`
		Amount           decimal.Decimal `json:"amount"`
		IssuingAccountID string          `json:"issuingAccountId"`
		PayingAccountID  string          `json:"payingAccountId,omitempty"`
		ProjectID        string          `json:"projectId,omitempty"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidPeriod      = errors.New("invalid period key")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidNature      = errors.New("invalid nature")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrInvalidProjection  = errors.New("invalid projection")
	ErrMissingAccount     = errors.New("title has no account")
)

// Sign returns +1 for receivables and -1 for payables.
func (n Nature) Sign() decimal.Decimal {
	if n == Payable {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Signed applies the nature's sign to an unsigned amount.
func (n Nature) Signed(amount decimal.Decimal) decimal.Decimal {
	if n == Payable {
		return amount.Neg()
	}
	return amount
}

func (n Nature) Validate() error {
	switch n {
	case Receivable, Payable:
		return nil
	default:
		return ErrInvalidNature
	}
}

// Validate checks what a store needs to file the title: a known nature and
// an account, either its own or one named by a settlement.
func (t Title) Validate() error {
	if err := t.Nature.Validate(); err != nil {
		return err
	}
	if t.AccountID != "" {
		return nil
	}
	for _, s := range t.Settlements {
		if s.AccountID != "" {
			return nil
		}
	}
	return ErrMissingAccount
}

// ParseNature accepts the English names and the Portuguese single-letter
// codes (R/P) used by the upstream system.
func ParseNature(s string) (Nature, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receivable", "r", "receber":
		return Receivable, nil
	case "payable", "p", "pagar":
		return Payable, nil
	default:
		return "", ErrInvalidNature
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the DD/MM/YYYY boundary form. An empty string yields the
// zero Date and no error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as DD/MM/YYYY, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the embedded time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	return d.UnmarshalText([]byte(s))
}

// Period returns the monthly period key the date falls in.
func (d Date) Period() PeriodKey {
	return Month(d.Year(), int(d.Month()))
}
