// Package source defines the ports the report service reads titles and
// reference data through, and the selection rule every store applies.
package source

import (
	"context"
	"errors"

	"caixa/internal/core"
)

// ErrNotFound is returned when a requested account does not exist in the store.
var ErrNotFound = errors.New("not found")

// Ports for data sources.
type (
	// TitleReader returns the titles relevant to one account in one year.
	// year 0 means every year.
	TitleReader interface {
		ListTitles(ctx context.Context, accountID string, year int) ([]core.Title, error)
	}

	ReferenceReader interface {
		LoadReference(ctx context.Context) (core.Reference, error)
	}

	// TitleWriter ingests titles, returning how many were stored.
	TitleWriter interface {
		ImportTitles(ctx context.Context, titles []core.Title) (int, error)
	}

	ReferenceWriter interface {
		SaveReference(ctx context.Context, ref core.Reference) error
	}

	// Store is a complete data source.
	Store interface {
		TitleReader
		ReferenceReader
		TitleWriter
		ReferenceWriter
	}
)

// Touches reports whether title t belongs to the (accountID, year) fetch: it
// must be issued by the account or settled through it, and its issue date,
// due date or one of its settlement dates must fall in year.
func Touches(t core.Title, accountID string, year int) bool {
	onAccount := t.AccountID == accountID
	inYear := year == 0 || inYearOf(t.IssueDate, year) || inYearOf(t.DueDate, year)
	for _, s := range t.Settlements {
		if s.AccountID == accountID {
			onAccount = true
		}
		if inYearOf(s.Date, year) {
			inYear = true
		}
	}
	return onAccount && inYear
}

func inYearOf(d core.Date, year int) bool {
	return !d.IsZero() && d.Year() == year
}
