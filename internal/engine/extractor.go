package engine

import (
	"github.com/shopspring/decimal"

	"caixa/internal/core"
	"caixa/internal/log"
)

// Skip reasons reported for malformed records.
const (
	SkipMissingCategory    = "missing category"
	SkipMissingSettlements = "missing settlement list"
	SkipInvalidNature      = "invalid nature"
	SkipSettlementDate     = "settlement without date"
	SkipSettlementAccount  = "settlement without account"
	SkipSettlementAmount   = "settlement without amount"
	SkipOpenWithoutDueDate = "open balance without due date"
	SkipOpenWithoutAccount = "open balance without account"
)

// Skipped records one ignored title or settlement line.
type Skipped struct {
	TitleIndex      int    `json:"titleIndex"`
	SettlementIndex int    `json:"settlementIndex"` // -1 for title-level skips
	Reason          string `json:"reason"`
}

// Extraction is the normalized form of a batch of titles.
type Extraction struct {
	Entries     []core.LedgerEntry // one per valid settlement line
	OpenEntries []core.LedgerEntry // one per title with a residual balance
	GiroItems   []core.GiroItem
	Skipped     []Skipped
}

// Extract normalizes titles into settled ledger entries, residual open
// entries and working-capital items. It never fails; malformed titles and
// settlement lines are skipped and logged.
func Extract(titles []core.Title, opts Options) Extraction {
	return ExtractFor(titles, "", opts)
}

// ExtractFor is Extract for titles fetched for accountID. A title's issuing
// account is its AccountID, else the account of its first valid settlement,
// else accountID. Open balances left with no issuing account are skipped.
func ExtractFor(titles []core.Title, accountID string, opts Options) Extraction {
	logger := opts.logger().With(log.FieldComponent, log.ComponentEngine, log.FieldOperation, log.OpExtract)
	ex := Extraction{
		Entries:     []core.LedgerEntry{},
		OpenEntries: []core.LedgerEntry{},
		GiroItems:   []core.GiroItem{},
	}
	skip := func(ti, si int, reason string) {
		ex.Skipped = append(ex.Skipped, Skipped{TitleIndex: ti, SettlementIndex: si, Reason: reason})
		logger.Warn("Skipping record", log.FieldTitleIndex, ti, log.FieldSettlementIndex, si, log.FieldReason, reason)
	}

	for ti, title := range titles {
		switch {
		case title.CategoryCode == "":
			skip(ti, -1, SkipMissingCategory)
			continue
		case title.Settlements == nil:
			skip(ti, -1, SkipMissingSettlements)
			continue
		case title.Nature.Validate() != nil:
			skip(ti, -1, SkipInvalidNature)
			continue
		}

		issuing := issuingAccount(title, accountID)
		paid := decimal.Zero
		for si, line := range title.Settlements {
			switch {
			case line.Date.IsZero():
				skip(ti, si, SkipSettlementDate)
				continue
			case line.AccountID == "":
				skip(ti, si, SkipSettlementAccount)
				continue
			case !line.Amount.Valid:
				skip(ti, si, SkipSettlementAmount)
				continue
			}
			amount := line.Amount.Decimal
			ex.Entries = append(ex.Entries, newEntry(title, line.Date, line.AccountID, amount, false))

			settled := amount
			if line.SettledAmount.Valid {
				settled = line.SettledAmount.Decimal
			}
			paid = paid.Add(settled)

			payment := line.Date
			ex.GiroItems = append(ex.GiroItems, core.GiroItem{
				Nature:           title.Nature,
				IssueDate:        title.IssueDate,
				DueDate:          title.DueDate,
				PaymentDate:      &payment,
				Amount:           amount,
				IssuingAccountID: issuing,
				PayingAccountID:  line.AccountID,
				ProjectID:        title.ProjectID,
			})
		}

		residual := title.GrossAmount.Sub(paid)
		if title.GrossAmount.IsZero() || !residual.GreaterThan(opts.OpenThreshold) {
			continue
		}
		if title.DueDate.IsZero() {
			skip(ti, -1, SkipOpenWithoutDueDate)
			continue
		}
		if issuing == "" {
			skip(ti, -1, SkipOpenWithoutAccount)
			continue
		}
		ex.OpenEntries = append(ex.OpenEntries, newEntry(title, title.DueDate, issuing, residual, true))
		ex.GiroItems = append(ex.GiroItems, core.GiroItem{
			Nature:           title.Nature,
			IssueDate:        title.IssueDate,
			DueDate:          title.DueDate,
			Amount:           residual,
			IssuingAccountID: issuing,
			ProjectID:        title.ProjectID,
		})
	}

	logger.Debug("Extraction complete",
		"titles", len(titles),
		"entries", len(ex.Entries),
		"open_entries", len(ex.OpenEntries),
		"skipped", len(ex.Skipped))
	return ex
}

func issuingAccount(title core.Title, fetched string) string {
	if title.AccountID != "" {
		return title.AccountID
	}
	for _, line := range title.Settlements {
		if !line.Date.IsZero() && line.AccountID != "" && line.Amount.Valid {
			return line.AccountID
		}
	}
	return fetched
}

func newEntry(title core.Title, date core.Date, accountID string, amount decimal.Decimal, open bool) core.LedgerEntry {
	return core.LedgerEntry{
		Nature:           title.Nature,
		Date:             date,
		AccountID:        accountID,
		Amount:           amount,
		CategoryCode:     title.CategoryCode,
		CounterpartyName: title.ClientName,
		Allocations:      Allocate(amount, title.Departments),
		ProjectID:        title.ProjectID,
		Description:      title.Description,
		Note:             title.Note,
		Open:             open,
	}
}
