package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"caixa/internal/core"
	"caixa/internal/source"

	_ "modernc.org/sqlite"
)

const isoDate = "2006-01-02"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *slog.Logger
}

var _ source.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("SQLite repository ready", "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTitles implements source.TitleReader
func (r *SQLiteRepository) ListTitles(ctx context.Context, accountID string, year int) ([]core.Title, error) {
	yearKey := ""
	if year != 0 {
		yearKey = fmt.Sprintf("%04d", year)
	}

	rows, err := r.queries.SelectTitles(ctx, accountID, yearKey)
	if err != nil {
		return nil, fmt.Errorf("select titles for %s: %w", accountID, err)
	}
	departments, err := r.queries.SelectTitleDepartments(ctx, accountID, yearKey)
	if err != nil {
		return nil, fmt.Errorf("select title departments for %s: %w", accountID, err)
	}
	settlements, err := r.queries.SelectSettlements(ctx, accountID, yearKey)
	if err != nil {
		return nil, fmt.Errorf("select settlements for %s: %w", accountID, err)
	}

	titles := make([]core.Title, len(rows))
	index := make(map[int64]int, len(rows))
	for i, row := range rows {
		t, err := titleFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("title %d: %w", row.ID, err)
		}
		titles[i] = t
		index[row.ID] = i
	}
	for _, d := range departments {
		i := index[d.TitleID]
		share := core.DepartmentShare{DepartmentCode: d.DepartmentCode}
		if d.Percentage.Valid {
			pct := d.Percentage.Decimal
			share.Percentage = &pct
		}
		titles[i].Departments = append(titles[i].Departments, share)
	}
	for _, s := range settlements {
		i := index[s.TitleID]
		date, err := parseISODate(s.Date)
		if err != nil {
			return nil, fmt.Errorf("settlement of title %d: %w", s.TitleID, err)
		}
		titles[i].Settlements = append(titles[i].Settlements, core.Settlement{
			Date:          date,
			AccountID:     s.AccountID,
			Amount:        s.Amount,
			SettledAmount: s.SettledAmount,
		})
	}
	return titles, nil
}

// LoadReference implements source.ReferenceReader
func (r *SQLiteRepository) LoadReference(ctx context.Context) (core.Reference, error) {
	ref := core.Reference{
		Classes:     core.MapLookup[core.Classification]{},
		Departments: core.MapLookup[string]{},
		Accounts:    core.MapLookup[core.AccountInfo]{},
	}

	classes, err := r.queries.ListPairs(ctx, listClassifications)
	if err != nil {
		return ref, fmt.Errorf("list classifications: %w", err)
	}
	for code, class := range classes {
		ref.Classes[code] = core.Classification{ClassName: class}
	}

	departments, err := r.queries.ListPairs(ctx, listDepartments)
	if err != nil {
		return ref, fmt.Errorf("list departments: %w", err)
	}
	for code, name := range departments {
		ref.Departments[code] = name
	}

	accounts, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return ref, fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		ref.Accounts[a.ID] = core.AccountInfo{Name: a.Name, OpeningBalance: a.OpeningBalance}
	}
	return ref, nil
}

// ImportTitles implements source.TitleWriter. The batch is stored atomically.
func (r *SQLiteRepository) ImportTitles(ctx context.Context, titles []core.Title) (int, error) {
	start := time.Now()
	err := r.inTx(ctx, func(q *Queries) error {
		for i, t := range titles {
			if err := insertTitleRecord(ctx, q, t); err != nil {
				return fmt.Errorf("title %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "Titles imported",
		"count", len(titles),
		"duration_ms", time.Since(start).Milliseconds())
	return len(titles), nil
}

// SaveReference implements source.ReferenceWriter, upserting every entry.
func (r *SQLiteRepository) SaveReference(ctx context.Context, ref core.Reference) error {
	return r.inTx(ctx, func(q *Queries) error {
		for code, c := range ref.Classes {
			if err := q.UpsertClassification(ctx, code, c.ClassName); err != nil {
				return fmt.Errorf("upsert classification %s: %w", code, err)
			}
		}
		for code, name := range ref.Departments {
			if err := q.UpsertDepartment(ctx, code, name); err != nil {
				return fmt.Errorf("upsert department %s: %w", code, err)
			}
		}
		for id, a := range ref.Accounts {
			if err := q.UpsertAccount(ctx, id, a.Name, a.OpeningBalance); err != nil {
				return fmt.Errorf("upsert account %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertTitleRecord(ctx context.Context, q *Queries, t core.Title) error {
	id, err := q.InsertTitle(ctx, InsertTitleParams{
		AccountID:    t.AccountID,
		CategoryCode: t.CategoryCode,
		Nature:       string(t.Nature),
		GrossAmount:  t.GrossAmount,
		IssueDate:    formatISODate(t.IssueDate),
		DueDate:      formatISODate(t.DueDate),
		ClientName:   t.ClientName,
		ProjectID:    t.ProjectID,
		Description:  t.Description,
		Note:         t.Note,
	})
	if err != nil {
		return fmt.Errorf("insert title: %w", err)
	}
	for pos, d := range t.Departments {
		var pct decimal.NullDecimal
		if d.Percentage != nil {
			pct = decimal.NewNullDecimal(*d.Percentage)
		}
		if err := q.InsertTitleDepartment(ctx, id, pos, d.DepartmentCode, pct); err != nil {
			return fmt.Errorf("insert department %s: %w", d.DepartmentCode, err)
		}
	}
	for pos, s := range t.Settlements {
		err := q.InsertSettlement(ctx, InsertSettlementParams{
			TitleID:       id,
			Position:      pos,
			Date:          formatISODate(s.Date),
			AccountID:     s.AccountID,
			Amount:        s.Amount,
			SettledAmount: s.SettledAmount,
		})
		if err != nil {
			return fmt.Errorf("insert settlement %d: %w", pos, err)
		}
	}
	return nil
}

func titleFromRow(row TitleRow) (core.Title, error) {
	issue, err := parseISODate(row.IssueDate)
	if err != nil {
		return core.Title{}, err
	}
	due, err := parseISODate(row.DueDate)
	if err != nil {
		return core.Title{}, err
	}
	return core.Title{
		CategoryCode: row.CategoryCode,
		Nature:       core.Nature(row.Nature),
		GrossAmount:  row.GrossAmount,
		IssueDate:    issue,
		DueDate:      due,
		ClientName:   row.ClientName,
		ProjectID:    row.ProjectID,
		AccountID:    row.AccountID,
		Description:  row.Description,
		Note:         row.Note,
		Departments:  []core.DepartmentShare{},
		Settlements:  []core.Settlement{},
	}, nil
}

func formatISODate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDate)
}

func parseISODate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.ParseInLocation(isoDate, s, time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return core.Date{Time: t}, nil
}
