package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements of the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type InsertTitleParams struct {
	AccountID    string
	CategoryCode string
	Nature       string
	GrossAmount  decimal.Decimal
	IssueDate    string
	DueDate      string
	ClientName   string
	ProjectID    string
	Description  string
	Note         string
}

const insertTitle = `
INSERT INTO titles (account_id, category_code, nature, gross_amount, issue_date, due_date,
                    client_name, project_id, description, note)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) InsertTitle(ctx context.Context, arg InsertTitleParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertTitle,
		arg.AccountID, arg.CategoryCode, arg.Nature, arg.GrossAmount, arg.IssueDate, arg.DueDate,
		arg.ClientName, arg.ProjectID, arg.Description, arg.Note,
	).Scan(&id)
	return id, err
}

const insertTitleDepartment = `
INSERT INTO title_departments (title_id, position, department_code, percentage)
VALUES (?, ?, ?, ?)`

func (q *Queries) InsertTitleDepartment(ctx context.Context, titleID int64, position int, code string, pct decimal.NullDecimal) error {
	_, err := q.db.ExecContext(ctx, insertTitleDepartment, titleID, position, code, pct)
	return err
}

type InsertSettlementParams struct {
	TitleID       int64
	Position      int
	Date          string
	AccountID     string
	Amount        decimal.NullDecimal
	SettledAmount decimal.NullDecimal
}

const insertSettlement = `
INSERT INTO settlements (title_id, position, date, account_id, amount, settled_amount)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSettlement(ctx context.Context, arg InsertSettlementParams) error {
	_, err := q.db.ExecContext(ctx, insertSettlement,
		arg.TitleID, arg.Position, arg.Date, arg.AccountID, arg.Amount, arg.SettledAmount)
	return err
}

// selectedTitles picks the titles issued by or settled through ?1 with a
// date in year ?2 ('' for every year). Dates are stored as YYYY-MM-DD.
const selectedTitles = `
WITH selected AS (
    SELECT t.id FROM titles t
    WHERE (t.account_id = ?1
           OR EXISTS (SELECT 1 FROM settlements s WHERE s.title_id = t.id AND s.account_id = ?1))
      AND (?2 = ''
           OR substr(t.issue_date, 1, 4) = ?2
           OR substr(t.due_date, 1, 4) = ?2
           OR EXISTS (SELECT 1 FROM settlements s WHERE s.title_id = t.id AND substr(s.date, 1, 4) = ?2))
)`

type TitleRow struct {
	ID           int64
	AccountID    string
	CategoryCode string
	Nature       string
	GrossAmount  decimal.Decimal
	IssueDate    string
	DueDate      string
	ClientName   string
	ProjectID    string
	Description  string
	Note         string
}

const selectTitles = selectedTitles + `
SELECT t.id, t.account_id, t.category_code, t.nature, t.gross_amount, t.issue_date, t.due_date,
       t.client_name, t.project_id, t.description, t.note
FROM titles t JOIN selected ON selected.id = t.id
ORDER BY t.id`

func (q *Queries) SelectTitles(ctx context.Context, accountID, year string) ([]TitleRow, error) {
	rows, err := q.db.QueryContext(ctx, selectTitles, accountID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TitleRow
	for rows.Next() {
		var i TitleRow
		if err := rows.Scan(&i.ID, &i.AccountID, &i.CategoryCode, &i.Nature, &i.GrossAmount,
			&i.IssueDate, &i.DueDate, &i.ClientName, &i.ProjectID, &i.Description, &i.Note); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type DepartmentRow struct {
	TitleID        int64
	DepartmentCode string
	Percentage     decimal.NullDecimal
}

const selectTitleDepartments = selectedTitles + `
SELECT d.title_id, d.department_code, d.percentage
FROM title_departments d JOIN selected ON selected.id = d.title_id
ORDER BY d.title_id, d.position`

func (q *Queries) SelectTitleDepartments(ctx context.Context, accountID, year string) ([]DepartmentRow, error) {
	rows, err := q.db.QueryContext(ctx, selectTitleDepartments, accountID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DepartmentRow
	for rows.Next() {
		var i DepartmentRow
		if err := rows.Scan(&i.TitleID, &i.DepartmentCode, &i.Percentage); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type SettlementRow struct {
	TitleID       int64
	Date          string
	AccountID     string
	Amount        decimal.NullDecimal
	SettledAmount decimal.NullDecimal
}

const selectSettlements = selectedTitles + `
SELECT s.title_id, s.date, s.account_id, s.amount, s.settled_amount
FROM settlements s JOIN selected ON selected.id = s.title_id
ORDER BY s.title_id, s.position`

func (q *Queries) SelectSettlements(ctx context.Context, accountID, year string) ([]SettlementRow, error) {
	rows, err := q.db.QueryContext(ctx, selectSettlements, accountID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SettlementRow
	for rows.Next() {
		var i SettlementRow
		if err := rows.Scan(&i.TitleID, &i.Date, &i.AccountID, &i.Amount, &i.SettledAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertAccount = `
INSERT INTO accounts (id, name, opening_balance) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, opening_balance = excluded.opening_balance`

func (q *Queries) UpsertAccount(ctx context.Context, id, name string, opening decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, upsertAccount, id, name, opening)
	return err
}

const upsertDepartment = `
INSERT INTO departments (code, name) VALUES (?, ?)
ON CONFLICT(code) DO UPDATE SET name = excluded.name`

func (q *Queries) UpsertDepartment(ctx context.Context, code, name string) error {
	_, err := q.db.ExecContext(ctx, upsertDepartment, code, name)
	return err
}

const upsertClassification = `
INSERT INTO classifications (category_code, class_name) VALUES (?, ?)
ON CONFLICT(category_code) DO UPDATE SET class_name = excluded.class_name`

func (q *Queries) UpsertClassification(ctx context.Context, code, class string) error {
	_, err := q.db.ExecContext(ctx, upsertClassification, code, class)
	return err
}

type AccountRow struct {
	ID             string
	Name           string
	OpeningBalance decimal.Decimal
}

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, opening_balance FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		var i AccountRow
		if err := rows.Scan(&i.ID, &i.Name, &i.OpeningBalance); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// ListPairs runs a two-column text query, used for the code→name tables.
func (q *Queries) ListPairs(ctx context.Context, query string) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

const (
	listDepartments     = `SELECT code, name FROM departments`
	listClassifications = `SELECT category_code, class_name FROM classifications`
)
