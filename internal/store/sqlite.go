package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"billing/pkg/models"
)

// SQLite is a Store backed by a SQLite database file. Use ":memory:" for an
// ephemeral database. The schema is created on open.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed migrates) a SQLite store at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate"
	if path == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on&_txlock=immediate"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one pooled connection also keeps the
	// in-memory database from being per-connection.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		budget TEXT NOT NULL,
		status TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		project_id TEXT,
		line_items TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax_rate TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		total TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		due_date TEXT
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		method TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id);

	CREATE TABLE IF NOT EXISTS recurring_schedules (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		project_id TEXT,
		line_items TEXT NOT NULL,
		total TEXT NOT NULL,
		currency TEXT NOT NULL,
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		last_generated TEXT,
		is_active INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		amount TEXT NOT NULL,
		project_id TEXT,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLite) View(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(&sqlTx{ctx: ctx, tx: tx})
}

// Update runs fn in a transaction, committing on success.
func (s *SQLite) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&sqlTx{ctx: ctx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func encodeTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}

func decodeTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := decodeTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *sqlTx) GetClient(id string) (models.Client, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT id, name, email, phone, created_at FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

func (t *sqlTx) ListClients() ([]models.Client, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, name, email, phone, created_at FROM clients ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutClient(c models.Client) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO clients (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, phone=excluded.phone`,
		c.ID, c.Name, c.Email, c.Phone, encodeTime(c.CreatedAt))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (models.Client, error) {
	var c models.Client
	var createdAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return models.Client{}, ErrNotFound
		}
		return models.Client{}, err
	}
	var err error
	c.CreatedAt, err = decodeTime(createdAt)
	return c, err
}

func (t *sqlTx) GetProject(id string) (models.Project, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT id, client_id, name, budget, status, description, created_at FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func (t *sqlTx) ListProjects() ([]models.Project, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, client_id, name, budget, status, description, created_at FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutProject(p models.Project) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO projects (id, client_id, name, budget, status, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET client_id=excluded.client_id, name=excluded.name,
			budget=excluded.budget, status=excluded.status, description=excluded.description`,
		p.ID, p.ClientID, p.Name, p.Budget.String(), p.Status, p.Description, encodeTime(p.CreatedAt))
	return err
}

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	var budget, createdAt string
	if err := row.Scan(&p.ID, &p.ClientID, &p.Name, &budget, &p.Status, &p.Description, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	var err error
	if p.Budget, err = decimal.NewFromString(budget); err != nil {
		return models.Project{}, fmt.Errorf("invalid stored budget %q: %w", budget, err)
	}
	p.CreatedAt, err = decodeTime(createdAt)
	return p, err
}

func (t *sqlTx) GetInvoice(id string) (models.Invoice, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT id, client_id, project_id, line_items, subtotal, tax_rate, tax_amount, total,
			currency, status, notes, created_at, due_date
		 FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

func (t *sqlTx) ListInvoices() ([]models.Invoice, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, client_id, project_id, line_items, subtotal, tax_rate, tax_amount, total,
			currency, status, notes, created_at, due_date
		 FROM invoices ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutInvoice(inv models.Invoice) error {
	items, err := EncodeLineItems(inv.LineItems)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO invoices (id, client_id, project_id, line_items, subtotal, tax_rate,
			tax_amount, total, currency, status, notes, created_at, due_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET client_id=excluded.client_id, project_id=excluded.project_id,
			line_items=excluded.line_items, subtotal=excluded.subtotal, tax_rate=excluded.tax_rate,
			tax_amount=excluded.tax_amount, total=excluded.total, currency=excluded.currency,
			status=excluded.status, notes=excluded.notes, due_date=excluded.due_date`,
		inv.ID, inv.ClientID, inv.ProjectID, string(items), inv.Subtotal.String(), inv.TaxRate.String(),
		inv.TaxAmount.String(), inv.Total.String(), inv.Currency, string(inv.Status), inv.Notes,
		encodeTime(inv.CreatedAt), encodeTimePtr(inv.DueDate))
	return err
}

func (t *sqlTx) DeleteInvoice(id string) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInvoice(row rowScanner) (models.Invoice, error) {
	var inv models.Invoice
	var items, subtotal, taxRate, taxAmount, total, status, createdAt string
	var dueDate sql.NullString
	if err := row.Scan(&inv.ID, &inv.ClientID, &inv.ProjectID, &items, &subtotal, &taxRate,
		&taxAmount, &total, &inv.Currency, &status, &inv.Notes, &createdAt, &dueDate); err != nil {
		if err == sql.ErrNoRows {
			return models.Invoice{}, ErrNotFound
		}
		return models.Invoice{}, err
	}
	var err error
	if inv.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return models.Invoice{}, fmt.Errorf("invalid stored subtotal %q: %w", subtotal, err)
	}
	if inv.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return models.Invoice{}, fmt.Errorf("invalid stored tax rate %q: %w", taxRate, err)
	}
	if inv.TaxAmount, err = decimal.NewFromString(taxAmount); err != nil {
		return models.Invoice{}, fmt.Errorf("invalid stored tax amount %q: %w", taxAmount, err)
	}
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return models.Invoice{}, fmt.Errorf("invalid stored total %q: %w", total, err)
	}
	inv.LineItems = DecodeLineItems([]byte(items), inv.Total)
	inv.Status = models.InvoiceStatus(status)
	if inv.CreatedAt, err = decodeTime(createdAt); err != nil {
		return models.Invoice{}, err
	}
	if inv.DueDate, err = decodeTimePtr(dueDate); err != nil {
		return models.Invoice{}, err
	}
	return inv, nil
}

func (t *sqlTx) ListPayments() ([]models.Payment, error) {
	return t.queryPayments(
		`SELECT id, invoice_id, amount, date, method, notes, created_at FROM payments ORDER BY created_at, id`)
}

func (t *sqlTx) ListPaymentsByInvoice(invoiceID string) ([]models.Payment, error) {
	return t.queryPayments(
		`SELECT id, invoice_id, amount, date, method, notes, created_at FROM payments
		 WHERE invoice_id = ? ORDER BY created_at, id`, invoiceID)
}

func (t *sqlTx) queryPayments(query string, args ...any) ([]models.Payment, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		var amount, date, createdAt string
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &date, &p.Method, &p.Notes, &createdAt); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid stored payment amount %q: %w", amount, err)
		}
		if p.Date, err = decodeTime(date); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutPayment(p models.Payment) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO payments (id, invoice_id, amount, date, method, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET invoice_id=excluded.invoice_id, amount=excluded.amount,
			date=excluded.date, method=excluded.method, notes=excluded.notes`,
		p.ID, p.InvoiceID, p.Amount.String(), encodeTime(p.Date), p.Method, p.Notes, encodeTime(p.CreatedAt))
	return err
}

func (t *sqlTx) GetSchedule(id string) (models.RecurringSchedule, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT id, client_id, project_id, line_items, total, currency, frequency,
			start_date, end_date, last_generated, is_active, created_at
		 FROM recurring_schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

func (t *sqlTx) ListSchedules() ([]models.RecurringSchedule, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, client_id, project_id, line_items, total, currency, frequency,
			start_date, end_date, last_generated, is_active, created_at
		 FROM recurring_schedules ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.RecurringSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutSchedule(s models.RecurringSchedule) error {
	items, err := EncodeLineItems(s.LineItems)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO recurring_schedules (id, client_id, project_id, line_items, total,
			currency, frequency, start_date, end_date, last_generated, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET client_id=excluded.client_id, project_id=excluded.project_id,
			line_items=excluded.line_items, total=excluded.total, currency=excluded.currency,
			frequency=excluded.frequency, start_date=excluded.start_date, end_date=excluded.end_date,
			last_generated=excluded.last_generated, is_active=excluded.is_active`,
		s.ID, s.ClientID, s.ProjectID, string(items), s.Total.String(), s.Currency,
		string(s.Frequency), encodeTime(s.StartDate), encodeTimePtr(s.EndDate),
		encodeTimePtr(s.LastGenerated), s.IsActive, encodeTime(s.CreatedAt))
	return err
}

func scanSchedule(row rowScanner) (models.RecurringSchedule, error) {
	var s models.RecurringSchedule
	var items, total, frequency, startDate, createdAt string
	var endDate, lastGenerated sql.NullString
	if err := row.Scan(&s.ID, &s.ClientID, &s.ProjectID, &items, &total, &s.Currency,
		&frequency, &startDate, &endDate, &lastGenerated, &s.IsActive, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return models.RecurringSchedule{}, ErrNotFound
		}
		return models.RecurringSchedule{}, err
	}
	var err error
	if s.Total, err = decimal.NewFromString(total); err != nil {
		return models.RecurringSchedule{}, fmt.Errorf("invalid stored schedule total %q: %w", total, err)
	}
	s.LineItems = DecodeLineItems([]byte(items), s.Total)
	s.Frequency = models.Frequency(frequency)
	if s.StartDate, err = decodeTime(startDate); err != nil {
		return models.RecurringSchedule{}, err
	}
	if s.EndDate, err = decodeTimePtr(endDate); err != nil {
		return models.RecurringSchedule{}, err
	}
	if s.LastGenerated, err = decodeTimePtr(lastGenerated); err != nil {
		return models.RecurringSchedule{}, err
	}
	if s.CreatedAt, err = decodeTime(createdAt); err != nil {
		return models.RecurringSchedule{}, err
	}
	return s, nil
}

func (t *sqlTx) ListExpenses() ([]models.Expense, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, date, category, description, amount, project_id, created_at
		 FROM expenses ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Expense
	for rows.Next() {
		var e models.Expense
		var date, amount, createdAt string
		if err := rows.Scan(&e.ID, &date, &e.Category, &e.Description, &amount, &e.ProjectID, &createdAt); err != nil {
			return nil, err
		}
		if e.Date, err = decodeTime(date); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid stored expense amount %q: %w", amount, err)
		}
		if e.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutExpense(e models.Expense) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO expenses (id, date, category, description, amount, project_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET date=excluded.date, category=excluded.category,
			description=excluded.description, amount=excluded.amount, project_id=excluded.project_id`,
		e.ID, encodeTime(e.Date), e.Category, e.Description, e.Amount.String(), e.ProjectID, encodeTime(e.CreatedAt))
	return err
}
