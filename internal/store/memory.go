package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"billing/pkg/models"
)

var errReadOnlyTx = errors.New("write inside read-only transaction")

// sortKey orders records by creation time, then ID for stability.
func sortKey(t time.Time, id string) string {
	return t.UTC().Format(time.RFC3339Nano) + "|" + id
}

// InMemory is a Store backed by in-process maps, intended for tests and
// ephemeral runs. Update works on a snapshot that replaces the live state
// only when the callback succeeds, giving the same all-or-nothing behavior
// as a database transaction.
type InMemory struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	clients   map[string]models.Client
	projects  map[string]models.Project
	invoices  map[string]models.Invoice
	payments  map[string]models.Payment
	schedules map[string]models.RecurringSchedule
	expenses  map[string]models.Expense
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{state: newMemState()}
}

func newMemState() *memState {
	return &memState{
		clients:   map[string]models.Client{},
		projects:  map[string]models.Project{},
		invoices:  map[string]models.Invoice{},
		payments:  map[string]models.Payment{},
		schedules: map[string]models.RecurringSchedule{},
		expenses:  map[string]models.Expense{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.expenses {
		c.expenses[k] = v
	}
	return c
}

// View runs fn against the current state. Writes are rejected.
func (m *InMemory) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{state: m.state, readOnly: true})
}

// Update runs fn against a snapshot and publishes it only on success.
func (m *InMemory) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.state.clone()
	if err := fn(&memTx{state: next}); err != nil {
		return err
	}
	m.state = next
	return nil
}

// Close is a no-op for the in-memory store.
func (m *InMemory) Close() error { return nil }

type memTx struct {
	state    *memState
	readOnly bool
}

func (t *memTx) GetClient(id string) (models.Client, error) {
	c, ok := t.state.clients[id]
	if !ok {
		return models.Client{}, ErrNotFound
	}
	return c, nil
}

func (t *memTx) ListClients() ([]models.Client, error) {
	out := make([]models.Client, 0, len(t.state.clients))
	for _, c := range t.state.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return sortKey(out[i].CreatedAt, out[i].ID) < sortKey(out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t *memTx) PutClient(c models.Client) error {
	if t.readOnly {
		return errReadOnlyTx
	}
	t.state.clients[c.ID] = c
	return nil
}

func (t *memTx) GetProject(id string) (models.Project, error) {
	p, ok := t.state.projects[id]
	if !ok {
		return models.Project{}, ErrNotFound
	}
	return p, nil
}

func (t *memTx) ListProjects() ([]models.Project, error) {
	out := make([]models.Project, 0, len(t.state.projects))
	for _, p := range t.state.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return sortKey(out[i].CreatedAt, out[i].ID) < sortKey(out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t *memTx) PutProject(p models.Project) error {
	if t.readOnly {
		return errReadOnlyTx
	}
	t.state.projects[p.ID] = p
	return nil
}

func (t *memTx) GetInvoice(id string) (models.Invoice, error) {
	inv, ok := t.state.invoices[id]
	if !ok {
		return models.Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (t *memTx) ListInvoices() ([]models.Invoice, error) {
	out := make([]models.Invoice, 0, len(t.state.invoices))
	for _, inv := range t.state.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return sortKey(out[i].CreatedAt, out[i].ID) < sortKey(out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t *memTx) PutInvoice(inv models.Invoice) error {
	if t.readOnly {
		return errReadOnlyTx
	}
	t.state.invoices[inv.ID] = inv
	return nil
}

func (t *memTx) DeleteInvoice(id string) error {
	if t.readOnly {
		return errReadOnlyTx
	}
	if _, ok := t.state.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.invoices, id)
	for pid, p := range t.state.payments {
		if p.InvoiceID == id {
			delete(t.state.payments, pid)
		}
	}
	return nil
}

func (t *memTx) ListPayments() ([]models.Payment, error) {
	out := make([]models.Payment, 0, len(t.state.payments))
	for _, p := range t.state.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return sortKey(out[i].CreatedAt, out[i].ID) < sortKey(out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t *memTx) ListPaymentsByInvoice(invoiceID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range t.state.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return sortKey(out[i].CreatedAt, out[i].ID) < sortKey(out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t *memTx) PutPayment(p models.Payment) error {
	if t.readOnly {
		return errReadOnlyTx
	}
	t.state.payments[p.ID] = p
	return nil
}

func (t *memTx) GetSchedule(id string) (models.RecurringSchedule, error) {
	s, ok := t.state.schedules[id]
	if !ok {
		return models.RecurringSchedule{}, ErrNotFound
	}
	return s, nil
}

func (t *memTx) ListSchedules() ([]models.RecurringSchedule, error) {
	out := make([]models.RecurringSchedule, 0, len(t.state.schedules))
	for _, s := range t.state.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return sortKey(out[i].CreatedAt, out[i].ID) < sortKey(out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t *memTx) PutSchedule(s models.RecurringSchedule) error {
	if t.readOnly {
		return errReadOnlyTx
	}
	t.state.schedules[s.ID] = s
	return nil
}

func (t *memTx) ListExpenses() ([]models.Expense, error) {
	out := make([]models.Expense, 0, len(t.state.expenses))
	for _, e := range t.state.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return sortKey(out[i].CreatedAt, out[i].ID) < sortKey(out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t *memTx) PutExpense(e models.Expense) error {
	if t.readOnly {
		return errReadOnlyTx
	}
	t.state.expenses[e.ID] = e
	return nil
}
