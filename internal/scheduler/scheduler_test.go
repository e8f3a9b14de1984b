package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing/internal/ledger"
	"billing/internal/store"
	"billing/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) (*Scheduler, store.Store) {
	t.Helper()
	st := store.NewInMemory()
	err := st.Update(context.Background(), func(tx store.Tx) error {
		return tx.PutClient(models.Client{
			ID:        "c1",
			Name:      "Acme Ltd",
			CreatedAt: date(2024, time.January, 1),
		})
	})
	require.NoError(t, err)
	sched := New(st, ledger.New(st), Options{PaymentTermsDays: 30})
	return sched, st
}

func putSchedule(t *testing.T, st store.Store, s models.RecurringSchedule) {
	t.Helper()
	if s.ClientID == "" {
		s.ClientID = "c1"
	}
	if len(s.LineItems) == 0 {
		s.LineItems = []models.LineItem{{Description: "Retainer", Price: decimal.NewFromInt(2000)}}
		s.Total = decimal.NewFromInt(2000)
	}
	if s.Currency == "" {
		s.Currency = "USD"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.StartDate
	}
	err := st.Update(context.Background(), func(tx store.Tx) error {
		return tx.PutSchedule(s)
	})
	require.NoError(t, err)
}

func getSchedule(t *testing.T, st store.Store, id string) models.RecurringSchedule {
	t.Helper()
	var out models.RecurringSchedule
	err := st.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.GetSchedule(id)
		return err
	})
	require.NoError(t, err)
	return out
}

func listInvoices(t *testing.T, st store.Store) []models.Invoice {
	t.Helper()
	var out []models.Invoice
	err := st.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.ListInvoices()
		return err
	})
	require.NoError(t, err)
	return out
}

func TestProcessDueGeneratesAndAdvancesWatermark(t *testing.T) {
	sched, st := newFixture(t)
	ctx := context.Background()
	putSchedule(t, st, models.RecurringSchedule{
		ID:        "s1",
		Frequency: models.Monthly,
		StartDate: date(2024, time.January, 15),
		IsActive:  true,
	})

	asOf := date(2024, time.January, 20)
	result, err := sched.ProcessDue(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, result.Generated, 1)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "s1", result.Generated[0].ScheduleID)

	invoices := listInvoices(t, st)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, "c1", inv.ClientID)
	assert.Equal(t, models.StatusUnpaid, inv.Status)
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(2000)))
	assert.True(t, inv.CreatedAt.Equal(asOf))
	require.NotNil(t, inv.DueDate)
	assert.True(t, inv.DueDate.Equal(asOf.AddDate(0, 0, 30)), "due date follows payment terms")
	assert.True(t, strings.Contains(inv.Notes, "s1"))

	// Watermark advances to the processing time, not the nominal due date.
	s := getSchedule(t, st, "s1")
	require.NotNil(t, s.LastGenerated)
	assert.True(t, s.LastGenerated.Equal(asOf))
}

func TestProcessDueIsIdempotentWithinPeriod(t *testing.T) {
	sched, st := newFixture(t)
	ctx := context.Background()
	putSchedule(t, st, models.RecurringSchedule{
		ID:        "s1",
		Frequency: models.Monthly,
		StartDate: date(2024, time.January, 15),
		IsActive:  true,
	})

	first, err := sched.ProcessDue(ctx, date(2024, time.January, 20))
	require.NoError(t, err)
	require.Len(t, first.Generated, 1)

	// Re-running within the same period generates nothing.
	second, err := sched.ProcessDue(ctx, date(2024, time.February, 10))
	require.NoError(t, err)
	assert.Empty(t, second.Generated)
	assert.Empty(t, second.Errors)
	assert.Len(t, listInvoices(t, st), 1)

	// Once the series hits Feb 15 a new invoice is due, even though the
	// previous one was generated late on Jan 20.
	third, err := sched.ProcessDue(ctx, date(2024, time.February, 16))
	require.NoError(t, err)
	require.Len(t, third.Generated, 1)
	assert.Len(t, listInvoices(t, st), 2)
}

func TestProcessDueSkipsInactiveAndEnded(t *testing.T) {
	sched, st := newFixture(t)
	ctx := context.Background()
	end := date(2024, time.January, 1)
	putSchedule(t, st, models.RecurringSchedule{
		ID:        "inactive",
		Frequency: models.Monthly,
		StartDate: date(2023, time.January, 1),
		IsActive:  false,
	})
	putSchedule(t, st, models.RecurringSchedule{
		ID:        "ended",
		Frequency: models.Monthly,
		StartDate: date(2023, time.January, 1),
		EndDate:   &end,
		IsActive:  true,
	})

	result, err := sched.ProcessDue(ctx, date(2024, time.June, 1))
	require.NoError(t, err)
	assert.Empty(t, result.Generated)
	assert.Empty(t, result.Errors)
	assert.Empty(t, listInvoices(t, st))
}

func TestProcessDueIsolatesFailures(t *testing.T) {
	sched, st := newFixture(t)
	ctx := context.Background()
	// "broken" references a client that does not exist, so its generation
	// fails; "ok" must still generate in the same pass.
	putSchedule(t, st, models.RecurringSchedule{
		ID:        "broken",
		ClientID:  "ghost",
		Frequency: models.Monthly,
		StartDate: date(2024, time.January, 1),
		IsActive:  true,
	})
	putSchedule(t, st, models.RecurringSchedule{
		ID:        "ok",
		Frequency: models.Monthly,
		StartDate: date(2024, time.January, 1),
		IsActive:  true,
	})

	result, err := sched.ProcessDue(ctx, date(2024, time.January, 2))
	require.NoError(t, err)
	require.Len(t, result.Generated, 1)
	assert.Equal(t, "ok", result.Generated[0].ScheduleID)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "broken", result.Errors[0].ScheduleID)
	assert.ErrorIs(t, result.Errors[0].Err, store.ErrNotFound)

	// The failed schedule's watermark is untouched, so it retries next tick.
	s := getSchedule(t, st, "broken")
	assert.Nil(t, s.LastGenerated)
}

func TestManualGenerate(t *testing.T) {
	sched, st := newFixture(t)
	ctx := context.Background()

	t.Run("generates even when not due", func(t *testing.T) {
		future := time.Now().UTC().AddDate(1, 0, 0)
		putSchedule(t, st, models.RecurringSchedule{
			ID:        "future",
			Frequency: models.Monthly,
			StartDate: future,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		})
		inv, err := sched.ManualGenerate(ctx, "future")
		require.NoError(t, err)
		assert.NotEmpty(t, inv.ID)

		s := getSchedule(t, st, "future")
		require.NotNil(t, s.LastGenerated)
	})

	t.Run("inactive schedule is rejected", func(t *testing.T) {
		putSchedule(t, st, models.RecurringSchedule{
			ID:        "off",
			Frequency: models.Monthly,
			StartDate: date(2024, time.January, 1),
			IsActive:  false,
		})
		_, err := sched.ManualGenerate(ctx, "off")
		assert.ErrorIs(t, err, ErrScheduleInactive)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		_, err := sched.ManualGenerate(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWatermarkNeverMovesBackwards(t *testing.T) {
	sched, st := newFixture(t)
	ctx := context.Background()
	// A watermark ahead of the wall clock (operator backfill, clock skew)
	// must not be regressed by a manual generation.
	later := time.Now().UTC().AddDate(1, 0, 0)
	putSchedule(t, st, models.RecurringSchedule{
		ID:            "s1",
		Frequency:     models.Monthly,
		StartDate:     date(2024, time.January, 1),
		LastGenerated: &later,
		IsActive:      true,
		CreatedAt:     date(2024, time.January, 1),
	})

	_, err := sched.ManualGenerate(ctx, "s1")
	require.NoError(t, err)

	s := getSchedule(t, st, "s1")
	require.NotNil(t, s.LastGenerated)
	assert.True(t, s.LastGenerated.Equal(later))
}

func TestStartStopLifecycle(t *testing.T) {
	sched, _ := newFixture(t)

	assert.False(t, sched.Running())
	sched.Stop() // Stop on stopped is a no-op.
	assert.False(t, sched.Running())

	sched.Start(time.Hour)
	assert.True(t, sched.Running())
	sched.Start(time.Hour) // Start on running is a no-op.
	assert.True(t, sched.Running())

	sched.Stop()
	assert.False(t, sched.Running())
}

func TestUpcoming(t *testing.T) {
	sched, st := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	soon := now.AddDate(0, 0, 3)
	later := now.AddDate(0, 0, 10)
	farOut := now.AddDate(0, 0, 60)
	overdueStart := now.AddDate(0, 0, -5)

	putSchedule(t, st, models.RecurringSchedule{
		ID: "soon", Frequency: models.Monthly, StartDate: soon, IsActive: true, CreatedAt: now,
	})
	putSchedule(t, st, models.RecurringSchedule{
		ID: "later", Frequency: models.Monthly, StartDate: later, IsActive: true, CreatedAt: now,
	})
	putSchedule(t, st, models.RecurringSchedule{
		ID: "beyond-horizon", Frequency: models.Monthly, StartDate: farOut, IsActive: true, CreatedAt: now,
	})
	putSchedule(t, st, models.RecurringSchedule{
		ID: "overdue", Frequency: models.Monthly, StartDate: overdueStart, IsActive: true, CreatedAt: now,
	})
	putSchedule(t, st, models.RecurringSchedule{
		ID: "inactive", Frequency: models.Monthly, StartDate: soon, IsActive: false, CreatedAt: now,
	})

	upcoming, err := sched.Upcoming(ctx, 30)
	require.NoError(t, err)
	require.Len(t, upcoming, 3)

	// Soonest first; an overdue schedule reports as generating now.
	assert.Equal(t, "overdue", upcoming[0].ScheduleID)
	assert.Equal(t, 0, upcoming[0].DaysUntil)
	assert.Equal(t, "soon", upcoming[1].ScheduleID)
	assert.Equal(t, "later", upcoming[2].ScheduleID)

	assert.Equal(t, "Acme Ltd", upcoming[0].ClientName)
	assert.True(t, upcoming[0].Amount.Equal(decimal.NewFromInt(2000)))

	// Nothing was generated by the preview.
	assert.Empty(t, listInvoices(t, st))
}
