// Package scheduler runs the recurring-invoice generation loop.
//
// A Scheduler is either Stopped or Running. Start spawns a single background
// worker that polls for due schedules; Stop signals it and waits, bounded by
// a timeout, for the in-flight cycle to finish. Generation and the watermark
// advance for a schedule commit in one store transaction, so a schedule is
// either fully generated for a period or untouched and retried next tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing/internal/ledger"
	"billing/internal/logger"
	"billing/internal/schedule"
	"billing/internal/store"
	"billing/pkg/models"
)

// ErrScheduleInactive is returned when generation is requested for a
// deactivated schedule.
var ErrScheduleInactive = errors.New("schedule is not active")

// Options configures a Scheduler.
type Options struct {
	// PaymentTermsDays is the due-date offset applied to generated invoices.
	PaymentTermsDays int
	// StopTimeout bounds how long Stop waits for the worker to exit.
	StopTimeout time.Duration
}

// Scheduler generates invoices from recurring schedules.
type Scheduler struct {
	store  store.Store
	ledger *ledger.Ledger
	opts   Options
	log    zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler in the Stopped state.
func New(st store.Store, lg *ledger.Ledger, opts Options) *Scheduler {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	return &Scheduler{
		store:  st,
		ledger: lg,
		opts:   opts,
		log:    logger.WithComponent("scheduler"),
	}
}

// Start transitions Stopped -> Running and spawns the background worker. The
// first check runs immediately; subsequent checks run every pollInterval.
// Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(pollInterval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.log.Debug().Msg("Start called on running scheduler, ignoring")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	s.log.Info().Dur("poll_interval", pollInterval).Msg("Scheduler started")
	go s.run(pollInterval, s.stopCh, s.doneCh)
}

// Stop transitions Running -> Stopped. It signals the worker and waits up to
// StopTimeout for it to finish; a generation cycle already executing is
// allowed to complete. Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	select {
	case <-s.doneCh:
		s.log.Info().Msg("Scheduler stopped")
	case <-time.After(s.opts.StopTimeout):
		s.log.Warn().Dur("timeout", s.opts.StopTimeout).Msg("Scheduler worker did not exit before timeout")
	}
	s.running = false
}

// Running reports whether the background worker is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(pollInterval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		result, err := s.ProcessDue(context.Background(), time.Now().UTC())
		if err != nil {
			// A tick-level failure is logged and retried next tick, never fatal.
			s.log.Error().Err(err).Msg("Scheduler tick failed")
		} else if len(result.Generated) > 0 || len(result.Errors) > 0 {
			s.log.Info().
				Int("generated", len(result.Generated)).
				Int("errors", len(result.Errors)).
				Msg("Scheduler tick completed")
		}

		select {
		case <-stopCh:
			return
		case <-time.After(pollInterval):
		}
	}
}

// GeneratedInvoice links a schedule to the invoice it produced in a tick.
type GeneratedInvoice struct {
	ScheduleID string
	InvoiceID  string
}

// ScheduleError records a per-schedule generation failure. The schedule's
// watermark is unchanged, so it is retried on the next tick.
type ScheduleError struct {
	ScheduleID string
	Err        error
}

// Result is the outcome of one ProcessDue pass.
type Result struct {
	AsOf      time.Time
	Generated []GeneratedInvoice
	Errors    []ScheduleError
}

// ProcessDue generates an invoice for every schedule due as of the given
// time. Each schedule is processed in its own transaction: the invoice
// insert and the watermark advance commit together, and a failure in one
// schedule never blocks its siblings.
func (s *Scheduler) ProcessDue(ctx context.Context, asOf time.Time) (Result, error) {
	result := Result{AsOf: asOf}

	var due []models.RecurringSchedule
	err := s.store.View(ctx, func(tx store.Tx) error {
		schedules, err := tx.ListSchedules()
		if err != nil {
			return err
		}
		for _, sched := range schedules {
			if schedule.IsDue(sched, asOf) {
				due = append(due, sched)
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("scheduler: listing schedules: %w", err)
	}

	for _, sched := range due {
		inv, err := s.generateAndAdvance(ctx, sched.ID, asOf, true)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("schedule_id", sched.ID).
				Msg("Failed to generate invoice from schedule")
			result.Errors = append(result.Errors, ScheduleError{ScheduleID: sched.ID, Err: err})
			continue
		}
		if inv.ID == "" {
			// No longer due once inside the transaction; nothing generated.
			continue
		}
		result.Generated = append(result.Generated, GeneratedInvoice{ScheduleID: sched.ID, InvoiceID: inv.ID})
	}
	return result, nil
}

// ManualGenerate runs the generation path for a single schedule outside the
// polling cadence, regardless of whether it is currently due. The watermark
// advances exactly as in a scheduled run.
func (s *Scheduler) ManualGenerate(ctx context.Context, scheduleID string) (models.Invoice, error) {
	return s.generateAndAdvance(ctx, scheduleID, time.Now().UTC(), false)
}

// generateAndAdvance materializes an invoice from a schedule and advances its
// watermark to asOf, in one transaction. With requireDue set the schedule is
// re-checked inside the transaction, so a concurrent generation for the same
// period is not repeated.
func (s *Scheduler) generateAndAdvance(ctx context.Context, scheduleID string, asOf time.Time, requireDue bool) (models.Invoice, error) {
	var inv models.Invoice
	err := s.store.Update(ctx, func(tx store.Tx) error {
		sched, err := tx.GetSchedule(scheduleID)
		if err != nil {
			return err
		}
		if !sched.IsActive {
			return ErrScheduleInactive
		}
		if requireDue && !schedule.IsDue(sched, asOf) {
			// Already generated for this period by a concurrent run.
			return nil
		}

		dueDate := asOf.AddDate(0, 0, s.opts.PaymentTermsDays)
		draft := ledger.InvoiceDraft{
			ClientID:  sched.ClientID,
			ProjectID: sched.ProjectID,
			LineItems: sched.LineItems,
			Currency:  sched.Currency,
			Notes:     "Auto-generated from recurring schedule " + sched.ID,
			DueDate:   &dueDate,
		}
		inv, err = s.ledger.CreateInvoiceTx(tx, draft, asOf)
		if err != nil {
			return err
		}

		// The watermark records "last successfully generated at"; it never
		// moves backwards.
		watermark := asOf
		if sched.LastGenerated != nil && sched.LastGenerated.After(watermark) {
			watermark = *sched.LastGenerated
		}
		sched.LastGenerated = &watermark
		return tx.PutSchedule(sched)
	})
	if err != nil {
		return models.Invoice{}, err
	}
	if inv.ID != "" {
		s.log.Info().
			Str("schedule_id", scheduleID).
			Str("invoice_id", inv.ID).
			Str("total", inv.Total.String()).
			Time("as_of", asOf).
			Msg("Invoice generated from schedule")
	}
	return inv, nil
}

// UpcomingInvoice is a read-only projection of a schedule's next generation.
type UpcomingInvoice struct {
	ScheduleID     string
	ClientName     string
	Amount         decimal.Decimal
	Currency       string
	Frequency      models.Frequency
	NextGeneration time.Time
	DaysUntil      int
}

// Upcoming lists, without generating anything, the invoices that active
// schedules would produce within the next daysAhead days, soonest first. A
// schedule that is already overdue is reported as generating now.
func (s *Scheduler) Upcoming(ctx context.Context, daysAhead int) ([]UpcomingInvoice, error) {
	now := time.Now().UTC()
	horizon := now.AddDate(0, 0, daysAhead)

	var upcoming []UpcomingInvoice
	err := s.store.View(ctx, func(tx store.Tx) error {
		schedules, err := tx.ListSchedules()
		if err != nil {
			return err
		}
		for _, sched := range schedules {
			if !sched.IsActive {
				continue
			}
			next, err := schedule.NextGeneration(sched)
			if err != nil {
				s.log.Warn().
					Err(err).
					Str("schedule_id", sched.ID).
					Msg("Skipping schedule with invalid frequency")
				continue
			}
			if next.Before(now) {
				next = now
			}
			if next.After(horizon) {
				continue
			}
			if sched.EndDate != nil && next.After(*sched.EndDate) {
				continue
			}

			clientName := ""
			if client, err := tx.GetClient(sched.ClientID); err == nil {
				clientName = client.Name
			}
			upcoming = append(upcoming, UpcomingInvoice{
				ScheduleID:     sched.ID,
				ClientName:     clientName,
				Amount:         sched.Total,
				Currency:       sched.Currency,
				Frequency:      sched.Frequency,
				NextGeneration: next,
				DaysUntil:      int(next.Sub(now).Hours() / 24),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: listing upcoming invoices: %w", err)
	}

	sort.Slice(upcoming, func(i, j int) bool {
		if !upcoming[i].NextGeneration.Equal(upcoming[j].NextGeneration) {
			return upcoming[i].NextGeneration.Before(upcoming[j].NextGeneration)
		}
		return upcoming[i].ScheduleID < upcoming[j].ScheduleID
	})
	return upcoming, nil
}
