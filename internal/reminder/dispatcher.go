// Package reminder delivers due content reminders by email.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/entitlement"
	"github.com/MediSynth-io/contentplanner/internal/mailer"
	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrNoEmail is returned by SendNow when the user has no address on file.
var ErrNoEmail = errors.New("user email not found")

// Store is the slice of persistence the dispatcher needs.
type Store interface {
	ClaimDueReminders(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.DueReminder, error)
	MarkReminderSent(ctx context.Context, id string) (bool, error)
	ReleaseReminder(ctx context.Context, id string) error
}

// ScanResult summarises one pass over the due reminders.
type ScanResult struct {
	Scanned int `json:"scanned"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Options tunes a Dispatcher. Zero values take defaults.
type Options struct {
	BatchSize      int
	Lease          time.Duration
	SendsPerSecond float64
	Metrics        *Metrics
	Now            func() time.Time
}

// Dispatcher claims due reminders and sends them.
type Dispatcher struct {
	store   Store
	sender  mailer.Sender
	limiter *rate.Limiter
	batch   int
	lease   time.Duration
	metrics *Metrics
	now     func() time.Time
	log     zerolog.Logger
}

func NewDispatcher(s Store, sender mailer.Sender, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Lease <= 0 {
		opts.Lease = 5 * time.Minute
	}
	limit := rate.Inf
	if opts.SendsPerSecond > 0 {
		limit = rate.Limit(opts.SendsPerSecond)
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		store:   s,
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		batch:   opts.BatchSize,
		lease:   opts.Lease,
		metrics: opts.Metrics,
		now:     opts.Now,
		log:     log.With().Str("component", "reminder").Logger(),
	}
}

// ScanOnce sends every reminder that is due now. A failed send is logged,
// released for the next scan and never stops the rest of the batch.
func (d *Dispatcher) ScanOnce(ctx context.Context) (ScanResult, error) {
	d.metrics.Scans.Inc()

	var res ScanResult
	var failed []string
	defer func() {
		// Failed reminders keep their lease until the scan ends so the
		// next batch does not pick them straight back up.
		for _, id := range failed {
			if err := d.store.ReleaseReminder(context.WithoutCancel(ctx), id); err != nil {
				d.log.Error().Err(err).Str("reminder_id", id).Msg("Failed to release reminder")
			}
		}
	}()

	for {
		due, err := d.store.ClaimDueReminders(ctx, d.now(), d.lease, d.batch)
		if err != nil {
			return res, fmt.Errorf("claim reminders: %w", err)
		}

		for i, r := range due {
			if err := d.limiter.Wait(ctx); err != nil {
				for _, rest := range due[i:] {
					failed = append(failed, rest.Reminder.ID)
				}
				return res, err
			}

			res.Scanned++
			if d.deliver(ctx, r) {
				res.Sent++
			} else {
				res.Failed++
				failed = append(failed, r.Reminder.ID)
			}
		}

		if len(due) < d.batch {
			break
		}
	}

	if res.Scanned > 0 {
		d.log.Info().Int("scanned", res.Scanned).Int("sent", res.Sent).Int("failed", res.Failed).Msg("Reminder scan complete")
	}
	return res, nil
}

// deliver sends one reminder and records the outcome. It reports whether the reminder ended up sent.
func (d *Dispatcher) deliver(ctx context.Context, r models.DueReminder) bool {
	log := d.log.With().Str("reminder_id", r.Reminder.ID).Str("content_item_id", r.Reminder.ContentItemID).Logger()

	msg, err := Render(r)
	if err == nil {
		err = d.sender.Send(ctx, msg)
	}
	if err != nil {
		d.metrics.Failed.Inc()
		log.Warn().Err(err).Msg("Reminder send failed, will retry on next scan")
		return false
	}

	marked, err := d.store.MarkReminderSent(ctx, r.Reminder.ID)
	if err != nil {
		// The email went out but the reminder stays unsent, so it may be delivered twice.
		d.metrics.Failed.Inc()
		log.Error().Err(err).Msg("Reminder sent but could not be marked")
		return false
	}
	if !marked {
		d.metrics.Skipped.Inc()
		log.Warn().Msg("Reminder was already marked sent")
		return true
	}

	d.metrics.Sent.Inc()
	log.Debug().Msg("Reminder sent")
	return true
}

// SendNow sends a test reminder to the user without touching storage.
func (d *Dispatcher) SendNow(ctx context.Context, user *models.User) error {
	if err := entitlement.Allow(user, entitlement.FeatureTestReminder); err != nil {
		return err
	}
	if user.EmailAddress() == "" {
		return ErrNoEmail
	}

	msg, err := Render(models.DueReminder{
		Email:         user.EmailAddress(),
		Title:         "Test Content",
		Platform:      models.PlatformSocial,
		ScheduledDate: d.now(),
	})
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send test reminder: %w", err)
	}
	d.log.Info().Str("user_id", user.ID).Msg("Test reminder sent")
	return nil
}
