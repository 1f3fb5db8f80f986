package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jobdigest/jobdigest/internal/domain"
	"github.com/jobdigest/jobdigest/internal/match"
)

// Ledger is the notification record store. Reserve relies on the
// (subscriber, job) uniqueness constraint as the only synchronization
// primitive between concurrent dispatcher runs.
type Ledger interface {
	// Reserve inserts the record; domain.ErrAlreadyNotified means the pair
	// was already claimed.
	Reserve(ctx context.Context, subscriberID string, jobID int64, kind domain.NotificationKind, at time.Time) error
	// Retract deletes a reservation whose send definitively did not happen.
	Retract(ctx context.Context, subscriberID string, jobID int64) error
	// SentInSlotToday reports whether a scheduled record exists for the
	// subscriber within the given slot's day.
	SentInSlotToday(ctx context.Context, subscriberID string, slot string, day time.Time) (bool, error)
}

// Prefs is the preference store surface the dispatcher consumes.
type Prefs interface {
	ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	Preference(ctx context.Context, subscriberID string) (domain.Preference, error)
	DeactivateSubscriber(ctx context.Context, subscriberID string) error
}

// Catalog yields jobs eligible for a subscriber: active, link not broken, and
// no existing notification record for the pair.
type Catalog interface {
	EligibleJobs(ctx context.Context, subscriberID string, limit int) ([]domain.Job, error)
}

// DispatchReport counts what one due-check pass did.
type DispatchReport struct {
	Subscribers int
	Sent        int
	Skipped     int
	Failed      int
}

// Dispatcher runs the per-subscriber notification cycle: due-check, matching,
// reserve-then-send.
type Dispatcher struct {
	ledger  Ledger
	prefs   Prefs
	catalog Catalog
	gateway Gateway
	logger  *slog.Logger

	outboundConcurrency int64
	interSendDelay      time.Duration
	sendTimeout         time.Duration
	retryAttempts       int
	retryBackoff        time.Duration
	onDemandLimit       int
	candidatePoolSize   int
}

func NewDispatcher(
	ledger Ledger,
	prefs Prefs,
	catalog Catalog,
	gateway Gateway,
	logger *slog.Logger,
	outboundConcurrency int,
	interSendDelay time.Duration,
	sendTimeout time.Duration,
	retryAttempts int,
	retryBackoff time.Duration,
	onDemandLimit int,
) *Dispatcher {
	if outboundConcurrency < 1 {
		outboundConcurrency = 1
	}
	return &Dispatcher{
		ledger:              ledger,
		prefs:               prefs,
		catalog:             catalog,
		gateway:             gateway,
		logger:              logger,
		outboundConcurrency: int64(outboundConcurrency),
		interSendDelay:      interSendDelay,
		sendTimeout:         sendTimeout,
		retryAttempts:       retryAttempts,
		retryBackoff:        retryBackoff,
		onDemandLimit:       onDemandLimit,
		candidatePoolSize:   200,
	}
}

// RunDue checks every active subscriber against its notification slots and
// runs a matching pass for those that are due. Subscribers run concurrently
// up to the outbound cap; sends within one subscriber stay sequential.
func (d *Dispatcher) RunDue(ctx context.Context, now time.Time) (DispatchReport, error) {
	subscribers, err := d.prefs.ActiveSubscribers(ctx)
	if err != nil {
		return DispatchReport{}, fmt.Errorf("list subscribers: %w", err)
	}

	sem := semaphore.NewWeighted(d.outboundConcurrency)
	reports := make([]DispatchReport, len(subscribers))

	for i, sub := range subscribers {
		if err := sem.Acquire(ctx, 1); err != nil {
			return DispatchReport{}, err
		}
		go func(i int, sub domain.Subscriber) {
			defer sem.Release(1)
			reports[i] = d.runSubscriber(ctx, sub, now)
		}(i, sub)
	}
	if err := sem.Acquire(ctx, d.outboundConcurrency); err != nil {
		return DispatchReport{}, err
	}

	var total DispatchReport
	for _, r := range reports {
		total.Subscribers += r.Subscribers
		total.Sent += r.Sent
		total.Skipped += r.Skipped
		total.Failed += r.Failed
	}
	if total.Subscribers > 0 {
		d.logger.Info("due-check pass complete",
			slog.Int("subscribers", total.Subscribers),
			slog.Int("sent", total.Sent),
			slog.Int("skipped", total.Skipped),
			slog.Int("failed", total.Failed),
		)
	}
	return total, nil
}

func (d *Dispatcher) runSubscriber(ctx context.Context, sub domain.Subscriber, now time.Time) DispatchReport {
	pref, err := d.prefs.Preference(ctx, sub.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			d.logger.Error("loading preference failed",
				slog.String("subscriber_id", sub.ID),
				slog.String("error", err.Error()),
			)
		}
		return DispatchReport{}
	}
	if pref.Cadence == 0 {
		return DispatchReport{}
	}

	slot, due := dueSlot(pref, now)
	if !due {
		return DispatchReport{}
	}

	already, err := d.ledger.SentInSlotToday(ctx, sub.ID, slot, now)
	if err != nil {
		d.logger.Error("slot ledger lookup failed",
			slog.String("subscriber_id", sub.ID),
			slog.String("error", err.Error()),
		)
		return DispatchReport{}
	}
	if already {
		return DispatchReport{}
	}

	report := d.runPass(ctx, pref, domain.NotificationScheduled, pref.Cadence, now)
	report.Subscribers = 1
	return report
}

// dueSlot reports whether now falls in one of the preference's slots. Slots
// beyond the cadence count are ignored.
func dueSlot(pref domain.Preference, now time.Time) (string, bool) {
	current := now.UTC().Format("15:04")
	slots := pref.Slots
	if len(slots) > pref.Cadence {
		slots = slots[:pref.Cadence]
	}
	for _, slot := range slots {
		if slot == current {
			return slot, true
		}
	}
	return "", false
}

// NotifyNow runs an on-demand pass for one subscriber, bypassing the
// due-check but following the same reservation discipline.
func (d *Dispatcher) NotifyNow(ctx context.Context, subscriberID string) (DispatchReport, error) {
	pref, err := d.prefs.Preference(ctx, subscriberID)
	if err != nil {
		return DispatchReport{}, err
	}

	report := d.runPass(ctx, pref, domain.NotificationManual, d.onDemandLimit, time.Now().UTC())
	report.Subscribers = 1
	return report, nil
}

// runPass matches and sends for one subscriber. Candidates are sent strictly
// in rank order with the inter-send delay between deliveries.
func (d *Dispatcher) runPass(ctx context.Context, pref domain.Preference, kind domain.NotificationKind, limit int, now time.Time) DispatchReport {
	var report DispatchReport

	jobs, err := d.catalog.EligibleJobs(ctx, pref.SubscriberID, d.candidatePoolSize)
	if err != nil {
		d.logger.Error("loading eligible jobs failed",
			slog.String("subscriber_id", pref.SubscriberID),
			slog.String("error", err.Error()),
		)
		report.Failed++
		return report
	}

	candidates := match.Rank(pref, jobs, now, limit)

	for i, cand := range candidates {
		if i > 0 && d.interSendDelay > 0 {
			select {
			case <-time.After(d.interSendDelay):
			case <-ctx.Done():
				return report
			}
		}

		switch d.deliver(ctx, pref.SubscriberID, cand, kind, now) {
		case deliverySent:
			report.Sent++
		case deliverySkipped:
			report.Skipped++
		case deliveryFailed:
			report.Failed++
		case deliveryHalt:
			report.Failed++
			return report
		}
	}
	return report
}

type deliveryOutcome int

const (
	deliverySent deliveryOutcome = iota
	deliverySkipped
	deliveryFailed
	deliveryHalt
)

// deliver reserves the (subscriber, job) pair, then sends. The reservation
// must be durable before the gateway is invoked.
func (d *Dispatcher) deliver(ctx context.Context, subscriberID string, cand match.Candidate, kind domain.NotificationKind, now time.Time) deliveryOutcome {
	err := d.ledger.Reserve(ctx, subscriberID, cand.Job.ID, kind, now)
	if errors.Is(err, domain.ErrAlreadyNotified) {
		return deliverySkipped
	}
	if err != nil {
		d.logger.Error("reservation failed",
			slog.String("subscriber_id", subscriberID),
			slog.Int64("job_id", cand.Job.ID),
			slog.String("error", err.Error()),
		)
		return deliveryFailed
	}

	payload := domain.NotificationPayload{
		SubscriberID: subscriberID,
		Kind:         kind,
		JobID:        cand.Job.ID,
		Title:        cand.Job.Title,
		Company:      cand.Job.Company,
		Location:     cand.Job.Location,
		ApplyURL:     cand.Job.ApplyURL,
		Score:        cand.Score,
	}

	err = d.sendWithRetry(ctx, payload)
	if err == nil {
		return deliverySent
	}

	var perm *domain.PermanentError
	var ambiguous *domain.AmbiguousError
	switch {
	case errors.As(err, &perm):
		if !perm.Attempted {
			if rerr := d.ledger.Retract(ctx, subscriberID, cand.Job.ID); rerr != nil {
				d.logger.Error("retracting reservation failed",
					slog.String("subscriber_id", subscriberID),
					slog.Int64("job_id", cand.Job.ID),
					slog.String("error", rerr.Error()),
				)
			}
		}
		if perm.Reason == ReasonRecipientBlocked {
			if derr := d.prefs.DeactivateSubscriber(ctx, subscriberID); derr != nil {
				d.logger.Error("deactivating subscriber failed",
					slog.String("subscriber_id", subscriberID),
					slog.String("error", derr.Error()),
				)
			} else {
				d.logger.Info("subscriber deactivated",
					slog.String("subscriber_id", subscriberID),
				)
			}
			return deliveryHalt
		}
		d.logger.Warn("permanent send failure",
			slog.String("subscriber_id", subscriberID),
			slog.Int64("job_id", cand.Job.ID),
			slog.String("reason", perm.Reason),
		)
		return deliveryFailed
	case errors.As(err, &ambiguous):
		// Outcome unknown. The reservation stays so the pair can never
		// be delivered twice, even if this delivery was lost.
		d.logger.Warn("ambiguous send outcome, keeping reservation",
			slog.String("subscriber_id", subscriberID),
			slog.Int64("job_id", cand.Job.ID),
		)
		return deliveryFailed
	default:
		// Transient failures keep the reservation too; retraction is
		// reserved for failures proven not to have been attempted.
		d.logger.Warn("send failed after retries",
			slog.String("subscriber_id", subscriberID),
			slog.Int64("job_id", cand.Job.ID),
			slog.String("error", err.Error()),
		)
		return deliveryFailed
	}
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, payload domain.NotificationPayload) error {
	var lastErr error
	for attempt := 0; attempt <= d.retryAttempts; attempt++ {
		if attempt > 0 {
			backoff := d.retryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		sendCtx := ctx
		cancel := func() {}
		if d.sendTimeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		}
		err := d.gateway.Send(sendCtx, payload)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		var transient *domain.TransientError
		if !errors.As(err, &transient) {
			return err
		}
	}
	return lastErr
}
