package delivery

import (
	"context"
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/cuemby/clanrelay/pkg/channel"
	"github.com/cuemby/clanrelay/pkg/events"
	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/cuemby/clanrelay/pkg/metrics"
	"github.com/cuemby/clanrelay/pkg/storage"
	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultChannel is the destination for relayed clan-log lines
	DefaultChannel = "corporate-oversight"
	// DefaultBatchSize is the number of unsent events drained per tick
	DefaultBatchSize = 10
	// DefaultSendInterval spaces consecutive sends
	DefaultSendInterval = 150 * time.Millisecond
	// DefaultTimezone renders outbound timestamps
	DefaultTimezone = "America/New_York"

	lineLayout = "Jan _2 15:04"
)

// Hook is invoked after a vault deposit has been relayed
type Hook interface {
	OnDelivered(ctx context.Context, resolver *channel.Resolver, text string, ts time.Time) error
}

// SendError reports an event that could not be sent. The event stays unsent
// and is retried on the next tick.
type SendError struct {
	EventID uint64
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send event %d: %v", e.EventID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// HookError reports a failed or panicking side-effect hook
type HookError struct {
	EventID uint64
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook failed for event %d: %v", e.EventID, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Config holds delivery worker configuration
type Config struct {
	Store    storage.Store
	Resolver *channel.Resolver
	Channel  string
	// BatchSize bounds SelectUnsent per tick
	BatchSize    int
	SendInterval time.Duration
	// Suppressed categories are checkpointed without being sent.
	// nil selects types.DefaultSuppressed.
	Suppressed []types.Category
	Hook       Hook
	Location   *time.Location
	// Broker receives activity notifications; optional
	Broker *events.Broker
}

// Result summarizes one delivery tick
type Result struct {
	Selected   int
	Sent       int
	Suppressed int
	Failed     int
	// Errors holds every *SendError and *HookError of the tick in event order
	Errors []error
}

// Worker drains unsent events to the destination channel
type Worker struct {
	store      storage.Store
	resolver   *channel.Resolver
	channel    string
	batchSize  int
	suppressed map[types.Category]bool
	hook       Hook
	limiter    *rate.Limiter
	loc        *time.Location
	broker     *events.Broker
	logger     zerolog.Logger
}

// New creates a delivery worker
func New(cfg Config) (*Worker, error) {
	if cfg.Store == nil || cfg.Resolver == nil {
		return nil, fmt.Errorf("delivery: store and resolver are required")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.SendInterval < 0 {
		return nil, fmt.Errorf("delivery: send interval must not be negative, got %s", cfg.SendInterval)
	}
	if cfg.Suppressed == nil {
		cfg.Suppressed = types.DefaultSuppressed
	}
	if cfg.Location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load time zone: %w", err)
		}
		cfg.Location = loc
	}

	suppressed := make(map[types.Category]bool, len(cfg.Suppressed))
	for _, c := range cfg.Suppressed {
		suppressed[c] = true
	}

	limit := rate.Inf
	if cfg.SendInterval > 0 {
		limit = rate.Every(cfg.SendInterval)
	}

	return &Worker{
		store:      cfg.Store,
		resolver:   cfg.Resolver,
		channel:    cfg.Channel,
		batchSize:  cfg.BatchSize,
		suppressed: suppressed,
		hook:       cfg.Hook,
		limiter:    rate.NewLimiter(limit, 1),
		loc:        cfg.Location,
		broker:     cfg.Broker,
		logger:     log.WithComponent("delivery"),
	}, nil
}

// Deliver runs one tick.
//
// If the destination channel cannot be resolved the tick is abandoned and
// nothing is checkpointed. Otherwise the oldest unsent events are walked in
// order; each event that was sent or suppressed is checkpointed in one batch
// at the end. A failed send never blocks the events behind it.
func (w *Worker) Deliver(ctx context.Context) (*Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DeliveryDuration)

	dest, err := w.resolver.Resolve(ctx, w.channel)
	if err != nil {
		w.logger.Warn().Err(err).Str("channel", w.channel).Msg("Destination channel unavailable, skipping tick")
		w.broker.Publish(&events.Event{
			Type:     events.EventDeliveryBlocked,
			Message:  err.Error(),
			Metadata: map[string]string{"channel": w.channel},
		})
		return nil, err
	}

	batch, err := w.store.SelectUnsent(w.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsent events: %w", err)
	}

	result := &Result{Selected: len(batch)}
	if len(batch) == 0 {
		return result, nil
	}

	processed := make([]uint64, 0, len(batch))
	var waitErr error
	for _, ev := range batch {
		if w.suppressed[ev.Category] {
			processed = append(processed, ev.ID)
			result.Suppressed++
			metrics.DeliveriesTotal.WithLabelValues("suppressed").Inc()
			continue
		}

		if waitErr = w.limiter.Wait(ctx); waitErr != nil {
			break
		}

		if err := dest.Send(ctx, &channel.Message{Content: FormatLine(ev, w.loc)}); err != nil {
			serr := &SendError{EventID: ev.ID, Err: err}
			result.Failed++
			result.Errors = append(result.Errors, serr)
			metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
			logger := log.WithEventID(ev.ID)
			logger.Error().Err(err).Str("channel", w.channel).Msg("Failed to send event")
			w.publish(events.EventSendFailed, ev.ID, err.Error())
			continue
		}

		processed = append(processed, ev.ID)
		result.Sent++
		metrics.DeliveriesTotal.WithLabelValues("sent").Inc()
		w.publish(events.EventDelivered, ev.ID, "")

		if ev.Category == types.CategoryVaultDeposit && w.hook != nil {
			if herr := w.runHook(ctx, ev); herr != nil {
				result.Errors = append(result.Errors, herr)
				metrics.HookErrorsTotal.Inc()
				logger := log.WithEventID(ev.ID)
				logger.Error().Err(herr.Err).Msg("Donation hook failed")
				w.publish(events.EventHookFailed, ev.ID, herr.Err.Error())
			}
		}
	}

	if len(processed) > 0 {
		if err := w.store.MarkDelivered(processed); err != nil {
			return result, fmt.Errorf("failed to checkpoint delivered events: %w", err)
		}
	}

	w.logger.Info().
		Int("selected", result.Selected).
		Int("sent", result.Sent).
		Int("suppressed", result.Suppressed).
		Int("failed", result.Failed).
		Dur("duration", timer.Duration()).
		Msg("Delivery complete")

	if waitErr != nil {
		return result, waitErr
	}
	return result, nil
}

func (w *Worker) publish(t events.EventType, id uint64, msg string) {
	w.broker.Publish(&events.Event{
		Type:     t,
		Message:  msg,
		Metadata: map[string]string{"event_id": strconv.FormatUint(id, 10)},
	})
}

func (w *Worker) runHook(ctx context.Context, ev *types.Event) (herr *HookError) {
	defer func() {
		if r := recover(); r != nil {
			herr = &HookError{EventID: ev.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := w.hook.OnDelivered(ctx, w.resolver, ev.Text, ev.Timestamp); err != nil {
		return &HookError{EventID: ev.ID, Err: err}
	}
	return nil
}

// FormatLine renders an event as a single chat line, e.g.
// "`[Mar  4 14:05]` Bob added 500x Gold."
func FormatLine(ev *types.Event, loc *time.Location) string {
	return fmt.Sprintf("`[%s]` %s", ev.Timestamp.In(loc).Format(lineLayout), ev.Text)
}
