package poller

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cuemby/clanrelay/pkg/classifier"
	"github.com/cuemby/clanrelay/pkg/events"
	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/cuemby/clanrelay/pkg/metrics"
	"github.com/cuemby/clanrelay/pkg/parser"
	"github.com/cuemby/clanrelay/pkg/storage"
	"github.com/cuemby/clanrelay/pkg/upstream"
	"github.com/rs/zerolog"
)

const (
	// BulkName and BulkLimit describe the daily full-window sync
	BulkName  = "bulk"
	BulkLimit = 500

	// RecentName and RecentLimit describe the low-latency tail poll
	RecentName  = "recent"
	RecentLimit = 10
)

// Source returns the newest limit clan-log records
type Source interface {
	FetchLogs(ctx context.Context, limit int) (*upstream.Page, error)
}

// Result summarizes one poll tick
type Result struct {
	Fetched  int
	Skipped  int
	Inserted int
	Attempts int
}

// Poller pulls one fixed-size window of the clan log per tick and stores
// every entry it has not seen before. Bulk and recent pollers differ only in
// name, window size and schedule.
type Poller struct {
	name       string
	limit      int
	source     Source
	store      storage.Store
	parser     *parser.Parser
	classifier *classifier.Classifier
	broker     *events.Broker
	logger     zerolog.Logger
}

// Config holds poller configuration
type Config struct {
	Name       string
	Limit      int
	Source     Source
	Store      storage.Store
	Parser     *parser.Parser
	Classifier *classifier.Classifier
	// Broker receives activity notifications; optional
	Broker *events.Broker
}

// New creates a poller
func New(cfg Config) (*Poller, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("poller name is required")
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("poller %s: limit must be positive, got %d", cfg.Name, cfg.Limit)
	}
	if cfg.Source == nil || cfg.Store == nil {
		return nil, fmt.Errorf("poller %s: source and store are required", cfg.Name)
	}
	if cfg.Parser == nil {
		cfg.Parser = parser.New(parser.TimestampPolicyNow)
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.Default()
	}

	return &Poller{
		name:       cfg.Name,
		limit:      cfg.Limit,
		source:     cfg.Source,
		store:      cfg.Store,
		parser:     cfg.Parser,
		classifier: cfg.Classifier,
		broker:     cfg.Broker,
		logger:     log.WithPoller(cfg.Name),
	}, nil
}

// Name returns the poller name
func (p *Poller) Name() string {
	return p.name
}

// Poll runs one tick: fetch, parse, classify, insert.
//
// A fetch that exhausts its attempts abandons the tick and returns the
// *upstream.FetchError. Records that fail to parse are skipped one by one.
// A store error aborts the tick; rows inserted before it stay inserted.
func (p *Poller) Poll(ctx context.Context) (*Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.PollDuration, p.name)

	page, err := p.source.FetchLogs(ctx, p.limit)
	if err != nil {
		var ferr *upstream.FetchError
		if errors.As(err, &ferr) {
			metrics.FetchAttemptsTotal.WithLabelValues(p.name, "failure").Add(float64(ferr.Attempt))
			metrics.FetchAbandonedTotal.WithLabelValues(p.name).Inc()
		}
		metrics.UpdateComponent("poller."+p.name, false, err.Error())
		p.logger.Error().Err(err).Int("limit", p.limit).Msg("Clan log fetch abandoned")
		p.broker.Publish(&events.Event{
			Type:     events.EventFetchAbandoned,
			Message:  err.Error(),
			Metadata: map[string]string{"poller": p.name},
		})
		return nil, err
	}
	metrics.FetchAttemptsTotal.WithLabelValues(p.name, "failure").Add(float64(page.Attempts - 1))
	metrics.FetchAttemptsTotal.WithLabelValues(p.name, "success").Inc()

	result := &Result{Fetched: len(page.Records), Attempts: page.Attempts}
	metrics.EventsFetchedTotal.WithLabelValues(p.name).Add(float64(result.Fetched))

	for i, raw := range page.Records {
		rec, err := parser.DecodeRecord(raw)
		if err != nil {
			result.Skipped++
			p.logger.Warn().Err(err).Int("index", i).Msg("Skipping malformed record")
			continue
		}

		event, err := p.parser.Parse(rec)
		if event == nil {
			result.Skipped++
			p.logger.Warn().Err(err).Int("index", i).Msg("Skipping record")
			continue
		}
		if err != nil {
			p.logger.Warn().Err(err).Int("index", i).Time("substituted", event.Timestamp).
				Msg("Unparseable timestamp, using current time")
		}

		event.Category = p.classifier.Classify(event.Text)

		inserted, err := p.store.InsertIfAbsent(event)
		if err != nil {
			metrics.UpdateComponent("poller."+p.name, false, err.Error())
			return result, fmt.Errorf("poller %s: %w", p.name, err)
		}
		if inserted {
			result.Inserted++
		}
	}

	metrics.EventsSkippedTotal.WithLabelValues(p.name).Add(float64(result.Skipped))
	metrics.EventsInsertedTotal.WithLabelValues(p.name).Add(float64(result.Inserted))
	metrics.UpdateComponent("poller."+p.name, true, "")

	if result.Inserted > 0 {
		p.broker.Publish(&events.Event{
			Type: events.EventInserted,
			Metadata: map[string]string{
				"poller": p.name,
				"count":  strconv.Itoa(result.Inserted),
			},
		})
	}

	p.logger.Info().
		Int("fetched", result.Fetched).
		Int("skipped", result.Skipped).
		Int("inserted", result.Inserted).
		Int("attempts", result.Attempts).
		Dur("duration", timer.Duration()).
		Msg("Poll complete")

	return result, nil
}
