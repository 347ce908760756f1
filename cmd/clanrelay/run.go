package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/clanrelay/pkg/api"
	"github.com/cuemby/clanrelay/pkg/events"
	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/cuemby/clanrelay/pkg/metrics"
	"github.com/cuemby/clanrelay/pkg/poller"
	"github.com/cuemby/clanrelay/pkg/scheduler"
	"github.com/spf13/cobra"
)

const deliveryJob = "delivery"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pollers and the delivery worker until interrupted",
	Long: `Run starts three independent jobs:

  bulk      fetches the newest 500 clan-log entries once a day
  recent    fetches the newest 10 entries every minute
  delivery  relays unsent entries to the chat channel every 30 seconds

All three share the local event database. The health and metrics server
listens on api.addr unless it is empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.WithComponent("main")

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sched := newScheduler(a)

		collector := metrics.NewCollector(a.store)
		collector.Start()

		var healthServer *api.HealthServer
		if cfg.API.Addr != "" {
			healthServer = api.NewHealthServer(a.store, Version)
			if err := healthServer.Start(cfg.API.Addr); err != nil {
				collector.Stop()
				return err
			}
		}

		var stopTrigger func()
		if cfg.Delivery.TriggerOnInsert {
			stopTrigger = triggerDeliveryOnInsert(a, sched)
		}

		sched.Start()
		logger.Info().
			Str("version", Version).
			Str("database", a.store.Path()).
			Str("upstream", a.client.URL()).
			Str("timestamp_policy", string(a.parser.Policy())).
			Str("channel", cfg.Delivery.Channel).
			Msg("clanrelay is running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")

		// Let in-flight ticks finish before the store closes
		if stopTrigger != nil {
			stopTrigger()
		}
		sched.Stop()
		collector.Stop()

		if healthServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Stop(ctx); err != nil {
				logger.Warn().Err(err).Msg("Health server shutdown failed")
			}
		}

		logger.Info().Msg("Shutdown complete")
		return nil
	},
}

func newScheduler(a *app) *scheduler.Scheduler {
	sched := scheduler.NewScheduler()
	jobs := []scheduler.Job{
		{
			Name:     poller.BulkName,
			Interval: cfg.Pollers.Bulk.Interval,
			Run: func(ctx context.Context) error {
				_, err := a.bulk.Poll(ctx)
				return err
			},
		},
		{
			Name:     poller.RecentName,
			Interval: cfg.Pollers.Recent.Interval,
			Run: func(ctx context.Context) error {
				_, err := a.recent.Poll(ctx)
				return err
			},
		},
		{
			Name:     deliveryJob,
			Interval: cfg.Delivery.Interval,
			Run: func(ctx context.Context) error {
				_, err := a.worker.Deliver(ctx)
				return err
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			// Job names are fixed and intervals validated by config
			panic(fmt.Sprintf("invalid job: %v", err))
		}
	}
	return sched
}

// triggerDeliveryOnInsert runs a delivery tick each time a poller stores new
// entries. The returned function stops the trigger and waits for it to exit.
func triggerDeliveryOnInsert(a *app, sched *scheduler.Scheduler) func() {
	sub := a.broker.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range sub {
			if ev.Type != events.EventInserted {
				continue
			}
			_ = sched.RunOnce(context.Background(), deliveryJob)
		}
	}()

	return func() {
		a.broker.Unsubscribe(sub)
		<-done
	}
}
