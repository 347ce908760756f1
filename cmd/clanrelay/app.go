package main

import (
	"fmt"
	"os"

	"github.com/cuemby/clanrelay/pkg/channel"
	"github.com/cuemby/clanrelay/pkg/config"
	"github.com/cuemby/clanrelay/pkg/delivery"
	"github.com/cuemby/clanrelay/pkg/donation"
	"github.com/cuemby/clanrelay/pkg/events"
	"github.com/cuemby/clanrelay/pkg/parser"
	"github.com/cuemby/clanrelay/pkg/poller"
	"github.com/cuemby/clanrelay/pkg/storage"
	"github.com/cuemby/clanrelay/pkg/upstream"
)

// app holds the components shared by every command
type app struct {
	store    *storage.BoltStore
	resolver *channel.Resolver
	broker   *events.Broker
	client   *upstream.Client
	parser   *parser.Parser
	bulk     *poller.Poller
	recent   *poller.Poller
	worker   *delivery.Worker
}

func openStore(c *config.Config) (*storage.BoltStore, error) {
	if err := os.MkdirAll(c.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewBoltStore(c.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newApp(c *config.Config) (*app, error) {
	store, err := openStore(c)
	if err != nil {
		return nil, err
	}

	a, err := wire(c, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func newUpstream(c *config.Config) (*upstream.Client, error) {
	return upstream.New(c.Upstream.URL,
		upstream.WithTimeout(c.Upstream.Timeout),
		upstream.WithAttempts(c.Upstream.Attempts),
		upstream.WithBackoff(c.Upstream.Backoff),
		upstream.WithUserAgent(userAgent(c)),
	)
}

func wire(c *config.Config, store *storage.BoltStore) (*app, error) {
	client, err := newUpstream(c)
	if err != nil {
		return nil, err
	}

	policy, err := parser.ParseTimestampPolicy(c.Upstream.TimestampPolicy)
	if err != nil {
		return nil, err
	}
	p := parser.New(policy)
	broker := events.NewBroker()

	bulk, err := poller.New(poller.Config{
		Name:   poller.BulkName,
		Limit:  c.Pollers.Bulk.Limit,
		Source: client,
		Store:  store,
		Parser: p,
		Broker: broker,
	})
	if err != nil {
		return nil, err
	}
	recent, err := poller.New(poller.Config{
		Name:   poller.RecentName,
		Limit:  c.Pollers.Recent.Limit,
		Source: client,
		Store:  store,
		Parser: p,
		Broker: broker,
	})
	if err != nil {
		return nil, err
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	suppressed, err := c.SuppressedCategories()
	if err != nil {
		return nil, err
	}

	resolver := channel.NewResolver(channel.NewWebhookDirectory(c.Channels, nil))

	var hook delivery.Hook
	if c.Donation.Enabled {
		hook = donation.New(donation.Config{
			Channel:   c.Donation.Channel,
			MinAmount: c.Donation.MinAmount,
			OrgName:   c.Donation.OrgName,
			Members:   c.Donation.Members,
			Location:  loc,
		})
	}

	worker, err := delivery.New(delivery.Config{
		Store:        store,
		Resolver:     resolver,
		Channel:      c.Delivery.Channel,
		BatchSize:    c.Delivery.BatchSize,
		SendInterval: c.Delivery.SendInterval,
		Suppressed:   suppressed,
		Hook:         hook,
		Location:     loc,
		Broker:       broker,
	})
	if err != nil {
		return nil, err
	}
	broker.Start()

	return &app{
		store:    store,
		resolver: resolver,
		broker:   broker,
		client:   client,
		parser:   p,
		bulk:     bulk,
		recent:   recent,
		worker:   worker,
	}, nil
}

func (a *app) Close() error {
	a.broker.Stop()
	return a.store.Close()
}

func userAgent(c *config.Config) string {
	if c.Upstream.UserAgent != "" {
		return c.Upstream.UserAgent
	}
	return "clanrelay/" + Version
}
