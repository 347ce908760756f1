package donation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/cuemby/clanrelay/pkg/channel"
	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// DefaultChannel receives commendations unless configured otherwise
	DefaultChannel = "general"
	// DefaultMinAmount is the smallest gold donation worth celebrating
	DefaultMinAmount int64 = 1_000_000

	goldColor = 0xFFD700
	title     = "\U0001f514\U0001f389 Leadership Commendation"
)

var goldPattern = regexp.MustCompile(`^(.+?)\s+added\s+(\d+)x\s+Gold\.$`)

// Config holds donation hook configuration
type Config struct {
	Channel   string
	MinAmount int64
	OrgName   string
	// Members maps in-game names to chat display names
	Members  map[string]string
	Location *time.Location
}

// Hook posts a commendation when a large gold donation reaches the vault
type Hook struct {
	channel   string
	minAmount int64
	orgName   string
	members   map[string]string
	loc       *time.Location
	printer   *message.Printer
	logger    zerolog.Logger
}

// New creates a donation hook
func New(cfg Config) *Hook {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.MinAmount <= 0 {
		cfg.MinAmount = DefaultMinAmount
	}
	if cfg.OrgName == "" {
		cfg.OrgName = "the clan's"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Hook{
		channel:   cfg.Channel,
		minAmount: cfg.MinAmount,
		orgName:   cfg.OrgName,
		members:   cfg.Members,
		loc:       cfg.Location,
		printer:   message.NewPrinter(language.English),
		logger:    log.WithComponent("donation"),
	}
}

// Donation is a parsed gold deposit
type Donation struct {
	Player string
	Amount int64
}

// Match extracts a gold donation from clan-log text
func Match(text string) (*Donation, bool) {
	m := goldPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	amount, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return nil, false
	}
	return &Donation{Player: m[1], Amount: amount}, true
}

// OnDelivered inspects a delivered vault deposit and posts a commendation
// when it is a gold donation of at least the configured amount.
// A missing donation channel is logged and is not an error.
func (h *Hook) OnDelivered(ctx context.Context, resolver *channel.Resolver, text string, ts time.Time) error {
	donation, ok := Match(text)
	if !ok || donation.Amount < h.minAmount {
		return nil
	}

	ch, err := resolver.Resolve(ctx, h.channel)
	if errors.Is(err, channel.ErrChannelNotFound) {
		h.logger.Warn().Str("channel", h.channel).Msg("Donation channel not found")
		return nil
	}
	if err != nil {
		return err
	}

	if err := ch.Send(ctx, h.Commendation(donation, ts)); err != nil {
		return fmt.Errorf("failed to send commendation: %w", err)
	}

	h.logger.Info().
		Str("player", donation.Player).
		Int64("amount", donation.Amount).
		Msg("Sent donation commendation")
	return nil
}

// Commendation builds the message celebrating a donation
func (h *Hook) Commendation(d *Donation, ts time.Time) *channel.Message {
	mention := d.Player
	if display, ok := h.members[d.Player]; ok && display != d.Player {
		mention = "@" + display
	}

	return &channel.Message{
		Embeds: []*channel.Embed{{
			Title: title,
			Description: fmt.Sprintf(
				"Leadership commends **%s** for their exceptional Clan Vault contribution. "+
					"This selfless act of organizational commitment exemplifies %s values. Well done.",
				mention, h.orgName),
			Color: goldColor,
			Fields: []*channel.EmbedField{{
				Name:   "Amount Donated",
				Value:  h.printer.Sprintf("%d Gold", d.Amount),
				Inline: true,
			}},
			Footer: &channel.EmbedFooter{Text: ts.In(h.loc).Format("Jan 2, 2006 at 3:04 PM MST")},
		}},
	}
}
