package types

import (
	"fmt"
	"time"
)

// RawRecord is one loosely-typed record as returned by the clan-log API
type RawRecord map[string]any

// Event represents one clan-log entry after parsing and classification
type Event struct {
	ID        uint64    `json:"id"`
	ClanName  string    `json:"clan_name"`
	Actor     string    `json:"actor"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Delivered bool      `json:"delivered"`
}

// Identity returns the natural identity key of the event.
// Two observations of the same upstream entry always produce equal identities.
func (e *Event) Identity() Identity {
	return Identity{
		ClanName:  e.ClanName,
		Actor:     e.Actor,
		Text:      e.Text,
		Timestamp: e.Timestamp.UTC(),
	}
}

// Identity is the tuple that identifies an upstream entry across repeated observations
type Identity struct {
	ClanName  string
	Actor     string
	Text      string
	Timestamp time.Time
}

// Category classifies an event by what happened in the clan
type Category string

const (
	CategoryCombatQuestCompleted   Category = "combat-quest-completed"
	CategorySkillingQuestCompleted Category = "skilling-quest-completed"
	CategoryVaultDeposit           Category = "vault-deposit"
	CategoryVaultWithdrawal        Category = "vault-withdrawal"
	CategoryMemberJoined           Category = "member-joined"
	CategoryVaultAccessGranted     Category = "vault-access-granted"
	CategoryEventStarted           Category = "event-started"
	CategoryBulletinUpdate         Category = "bulletin-update"
	CategoryUnknown                Category = "unknown"
)

// Categories lists every category in a stable order
var Categories = []Category{
	CategoryCombatQuestCompleted,
	CategorySkillingQuestCompleted,
	CategoryVaultDeposit,
	CategoryVaultWithdrawal,
	CategoryMemberJoined,
	CategoryVaultAccessGranted,
	CategoryEventStarted,
	CategoryBulletinUpdate,
	CategoryUnknown,
}

// ParseCategory converts a string into a known Category
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// DefaultSuppressed are categories that are checkpointed without being relayed
var DefaultSuppressed = []Category{
	CategoryEventStarted,
	CategoryCombatQuestCompleted,
	CategorySkillingQuestCompleted,
}
