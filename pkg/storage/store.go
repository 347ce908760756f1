package storage

import (
	"errors"

	"github.com/cuemby/clanrelay/pkg/types"
)

// ErrNotFound is returned when an event id does not exist
var ErrNotFound = errors.New("event not found")

// Store defines the interface for the clan-log event store.
// Rows are append-only: the only mutation after insert is the delivered checkpoint.
type Store interface {
	// InsertIfAbsent stores the event unless an event with the same natural
	// identity already exists. It reports whether a new row was created and
	// assigns event.ID when it was.
	InsertIfAbsent(event *types.Event) (bool, error)

	// SelectUnsent returns up to limit undelivered events, oldest first.
	// Events with equal timestamps are returned in insertion order.
	SelectUnsent(limit int) ([]*types.Event, error)

	// MarkDelivered checkpoints the given events. Unknown or already
	// delivered ids are ignored.
	MarkDelivered(ids []uint64) error

	// Inspection
	GetEvent(id uint64) (*types.Event, error)
	ListEvents(opts ListOptions) ([]*types.Event, error)
	Stats() (*Stats, error)

	// Utility
	Close() error
}

// ListOptions filters ListEvents
type ListOptions struct {
	UnsentOnly bool
	Limit      int // 0 means no limit
}

// Stats summarizes the store contents
type Stats struct {
	Total      int
	Unsent     int
	ByCategory map[types.Category]int
}
