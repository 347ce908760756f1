package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelNotFound is returned when no channel has the requested name
var ErrChannelNotFound = errors.New("channel not found")

// Message is one outbound chat message
type Message struct {
	Content string   `json:"content,omitempty"`
	Embeds  []*Embed `json:"embeds,omitempty"`
}

// Embed is a rich card attached to a message
type Embed struct {
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Color       int           `json:"color,omitempty"`
	Fields      []*EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter  `json:"footer,omitempty"`
}

// EmbedField is a name/value pair shown inside an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the small text under an embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// Channel is a chat destination
type Channel interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// Directory looks channels up by name on the chat platform
type Directory interface {
	Lookup(ctx context.Context, name string) (Channel, error)
}

// Resolver caches channel lookups by name. Construct one per process and pass
// it to everything that sends messages.
type Resolver struct {
	directory Directory
	mu        sync.RWMutex
	cache     map[string]Channel
}

// NewResolver creates a resolver backed by directory
func NewResolver(directory Directory) *Resolver {
	return &Resolver{
		directory: directory,
		cache:     make(map[string]Channel),
	}
}

// Resolve returns the channel called name. Successful lookups are cached;
// misses are not, so a channel created later is picked up on the next call.
func (r *Resolver) Resolve(ctx context.Context, name string) (Channel, error) {
	r.mu.RLock()
	ch, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return ch, nil
	}

	ch, err := r.directory.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve channel %q: %w", name, err)
	}
	if ch == nil {
		return nil, fmt.Errorf("resolve channel %q: %w", name, ErrChannelNotFound)
	}

	r.mu.Lock()
	r.cache[name] = ch
	r.mu.Unlock()
	return ch, nil
}
