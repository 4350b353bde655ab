// Package transcript keeps a bounded, in-memory record of recent activities for diagnostics.
package transcript

import (
	"sync"
	"time"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

// Direction says whether an activity was received or sent by the bot.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Entry is a single recorded activity.
type Entry struct {
	Time      time.Time        `json:"time"`
	Direction Direction        `json:"direction"`
	Activity  *schema.Activity `json:"activity"`
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	ConversationID string
	Since          time.Time
	Limit          int
}

// Buffer is a thread-safe ring buffer of transcript entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int
	now     func() time.Time
}

// New creates a ring buffer that holds up to size entries. size must be positive.
func New(size int) *Buffer {
	if size <= 0 {
		size = 1
	}
	return &Buffer{
		entries: make([]Entry, size),
		size:    size,
		now:     time.Now,
	}
}

// Record appends an activity, overwriting the oldest entry when full.
func (b *Buffer) Record(dir Direction, a *schema.Activity) {
	if a == nil {
		return
	}
	b.mu.Lock()
	b.entries[b.pos] = Entry{Time: b.now(), Direction: dir, Activity: a}
	b.pos = (b.pos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.mu.Unlock()
}

// Len returns the number of entries currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Query returns entries matching f, oldest first. With a limit, the newest matches are kept.
func (b *Buffer) Query(f Filter) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var result []Entry

	start := 0
	if b.count == b.size {
		start = b.pos
	}

	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%b.size]

		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		if f.ConversationID != "" && e.Activity.Conversation.ID != f.ConversationID {
			continue
		}
		result = append(result, e)
	}

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[len(result)-f.Limit:]
	}
	return result
}
