package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

type EventKind int

const (
	EventEntrySaved EventKind = iota + 1
	EventProductCached
)

func (k EventKind) String() string {
	switch k {
	case EventEntrySaved:
		return "entry_saved"
	case EventProductCached:
		return "product_cached"
	default:
		return "unknown"
	}
}

// Event describes a write that has already been committed.
type Event struct {
	Kind    EventKind
	Entry   *model.Entry
	Product *model.Product
}

// Bus fans committed writes out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
	log  *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: map[int]chan Event{}, log: log}
}

// Subscribe returns a channel of events and a func that unsubscribes and
// closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.Warn("dropping store event for slow subscriber", zap.Stringer("kind", ev.Kind), zap.Int("subscriber", id))
		}
	}
}
