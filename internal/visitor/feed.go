package visitor

import (
	"sync"
	"sync/atomic"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// EventType distinguishes feed events.
type EventType string

const (
	EventCheckedIn  EventType = "checked_in"
	EventCheckedOut EventType = "checked_out"
)

// Event is a check-in or check-out published to the live feed.
type Event struct {
	Type        EventType
	Visit       domain.Visit
	VisitorName string
}

// Feed fans visit events out to subscribers. A subscriber only receives
// events of the companies its scope admits. Slow subscribers drop events
// rather than block the publisher.
type Feed struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]*Subscription)}
}

// Subscription receives events on C until Close is called.
type Subscription struct {
	C <-chan Event

	id      uint64
	scope   tenancy.Scope
	ch      chan Event
	feed    *Feed
	once    sync.Once
	dropped atomic.Uint64
}

// Subscribe registers a subscriber for scope with the given channel buffer.
func (f *Feed) Subscribe(scope tenancy.Scope, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sub := &Subscription{C: ch, id: f.nextID, scope: scope, ch: ch, feed: f}
	f.subs[sub.id] = sub
	return sub
}

// Publish delivers ev to every subscriber whose scope admits the visit's company.
func (f *Feed) Publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		if !tenancy.Admits(sub.scope, ev.Visit.CompanyID) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
		close(s.ch)
	})
}

// Scope returns the scope the subscription was opened with.
func (s *Subscription) Scope() tenancy.Scope {
	return s.scope
}

// Dropped returns how many events were discarded because C was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}
