package realtime

import (
	"sync"

	"group-scheduler/core/logger"
)

// InsertEvent describes a row written to a watched table.
type InsertEvent struct {
	Table string            `json:"table"`
	Row   map[string]string `json:"row"`
}

// Filter is an equality filter on one column. The zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

func (f Filter) Matches(row map[string]string) bool {
	if f.Column == "" {
		return true
	}
	return row[f.Column] == f.Value
}

type Unsubscribe func()

type Subscriber interface {
	SubscribeInsert(table string, filter Filter, callback func(InsertEvent)) (Unsubscribe, error)
}

type Publisher interface {
	Publish(event InsertEvent)
}

type subscription struct {
	table    string
	filter   Filter
	events   chan InsertEvent
	done     chan struct{}
	stopOnce sync.Once
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Hub fans insert events out to subscribers. Each subscription owns a
// goroutine and a buffered queue, so callbacks for one subscription run in
// order and never block Publish.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[uint64]*subscription),
		buffer: buffer,
	}
}

func (h *Hub) SubscribeInsert(table string, filter Filter, callback func(InsertEvent)) (Unsubscribe, error) {
	sub := &subscription{
		table:  table,
		filter: filter,
		events: make(chan InsertEvent, h.buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case ev := <-sub.events:
				callback(ev)
			}
		}
	}()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.stop()
	}, nil
}

// Publish delivers event to every matching subscription. When a queue is
// full the event is dropped: the queued events still run after this row was
// committed, so their recomputation already includes it.
func (h *Hub) Publish(event InsertEvent) {
	h.deliver(event, false)
}

// Resync delivers event to every subscription on event.Table regardless of
// filter. Used after a transport reconnect, when notifications may be lost.
func (h *Hub) Resync(table string) {
	h.deliver(InsertEvent{Table: table, Row: map[string]string{}}, true)
}

func (h *Hub) deliver(event InsertEvent, ignoreFilter bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.table != event.Table {
			continue
		}
		if !ignoreFilter && !sub.filter.Matches(event.Row) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			logger.Debug("Hub:Publish:Coalesced", "table", event.Table)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}
