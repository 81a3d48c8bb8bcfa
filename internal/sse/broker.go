// Package sse streams ledger change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeLedgerCreated   = "ledger.created"
	TypeLedgerUpdated   = "ledger.updated"
	TypeLedgerDeleted   = "ledger.deleted"
	TypeActivityUpdated = "activity.updated"
)

// Event is one SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type ledgerChange struct {
	kind string
	path string
}

// Broker fans events out to connected SSE clients.
//
// One loop goroutine owns the client set and the activity throttle; the
// public methods only talk to it over channels.
type Broker struct {
	activityEvery time.Duration
	keepAlive     time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan ledgerChange
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// ActivityHint is the payload of activity.updated: the ledger files that
// changed since the previous hint, sorted.
type ActivityHint struct {
	Paths []string `json:"paths"`
}

// NewBroker starts a broker that emits activity.updated at most once per
// activityThrottle. Changes inside the window are folded into one trailing
// hint sent when the window closes.
func NewBroker(activityThrottle time.Duration) *Broker {
	if activityThrottle <= 0 {
		activityThrottle = 2 * time.Second
	}
	b := &Broker{
		activityEvery: activityThrottle,
		keepAlive:     30 * time.Second,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan ledgerChange, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastActivity time.Time

	changed := make(map[string]struct{})
	var flush *time.Timer
	var flushC <-chan time.Time

	send := func(ev Event) {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload))
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// slow client, drop
			}
		}
	}

	hint := func(now time.Time) {
		paths := make([]string, 0, len(changed))
		for p := range changed {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		clear(changed)
		lastActivity = now
		if flush != nil {
			flush.Stop()
			flush, flushC = nil, nil
		}
		send(Event{Type: TypeActivityUpdated, Data: ActivityHint{Paths: paths}})
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			send(ev)

		case c := <-b.changeCh:
			typ, ok := changeTypes[c.kind]
			if !ok {
				continue
			}
			send(Event{Type: typ, Data: map[string]string{"path": c.path}})
			changed[c.path] = struct{}{}

			now := time.Now()
			if wait := b.activityEvery - now.Sub(lastActivity); wait <= 0 {
				hint(now)
			} else if flush == nil {
				flush = time.NewTimer(wait)
				flushC = flush.C
			}

		case now := <-flushC:
			flush, flushC = nil, nil
			hint(now)

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

var changeTypes = map[string]string{
	"created": TypeLedgerCreated,
	"updated": TypeLedgerUpdated,
	"deleted": TypeLedgerDeleted,
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishLedgerChange announces a ledger file change (kind is created,
// updated or deleted) and adds path to the next activity.updated hint.
func (b *Broker) PublishLedgerChange(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- ledgerChange{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
