// Package sse implements a Server-Sent Events broker that pushes board
// events and board-list changes to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
)

// Event types written to the stream.
const (
	TypeBoardEvent    = "board.event"
	TypeBoardChanged  = "board.changed"
	TypeBoardsUpdated = "boards.updated"
)

// Event represents an SSE event to broadcast. Events with a BoardID only
// reach clients that subscribed to all boards or to that board.
type Event struct {
	Type    string `json:"type"`
	BoardID string `json:"-"`
	Data    any    `json:"data"`
}

// BoardChange is the payload of a board.changed event.
type BoardChange struct {
	BoardID string `json:"boardId"`
	Change  string `json:"change"`
}

type subscription struct {
	ch      chan []byte
	boardID string
}

type aggregateReq struct {
	event Event
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and the aggregate
// throttle timestamp; public methods talk to it over channels.
type Broker struct {
	aggregateMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	aggregateCh   chan aggregateReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits boards.updated at most once per
// aggregateThrottle.
func NewBroker(aggregateThrottle time.Duration) *Broker {
	if aggregateThrottle <= 0 {
		aggregateThrottle = 2 * time.Second
	}

	b := &Broker{
		aggregateMin:  aggregateThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		aggregateCh:   make(chan aggregateReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func frame(event Event) ([]byte, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), true
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var lastAggregate time.Time

	broadcast := func(event Event) {
		raw, ok := frame(event)
		if !ok {
			return
		}
		for ch, filter := range clients {
			if filter != "" && event.BoardID != "" && filter != event.BoardID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.boardID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.aggregateCh:
			broadcast(req.event)

			now := time.Now()
			if now.Sub(lastAggregate) >= b.aggregateMin {
				lastAggregate = now
				broadcast(Event{Type: TypeBoardsUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel. A non-empty boardID
// limits board-scoped events to that board.
func (b *Broker) Subscribe(boardID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, boardID: boardID}:
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
	case b.countReqCh <- resp:
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

// Publish sends an event to matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

func (b *Broker) publishAggregated(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.aggregateCh <- aggregateReq{event: event}:
	case <-b.stopped:
	}
}

// PublishBoardEvent pushes an applied board event followed by a throttled
// boards.updated.
func (b *Broker) PublishBoardEvent(ev board.Event) {
	b.publishAggregated(Event{Type: TypeBoardEvent, BoardID: ev.BoardID, Data: ev})
}

// PublishBoardChange reports a board created, updated or deleted, followed
// by a throttled boards.updated.
func (b *Broker) PublishBoardChange(kind, boardID string) {
	b.publishAggregated(Event{
		Type:    TypeBoardChanged,
		BoardID: boardID,
		Data:    BoardChange{BoardID: boardID, Change: kind},
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events[?board=<id>]).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("board"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
