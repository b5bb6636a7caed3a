// Package sse implements a Server-Sent Events broker that streams committed
// workflow events to dashboards.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/recruitflow/internal/workflow"
)

// EventPipelineUpdated tells clients to refresh pipeline aggregates. It is
// throttled and lists the candidates touched since the previous one.
const EventPipelineUpdated = "pipeline.updated"

const (
	clientBuffer     = 64
	defaultHeartbeat = 25 * time.Second
	retryMillis      = 3000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PipelineUpdate is the payload of EventPipelineUpdated.
type PipelineUpdate struct {
	Candidates []string `json:"candidates"`
}

// Filter narrows what a subscriber receives. An empty CandidateID receives
// everything.
type Filter struct {
	CandidateID string
}

type subscriber struct {
	ch     chan []byte
	filter Filter
}

type subscribeReq struct {
	sub  subscriber
	done chan struct{}
}

type envelope struct {
	event       Event
	candidateID string
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the interval of keep-alive comments written to idle
// streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the message sequence
// and the pipeline throttle state. Public methods talk to it over channels.
type Broker struct {
	pipelineMin time.Duration
	heartbeat   time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan envelope
	workflowCh    chan workflow.Event
	countReqCh    chan chan int

	dropped atomic.Int64

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. pipeline.updated is emitted at most
// once per pipelineThrottle; changes inside the window are sent when it ends.
func NewBroker(pipelineThrottle time.Duration, opts ...Option) *Broker {
	if pipelineThrottle <= 0 {
		pipelineThrottle = 2 * time.Second
	}

	b := &Broker{
		pipelineMin:   pipelineThrottle,
		heartbeat:     defaultHeartbeat,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan envelope, 256),
		workflowCh:    make(chan workflow.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]Filter)
	var (
		seq          uint64
		lastPipeline time.Time
		pending      []string
		flushTimer   *time.Timer
		flushC       <-chan time.Time
	)

	broadcast := func(env envelope) {
		payload, err := json.Marshal(env.event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, env.event.Type, payload))

		for ch, f := range clients {
			if f.CandidateID != "" && env.candidateID != "" && f.CandidateID != env.candidateID {
				continue
			}
			select {
			case ch <- raw:
			default:
				b.dropped.Add(1)
			}
		}
	}

	flushPipeline := func(now time.Time) {
		lastPipeline = now
		broadcast(envelope{event: Event{Type: EventPipelineUpdated, Data: PipelineUpdate{Candidates: pending}}})
		pending = nil
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.sub.ch] = req.sub.filter
			close(req.done)

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case env := <-b.publishCh:
			broadcast(env)

		case ev := <-b.workflowCh:
			broadcast(envelope{event: Event{Type: ev.Type, Data: ev}, candidateID: ev.CandidateID})

			if ev.CandidateID != "" && !slices.Contains(pending, ev.CandidateID) {
				pending = append(pending, ev.CandidateID)
			}
			now := time.Now()
			wait := b.pipelineMin - now.Sub(lastPipeline)
			switch {
			case wait <= 0:
				flushPipeline(now)
			case flushC == nil:
				flushTimer = time.NewTimer(wait)
				flushC = flushTimer.C
			}

		case now := <-flushC:
			flushC = nil
			flushPipeline(now)

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

// Subscribe adds a new client and returns its channel. The client is
// registered when Subscribe returns.
func (b *Broker) Subscribe(f Filter) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	req := subscribeReq{sub: subscriber{ch: ch, filter: f}, done: make(chan struct{})}
	select {
	case b.subscribeCh <- req:
		<-req.done
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

// Dropped is the number of messages discarded because a client's buffer
// was full.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- envelope{event: event}:
	case <-b.stopped:
	}
}

// Notify forwards a committed workflow event to clients and schedules a
// pipeline.updated. It implements workflow.Notifier and drops the event
// instead of blocking when the loop is saturated.
func (b *Broker) Notify(ev workflow.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.workflowCh <- ev:
	case <-b.stopped:
	default:
		b.dropped.Add(1)
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// candidate_id query parameter restricts the stream to one candidate.
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
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe(Filter{CandidateID: strings.TrimSpace(r.URL.Query().Get("candidate_id"))})
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
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
