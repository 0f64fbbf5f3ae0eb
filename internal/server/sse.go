package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
)

const (
	// sseReplaySize is how many recent events a reconnecting client can
	// resume from via Last-Event-ID.
	sseReplaySize = 1000

	sseKeepaliveInterval = 15 * time.Second
	sseClientBuffer      = 64
)

// sseEvent is one published event as it goes out on the wire.
type sseEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

func (e *sseEvent) writeTo(w io.Writer) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.ID, e.Topic, e.Data)
}

// topicFilter is a set of NATS-style patterns; empty matches everything.
type topicFilter []string

func parseTopicFilter(q string) topicFilter {
	var f topicFilter
	for _, p := range strings.Split(q, ",") {
		if p = strings.TrimSpace(p); p != "" {
			f = append(f, p)
		}
	}
	return f
}

func (f topicFilter) match(topic string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range f {
		if events.MatchTopic(p, topic) {
			return true
		}
	}
	return false
}

// replayLog keeps the most recent events in publish order.
type replayLog struct {
	buf  []sseEvent
	head int // oldest entry once buf is full
}

func (l *replayLog) add(e sseEvent) {
	if len(l.buf) < sseReplaySize {
		l.buf = append(l.buf, e)
		return
	}
	l.buf[l.head] = e
	l.head = (l.head + 1) % sseReplaySize
}

func (l *replayLog) after(id uint64) []*sseEvent {
	var out []*sseEvent
	for i := range l.buf {
		e := l.buf[(l.head+i)%len(l.buf)]
		if e.ID > id {
			out = append(out, &e)
		}
	}
	return out
}

type sseClient struct {
	filter topicFilter
	ch     chan *sseEvent
}

// SSEHub fans gate check events out to connected SSE clients. It is an
// events.Publisher so the engine publishes to it next to NATS.
type SSEHub struct {
	mu      sync.Mutex
	lastID  uint64
	replay  replayLog
	clients map[*sseClient]struct{}
}

var _ events.Publisher = (*SSEHub)(nil)

func NewSSEHub() *SSEHub {
	return &SSEHub{clients: make(map[*sseClient]struct{})}
}

// Publish encodes event and broadcasts it to matching clients.
func (h *SSEHub) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", topic, err)
	}
	h.broadcast(topic, data)
	return nil
}

// Close is a no-op; open streams end with their requests.
func (h *SSEHub) Close() error { return nil }

// ClientCount returns the number of connected SSE clients.
func (h *SSEHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast numbers the event, records it for replay and offers it to every
// matching client. A client whose buffer is full misses the event.
func (h *SSEHub) broadcast(topic string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	evt := &sseEvent{ID: h.lastID, Topic: topic, Data: data}
	h.replay.add(*evt)

	for c := range h.clients {
		if !c.filter.match(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

// attach registers a client. When resume is set it also returns the
// buffered events after lastID that the client's filter accepts; taking both
// under one lock means nothing is missed or sent twice.
func (h *SSEHub) attach(filter topicFilter, resume bool, lastID uint64) (*sseClient, []*sseEvent) {
	c := &sseClient{filter: filter, ch: make(chan *sseEvent, sseClientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if !resume {
		return c, nil
	}
	var backlog []*sseEvent
	for _, e := range h.replay.after(lastID) {
		if filter.match(e.Topic) {
			backlog = append(backlog, e)
		}
	}
	return c, backlog
}

func (h *SSEHub) detach(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// eventsSince returns buffered events with ID > lastID, oldest first.
func (h *SSEHub) eventsSince(lastID uint64) []*sseEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.replay.after(lastID)
}

// handleEventStream handles GET /v1/events/stream?topics=a,b.
func (s *GateCheckServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming not supported")
		return
	}

	lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	client, backlog := s.sseHub.attach(parseTopicFilter(r.URL.Query().Get("topics")), err == nil, lastID)
	defer s.sseHub.detach(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, evt := range backlog {
		evt.writeTo(w)
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			evt.writeTo(w)
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
		}
		flusher.Flush()
	}
}
