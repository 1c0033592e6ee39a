package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/okihara/plo-game-sub001/internal/metrics"
)

// MessageLogCap is the number of recent messages retained per table for
// admin introspection.
const MessageLogCap = 50

// MessageLogEntry is one entry in the broadcaster's ring buffer. Target is
// the player id for a socket emit, empty for a room emit.
type MessageLogEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Event     MessageType     `json:"event"`
	Target    string          `json:"target,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Broadcaster owns a table's room: the set of transports that receive its
// events. It offers room-wide fanout, per-member fanout with viewer-specific
// payloads, and targeted emits, and keeps a bounded log of what it sent.
type Broadcaster struct {
	logger  *log.Logger
	clock   quartz.Clock
	metrics *metrics.Metrics

	mu      sync.Mutex
	members map[string]Transport
	ring    [MessageLogCap]MessageLogEntry
	next    int
	total   int
}

// NewBroadcaster creates an empty room.
func NewBroadcaster(logger *log.Logger, clock quartz.Clock, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		logger:  logger.WithPrefix("broadcast"),
		clock:   clock,
		metrics: m,
		members: make(map[string]Transport),
	}
}

// Join binds a transport to the room under the player's id, replacing any
// previous binding.
func (b *Broadcaster) Join(playerID string, t Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[playerID] = t
}

// Leave removes the player's transport from the room.
func (b *Broadcaster) Leave(playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.members, playerID)
}

// Member reports whether the player is bound to the room.
func (b *Broadcaster) Member(playerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.members[playerID]
	return ok
}

// Size returns the number of transports in the room.
func (b *Broadcaster) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.members)
}

// Room sends one event to every member.
func (b *Broadcaster) Room(event MessageType, data any) {
	msg, err := NewMessage(event, data, b.clock.Now())
	if err != nil {
		b.logger.Error("failed to encode room event", "event", event, "error", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(event, "", msg.Data)
	for playerID, t := range b.members {
		b.deliver(playerID, t, msg)
	}
}

// Each sends an event to every member with a payload built per viewer.
// A nil payload skips that member.
func (b *Broadcaster) Each(event MessageType, payload func(viewerID string) any) {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	logged := false
	for playerID, t := range b.members {
		data := payload(playerID)
		if data == nil {
			continue
		}
		msg, err := NewMessage(event, data, now)
		if err != nil {
			b.logger.Error("failed to encode event", "event", event, "player", playerID, "error", err)
			continue
		}
		if !logged {
			// One representative entry per fanout keeps the ring useful.
			b.record(event, "", msg.Data)
			logged = true
		}
		b.deliver(playerID, t, msg)
	}
}

// Send emits one event to a single member. Sends to players no longer in the
// room are silently dropped; the departure already decided they see nothing.
func (b *Broadcaster) Send(playerID string, event MessageType, data any) {
	msg, err := NewMessage(event, data, b.clock.Now())
	if err != nil {
		b.logger.Error("failed to encode event", "event", event, "player", playerID, "error", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.members[playerID]
	if !ok {
		return
	}
	b.record(event, playerID, msg.Data)
	b.deliver(playerID, t, msg)
}

// SendTransport emits one event to a transport that may not be a room member
// yet, annotated in the log under the player's id.
func (b *Broadcaster) SendTransport(playerID string, t Transport, event MessageType, data any) {
	msg, err := NewMessage(event, data, b.clock.Now())
	if err != nil {
		b.logger.Error("failed to encode event", "event", event, "player", playerID, "error", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(event, playerID, msg.Data)
	b.deliver(playerID, t, msg)
}

func (b *Broadcaster) deliver(playerID string, t Transport, msg *Message) {
	if err := t.Send(msg); err != nil {
		b.logger.Debug("send failed", "event", msg.Type, "player", playerID, "error", err)
		return
	}
	if b.metrics != nil {
		b.metrics.MessagesSent.WithLabelValues(msg.Type.String()).Inc()
	}
}

// record must be called with b.mu held.
func (b *Broadcaster) record(event MessageType, target string, data json.RawMessage) {
	b.ring[b.next] = MessageLogEntry{
		Timestamp: b.clock.Now(),
		Event:     event,
		Target:    target,
		Data:      data,
	}
	b.next = (b.next + 1) % MessageLogCap
	b.total++
}

// Log returns the retained entries, oldest first.
func (b *Broadcaster) Log() []MessageLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.total
	if n > MessageLogCap {
		n = MessageLogCap
	}
	out := make([]MessageLogEntry, 0, n)
	start := (b.next - n + MessageLogCap*2) % MessageLogCap
	for i := 0; i < n; i++ {
		out = append(out, b.ring[(start+i)%MessageLogCap])
	}
	return out
}
