package server

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okihara/plo-game-sub001/internal/metrics"
)

func decodePayloadRaw[T any](t *testing.T, data json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func newTestBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return NewBroadcaster(logger, quartz.NewMock(t), metrics.New())
}

func TestBroadcasterRoom(t *testing.T) {
	b := newTestBroadcaster(t)
	a, c := &fakeTransport{}, &fakeTransport{}
	b.Join("a", a)
	b.Join("c", c)

	b.Room(MessageTypeHandComplete, HandCompleteData{Winners: []HandCompleteWinner{}})
	assert.Equal(t, 1, a.count(MessageTypeHandComplete))
	assert.Equal(t, 1, c.count(MessageTypeHandComplete))

	b.Leave("c")
	b.Room(MessageTypeHandComplete, HandCompleteData{Winners: []HandCompleteWinner{}})
	assert.Equal(t, 2, a.count(MessageTypeHandComplete))
	assert.Equal(t, 1, c.count(MessageTypeHandComplete))
}

func TestBroadcasterEachBuildsPerViewer(t *testing.T) {
	b := newTestBroadcaster(t)
	a, c := &fakeTransport{}, &fakeTransport{}
	b.Join("a", a)
	b.Join("c", c)

	b.Each(MessageTypeError, func(viewerID string) any {
		if viewerID == "c" {
			return nil
		}
		return ErrorData{Message: "for " + viewerID}
	})

	require.Equal(t, 1, a.count(MessageTypeError))
	assert.Equal(t, 0, c.count(MessageTypeError))
	data := decodePayload[ErrorData](t, a.last(MessageTypeError))
	assert.Equal(t, "for a", data.Message)
}

func TestBroadcasterSendToNonMemberDropped(t *testing.T) {
	b := newTestBroadcaster(t)
	b.Send("ghost", MessageTypeError, ErrorData{Message: "x"})
	assert.Empty(t, b.Log())
}

func TestBroadcasterLogRing(t *testing.T) {
	b := newTestBroadcaster(t)
	tr := &fakeTransport{}
	b.Join("a", tr)

	for i := 0; i < MessageLogCap+10; i++ {
		b.Send("a", MessageTypeError, ErrorData{Message: fmt.Sprintf("m%d", i)})
	}

	entries := b.Log()
	require.Len(t, entries, MessageLogCap)
	first := decodePayloadRaw[ErrorData](t, entries[0].Data)
	last := decodePayloadRaw[ErrorData](t, entries[len(entries)-1].Data)
	assert.Equal(t, "m10", first.Message)
	assert.Equal(t, "m59", last.Message)
	assert.Equal(t, "a", entries[0].Target)
}
