package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu       sync.Mutex
	records  []*HandRecord
	flushes  int
	closed   bool
	failWith error
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(rec *HandRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func record(n int) *HandRecord {
	return &HandRecord{
		HandID:   fmt.Sprintf("hand-%d", n),
		TableID:  "t1",
		PlayedAt: time.Unix(1700000000, 0),
	}
}

func TestRecorderWritesAndCloses(t *testing.T) {
	sink := &memorySink{}
	recorded := 0
	r := NewRecorder(testLogger(), RecorderConfig{}, Counters{
		Recorded: func() { recorded++ },
	}, sink)

	for i := 0; i < 5; i++ {
		r.Record(record(i))
	}
	r.Close()

	assert.Equal(t, 5, sink.count())
	assert.Equal(t, 5, recorded)
	assert.True(t, sink.closed)
	assert.Equal(t, "hand-0", sink.records[0].HandID)

	// Close is idempotent and records after close are dropped quietly.
	r.Close()
	r.Record(record(9))
	assert.Equal(t, 5, sink.count())
}

func TestRecorderDisablesFailingSink(t *testing.T) {
	healthy := &memorySink{}
	broken := &memorySink{failWith: errors.New("disk on fire")}
	failures := make(map[string]int)
	r := NewRecorder(testLogger(), RecorderConfig{}, Counters{
		Failed: func(sink string) { failures[sink]++ },
	}, broken, healthy)

	for i := 0; i < 6; i++ {
		r.Record(record(i))
	}
	r.Close()

	// The broken sink was disabled after three straight failures; the
	// healthy one got everything.
	assert.Equal(t, 6, healthy.count())
	assert.Equal(t, 3, failures["memory"])
	assert.Equal(t, 0, broken.count())
}

func TestRecorderConcurrentRecordAndClose(t *testing.T) {
	// Closing while writers race must never panic on the queue; late
	// records are dropped quietly.
	sink := &memorySink{}
	r := NewRecorder(testLogger(), RecorderConfig{QueueSize: 1}, Counters{}, sink)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.Record(record(g*200 + i))
			}
		}(g)
	}
	r.Close()
	wg.Wait()

	r.Record(record(9999))
	assert.True(t, sink.closed)
}

func TestRecorderNoSinks(t *testing.T) {
	r := NewRecorder(testLogger(), RecorderConfig{}, Counters{})
	r.Record(record(0))
	r.Close()
	assert.Equal(t, 0, r.Dropped())
}

func TestFileSinkWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	rec := record(1)
	rec.Board = []string{"As", "Kd", "7h", "2c", "9s"}
	require.NoError(t, sink.Write(rec))
	require.NoError(t, sink.Write(record(2)))
	require.NoError(t, sink.Close())

	reopened, err := NewFileSink(dir)
	require.NoError(t, err)
	require.NoError(t, reopened.Write(record(3)))
	require.NoError(t, reopened.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "t1.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	var decoded HandRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "hand-1", decoded.HandID)
	assert.Equal(t, []string{"As", "Kd", "7h", "2c", "9s"}, decoded.Board)
}
