package history

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Sink stores hand records somewhere durable.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	Write(rec *HandRecord) error
	Close() error
}

// Flusher is implemented by sinks that buffer writes.
type Flusher interface {
	Flush() error
}

const (
	defaultQueueSize     = 256
	defaultFlushInterval = 10 * time.Second

	// A sink is disabled after this many consecutive write failures.
	maxConsecutiveFailures = 3
)

// RecorderConfig tunes the recorder. Zero values take defaults.
type RecorderConfig struct {
	QueueSize     int
	FlushInterval time.Duration
	Clock         quartz.Clock
}

// Counters receives recorder outcomes; used to feed metrics without this
// package importing them.
type Counters struct {
	Recorded func()
	Failed   func(sink string)
}

// Recorder fans completed hands out to its sinks from a single goroutine.
// Record never blocks the caller: when the queue is full the hand is dropped
// and counted.
type Recorder struct {
	logger   *log.Logger
	clock    quartz.Clock
	queue    chan *HandRecord
	counters Counters

	mu       sync.Mutex
	sinks    []*sinkState
	dropped  int
	closed   bool
	done     chan struct{}
	stopOnce sync.Once
}

type sinkState struct {
	sink     Sink
	failures int
	disabled bool
}

// NewRecorder starts a recorder over the given sinks. A recorder with no
// sinks accepts and discards every record.
func NewRecorder(logger *log.Logger, cfg RecorderConfig, counters Counters, sinks ...Sink) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	r := &Recorder{
		logger:   logger.WithPrefix("history"),
		clock:    cfg.Clock,
		queue:    make(chan *HandRecord, cfg.QueueSize),
		counters: counters,
		done:     make(chan struct{}),
	}
	for _, s := range sinks {
		r.sinks = append(r.sinks, &sinkState{sink: s})
	}
	go r.run(cfg.FlushInterval)
	return r
}

// Record queues a hand for persistence and returns immediately. The lock is
// held across the send so Close cannot close the queue between the closed
// check and the enqueue.
func (r *Recorder) Record(rec *HandRecord) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	sent := false
	select {
	case r.queue <- rec:
		sent = true
	default:
		r.dropped++
	}
	dropped := r.dropped
	r.mu.Unlock()

	if sent {
		if r.counters.Recorded != nil {
			r.counters.Recorded()
		}
		return
	}
	r.logger.Warn("history queue full, dropping hand",
		"hand_id", rec.HandID, "table_id", rec.TableID, "dropped_total", dropped)
}

// Dropped returns the number of records lost to queue overflow.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close drains the queue, flushes, and closes every sink.
func (r *Recorder) Close() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.queue)
		<-r.done
	})
}

func (r *Recorder) run(flushInterval time.Duration) {
	defer close(r.done)
	ticker := r.clock.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-r.queue:
			if !ok {
				r.flushAll()
				r.closeAll()
				return
			}
			r.write(rec)
		case <-ticker.C:
			r.flushAll()
		}
	}
}

func (r *Recorder) write(rec *HandRecord) {
	for _, st := range r.sinks {
		if st.disabled {
			continue
		}
		if err := st.sink.Write(rec); err != nil {
			st.failures++
			if r.counters.Failed != nil {
				r.counters.Failed(st.sink.Name())
			}
			r.logger.Error("history write failed",
				"sink", st.sink.Name(), "hand_id", rec.HandID, "failures", st.failures, "error", err)
			if st.failures >= maxConsecutiveFailures {
				st.disabled = true
				r.logger.Error("history sink disabled after repeated failures", "sink", st.sink.Name())
			}
			continue
		}
		st.failures = 0
	}
}

func (r *Recorder) flushAll() {
	for _, st := range r.sinks {
		if st.disabled {
			continue
		}
		f, ok := st.sink.(Flusher)
		if !ok {
			continue
		}
		if err := f.Flush(); err != nil {
			r.logger.Error("history flush failed", "sink", st.sink.Name(), "error", err)
		}
	}
}

func (r *Recorder) closeAll() {
	for _, st := range r.sinks {
		if err := st.sink.Close(); err != nil {
			r.logger.Error("history sink close failed", "sink", st.sink.Name(), "error", err)
		}
	}
}
