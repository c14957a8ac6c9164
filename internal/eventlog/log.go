package eventlog

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Event is one immutable, ordered fact published to a topic.
type Event struct {
	Topic      string          `json:"topic"`
	Seq        uint64          `json:"seq"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Log is a bounded, append-only ring of the most recent events for one topic.
// Sequence numbers start at 1, are strictly increasing and contiguous, and
// are never reset: trimming drops old entries but keeps numbering intact so
// a too-old resume point stays detectable.
type Log struct {
	topic string

	mu         sync.Mutex
	buf        []Event
	head       int // index of the oldest retained entry
	size       int
	lastSeq    uint64
	lastAppend time.Time
}

// NewLog creates a log for the given topic retaining up to capacity events.
func NewLog(topic string, capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{topic: topic, buf: make([]Event, capacity)}
}

// Topic returns the owning topic's wire form.
func (l *Log) Topic() string { return l.topic }

// Append assigns the next sequence number and stores the event, evicting the
// oldest entry when the ring is full. The stored event is returned.
func (l *Log) Append(kind string, payload json.RawMessage, occurredAt time.Time) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastSeq++
	ev := Event{Topic: l.topic, Seq: l.lastSeq, Kind: kind, Payload: payload, OccurredAt: occurredAt}
	pos := (l.head + l.size) % len(l.buf)
	if l.size == len(l.buf) {
		// full: overwrite the oldest slot and advance
		l.buf[l.head] = ev
		l.head = (l.head + 1) % len(l.buf)
	} else {
		l.buf[pos] = ev
		l.size++
	}
	l.lastAppend = occurredAt
	return ev
}

// Head returns the highest sequence ever issued, 0 when nothing was published.
func (l *Log) Head() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// OldestRetained returns the lowest sequence still in the ring, 0 when empty.
func (l *Log) OldestRetained() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.size == 0 {
		return 0
	}
	return l.lastSeq - uint64(l.size) + 1
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// LastAppend returns the time of the most recent append, zero when none.
func (l *Log) LastAppend() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastAppend
}
