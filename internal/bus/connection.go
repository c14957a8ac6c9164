package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wiredium/ripple/internal/eventlog"
)

// CloseReason records why a connection was torn down. It is surfaced to the
// client on the wire where possible and logged otherwise.
type CloseReason string

// Close reasons.
const (
	CloseReasonClient       CloseReason = "client_disconnect"
	CloseReasonSlowConsumer CloseReason = "slow_consumer"
	CloseReasonIdle         CloseReason = "idle_timeout"
	CloseReasonWriteFailure CloseReason = "write_failure"
	CloseReasonShutdown     CloseReason = "shutdown"
)

// Connection is one long-lived push channel to one client. The stream
// endpoint handling the client owns it; the bus only holds a non-owning
// reference through subscriptions. Fan-out enqueues onto the bounded queue
// without blocking; the endpoint's delivery loop is the single consumer.
type Connection struct {
	id        string
	principal string
	createdAt time.Time

	queue chan eventlog.Event
	done  chan struct{}

	finishOnce sync.Once
	reason     atomic.Value // CloseReason

	lastActivity atomic.Int64 // unix nanos of the last enqueue

	mu     sync.Mutex
	topics map[string]struct{}
}

func newConnection(connID, principal string, queueCapacity int, now time.Time) *Connection {
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	c := &Connection{
		id:        connID,
		principal: principal,
		createdAt: now,
		queue:     make(chan eventlog.Event, queueCapacity),
		done:      make(chan struct{}),
		topics:    map[string]struct{}{},
	}
	c.lastActivity.Store(now.UnixNano())
	return c
}

// ID returns the connection identifier.
func (c *Connection) ID() string { return c.id }

// Principal returns the authenticated principal the connection belongs to.
func (c *Connection) Principal() string { return c.principal }

// CreatedAt returns the connection creation time.
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

// Events is the outbound queue the delivery loop drains. The channel is
// never closed; consumers select on Done as well.
func (c *Connection) Events() <-chan eventlog.Event { return c.queue }

// Done is closed once the connection has been removed from the registry.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Reason returns the close reason, empty while the connection is live.
func (c *Connection) Reason() CloseReason {
	if r, ok := c.reason.Load().(CloseReason); ok {
		return r
	}
	return ""
}

// LastActivity returns the time of the most recent enqueued event.
func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

type enqueueResult int

const (
	enqueueOK enqueueResult = iota
	enqueueFull
	enqueueClosed
)

// enqueue offers the event to the outbound queue without blocking. A full
// queue marks the connection a slow consumer; the caller evicts it.
func (c *Connection) enqueue(ev eventlog.Event) enqueueResult {
	select {
	case <-c.done:
		return enqueueClosed
	default:
	}
	select {
	case c.queue <- ev:
		c.lastActivity.Store(time.Now().UnixNano())
		return enqueueOK
	default:
		return enqueueFull
	}
}

func (c *Connection) rememberTopic(name string) {
	c.mu.Lock()
	c.topics[name] = struct{}{}
	c.mu.Unlock()
}

func (c *Connection) forgetTopic(name string) {
	c.mu.Lock()
	delete(c.topics, name)
	c.mu.Unlock()
}

func (c *Connection) topicNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.topics))
	for name := range c.topics {
		names = append(names, name)
	}
	return names
}

// finish records the reason and signals Done exactly once.
func (c *Connection) finish(reason CloseReason) {
	c.finishOnce.Do(func() {
		c.reason.Store(reason)
		close(c.done)
	})
}
