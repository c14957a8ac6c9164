package bus

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sourcegraph/conc"

	"github.com/wiredium/ripple/internal/eventlog"
	"github.com/wiredium/ripple/internal/topic"
	"github.com/wiredium/ripple/pkg/id"
	logpkg "github.com/wiredium/ripple/pkg/log"
)

// Errors returned by bus operations.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrInvalidKind      = errors.New("invalid event kind")
)

// Publisher is the narrow call surface mutation handlers use to emit events.
// It is safe for concurrent use without caller-side locking and never blocks
// on subscriber delivery.
type Publisher interface {
	Publish(ctx context.Context, t topic.Topic, kind string, payload json.RawMessage) (uint64, error)
}

// Config holds the bus tunables.
type Config struct {
	// LogCapacity bounds each topic's replay window.
	LogCapacity int
	// QueueCapacity bounds each connection's outbound queue.
	QueueCapacity int
	// TopicIdleGrace is how long a topic with no subscriptions and no recent
	// appends is retained before reclamation. 0 disables reclamation.
	TopicIdleGrace time.Duration
}

// Subscription binds one connection to one topic.
type Subscription struct {
	conn   *Connection
	topic  topic.Topic
	filter eventFilter

	// lastDelivered is guarded by the owning topicState mutex. It is
	// monotone non-decreasing and never exceeds the topic head.
	lastDelivered uint64
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() topic.Topic { return s.topic }

// SubscribeResult reports the outcome of a subscribe call.
type SubscribeResult struct {
	Sub *Subscription
	// Head is the topic head at subscribe time.
	Head uint64
	// Replayed holds the backlog in (resumeFrom, head], already filtered.
	Replayed []eventlog.Event
	// Gap reports that the resume point fell outside the replay window; no
	// backlog is returned and the client must refetch state out-of-band.
	Gap bool
}

// topicState couples a topic's event log with its subscription set. Its
// mutex serializes sequence assignment, fan-out, and replay snapshots for
// this topic only; different topics never contend.
type topicState struct {
	mu        sync.Mutex
	log       *eventlog.Log
	subs      map[string]*Subscription // keyed by connection ID
	idleSince time.Time                // set while subs is empty
}

// Bus orchestrates publish, fan-out, and subscription bookkeeping. It owns
// the topic registry: the only shared mutable state between the publish path
// and the stream endpoints. Construct one at startup and thread it through
// explicitly.
type Bus struct {
	cfg    Config
	logger logpkg.Logger
	clock  func() time.Time
	ids    *id.Generator

	mu     sync.RWMutex
	topics map[string]*topicState
	conns  map[string]*Connection

	stop     chan struct{}
	stopOnce sync.Once
	wg       conc.WaitGroup
}

// New creates a Bus. Call Start to enable topic reclamation and Close on
// shutdown.
func New(cfg Config, logger logpkg.Logger) *Bus {
	if cfg.LogCapacity < 1 {
		cfg.LogCapacity = 200
	}
	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = 256
	}
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Bus{
		cfg:    cfg,
		logger: logger.WithComponent("bus"),
		clock:  time.Now,
		ids:    id.NewGenerator(),
		topics: map[string]*topicState{},
		conns:  map[string]*Connection{},
		stop:   make(chan struct{}),
	}
}

// Start launches the background janitor that reclaims idle topics.
func (b *Bus) Start() {
	if b.cfg.TopicIdleGrace <= 0 {
		return
	}
	interval := b.cfg.TopicIdleGrace / 2
	if interval < time.Second {
		interval = time.Second
	}
	b.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				b.sweepIdleTopics()
			}
		}
	})
}

// Close stops the janitor and closes every live connection with the
// shutdown reason. Idempotent.
func (b *Bus) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
	for _, c := range b.Connections() {
		b.CloseConnection(c.ID(), CloseReasonShutdown)
	}
}

// state returns the topic's state, creating it lazily when create is set.
func (b *Bus) state(name string, create bool) *topicState {
	b.mu.RLock()
	st := b.topics[name]
	b.mu.RUnlock()
	if st != nil || !create {
		return st
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if st = b.topics[name]; st == nil {
		st = &topicState{
			log:       eventlog.NewLog(name, b.cfg.LogCapacity),
			subs:      map[string]*Subscription{},
			idleSince: b.clock(),
		}
		b.topics[name] = st
	}
	return st
}

// Publish appends the event to the topic's log (creating the topic if
// absent) and fans it out to every registered subscription. It never blocks
// on a slow consumer: a full outbound queue schedules that connection's
// eviction and the publish proceeds. The assigned sequence is returned.
func (b *Bus) Publish(ctx context.Context, t topic.Topic, kind string, payload json.RawMessage) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if kind == "" {
		return 0, ErrInvalidKind
	}
	t0 := b.clock()
	st := b.state(t.String(), true)

	var evict []*Connection
	st.mu.Lock()
	ev := st.log.Append(kind, payload, t0)
	fanout := len(st.subs)
	for _, sub := range st.subs {
		if !sub.filter.Allows(ev) {
			// intentionally skipped; resume continuity is unaffected
			sub.lastDelivered = ev.Seq
			continue
		}
		switch sub.conn.enqueue(ev) {
		case enqueueOK:
			sub.lastDelivered = ev.Seq
		case enqueueFull:
			evict = append(evict, sub.conn)
		case enqueueClosed:
			// racing close; the registry removal is already underway
		}
	}
	st.mu.Unlock()

	for _, c := range evict {
		b.logger.Warn("bus.slow_consumer",
			logpkg.Str("conn", c.ID()),
			logpkg.Str("topic", t.String()),
			logpkg.Uint64("seq", ev.Seq),
		)
		conn := c
		go b.CloseConnection(conn.ID(), CloseReasonSlowConsumer)
	}

	b.logger.Debug("bus.publish",
		logpkg.Str("topic", t.String()),
		logpkg.Str("kind", kind),
		logpkg.Uint64("seq", ev.Seq),
		logpkg.Int("fanout", fanout),
		logpkg.Dur("dur", b.clock().Sub(t0)),
	)
	return ev.Seq, nil
}

// NewConnection registers a connection for the principal and returns it.
// The caller owns the connection's delivery loop and must eventually close
// it through CloseConnection.
func (b *Bus) NewConnection(principal string) *Connection {
	c := newConnection(b.ids.Next().String(), principal, b.cfg.QueueCapacity, b.clock())
	b.mu.Lock()
	b.conns[c.id] = c
	b.mu.Unlock()
	return c
}

// Subscribe registers the connection's interest in the topic, creating the
// topic lazily. resumeFrom of nil starts at the current head with no replay;
// otherwise events in (resumeFrom, head] are replayed when still retained,
// and Gap is reported when the resume point aged out. filterExpr is an
// optional CEL expression applied to both replayed and live events.
func (b *Bus) Subscribe(conn *Connection, t topic.Topic, resumeFrom *uint64, filterExpr string) (SubscribeResult, error) {
	filter, err := newEventFilter(filterExpr)
	if err != nil {
		return SubscribeResult{}, err
	}

	b.mu.Lock()
	if _, live := b.conns[conn.id]; !live {
		b.mu.Unlock()
		return SubscribeResult{}, ErrConnectionClosed
	}
	name := t.String()
	st := b.topics[name]
	if st == nil {
		st = &topicState{
			log:  eventlog.NewLog(name, b.cfg.LogCapacity),
			subs: map[string]*Subscription{},
		}
		b.topics[name] = st
	}

	st.mu.Lock()
	var replayed []eventlog.Event
	var gap bool
	if resumeFrom != nil {
		var raw []eventlog.Event
		raw, gap = st.log.ReadFrom(*resumeFrom, 0)
		for _, ev := range raw {
			if filter.Allows(ev) {
				replayed = append(replayed, ev)
			}
		}
	}
	head := st.log.Head()
	sub := &Subscription{conn: conn, topic: t, filter: filter, lastDelivered: head}
	st.subs[conn.id] = sub
	st.idleSince = time.Time{}
	st.mu.Unlock()

	conn.rememberTopic(name)
	b.mu.Unlock()

	return SubscribeResult{Sub: sub, Head: head, Replayed: replayed, Gap: gap}, nil
}

// Unsubscribe removes the connection's subscription to the topic.
// Idempotent.
func (b *Bus) Unsubscribe(conn *Connection, t topic.Topic) {
	name := t.String()
	b.mu.RLock()
	st := b.topics[name]
	b.mu.RUnlock()
	if st == nil {
		return
	}
	st.mu.Lock()
	if _, ok := st.subs[conn.id]; ok {
		delete(st.subs, conn.id)
		if len(st.subs) == 0 {
			st.idleSince = b.clock()
		}
	}
	st.mu.Unlock()
	conn.forgetTopic(name)
}

// CloseConnection removes every subscription the connection holds and then
// signals its Done channel with the given reason. Removal is synchronous: a
// publish racing the close either still sees the subscription and enqueues
// on the best-effort path, or does not see it at all. Idempotent; the first
// caller's reason wins.
func (b *Bus) CloseConnection(connID string, reason CloseReason) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	if ok {
		delete(b.conns, connID)
	}
	if !ok {
		b.mu.Unlock()
		return
	}
	now := b.clock()
	for _, name := range c.topicNames() {
		if st := b.topics[name]; st != nil {
			st.mu.Lock()
			delete(st.subs, connID)
			if len(st.subs) == 0 {
				st.idleSince = now
			}
			st.mu.Unlock()
		}
	}
	b.mu.Unlock()

	c.finish(reason)
	b.logger.Debug("bus.connection_closed",
		logpkg.Str("conn", connID),
		logpkg.Str("principal", c.principal),
		logpkg.Str("reason", string(reason)),
	)
}

// Connections returns a snapshot of live connections.
func (b *Bus) Connections() []*Connection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Connection, 0, len(b.conns))
	for _, c := range b.conns {
		out = append(out, c)
	}
	return out
}

// sweepIdleTopics reclaims topics with no subscriptions and no appends
// within the grace period.
func (b *Bus) sweepIdleTopics() {
	now := b.clock()
	grace := b.cfg.TopicIdleGrace
	b.mu.Lock()
	for name, st := range b.topics {
		st.mu.Lock()
		idle := len(st.subs) == 0 &&
			!st.idleSince.IsZero() && now.Sub(st.idleSince) >= grace &&
			(st.log.LastAppend().IsZero() || now.Sub(st.log.LastAppend()) >= grace)
		st.mu.Unlock()
		if idle {
			delete(b.topics, name)
			b.logger.Debug("bus.topic_reclaimed", logpkg.Str("topic", name))
		}
	}
	b.mu.Unlock()
}

// TopicStats summarizes one topic's log and subscription set.
type TopicStats struct {
	Topic          string `json:"topic"`
	Head           uint64 `json:"head"`
	OldestRetained uint64 `json:"oldest_retained"`
	Retained       int    `json:"retained"`
	Subscribers    int    `json:"subscribers"`
}

// TopicStatsAll returns per-topic stats sorted by topic name.
func (b *Bus) TopicStatsAll() []TopicStats {
	b.mu.RLock()
	states := make(map[string]*topicState, len(b.topics))
	for name, st := range b.topics {
		states[name] = st
	}
	b.mu.RUnlock()

	out := make([]TopicStats, 0, len(states))
	for name, st := range states {
		st.mu.Lock()
		out = append(out, TopicStats{
			Topic:          name,
			Head:           st.log.Head(),
			OldestRetained: st.log.OldestRetained(),
			Retained:       st.log.Len(),
			Subscribers:    len(st.subs),
		})
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// Stats summarizes the registry.
type Stats struct {
	Topics        int `json:"topics"`
	Connections   int `json:"connections"`
	Subscriptions int `json:"subscriptions"`
}

// StatsNow returns current registry counters.
func (b *Bus) StatsNow() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Stats{Topics: len(b.topics), Connections: len(b.conns)}
	for _, st := range b.topics {
		st.mu.Lock()
		s.Subscriptions += len(st.subs)
		st.mu.Unlock()
	}
	return s
}

// ReadTopic lists retained events after the given sequence for inspection
// endpoints. ok is false when the topic does not exist.
func (b *Bus) ReadTopic(t topic.Topic, after uint64, limit int) (events []eventlog.Event, gap, ok bool) {
	st := b.state(t.String(), false)
	if st == nil {
		return nil, false, false
	}
	st.mu.Lock()
	events, gap = st.log.ReadFrom(after, limit)
	st.mu.Unlock()
	return events, gap, true
}
