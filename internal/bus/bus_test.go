package bus

import (
	"context"
	"fmt"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/wiredium/ripple/internal/eventlog"
	"github.com/wiredium/ripple/internal/topic"
)

func newTestBus(t *testing.T, logCap, queueCap int) *Bus {
	t.Helper()
	b := New(Config{LogCapacity: logCap, QueueCapacity: queueCap}, nil)
	t.Cleanup(b.Close)
	return b
}

func mustTopic(t *testing.T, s string) topic.Topic {
	t.Helper()
	tp, err := topic.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tp
}

func publishN(t *testing.T, b *Bus, tp topic.Topic, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"n":%d}`, i+1))
		if _, err := b.Publish(ctx, tp, "updated", payload); err != nil {
			t.Fatalf("publish %d: %v", i+1, err)
		}
	}
}

func drain(t *testing.T, c *Connection, n int) []eventlog.Event {
	t.Helper()
	out := make([]eventlog.Event, 0, n)
	for len(out) < n {
		select {
		case ev := <-c.Events():
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestPublishAssignsSequencesAndFansOut(t *testing.T) {
	b := newTestBus(t, 100, 16)
	tp := mustTopic(t, "workflow:1")

	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, tp, nil, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	publishN(t, b, tp, 5)

	got := drain(t, conn, 5)
	for i, ev := range got {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d: seq = %d, want %d", i, ev.Seq, i+1)
		}
		if ev.Topic != "workflow:1" || ev.Kind != "updated" {
			t.Fatalf("event %d: topic=%q kind=%q", i, ev.Topic, ev.Kind)
		}
	}
	select {
	case ev := <-conn.Events():
		t.Fatalf("unexpected extra event seq=%d", ev.Seq)
	default:
	}
}

func TestSubscribeWithoutResumeStartsAtHead(t *testing.T) {
	b := newTestBus(t, 100, 16)
	tp := mustTopic(t, "workflow:1")
	publishN(t, b, tp, 10)

	conn := b.NewConnection("alice")
	res, err := b.Subscribe(conn, tp, nil, "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(res.Replayed) != 0 || res.Gap {
		t.Fatalf("replayed=%d gap=%v, want none", len(res.Replayed), res.Gap)
	}

	publishN(t, b, tp, 1)
	got := drain(t, conn, 1)
	if got[0].Seq != 11 {
		t.Fatalf("live seq = %d, want 11", got[0].Seq)
	}
}

func TestResumeReplaysRetainedWindow(t *testing.T) {
	b := newTestBus(t, 100, 64)
	tp := mustTopic(t, "workflow:42")
	publishN(t, b, tp, 50)

	conn := b.NewConnection("alice")
	from := uint64(42)
	res, err := b.Subscribe(conn, tp, &from, "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if res.Gap {
		t.Fatalf("unexpected gap")
	}
	if len(res.Replayed) != 8 {
		t.Fatalf("replayed %d events, want 8", len(res.Replayed))
	}
	for i, ev := range res.Replayed {
		if ev.Seq != uint64(43+i) {
			t.Fatalf("replay %d: seq = %d, want %d", i, ev.Seq, 43+i)
		}
	}

	// Live delivery continues exactly where replay ended.
	publishN(t, b, tp, 1)
	if got := drain(t, conn, 1); got[0].Seq != 51 {
		t.Fatalf("live seq = %d, want 51", got[0].Seq)
	}
}

func TestResumeGapWhenWindowAgedOut(t *testing.T) {
	b := newTestBus(t, 5, 16)
	tp := mustTopic(t, "workflow:1")
	publishN(t, b, tp, 20) // retained window is [16,20]

	conn := b.NewConnection("alice")
	from := uint64(3)
	res, err := b.Subscribe(conn, tp, &from, "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !res.Gap {
		t.Fatalf("expected gap for aged-out resume point")
	}
	if len(res.Replayed) != 0 {
		t.Fatalf("replayed %d events alongside a gap", len(res.Replayed))
	}

	// The subscription is live regardless of the gap.
	publishN(t, b, tp, 1)
	if got := drain(t, conn, 1); got[0].Seq != 21 {
		t.Fatalf("live seq = %d, want 21", got[0].Seq)
	}
}

func TestResumeGapBeyondHead(t *testing.T) {
	b := newTestBus(t, 10, 16)
	tp := mustTopic(t, "workflow:1")
	publishN(t, b, tp, 3)

	conn := b.NewConnection("alice")
	from := uint64(9)
	res, err := b.Subscribe(conn, tp, &from, "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !res.Gap {
		t.Fatalf("expected gap when resume point exceeds head")
	}
}

func TestTopicIsolation(t *testing.T) {
	b := newTestBus(t, 100, 16)
	seven := mustTopic(t, "project:7")
	nine := mustTopic(t, "project:9")

	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, seven, nil, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	publishN(t, b, nine, 5)
	publishN(t, b, seven, 2)

	got := drain(t, conn, 2)
	for _, ev := range got {
		if ev.Topic != "project:7" {
			t.Fatalf("leaked event from %q", ev.Topic)
		}
	}
	select {
	case ev := <-conn.Events():
		t.Fatalf("unexpected event from %q", ev.Topic)
	default:
	}
}

func TestSlowConsumerEvictedWithoutPublisherError(t *testing.T) {
	b := newTestBus(t, 100, 2)
	tp := mustTopic(t, "workflow:1")

	slow := b.NewConnection("slow")
	fast := b.NewConnection("fast")
	if _, err := b.Subscribe(slow, tp, nil, ""); err != nil {
		t.Fatalf("subscribe slow: %v", err)
	}
	if _, err := b.Subscribe(fast, tp, nil, ""); err != nil {
		t.Fatalf("subscribe fast: %v", err)
	}

	// The slow connection never drains; its queue holds 2, the third
	// publish overflows it. Publish itself must keep succeeding.
	publishN(t, b, tp, 3)

	select {
	case <-slow.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("slow consumer not evicted")
	}
	if r := slow.Reason(); r != CloseReasonSlowConsumer {
		t.Fatalf("reason = %q, want %q", r, CloseReasonSlowConsumer)
	}

	// The fast connection still receives the full stream.
	got := drain(t, fast, 3)
	if got[2].Seq != 3 {
		t.Fatalf("fast consumer seq = %d, want 3", got[2].Seq)
	}
	select {
	case <-fast.Done():
		t.Fatalf("fast consumer evicted: %q", fast.Reason())
	default:
	}
}

func TestCloseConnectionRemovesSubscriptions(t *testing.T) {
	b := newTestBus(t, 100, 16)
	tp := mustTopic(t, "workflow:1")

	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, tp, nil, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	b.CloseConnection(conn.ID(), CloseReasonClient)

	select {
	case <-conn.Done():
	default:
		t.Fatalf("done not signalled")
	}
	if r := conn.Reason(); r != CloseReasonClient {
		t.Fatalf("reason = %q, want %q", r, CloseReasonClient)
	}
	if s := b.StatsNow(); s.Connections != 0 || s.Subscriptions != 0 {
		t.Fatalf("stats after close: %+v", s)
	}

	// Idempotent; a second close with another reason is a no-op.
	b.CloseConnection(conn.ID(), CloseReasonIdle)
	if r := conn.Reason(); r != CloseReasonClient {
		t.Fatalf("reason changed on second close: %q", r)
	}
}

func TestSubscribeAfterCloseFails(t *testing.T) {
	b := newTestBus(t, 100, 16)
	conn := b.NewConnection("alice")
	b.CloseConnection(conn.ID(), CloseReasonClient)
	if _, err := b.Subscribe(conn, mustTopic(t, "workflow:1"), nil, ""); err != ErrConnectionClosed {
		t.Fatalf("err = %v, want ErrConnectionClosed", err)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus(t, 100, 16)
	tp := mustTopic(t, "workflow:1")

	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, tp, nil, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	b.Unsubscribe(conn, tp)
	publishN(t, b, tp, 3)

	select {
	case ev := <-conn.Events():
		t.Fatalf("delivered seq=%d after unsubscribe", ev.Seq)
	default:
	}
	b.Unsubscribe(conn, tp) // idempotent
}

func TestFilterSkipsWithoutBreakingResume(t *testing.T) {
	b := newTestBus(t, 100, 16)
	tp := mustTopic(t, "workflow:1")

	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, tp, nil, `payload.n >= 2`); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	publishN(t, b, tp, 3) // payloads {"n":1..3}

	got := drain(t, conn, 2)
	if got[0].Seq != 2 || got[1].Seq != 3 {
		t.Fatalf("filtered seqs = %d,%d, want 2,3", got[0].Seq, got[1].Seq)
	}
}

func TestFilterAppliesToReplay(t *testing.T) {
	b := newTestBus(t, 100, 16)
	tp := mustTopic(t, "workflow:1")
	publishN(t, b, tp, 4)

	conn := b.NewConnection("alice")
	from := uint64(0)
	res, err := b.Subscribe(conn, tp, &from, `kind == "updated" && payload.n > 2`)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(res.Replayed) != 2 {
		t.Fatalf("replayed %d events, want 2", len(res.Replayed))
	}
	if res.Replayed[0].Seq != 3 || res.Replayed[1].Seq != 4 {
		t.Fatalf("replay seqs = %d,%d", res.Replayed[0].Seq, res.Replayed[1].Seq)
	}
}

func TestSubscribeRejectsBadFilter(t *testing.T) {
	b := newTestBus(t, 100, 16)
	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, mustTopic(t, "workflow:1"), nil, `kind ==`); err == nil {
		t.Fatalf("expected filter compile error")
	}
}

func TestPublishRejectsEmptyKind(t *testing.T) {
	b := newTestBus(t, 100, 16)
	if _, err := b.Publish(context.Background(), mustTopic(t, "workflow:1"), "", nil); err != ErrInvalidKind {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}
}

func TestTopicStats(t *testing.T) {
	b := newTestBus(t, 3, 16)
	tp := mustTopic(t, "workflow:1")
	publishN(t, b, tp, 5)
	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, tp, nil, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stats := b.TopicStatsAll()
	if len(stats) != 1 {
		t.Fatalf("stats len = %d", len(stats))
	}
	s := stats[0]
	if s.Topic != "workflow:1" || s.Head != 5 || s.OldestRetained != 3 || s.Retained != 3 || s.Subscribers != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestReadTopic(t *testing.T) {
	b := newTestBus(t, 100, 16)
	tp := mustTopic(t, "workflow:1")
	publishN(t, b, tp, 5)

	events, gap, ok := b.ReadTopic(tp, 2, 2)
	if !ok || gap {
		t.Fatalf("ok=%v gap=%v", ok, gap)
	}
	if len(events) != 2 || events[0].Seq != 3 || events[1].Seq != 4 {
		t.Fatalf("events = %+v", events)
	}
	if _, _, ok := b.ReadTopic(mustTopic(t, "workflow:999"), 0, 0); ok {
		t.Fatalf("expected missing topic")
	}
}

func TestIdleTopicReclaimed(t *testing.T) {
	b := New(Config{LogCapacity: 10, QueueCapacity: 16, TopicIdleGrace: time.Millisecond}, nil)
	t.Cleanup(b.Close)
	tp := mustTopic(t, "workflow:1")

	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, tp, nil, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	publishN(t, b, tp, 3)
	b.CloseConnection(conn.ID(), CloseReasonClient)

	time.Sleep(5 * time.Millisecond)
	b.sweepIdleTopics()
	if s := b.StatsNow(); s.Topics != 0 {
		t.Fatalf("topics = %d after sweep, want 0", s.Topics)
	}
}

func TestConcurrentPublishOrdering(t *testing.T) {
	b := newTestBus(t, 2000, 2048)
	tp := mustTopic(t, "workflow:1")

	conn := b.NewConnection("alice")
	if _, err := b.Subscribe(conn, tp, nil, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	const writers, perWriter = 8, 50
	done := make(chan struct{})
	for w := 0; w < writers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWriter; i++ {
				if _, err := b.Publish(context.Background(), tp, "updated", json.RawMessage(`{}`)); err != nil {
					t.Errorf("publish: %v", err)
					return
				}
			}
		}()
	}
	for w := 0; w < writers; w++ {
		<-done
	}

	got := drain(t, conn, writers*perWriter)
	for i := 1; i < len(got); i++ {
		if got[i].Seq != got[i-1].Seq+1 {
			t.Fatalf("non-contiguous delivery: %d then %d", got[i-1].Seq, got[i].Seq)
		}
	}
}
