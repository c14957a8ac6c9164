package eventlog

import (
	"testing"
	"time"
)

func appendN(l *Log, n int) {
	for i := 0; i < n; i++ {
		l.Append("test_event", nil, time.Now())
	}
}

func TestAppendAssignsContiguousSequences(t *testing.T) {
	l := NewLog("workflow:42", 10)
	for want := uint64(1); want <= 5; want++ {
		ev := l.Append("step_completed", nil, time.Now())
		if ev.Seq != want {
			t.Fatalf("seq: want %d got %d", want, ev.Seq)
		}
	}
	if l.Head() != 5 {
		t.Fatalf("head: %d", l.Head())
	}
	if l.OldestRetained() != 1 {
		t.Fatalf("oldest: %d", l.OldestRetained())
	}
}

func TestTrimKeepsNumbering(t *testing.T) {
	l := NewLog("workflow:42", 3)
	appendN(l, 7)
	if l.Len() != 3 {
		t.Fatalf("len: %d", l.Len())
	}
	if l.Head() != 7 {
		t.Fatalf("head: %d", l.Head())
	}
	if l.OldestRetained() != 5 {
		t.Fatalf("oldest: %d", l.OldestRetained())
	}
	events, gap := l.ReadFrom(4, 0)
	if gap {
		t.Fatalf("unexpected gap")
	}
	for i, ev := range events {
		if ev.Seq != uint64(5+i) {
			t.Fatalf("event %d: seq %d", i, ev.Seq)
		}
	}
}

func TestCapacityBounded(t *testing.T) {
	l := NewLog("noise:1", 8)
	appendN(l, 10_000)
	if l.Len() != 8 {
		t.Fatalf("len grew past capacity: %d", l.Len())
	}
}
