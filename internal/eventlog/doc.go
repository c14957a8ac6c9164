// Package eventlog implements the per-topic bounded replay buffer.
//
// # Overview
//
// Each topic owns one Log: an append-only ring of its most recent events plus
// the highest sequence ever issued. Append is the only mutation; when the
// ring is full the oldest entry is dropped, but sequence numbering continues,
// so resume tokens older than the retained window are detected as an explicit
// gap rather than silently skipped.
//
// API surface (internal)
//
//	l := eventlog.NewLog("workflow:42", 200)
//	ev := l.Append("step_completed", payload, time.Now())
//
//	// Replay everything after a resume point; gap=true means the point
//	// aged out of the window (or was never issued).
//	events, gap := l.ReadFrom(resumeFrom, 0)
//
// All methods are safe for concurrent use; callers needing atomicity across
// Append and fan-out serialize per topic at the bus layer.
package eventlog
