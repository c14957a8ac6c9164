package eventlog

// ReadFrom returns the events with sequence in (after, head], oldest first,
// capped at limit when limit > 0.
//
// gap reports that continuity from `after` cannot be guaranteed: the resume
// point either predates the retained window or lies beyond the head (a token
// this log never issued). On gap the returned slice is empty and the caller
// must resynchronize out-of-band before subscribing fresh.
func (l *Log) ReadFrom(after uint64, limit int) (events []Event, gap bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if after > l.lastSeq {
		return nil, true
	}
	if after == l.lastSeq {
		return nil, false
	}
	oldest := l.lastSeq - uint64(l.size) + 1 // size > 0 here since lastSeq > after >= 0
	if after+1 < oldest {
		return nil, true
	}
	n := int(l.lastSeq - after)
	if limit > 0 && n > limit {
		n = limit
	}
	events = make([]Event, 0, n)
	start := int(after + 1 - oldest) // offset of the first wanted entry
	for i := 0; i < n; i++ {
		events = append(events, l.buf[(l.head+start+i)%len(l.buf)])
	}
	return events, false
}
