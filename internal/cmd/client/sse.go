package client

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one parsed Server-Sent Events record.
type sseEvent struct {
	ID    string
	Event string
	Data  string
}

// sseReader incrementally parses an SSE byte stream. Comment records
// (heartbeats) are skipped.
type sseReader struct {
	br *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{br: bufio.NewReader(r)}
}

// Next blocks until a full record arrives or the stream ends.
func (r *sseReader) Next() (sseEvent, error) {
	var ev sseEvent
	var seen bool
	for {
		line, err := r.br.ReadString('\n')
		if err != nil {
			return sseEvent{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if seen {
				return ev, nil
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id:"):
			ev.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			seen = true
		case strings.HasPrefix(line, "event:"):
			ev.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			seen = true
		case strings.HasPrefix(line, "data:"):
			if ev.Data != "" {
				ev.Data += "\n"
			}
			ev.Data += strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			seen = true
		}
	}
}
