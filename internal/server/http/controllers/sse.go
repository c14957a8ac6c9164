package controllers

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
)

// sseWriter frames records as Server-Sent Events on one response.
//
// Every write is flushed immediately so events reach the client without
// buffering delay. A write or flush failure is terminal for the stream; the
// caller tears the connection down.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

var errNoFlusher = errors.New("response writer does not support flushing")

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errNoFlusher
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, f: f}, nil
}

// WriteRecord sends one SSE record. id and event are optional; data is
// JSON-encoded.
func (s *sseWriter) WriteRecord(id, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := s.w.Write([]byte("id: " + id + "\n")); err != nil {
			return err
		}
	}
	if event != "" {
		if _, err := s.w.Write([]byte("event: " + event + "\n")); err != nil {
			return err
		}
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// WriteComment sends a comment record. Comments carry no sequence and are
// ignored by EventSource clients; they serve as heartbeats.
func (s *sseWriter) WriteComment(text string) error {
	if _, err := s.w.Write([]byte(": " + text + "\n\n")); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}
