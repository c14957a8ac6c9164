package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wiredium/ripple/internal/bus"
	"github.com/wiredium/ripple/internal/eventlog"
	"github.com/wiredium/ripple/internal/runtime"
	"github.com/wiredium/ripple/internal/topic"
	logpkg "github.com/wiredium/ripple/pkg/log"
)

// StreamController handles the long-lived SSE stream endpoint.
//
// A request moves through authenticate, authorize-per-topic, subscribe, and
// then a delivery loop that multiplexes live events, heartbeats, and close
// signals until either side ends the stream. Cleanup runs exactly once
// through the bus regardless of which path ends the loop.
type StreamController struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// NewStreamController creates a new stream controller.
func NewStreamController(rt *runtime.Runtime) *StreamController {
	return &StreamController{rt: rt, logger: rt.Logger().WithComponent("http.stream")}
}

// RegisterRoutes registers the stream route with the given router.
func (c *StreamController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/stream", c.handleStream)
}

// streamRequest is the parsed and validated query surface of /v1/stream.
type streamRequest struct {
	topics []topic.Topic
	resume map[string]uint64 // topic wire form -> resume-from sequence
	filter string
}

// parseStreamRequest validates query parameters before any response bytes
// are committed, so malformed requests still get plain HTTP errors.
func parseStreamRequest(r *http.Request) (streamRequest, string) {
	q := r.URL.Query()
	var req streamRequest

	names := splitList(q.Get("topics"))
	if len(names) == 0 {
		return req, "Missing topics"
	}
	seen := map[string]struct{}{}
	for _, name := range names {
		tp, err := topic.Parse(name)
		if err != nil {
			return req, "Invalid topic " + strconv.Quote(name)
		}
		if _, dup := seen[tp.String()]; dup {
			continue
		}
		seen[tp.String()] = struct{}{}
		req.topics = append(req.topics, tp)
	}

	req.resume = map[string]uint64{}
	for _, tok := range q["resume"] {
		for _, one := range splitList(tok) {
			tp, seq, err := topic.ParseEventID(one)
			if err != nil {
				return req, "Invalid resume token " + strconv.Quote(one)
			}
			if _, requested := seen[tp.String()]; !requested {
				return req, "Resume token for unrequested topic " + strconv.Quote(tp.String())
			}
			req.resume[tp.String()] = seq
		}
	}

	req.filter = q.Get("filter")
	if len(req.filter) > 2048 {
		return req, "Filter too long"
	}
	if err := bus.ValidateFilter(req.filter); err != nil {
		return req, "Invalid filter"
	}
	return req, ""
}

func (c *StreamController) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := c.rt.Authenticator().Authenticate(ctx, bearerToken(r))
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	req, msg := parseStreamRequest(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var granted, denied []topic.Topic
	for _, tp := range req.topics {
		if c.rt.Authorizer().Allow(ctx, principal, tp) {
			granted = append(granted, tp)
		} else {
			denied = append(denied, tp)
		}
	}
	if len(granted) == 0 {
		writeError(w, http.StatusForbidden, "No authorized topics")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	b := c.rt.Bus()
	conn := b.NewConnection(principal)
	defer b.CloseConnection(conn.ID(), bus.CloseReasonClient)

	c.logger.Debug("stream.open",
		logpkg.Str("conn", conn.ID()),
		logpkg.Str("principal", principal),
		logpkg.Int("topics", len(granted)),
		logpkg.Int("denied", len(denied)),
	)

	for _, tp := range denied {
		if err := sse.WriteRecord("", "error", errorRecord{Topic: tp.String(), Code: codeUnauthorizedTopic}); err != nil {
			b.CloseConnection(conn.ID(), bus.CloseReasonWriteFailure)
			return
		}
	}

	for _, tp := range granted {
		var resumeFrom *uint64
		if seq, has := req.resume[tp.String()]; has {
			resumeFrom = &seq
		}
		res, err := b.Subscribe(conn, tp, resumeFrom, req.filter)
		if err != nil {
			// the connection raced a server-side close
			return
		}
		sub := subscribedRecord{
			Topic:    tp.String(),
			Head:     res.Head,
			Replayed: len(res.Replayed),
			Gap:      res.Gap,
		}
		if err := sse.WriteRecord("", "subscribed", sub); err != nil {
			b.CloseConnection(conn.ID(), bus.CloseReasonWriteFailure)
			return
		}
		for _, ev := range res.Replayed {
			if err := c.writeEvent(sse, ev); err != nil {
				b.CloseConnection(conn.ID(), bus.CloseReasonWriteFailure)
				return
			}
		}
	}

	c.deliver(r, sse, conn)
}

// deliver is the STREAMING phase: one consumer draining the connection
// queue, interleaved with heartbeats and idle checks.
func (c *StreamController) deliver(r *http.Request, sse *sseWriter, conn *bus.Connection) {
	b := c.rt.Bus()
	cfg := c.rt.Config()

	hb := time.NewTicker(cfg.HeartbeatInterval())
	defer hb.Stop()
	idleTimeout := cfg.IdleConnectionTimeout()

	for {
		select {
		case <-r.Context().Done():
			b.CloseConnection(conn.ID(), bus.CloseReasonClient)
			return

		case <-conn.Done():
			// server-side close: drain what was already queued, then
			// report the reason
			for {
				select {
				case ev := <-conn.Events():
					if err := c.writeEvent(sse, ev); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			_ = sse.WriteRecord("", "closed", closedRecord{Reason: string(conn.Reason())})
			return

		case ev := <-conn.Events():
			if err := c.writeEvent(sse, ev); err != nil {
				b.CloseConnection(conn.ID(), bus.CloseReasonWriteFailure)
				return
			}

		case <-hb.C:
			if idleTimeout > 0 && time.Since(conn.LastActivity()) >= idleTimeout {
				b.CloseConnection(conn.ID(), bus.CloseReasonIdle)
				_ = sse.WriteRecord("", "closed", closedRecord{Reason: string(bus.CloseReasonIdle)})
				return
			}
			if err := sse.WriteComment("hb"); err != nil {
				b.CloseConnection(conn.ID(), bus.CloseReasonWriteFailure)
				return
			}
		}
	}
}

// writeEvent frames one event: the SSE id doubles as the resume token.
func (c *StreamController) writeEvent(sse *sseWriter, ev eventlog.Event) error {
	id := ev.Topic + "@" + strconv.FormatUint(ev.Seq, 10)
	return sse.WriteRecord(id, ev.Kind, ev.Payload)
}
