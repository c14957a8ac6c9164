// Package client provides the `ripple` command-line client.
//
// The CLI talks to the Ripple HTTP endpoints to publish events and tail
// topics from a terminal. It is primarily intended for developers and
// operators.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8080 and can be overridden with the
// RIPPLE_HTTP environment variable.
//
// Usage
//
//	ripple events publish --topic workflow:42 --kind updated --payload '{"step":3}'
//
//	ripple events list --topic workflow:42 --after 10 --limit 20
//
//	ripple topics
//	ripple stream stats
//
//	# Tail topics over SSE; drops reconnect automatically with the last
//	# resume token per topic
//	ripple stream tail --topics workflow:42,project:7 --limit 5
//	ripple stream tail --topics workflow:42 --resume workflow:42@12
//	ripple stream tail --topics workflow:42 --filter 'kind == "updated"'
//
// Notes
//
//   - tail prints one JSON line per event: {"id","kind","payload"}.
//     Control records (subscribed, error) go to stderr.
//   - a server-side eviction (slow consumer, idle timeout) triggers a
//     reconnect that resumes from the last printed event.
package client
