// Package httpserver exposes the Ripple HTTP API: event publishing, topic
// inspection, health, and the Server-Sent Events stream endpoint.
//
// # Overview
//
// The server is a thin shell over the controller registry. All business
// logic lives behind the runtime; handlers translate between HTTP and bus
// operations. The SSE endpoint at /v1/stream is the only long-lived route.
package httpserver
