package controllers

import (
	json "github.com/goccy/go-json"
)

// Request and response shapes shared across controllers.

type publishReq struct {
	Topic   string          `json:"topic"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type publishResp struct {
	Topic string `json:"topic"`
	Seq   uint64 `json:"seq"`
}

// subscribedRecord is the per-topic control record sent before any events.
// Gap reports that the requested resume point is no longer retained; the
// client must refetch current state out-of-band before trusting the stream.
type subscribedRecord struct {
	Topic    string `json:"topic"`
	Head     uint64 `json:"head"`
	Replayed int    `json:"replayed"`
	Gap      bool   `json:"gap"`
}

// errorRecord reports a per-topic failure without tearing the stream down.
type errorRecord struct {
	Topic string `json:"topic"`
	Code  string `json:"code"`
}

// closedRecord is the final record before the server ends the stream.
type closedRecord struct {
	Reason string `json:"reason"`
}

const codeUnauthorizedTopic = "unauthorized_topic"
