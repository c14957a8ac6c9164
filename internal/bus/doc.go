// Package bus implements the event distribution core: the topic registry,
// per-topic event logs, connection bookkeeping, and non-blocking fan-out.
//
// # Overview
//
// A Bus owns every topic's state. Publish appends to the topic's bounded log
// under the topic lock and offers the event to each subscriber's outbound
// queue without blocking. A subscriber whose queue is full is evicted with
// the slow_consumer reason; events are never dropped for connections that
// keep up, and a publish never fails because of a slow reader.
//
// Subscribe runs under the registry lock, so a subscription is either fully
// registered or not registered at all relative to any concurrent publish or
// close. Resume replay is snapshotted under the same critical section as
// registration, which guarantees no duplicate and no missed event between
// the replayed backlog and the live queue.
//
// Lock ordering is Bus.mu, then topicState.mu, then Connection.mu. Publish
// takes only the topic lock on the hot path.
package bus
