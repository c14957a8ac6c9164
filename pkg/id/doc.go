// Package id generates compact, time-ordered identifiers.
//
// IDs are 16 bytes: an 8-byte millisecond timestamp followed by an 8-byte
// per-process sequence, so byte order equals creation order. The Generator is
// safe for concurrent use and tolerates clock regressions without producing
// duplicates.
package id
