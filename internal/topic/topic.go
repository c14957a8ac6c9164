package topic

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Topic addresses one logical event stream tied to a single entity, e.g. a
// workflow run, a project's collaboration space, or a user's notification
// feed. The wire form is "kind:id", as in "workflow:42".
type Topic struct {
	Kind string
	ID   string
}

// ErrInvalid reports a malformed topic kind, id, or wire form.
var ErrInvalid = errors.New("invalid topic")

var kindRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// New validates kind and id and returns the Topic.
func New(kind, entityID string) (Topic, error) {
	if !kindRe.MatchString(kind) {
		return Topic{}, fmt.Errorf("%w: kind %q", ErrInvalid, kind)
	}
	if entityID == "" || len(entityID) > 128 || strings.ContainsAny(entityID, ":,@ \t\n") {
		return Topic{}, fmt.Errorf("%w: id %q", ErrInvalid, entityID)
	}
	return Topic{Kind: kind, ID: entityID}, nil
}

// Parse parses the wire form "kind:id".
func Parse(s string) (Topic, error) {
	kind, entityID, ok := strings.Cut(s, ":")
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return New(kind, entityID)
}

// String returns the wire form "kind:id".
func (t Topic) String() string { return t.Kind + ":" + t.ID }

// IsZero reports whether the topic is unset.
func (t Topic) IsZero() bool { return t.Kind == "" && t.ID == "" }

// EventID renders the client-visible event identifier "kind:id@seq", which
// doubles as the resume token.
func EventID(t Topic, seq uint64) string {
	return t.String() + "@" + strconv.FormatUint(seq, 10)
}

// ParseEventID parses "kind:id@seq" back into a topic and sequence.
func ParseEventID(s string) (Topic, uint64, error) {
	ts, seqStr, ok := strings.Cut(s, "@")
	if !ok {
		return Topic{}, 0, fmt.Errorf("%w: event id %q", ErrInvalid, s)
	}
	t, err := Parse(ts)
	if err != nil {
		return Topic{}, 0, err
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return Topic{}, 0, fmt.Errorf("%w: sequence in %q", ErrInvalid, s)
	}
	return t, seq, nil
}
