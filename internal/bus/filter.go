package bus

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/cel-go/cel"

	"github.com/wiredium/ripple/internal/eventlog"
)

// eventFilter wraps a compiled CEL program evaluated per event for one
// subscription. When disabled, Allows always returns true.
type eventFilter struct {
	prog    cel.Program
	enabled bool
}

func newEventFilter(expr string) (eventFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return eventFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("topic", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("seq", cel.IntType),
		// Parsed payload JSON for field-level filtering
		cel.Variable("payload", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return eventFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return eventFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return eventFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return eventFilter{}, err
	}
	return eventFilter{prog: prog, enabled: true}, nil
}

// ValidateFilter reports whether the expression compiles. Endpoints call it
// before committing to a streaming response.
func ValidateFilter(expr string) error {
	_, err := newEventFilter(expr)
	return err
}

// Allows evaluates the expression against the event. Evaluation errors count
// as a non-match.
func (f eventFilter) Allows(ev eventlog.Event) bool {
	if !f.enabled {
		return true
	}
	var payload any
	if len(ev.Payload) > 0 {
		_ = json.Unmarshal(ev.Payload, &payload)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"topic":   ev.Topic,
		"kind":    ev.Kind,
		"seq":     int64(ev.Seq),
		"payload": payload,
		"now_ms":  time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
