package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// errEvicted marks a server-side close the client should recover from by
// reconnecting with its resume tokens.
var errEvicted = errors.New("evicted by server")

// tailSession carries reconnect state across stream attempts: the resume
// token per topic advances with every event printed, so a reconnect picks
// up exactly where the previous connection dropped.
type tailSession struct {
	topics    []string
	resume    map[string]string // topic -> last event id ("topic@seq")
	filter    string
	token     string
	remaining int // 0 = unlimited
	out       *json.Encoder
	errOut    io.Writer
}

// newStreamTailCommand constructs the `stream tail` subcommand.
func newStreamTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail topics over SSE, reconnecting and resuming on drops",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topicsArg, _ := cmd.Flags().GetString("topics")
			resumeArg, _ := cmd.Flags().GetString("resume")
			filter, _ := cmd.Flags().GetString("filter")
			token, _ := cmd.Flags().GetString("token")
			limit, _ := cmd.Flags().GetInt("limit")

			topics := splitNonEmpty(topicsArg)
			if len(topics) == 0 {
				return fmt.Errorf("--topics is required")
			}
			s := &tailSession{
				topics:    topics,
				resume:    map[string]string{},
				filter:    filter,
				token:     token,
				remaining: limit,
				out:       json.NewEncoder(cmd.OutOrStdout()),
				errOut:    cmd.ErrOrStderr(),
			}
			for _, tok := range splitNonEmpty(resumeArg) {
				name, _, ok := strings.Cut(tok, "@")
				if !ok {
					return fmt.Errorf("invalid resume token %q", tok)
				}
				s.resume[name] = tok
			}
			return s.run(cmd.Context(), baseURL())
		},
	}
	tailCmd.Flags().String("topics", "", "Comma-separated topics (kind:id)")
	tailCmd.Flags().String("resume", "", "Comma-separated resume tokens (kind:id@seq)")
	tailCmd.Flags().String("filter", "", "CEL filter (server-side)")
	tailCmd.Flags().String("token", "", "Bearer token")
	tailCmd.Flags().Int("limit", 0, "Stop after N events (0 = infinite)")
	return tailCmd
}

// run reconnects with exponential backoff until the stream completes or the
// context is cancelled. A clean server shutdown ends the tail; an eviction
// or transport drop retries with the accumulated resume tokens.
func (s *tailSession) run(ctx context.Context, base string) error {
	op := func() (struct{}, error) {
		err := s.streamOnce(ctx, base)
		if err == nil {
			return struct{}{}, nil
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		fmt.Fprintf(s.errOut, "stream dropped: %v; reconnecting\n", err)
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, op, backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// streamOnce opens one SSE connection and consumes it to completion. A nil
// return means the tail is finished; any error asks the caller to reconnect.
func (s *tailSession) streamOnce(ctx context.Context, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.streamURL(base), nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("stream: %s: %s", resp.Status, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	reader := newSSEReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("connection closed")
			}
			return err
		}
		switch ev.Event {
		case "subscribed", "error":
			fmt.Fprintf(s.errOut, "%s: %s\n", ev.Event, ev.Data)
		case "closed":
			var rec struct {
				Reason string `json:"reason"`
			}
			_ = json.Unmarshal([]byte(ev.Data), &rec)
			if rec.Reason == "slow_consumer" || rec.Reason == "idle_timeout" {
				return fmt.Errorf("%w: %s", errEvicted, rec.Reason)
			}
			return nil
		default:
			if err := s.printEvent(ev); err != nil {
				return backoff.Permanent(err)
			}
			if s.remaining > 0 {
				s.remaining--
				if s.remaining == 0 {
					return nil
				}
			}
		}
	}
}

func (s *tailSession) printEvent(ev sseEvent) error {
	name, _, _ := strings.Cut(ev.ID, "@")
	s.resume[name] = ev.ID
	return s.out.Encode(map[string]any{
		"id":      ev.ID,
		"kind":    ev.Event,
		"payload": json.RawMessage(ev.Data),
	})
}

func (s *tailSession) streamURL(base string) string {
	q := url.Values{}
	q.Set("topics", strings.Join(s.topics, ","))
	if len(s.resume) > 0 {
		toks := make([]string, 0, len(s.resume))
		for _, tok := range s.resume {
			toks = append(toks, tok)
		}
		q.Set("resume", strings.Join(toks, ","))
	}
	if s.filter != "" {
		q.Set("filter", s.filter)
	}
	return base + "/v1/stream?" + q.Encode()
}
