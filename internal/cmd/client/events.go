package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// newEventsPublishCommand constructs the `events publish` subcommand.
func newEventsPublishCommand(baseURL BaseURLFunc) *cobra.Command {
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one event to a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topicArg, _ := cmd.Flags().GetString("topic")
			kind, _ := cmd.Flags().GetString("kind")
			payload, _ := cmd.Flags().GetString("payload")

			body, err := json.Marshal(map[string]any{
				"topic":   topicArg,
				"kind":    kind,
				"payload": json.RawMessage(payload),
			})
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			resp, err := http.Post(baseURL()+"/v1/events/publish", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			out, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if resp.StatusCode != http.StatusAccepted {
				return fmt.Errorf("publish: %s: %s", resp.Status, bytes.TrimSpace(out))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s", out)
			return nil
		},
	}
	publishCmd.Flags().String("topic", "", "Topic (kind:id)")
	publishCmd.Flags().String("kind", "", "Event kind")
	publishCmd.Flags().String("payload", "{}", "Event payload JSON")
	return publishCmd
}

// newEventsListCommand constructs the `events list` subcommand.
func newEventsListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List retained events for a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topicArg, _ := cmd.Flags().GetString("topic")
			after, _ := cmd.Flags().GetUint64("after")
			limit, _ := cmd.Flags().GetInt("limit")

			q := url.Values{}
			q.Set("topic", topicArg)
			if after > 0 {
				q.Set("after", strconv.FormatUint(after, 10))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			return getJSON(cmd.OutOrStdout(), baseURL()+"/v1/topics/events?"+q.Encode())
		},
	}
	listCmd.Flags().String("topic", "", "Topic (kind:id)")
	listCmd.Flags().Uint64("after", 0, "List events after this sequence")
	listCmd.Flags().Int("limit", 0, "Maximum events to return")
	return listCmd
}

// newTopicsListCommand constructs the `topics` command.
func newTopicsListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List active topics with stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getJSON(cmd.OutOrStdout(), baseURL()+"/v1/topics")
		},
	}
}

// newStreamStatsCommand constructs the `stream stats` subcommand.
func newStreamStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show connection and subscription counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getJSON(cmd.OutOrStdout(), baseURL()+"/v1/stream/stats")
		},
	}
}
