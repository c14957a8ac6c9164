// Package client contains Cobra CLI commands for Ripple.
package client

import (
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewStreamCommand constructs the `stream` command group and subcommands.
func NewStreamCommand(baseURL BaseURLFunc) *cobra.Command {
	streamCmd := &cobra.Command{Use: "stream", Short: "Stream operations"}
	streamCmd.AddCommand(
		newStreamTailCommand(baseURL),
		newStreamStatsCommand(baseURL),
	)
	return streamCmd
}

// NewEventsCommand constructs the `events` command group and subcommands.
func NewEventsCommand(baseURL BaseURLFunc) *cobra.Command {
	eventsCmd := &cobra.Command{Use: "events", Short: "Event operations"}
	eventsCmd.AddCommand(
		newEventsPublishCommand(baseURL),
		newEventsListCommand(baseURL),
	)
	return eventsCmd
}

// NewTopicsCommand constructs the `topics` command.
func NewTopicsCommand(baseURL BaseURLFunc) *cobra.Command {
	return newTopicsListCommand(baseURL)
}
