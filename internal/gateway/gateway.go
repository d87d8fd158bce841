// Package gateway exposes the task pipeline to the outside world.
package gateway

import (
	"context"

	"github.com/rahul/aiops/internal/agent"
)

// Runner executes one task end to end. *agent.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, task string) agent.CombinedResult
}

// Messenger defines the interface for chat gateways (Telegram, etc.)
type Messenger interface {
	// Start begins the message listening loop and blocks until ctx is done
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}
