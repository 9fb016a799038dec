// Package memory stores conversation turns and serves them through a bounded
// most-recent window.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultConversation is the identity used when a caller supplies none.
const DefaultConversation = "default"

// DefaultWindow is the number of turns returned by RecentWindow.
const DefaultWindow = 10

// Role is the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored exchange half.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrInvalidRole is returned when appending a turn with an unknown role.
var ErrInvalidRole = errors.New("turn role must be user or assistant")

// Store is an append-only conversation log. Appends on one identity are
// ordered by completion; distinct identities never interfere.
type Store interface {
	// Append adds a turn to the end of the conversation, creating it if needed.
	Append(ctx context.Context, conversationID string, turn Turn) error
	// RecentWindow returns at most K of the newest turns, oldest first.
	RecentWindow(ctx context.Context, conversationID string) ([]Turn, error)
	// History returns every stored turn, oldest first.
	History(ctx context.Context, conversationID string) ([]Turn, error)
	// Window reports K.
	Window() int
}

// Identity normalizes a caller-supplied conversation id.
func Identity(id string) string {
	if id == "" {
		return DefaultConversation
	}
	return id
}

func validate(turn Turn) error {
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, turn.Role)
	}
	return nil
}

func windowSize(k int) int {
	if k <= 0 {
		return DefaultWindow
	}
	return k
}
