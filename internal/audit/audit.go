// Package audit keeps a trail of every command dispatch.
package audit

import "time"

// Source identifies which surface issued a dispatch.
type Source string

const (
	SourceQuery Source = "query"
	SourceChat  Source = "chat"
	SourceMCP   Source = "mcp"
)

// OutcomeOK marks a successful dispatch. Failed dispatches store their
// failure kind as the outcome.
const OutcomeOK = "ok"

// Entry is a single audit trail record.
type Entry struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Command        string         `json:"command"`
	Org            string         `json:"org"`
	Space          string         `json:"space"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Source         Source         `json:"source"`
	Args           map[string]any `json:"args"`
	Outcome        string         `json:"outcome"`
	Message        string         `json:"message,omitempty"`
	ElapsedMS      int64          `json:"elapsed_ms"`
}

// OK reports whether the dispatch succeeded.
func (e Entry) OK() bool { return e.Outcome == OutcomeOK }
