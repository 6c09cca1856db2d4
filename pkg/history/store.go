// Package history records conversation turns per live session and serves
// them back for context replay and browsing.
package history

import (
	"context"
	"strconv"
	"time"
)

// Turn is one saved exchange: what the user said and what the model replied.
// Immutable once appended; order within a session is insertion order.
type Turn struct {
	Timestamp     time.Time `json:"timestamp"`
	Transcription string    `json:"transcription"`
	AIResponse    string    `json:"ai_response"`
}

// SessionRecord is the persisted shape of one session's conversation.
type SessionRecord struct {
	SessionID   string    `json:"sessionId"`
	Timestamp   time.Time `json:"timestamp"`
	Turns       []Turn    `json:"conversationHistory"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Store is the conversation history contract. Implementations must list
// sessions by timestamp descending, ties broken by insertion order, and must
// create session records lazily on first save.
type Store interface {
	// SaveTurn appends a turn, creating the session record if needed.
	// Transcription and response are stored trimmed.
	SaveTurn(ctx context.Context, sessionID, transcription, response string) (Turn, error)

	// GetSession returns the record for sessionID, or nil when absent.
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)

	// AllSessions returns every record, most recent session first.
	AllSessions(ctx context.Context) ([]SessionRecord, error)
}

// sessionTimestamp derives a session's start time from its identifier.
// Session IDs are millisecond timestamps; anything else falls back to now.
func sessionTimestamp(sessionID string, now time.Time) time.Time {
	if ms, err := strconv.ParseInt(sessionID, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	return now
}
