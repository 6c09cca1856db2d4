package history

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the baseline in-memory Store. State lives for the process
// lifetime only.
type MemoryStore struct {
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*SessionRecord
	order    []string // insertion order, the tie-breaker for listing
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		sessions: make(map[string]*SessionRecord),
	}
}

// SaveTurn implements Store.
func (m *MemoryStore) SaveTurn(_ context.Context, sessionID, transcription, response string) (Turn, error) {
	now := m.now()
	turn := Turn{
		Timestamp:     now,
		Transcription: strings.TrimSpace(transcription),
		AIResponse:    strings.TrimSpace(response),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		rec = &SessionRecord{
			SessionID: sessionID,
			Timestamp: sessionTimestamp(sessionID, now),
		}
		m.sessions[sessionID] = rec
		m.order = append(m.order, sessionID)
	}
	rec.Turns = append(rec.Turns, turn)
	rec.LastUpdated = now
	return turn, nil
}

// GetSession implements Store.
func (m *MemoryStore) GetSession(_ context.Context, sessionID string) (*SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := copyRecord(rec)
	return &out, nil
}

// AllSessions implements Store.
func (m *MemoryStore) AllSessions(_ context.Context) ([]SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SessionRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, copyRecord(m.sessions[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func copyRecord(rec *SessionRecord) SessionRecord {
	out := *rec
	out.Turns = make([]Turn, len(rec.Turns))
	copy(out.Turns, rec.Turns)
	return out
}
