package history

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lockin-live/lockin/pkg/core"
)

// PostgresStore is a durable Store over pgx. It preserves the in-memory
// store's contract: lazy session creation and descending-timestamp listing
// with insertion-order ties.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a store over an existing pool. The caller owns
// the pool and the schema (see Migrate).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// SaveTurn implements Store.
func (p *PostgresStore) SaveTurn(ctx context.Context, sessionID, transcription, response string) (Turn, error) {
	now := p.now()
	turn := Turn{
		Timestamp:     now,
		Transcription: strings.TrimSpace(transcription),
		AIResponse:    strings.TrimSpace(response),
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Turn{}, core.NewStorageError("begin save turn", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO conversation_sessions (session_id, started_at, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET last_updated = EXCLUDED.last_updated`,
		sessionID, sessionTimestamp(sessionID, now), now,
	)
	if err != nil {
		return Turn{}, core.NewStorageError("upsert session", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO conversation_turns (turn_id, session_id, recorded_at, transcription, ai_response)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), sessionID, now, turn.Transcription, turn.AIResponse,
	)
	if err != nil {
		return Turn{}, core.NewStorageError("insert turn", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Turn{}, core.NewStorageError("commit save turn", err)
	}
	return turn, nil
}

// GetSession implements Store.
func (p *PostgresStore) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	rec := SessionRecord{SessionID: sessionID}
	err := p.pool.QueryRow(ctx, `
		SELECT started_at, last_updated FROM conversation_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&rec.Timestamp, &rec.LastUpdated)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStorageError("load session", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT recorded_at, transcription, ai_response
		FROM conversation_turns WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, core.NewStorageError("load turns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Timestamp, &t.Transcription, &t.AIResponse); err != nil {
			return nil, core.NewStorageError("scan turn", err)
		}
		rec.Turns = append(rec.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("iterate turns", err)
	}
	return &rec, nil
}

// AllSessions implements Store.
func (p *PostgresStore) AllSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT session_id FROM conversation_sessions ORDER BY started_at DESC, seq ASC`)
	if err != nil {
		return nil, core.NewStorageError("list sessions", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, core.NewStorageError("scan session", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("iterate sessions", err)
	}

	out := make([]SessionRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := p.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}
