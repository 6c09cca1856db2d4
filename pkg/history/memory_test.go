package history

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_SaveTurnCreatesSessionLazily(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec, err := store.GetSession(ctx, "1700000000000")
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if rec != nil {
		t.Fatalf("GetSession() = %+v before any save, want nil", rec)
	}

	turn, err := store.SaveTurn(ctx, "1700000000000", "  question  ", "  answer  ")
	if err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}
	if turn.Transcription != "question" || turn.AIResponse != "answer" {
		t.Errorf("turn = %+v, want trimmed fields", turn)
	}

	rec, err = store.GetSession(ctx, "1700000000000")
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if rec == nil || len(rec.Turns) != 1 {
		t.Fatalf("record = %+v, want one turn", rec)
	}
	if !rec.Timestamp.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("session timestamp = %v, want derived from ID", rec.Timestamp)
	}
}

func TestMemoryStore_TurnsKeepInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := store.SaveTurn(ctx, "s1", q, "a"); err != nil {
			t.Fatalf("SaveTurn() error: %v", err)
		}
	}

	rec, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if len(rec.Turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(rec.Turns))
	}
	for i, want := range []string{"q1", "q2", "q3"} {
		if rec.Turns[i].Transcription != want {
			t.Errorf("turn %d = %q, want %q", i, rec.Turns[i].Transcription, want)
		}
	}
}

func TestMemoryStore_AllSessionsMostRecentFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Session IDs are millisecond timestamps; saving out of order must not
	// affect the listing order.
	if _, err := store.SaveTurn(ctx, "1700000001000", "q", "a"); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}
	if _, err := store.SaveTurn(ctx, "1700000003000", "q", "a"); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}
	if _, err := store.SaveTurn(ctx, "1700000002000", "q", "a"); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}

	records, err := store.AllSessions(ctx)
	if err != nil {
		t.Fatalf("AllSessions() error: %v", err)
	}
	want := []string{"1700000003000", "1700000002000", "1700000001000"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i := range want {
		if records[i].SessionID != want[i] {
			t.Errorf("record %d = %q, want %q", i, records[i].SessionID, want[i])
		}
	}
}

func TestMemoryStore_TimestampTiesBreakByInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	// Non-numeric IDs all fall back to the same clock reading; insertion
	// order decides.
	for _, id := range []string{"alpha", "beta", "gamma"} {
		if _, err := store.SaveTurn(ctx, id, "q", "a"); err != nil {
			t.Fatalf("SaveTurn() error: %v", err)
		}
	}

	records, err := store.AllSessions(ctx)
	if err != nil {
		t.Fatalf("AllSessions() error: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	for i := range want {
		if records[i].SessionID != want[i] {
			t.Errorf("record %d = %q, want %q", i, records[i].SessionID, want[i])
		}
	}
}

func TestMemoryStore_GetSessionReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.SaveTurn(ctx, "s1", "q", "a"); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}

	rec, _ := store.GetSession(ctx, "s1")
	rec.Turns[0].Transcription = "mutated"

	fresh, _ := store.GetSession(ctx, "s1")
	if fresh.Turns[0].Transcription != "q" {
		t.Error("mutating a returned record leaked into the store")
	}
}
