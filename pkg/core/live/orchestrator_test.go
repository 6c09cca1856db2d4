package live

import (
	"context"
	"testing"

	"github.com/lockin-live/lockin/pkg/history"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeConnector, *history.MemoryStore) {
	t.Helper()
	connector := &fakeConnector{}
	store := history.NewMemoryStore()
	o := NewOrchestrator(testSessionConfig(), "key-123", connector, store, nil)
	return o, connector, store
}

// collectEvents drains everything currently buffered.
func collectEvents(o *Orchestrator) []Event {
	var out []Event
	for {
		select {
		case ev := <-o.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasStatus(events []Event, text string) bool {
	for _, ev := range events {
		if st, ok := ev.(*StatusChangedEvent); ok && st.Text == text {
			return true
		}
	}
	return false
}

func TestOrchestrator_StartSession(t *testing.T) {
	o, connector, _ := newTestOrchestrator(t)

	if err := o.StartSession(context.Background(), "exam", "en-US", "my notes"); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}

	if !o.Lifecycle().IsConnected() {
		t.Error("lifecycle not connected after StartSession")
	}
	if connector.connectCount() != 1 {
		t.Errorf("connect count = %d, want 1", connector.connectCount())
	}
	if hasStatus(collectEvents(o), "Live session connected") == false {
		t.Error("missing connected status event")
	}

	// Audio flows once the session is up.
	o.ProcessFrame(context.Background(), loudFrame())
	connector.conn.mu.Lock()
	sent := len(connector.conn.audio)
	connector.conn.mu.Unlock()
	if sent != 1 {
		t.Errorf("sent %d audio frames, want 1", sent)
	}
}

func TestOrchestrator_FramesDroppedWhenNotCapturing(t *testing.T) {
	o, connector, _ := newTestOrchestrator(t)

	if err := o.StartSession(context.Background(), "exam", "en-US", ""); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	o.StopCapture()

	o.ProcessFrame(context.Background(), loudFrame())
	connector.conn.mu.Lock()
	sent := len(connector.conn.audio)
	connector.conn.mu.Unlock()
	if sent != 0 {
		t.Errorf("sent %d audio frames while not capturing, want 0", sent)
	}
}

func TestOrchestrator_FramesDroppedWhenDisconnected(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	// Capture can run without a session; frames are observed for silence
	// but never sent anywhere.
	o.StartCapture()
	o.ProcessFrame(context.Background(), loudFrame())
	o.ProcessFrame(context.Background(), quietFrame())
}

func TestOrchestrator_ServerMessagesDriveAggregationAndPersistence(t *testing.T) {
	o, connector, store := newTestOrchestrator(t)

	if err := o.StartSession(context.Background(), "exam", "en-US", ""); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	collectEvents(o)

	connector.handlers.OnMessage(TranscriptionFragment{Text: "what is the capital of France"})
	connector.handlers.OnMessage(ResponseFragment{Text: "Paris is the capital of France."})
	connector.handlers.OnMessage(GenerationComplete{})
	connector.handlers.OnMessage(TurnComplete{})

	events := collectEvents(o)

	var sawResponse, sawTurnSaved bool
	for _, ev := range events {
		switch e := ev.(type) {
		case *ResponseUpdatedEvent:
			sawResponse = true
			if e.Text != "Paris is the capital of France." {
				t.Errorf("response text = %q", e.Text)
			}
		case *TurnSavedEvent:
			sawTurnSaved = true
			if e.Transcription != "what is the capital of France" {
				t.Errorf("saved transcription = %q", e.Transcription)
			}
		}
	}
	if !sawResponse {
		t.Error("missing response.updated event")
	}
	if !sawTurnSaved {
		t.Error("missing turn.saved event")
	}
	if !hasStatus(events, "Listening...") {
		t.Error("missing Listening... status after generation complete")
	}
	if !hasStatus(events, "Ready") {
		t.Error("missing Ready status after turn complete")
	}

	rec, err := store.GetSession(context.Background(), o.Lifecycle().SessionID())
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if rec == nil || len(rec.Turns) != 1 {
		t.Fatalf("stored record = %+v, want one turn", rec)
	}
	if rec.Turns[0].AIResponse != "Paris is the capital of France." {
		t.Errorf("stored response = %q", rec.Turns[0].AIResponse)
	}
}

func TestOrchestrator_SendUserText(t *testing.T) {
	o, connector, _ := newTestOrchestrator(t)

	if err := o.StartSession(context.Background(), "exam", "en-US", ""); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	if err := o.SendUserText(context.Background(), "explain quicksort"); err != nil {
		t.Fatalf("SendUserText() error: %v", err)
	}

	texts := connector.conn.sentTexts()
	if len(texts) != 1 || texts[0] != "explain quicksort" {
		t.Errorf("sent texts = %v", texts)
	}
}

func TestOrchestrator_ProcessScreenshot(t *testing.T) {
	o, connector, _ := newTestOrchestrator(t)

	if err := o.StartSession(context.Background(), "exam", "en-US", ""); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}

	o.ProcessScreenshot(context.Background(), []byte{0xff, 0xd8}, "")
	connector.conn.mu.Lock()
	sent := len(connector.conn.media)
	connector.conn.mu.Unlock()
	if sent != 1 {
		t.Errorf("sent %d media frames, want 1", sent)
	}
}

func TestOrchestrator_Transcriptions(t *testing.T) {
	o, _, store := newTestOrchestrator(t)

	if err := o.StartSession(context.Background(), "exam", "en-US", ""); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	sessionID := o.Lifecycle().SessionID()
	if _, err := store.SaveTurn(context.Background(), sessionID, "q1", "a1"); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}
	if _, err := store.SaveTurn(context.Background(), sessionID, "q2", "a2"); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}

	got, err := o.Transcriptions(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Transcriptions() error: %v", err)
	}
	if len(got) != 2 || got[0] != "q1" || got[1] != "q2" {
		t.Errorf("Transcriptions() = %v", got)
	}
}

func TestOrchestrator_StopSession(t *testing.T) {
	o, connector, _ := newTestOrchestrator(t)

	if err := o.StartSession(context.Background(), "exam", "en-US", ""); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	o.StopSession()

	if o.Lifecycle().IsConnected() {
		t.Error("still connected after StopSession")
	}
	if !connector.conn.closed {
		t.Error("underlying connection not closed")
	}

	// Frames after stop go nowhere.
	o.ProcessFrame(context.Background(), loudFrame())
	connector.conn.mu.Lock()
	sent := len(connector.conn.audio)
	connector.conn.mu.Unlock()
	if sent != 0 {
		t.Errorf("sent %d audio frames after stop, want 0", sent)
	}
}
