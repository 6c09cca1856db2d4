package live

import (
	"strings"
	"sync"
)

// fillerTokens are the low-information fragments used as a tie-breaker when
// deciding whether streamed text replaces the last entry or opens a new one.
// Filler text is still shown, never dropped.
var fillerTokens = []string{"hmm", "okay", "next", "go on", "continue"}

func isFillerResponse(text string) bool {
	if len(text) >= 30 {
		return false
	}
	lower := strings.ToLower(text)
	for _, tok := range fillerTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// ResponseAggregator accumulates incremental reply fragments into logical
// turns. At most one turn is open (incomplete) at a time; a new turn opens
// only when the previous one is complete or none has started yet.
//
// The update-vs-append policy is deliberately quirky: it mirrors the shipped
// behavior, including the filler heuristic misclassifying short genuine
// answers. Do not tidy it without product guidance.
type ResponseAggregator struct {
	mu sync.Mutex

	responses           []string
	currentIndex        int
	awaitingNewTurn     bool
	currentTurnComplete bool

	buffer        strings.Builder
	transcription strings.Builder

	onUpdate       func(text string, index int)
	onTurnFinished func(transcription, response string)
}

// NewResponseAggregator creates an aggregator with no turns.
func NewResponseAggregator() *ResponseAggregator {
	return &ResponseAggregator{currentIndex: -1}
}

// SetCallbacks sets the update and turn-finished callbacks.
func (a *ResponseAggregator) SetCallbacks(
	onUpdate func(text string, index int),
	onTurnFinished func(transcription, response string),
) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUpdate = onUpdate
	a.onTurnFinished = onTurnFinished
}

// BeginAwaitingTurn marks that the caller just sent new user input, so the
// next reply fragment belongs to a fresh turn.
func (a *ResponseAggregator) BeginAwaitingTurn() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.awaitingNewTurn = true
}

// OnTranscription accumulates an input transcription fragment for the
// pending turn.
func (a *ResponseAggregator) OnTranscription(delta string) {
	if delta == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcription.WriteString(delta)
}

// Transcription returns the transcription accumulated so far for the
// pending turn.
func (a *ResponseAggregator) Transcription() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcription.String()
}

// OnFragment accumulates a reply fragment and re-renders the current turn.
func (a *ResponseAggregator) OnFragment(delta string) {
	if delta == "" {
		return
	}
	a.mu.Lock()
	a.buffer.WriteString(delta)
	text := a.buffer.String()
	idx, cb := a.applyLocked(text)
	a.mu.Unlock()

	if cb != nil {
		cb(text, idx)
	}
}

// OnGenerationComplete flushes the buffer as the final text of the current
// entry and, when both a pending transcription and the buffer are non-empty,
// reports the finished turn for persistence. The turn stays open until
// OnTurnComplete.
func (a *ResponseAggregator) OnGenerationComplete() {
	a.mu.Lock()
	text := a.buffer.String()
	idx, update := a.applyLocked(text)

	transcription := strings.TrimSpace(a.transcription.String())
	response := strings.TrimSpace(text)
	finished := a.onTurnFinished
	save := transcription != "" && response != ""
	if save {
		a.transcription.Reset()
	}
	a.buffer.Reset()
	a.mu.Unlock()

	if update != nil {
		update(text, idx)
	}
	if save && finished != nil {
		finished(transcription, response)
	}
}

// OnTurnComplete marks the current turn complete. This is the only place
// that lets a later fragment open a new turn.
func (a *ResponseAggregator) OnTurnComplete() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentTurnComplete = true
}

// applyLocked runs the update-or-new decision for the full text of the
// streaming turn. Returns the entry index and the update callback to invoke
// after unlocking.
func (a *ResponseAggregator) applyLocked(text string) (int, func(string, int)) {
	filler := isFillerResponse(text)

	switch {
	case a.awaitingNewTurn || len(a.responses) == 0:
		if !a.currentTurnComplete {
			// Already streaming this turn, just update in place.
			a.replaceLastLocked(text)
		} else {
			a.responses = append(a.responses, text)
			a.currentIndex = len(a.responses) - 1
			a.awaitingNewTurn = false
			a.currentTurnComplete = false
		}
	case !a.currentTurnComplete && !filler:
		a.replaceLastLocked(text)
	default:
		// Defensive fallback: treat as a new turn even though not awaited.
		a.responses = append(a.responses, text)
		a.currentIndex = len(a.responses) - 1
		a.currentTurnComplete = false
	}
	return a.currentIndex, a.onUpdate
}

// replaceLastLocked overwrites the last entry, or creates the first one when
// none exist yet.
func (a *ResponseAggregator) replaceLastLocked(text string) {
	if len(a.responses) == 0 {
		a.responses = append(a.responses, text)
		a.currentIndex = 0
		return
	}
	a.responses[len(a.responses)-1] = text
}

// Responses returns a snapshot of all turn entries in order.
func (a *ResponseAggregator) Responses() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.responses))
	copy(out, a.responses)
	return out
}

// CurrentIndex returns the index of the current turn entry, or -1 before the
// first turn opens.
func (a *ResponseAggregator) CurrentIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentIndex
}

// CurrentTurnComplete reports whether the current turn has seen TurnComplete.
func (a *ResponseAggregator) CurrentTurnComplete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentTurnComplete
}

// Reset clears all aggregation state.
func (a *ResponseAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses = nil
	a.currentIndex = -1
	a.awaitingNewTurn = false
	a.currentTurnComplete = false
	a.buffer.Reset()
	a.transcription.Reset()
}
