package live

import "strings"

// profilePreambles are the per-profile system instruction openings. The
// full prompt text is configuration data, not core logic; callers can
// replace these wholesale through the custom prompt.
var profilePreambles = map[string]string{
	"exam":      "You are an exam assistant. Provide direct, accurate answers with just enough explanation to confirm correctness. Keep responses short and to the point, in markdown.",
	"interview": "You are an interview assistant. Answer the most recent question asked, concisely and confidently, in markdown.",
	"meeting":   "You are a meeting assistant. Summarize, clarify, and answer questions raised in the conversation, in markdown.",
	"sales":     "You are a sales call assistant. Suggest concise, persuasive responses to the prospect's latest point, in markdown.",
}

const searchUsageNote = "Use Google search for current examples, recent discoveries, or updated information when the question depends on facts that may have changed."

// BuildSystemPrompt assembles the system instruction for a profile, folding
// in the user-provided context. Unknown profiles fall back to "exam".
func BuildSystemPrompt(profileID, customPrompt string, googleSearchEnabled bool) string {
	preamble, ok := profilePreambles[profileID]
	if !ok {
		preamble = profilePreambles["exam"]
	}

	var b strings.Builder
	b.WriteString(preamble)
	if googleSearchEnabled {
		b.WriteString("\n\n")
		b.WriteString(searchUsageNote)
	}
	if strings.TrimSpace(customPrompt) != "" {
		b.WriteString("\n\nUser-provided context\n-----\n")
		b.WriteString(customPrompt)
		b.WriteString("\n-----\n")
	}
	return b.String()
}
