package domain

import "strings"

// Message roles as they appear on the wire. The widget and the completion
// service both use the user/assistant convention.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape used by the handler,
// the widget, and the LLM integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions bounds a single completion call. A zero Temperature means the
// provider decides; a zero MaxTokens means unbounded.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// LeadSignal is the verdict produced by a lead detector for one transcript
// snapshot. It is never persisted; it lives only as long as one dispatch.
type LeadSignal struct {
	Qualified bool
	Reason    string
}

// VisitorMessageCount returns the number of visitor-authored messages in the
// transcript.
func VisitorMessageCount(messages []ChatMessage) int {
	n := 0
	for _, m := range messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// VisitorText concatenates all visitor-authored message contents, newline
// separated. Agent messages are excluded.
func VisitorText(messages []ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
