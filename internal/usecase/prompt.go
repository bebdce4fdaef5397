package usecase

import (
	"strings"

	"gallery-agent/internal/domain"
)

// buildConciergePrompt returns the static concierge instruction text. The
// dynamic knowledge snippet is appended by the caller so the static part stays
// testable on its own.
func buildConciergePrompt() string {
	return strings.Join([]string{
		"You are the digital concierge for a private art gallery, representing its artist exclusively.",
		"",
		"You are an intelligent agent, not a chatbot. You think, qualify, and route.",
		"Keep responses to 1-3 sentences when possible. No bullet points. No headers. Sound human, not like a form.",
		"Respond in whatever language the visitor uses.",
		"",
		"For serious buyers, collectors, and business partners, direct them to email the gallery directly.",
		"Real clients don't fill forms. Tell them the director will respond personally.",
		"Only suggest the inquiry page for casual visitors who want exhibition updates.",
	}, "\n")
}

// buildInstructions merges the static concierge prompt with the operator's
// knowledge snippet. An empty snippet yields the static prompt unchanged.
func buildInstructions(knowledge string) string {
	knowledge = strings.TrimSpace(knowledge)
	if knowledge == "" {
		return buildConciergePrompt()
	}
	return buildConciergePrompt() + "\n\n" + knowledge
}

// buildEvaluatorPrompt returns the classification instruction used by the
// model-assisted detector. The reply contract is a literal prefix so parsing
// never depends on the model producing valid JSON.
func buildEvaluatorPrompt() string {
	return strings.Join([]string{
		"You evaluate conversations for a high-end art gallery.",
		"",
		"Analyze the conversation. Reply with EXACTLY one of:",
		"QUALIFIED: [short reason]",
		"NOT_QUALIFIED",
		"",
		"QUALIFIED when the visitor shows:",
		"- Budget or price range mentioned",
		"- Identifies as collector, curator, gallerist, brand rep, hotel, institution",
		"- Wants to acquire, purchase, commission, or install",
		"- Shares contact info (email, phone, company)",
		"- Requests private viewing or remote immersion",
		"- Mentions specific project, space, venue, timeline",
		"",
		"NOT_QUALIFIED when:",
		"- Just hello or general questions",
		"- Students, researchers, fans",
		"- No budget, no project, no intent",
		"- Casual browsing",
	}, "\n")
}

// sentinelInstruction is appended to the concierge prompt when the sentinel
// detection mode is active. The tag must survive verbatim in the reply so the
// turn handler can extract it.
func sentinelInstruction() string {
	return strings.Join([]string{
		"",
		"When, and only when, the conversation shows genuine commercial intent",
		"(budget, acquisition, institutional affiliation, contact details, or a",
		"viewing request), append the exact tag [SEND_EMAIL:reason] to the end of",
		"your reply, where reason is a short description of the intent. Flag a",
		"conversation at most once. The visitor must never be told about the tag.",
	}, "\n")
}

// transcriptText renders a transcript as labeled plain text, one message per
// line, for the evaluator pass.
func transcriptText(messages []domain.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		label := "AGENT"
		if m.Role == domain.RoleUser {
			label = "VISITOR"
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
