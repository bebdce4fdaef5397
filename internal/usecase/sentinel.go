package usecase

import (
	"regexp"
	"strings"
)

// sentinelPattern matches the hidden machine-readable tag the sentinel
// detection mode asks the model to embed in its reply.
var sentinelPattern = regexp.MustCompile(`\[SEND_EMAIL:([^\]]*)\]`)

// extractSentinel locates the first sentinel tag in a generated reply. It
// returns the reply with the exact tag substring removed (and surrounding
// whitespace trimmed), the extracted reason payload, and whether a tag was
// present. The visitor must never see the tag.
func extractSentinel(reply string) (visible, reason string, found bool) {
	loc := sentinelPattern.FindStringSubmatchIndex(reply)
	if loc == nil {
		return reply, "", false
	}
	visible = strings.TrimSpace(reply[:loc[0]] + reply[loc[1]:])
	reason = strings.TrimSpace(reply[loc[2]:loc[3]])
	return visible, reason, true
}
