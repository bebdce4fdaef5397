package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"gallery-agent/internal/domain"
)

// DetectorMode selects the lead detection strategy at startup.
type DetectorMode string

const (
	DetectorRules     DetectorMode = "rules"
	DetectorEvaluator DetectorMode = "evaluator"
	DetectorSentinel  DetectorMode = "sentinel"
)

// ParseDetectorMode maps a configuration string to a DetectorMode, defaulting
// to the deterministic rule-based mode.
func ParseDetectorMode(s string) DetectorMode {
	switch DetectorMode(strings.ToLower(strings.TrimSpace(s))) {
	case DetectorEvaluator:
		return DetectorEvaluator
	case DetectorSentinel:
		return DetectorSentinel
	default:
		return DetectorRules
	}
}

// LeadDetector decides whether a transcript reflects a qualified lead.
// Implementations must never fail the chat turn: an undecidable transcript is
// simply not qualified.
type LeadDetector interface {
	Detect(ctx context.Context, messages []domain.ChatMessage) (domain.LeadSignal, error)
}

// triggerCategory is one labeled predicate of the rule-based detector.
// Declaration order is the reason-list order.
type triggerCategory struct {
	label   string
	pattern *regexp.Regexp
}

var triggerCategories = []triggerCategory{
	{
		label:   "budget mentioned",
		pattern: regexp.MustCompile(`(?i)\$\s?\d|budget|price range|[\d,.]+\s?(usd|eur|k\b)|how much`),
	},
	{
		label:   "institutional affiliation",
		pattern: regexp.MustCompile(`(?i)\b(curator|collector|gallerist|museum|gallery|institution|foundation|biennale|art fair)\b`),
	},
	{
		label:   "brand or corporate interest",
		pattern: regexp.MustCompile(`(?i)\b(brand|corporate|company|hotel|resort|headquarters|agency|studio)\b`),
	},
	{
		label:   "acquisition intent",
		pattern: regexp.MustCompile(`(?i)\b(acquire|acquisition|purchase|buy|commission|install|installation|collect)\b`),
	},
	{
		label:   "contact details shared",
		pattern: regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}|\+?\d[\d\s().-]{7,}\d`),
	},
	{
		label:   "viewing or visit request",
		pattern: regexp.MustCompile(`(?i)\b(private viewing|viewing|visit|appointment|schedule|studio tour|immersion)\b`),
	},
}

// minVisitorMessages is the rule-based precondition: a single greeting must
// never trigger a notification.
const minVisitorMessages = 2

// RuleBasedDetector matches a fixed set of trigger categories against the
// concatenated visitor text. Pure and deterministic.
type RuleBasedDetector struct{}

func NewRuleBasedDetector() *RuleBasedDetector {
	return &RuleBasedDetector{}
}

func (d *RuleBasedDetector) Detect(_ context.Context, messages []domain.ChatMessage) (domain.LeadSignal, error) {
	if domain.VisitorMessageCount(messages) < minVisitorMessages {
		return domain.LeadSignal{}, nil
	}

	text := domain.VisitorText(messages)
	var reasons []string
	for _, c := range triggerCategories {
		if c.pattern.MatchString(text) {
			reasons = append(reasons, c.label)
		}
	}
	if len(reasons) == 0 {
		return domain.LeadSignal{}, nil
	}
	return domain.LeadSignal{
		Qualified: true,
		Reason:    strings.Join(reasons, ", "),
	}, nil
}

const qualifiedPrefix = "QUALIFIED:"

// ModelAssistedDetector delegates classification to the completion service via
// a dedicated evaluator call. Any upstream failure or unparseable answer is
// treated as not qualified.
type ModelAssistedDetector struct {
	llm    CompletionClient
	model  string
	logger *slog.Logger
}

func NewModelAssistedDetector(llm CompletionClient, model string, logger *slog.Logger) *ModelAssistedDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelAssistedDetector{llm: llm, model: model, logger: logger}
}

func (d *ModelAssistedDetector) Detect(ctx context.Context, messages []domain.ChatMessage) (domain.LeadSignal, error) {
	if d.llm == nil {
		return domain.LeadSignal{}, nil
	}

	prompt := []domain.ChatMessage{
		{Role: "system", Content: buildEvaluatorPrompt()},
		{Role: domain.RoleUser, Content: transcriptText(messages)},
	}
	verdict, err := d.llm.Chat(ctx, d.model, prompt, domain.ChatOptions{MaxTokens: evaluatorMaxTokens})
	if err != nil {
		// Detection must never fail the visible turn.
		d.logger.Warn("lead evaluation failed", "err", err)
		return domain.LeadSignal{}, nil
	}

	verdict = strings.TrimSpace(verdict)
	if !strings.HasPrefix(verdict, qualifiedPrefix) {
		return domain.LeadSignal{}, nil
	}
	return domain.LeadSignal{
		Qualified: true,
		Reason:    strings.TrimSpace(strings.TrimPrefix(verdict, qualifiedPrefix)),
	}, nil
}
