package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gallery-agent/internal/domain"
)

const (
	defaultContextWindow = 10
	replyTemperature     = 0.7
	replyMaxTokens       = 300
	evaluatorMaxTokens   = 50
	dispatchTimeout      = 10 * time.Second

	// fallbackReply is returned when the completion service fails. The
	// visitor never sees a raw upstream error.
	fallbackReply = "Please try again."
)

// KnowledgeGetter reads the operator-editable knowledge snippet.
type KnowledgeGetter interface {
	Get(ctx context.Context) (string, error)
}

// CompletionClient is the hosted text-completion dependency.
type CompletionClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error)
}

// LeadNotifier dispatches a qualified-lead notification.
type LeadNotifier interface {
	Dispatch(ctx context.Context, messages []domain.ChatMessage, trigger string) (string, error)
}

// ChatService orchestrates one conversation turn. It holds no per-request
// state; the client resubmits the full transcript on every call.
type ChatService struct {
	knowledge     KnowledgeGetter
	llm           CompletionClient
	detector      LeadDetector
	notifier      LeadNotifier // nil when the email transport is not configured
	mode          DetectorMode
	model         string
	contextWindow int
	logger        *slog.Logger

	// runAsync decouples notification dispatch from the response path.
	// Overridden in tests to run synchronously.
	runAsync func(func())
}

type ChatInput struct {
	Messages []domain.ChatMessage
}

type ChatOutput struct {
	Reply string
}

func NewChatService(knowledge KnowledgeGetter, llm CompletionClient, detector LeadDetector, notifier LeadNotifier, mode DetectorMode, model string, contextWindow int, logger *slog.Logger) (*ChatService, error) {
	if knowledge == nil {
		return nil, errors.New("usecase: knowledge getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: completion client must not be nil")
	}
	if detector == nil && mode != DetectorSentinel {
		return nil, errors.New("usecase: lead detector must not be nil")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if contextWindow <= 0 {
		contextWindow = defaultContextWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		knowledge:     knowledge,
		llm:           llm,
		detector:      detector,
		notifier:      notifier,
		mode:          mode,
		model:         model,
		contextWindow: contextWindow,
		logger:        logger,
		runAsync:      func(f func()) { go f() },
	}, nil
}

// Chat runs one conversation turn and returns the visitor-visible reply.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if err := validateTranscript(in.Messages); err != nil {
		return ChatOutput{}, newError(ErrorInvalidInput, "invalid_transcript", err)
	}

	// Knowledge store failures degrade to an empty snippet.
	snippet, err := s.knowledge.Get(ctx)
	if err != nil {
		s.logger.Warn("knowledge read failed", "err", err)
		snippet = ""
	}

	instructions := buildInstructions(snippet)
	if s.mode == DetectorSentinel {
		instructions += "\n" + sentinelInstruction()
	}

	prompt := make([]domain.ChatMessage, 0, s.contextWindow+1)
	prompt = append(prompt, domain.ChatMessage{Role: "system", Content: instructions})
	prompt = append(prompt, windowed(in.Messages, s.contextWindow)...)

	reply, err := s.llm.Chat(ctx, s.model, prompt, domain.ChatOptions{
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if err != nil {
		// Degrade to the fallback text; the HTTP turn still succeeds.
		s.logger.Error("completion call failed", "err", err)
		reply = fallbackReply
	}

	visible, signal := s.evaluate(ctx, in.Messages, reply)

	if signal.Qualified && s.notifier != nil {
		transcript := append(append([]domain.ChatMessage{}, in.Messages...),
			domain.ChatMessage{Role: domain.RoleAssistant, Content: visible})
		s.dispatchLead(ctx, transcript, signal.Reason)
	}

	return ChatOutput{Reply: visible}, nil
}

// evaluate runs lead detection over the full transcript plus the generated
// reply. In sentinel mode the verdict is carried inside the reply itself and
// must be stripped before the visitor sees it.
func (s *ChatService) evaluate(ctx context.Context, messages []domain.ChatMessage, reply string) (string, domain.LeadSignal) {
	if s.mode == DetectorSentinel {
		visible, reason, found := extractSentinel(reply)
		if !found {
			return reply, domain.LeadSignal{}
		}
		return visible, domain.LeadSignal{Qualified: true, Reason: reason}
	}

	full := append(append([]domain.ChatMessage{}, messages...),
		domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	signal, err := s.detector.Detect(ctx, full)
	if err != nil {
		// A detection failure must never fail the turn.
		s.logger.Warn("lead detection failed", "err", err)
		return reply, domain.LeadSignal{}
	}
	return reply, signal
}

// dispatchLead fires the notification without blocking the response path.
// Failures are logged only; nothing is retried.
func (s *ChatService) dispatchLead(ctx context.Context, transcript []domain.ChatMessage, reason string) {
	logger := s.logger
	notifier := s.notifier
	base := context.WithoutCancel(ctx)
	s.runAsync(func() {
		sendCtx, cancel := context.WithTimeout(base, dispatchTimeout)
		defer cancel()
		id, err := notifier.Dispatch(sendCtx, transcript, reason)
		if err != nil {
			logger.Error("lead notification failed", "err", err, "reason", reason)
			return
		}
		logger.Info("lead notification sent", "id", id, "reason", reason)
	})
}

func validateTranscript(messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return errors.New("messages must be a non-empty list")
	}
	for i, m := range messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			return fmt.Errorf("message %d has an unknown role", i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("message %d has empty content", i)
		}
	}
	return nil
}

// windowed returns the most recent n messages. The full transcript is still
// used for lead detection and notification.
func windowed(messages []domain.ChatMessage, n int) []domain.ChatMessage {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
