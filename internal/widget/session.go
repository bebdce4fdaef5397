package widget

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"gallery-agent/internal/domain"
)

// FallbackMessage is appended locally when the chat request fails or times
// out. The visitor never sees a transport error.
const FallbackMessage = "Connection interrupted. Please try again."

const defaultRequestTimeout = 15 * time.Second

// defaultWelcomePool rotates randomly on first open when no pool is
// configured.
var defaultWelcomePool = []string{
	"Welcome to the gallery. We present our artist by appointment only.\n\nAre you here to explore a viewing, acquisition, curatorial advisory, or partnership?",
	"Welcome. This is a private gallery.\n\nTell me what brings you here, and I'll guide you to the right path.",
	"Hello. This is the gallery concierge.\n\nHow may I assist you today? Whether you're exploring the work for the first time or considering an acquisition, I'm here to help.",
}

// ChatClient performs one round trip to the conversation endpoint.
type ChatClient interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// Config parameterizes a Session.
type Config struct {
	Client ChatClient
	// WelcomePool overrides the built-in welcome rotation. A single entry
	// gives a fixed welcome message.
	WelcomePool []string
	// RequestTimeout bounds each submit; expiry behaves like a network
	// failure. Zero means the 15s default.
	RequestTimeout time.Duration
	// OnClose is fired on every close so a host page can collapse the
	// embedding frame. May be nil.
	OnClose func()
}

// Session is the client-side state machine for one embedded chat panel.
// It starts closed with no messages and holds no cross-session identity.
type Session struct {
	client  ChatClient
	pool    []string
	timeout time.Duration
	onClose func()
	randInt func(n int) int

	mu           sync.Mutex
	open         bool
	pending      bool
	welcomeShown bool
	messages     []domain.ChatMessage
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Client == nil {
		return nil, errors.New("widget: chat client must not be nil")
	}
	pool := cfg.WelcomePool
	if len(pool) == 0 {
		pool = defaultWelcomePool
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Session{
		client:  cfg.Client,
		pool:    pool,
		timeout: timeout,
		onClose: cfg.OnClose,
		randInt: rand.Intn,
	}, nil
}

// Open transitions to the open state. The first open with an empty transcript
// synthesizes a welcome message locally; no server round trip happens.
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return
	}
	s.open = true
	if !s.welcomeShown && len(s.messages) == 0 {
		welcome := s.pool[s.randInt(len(s.pool))]
		s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: welcome})
		s.welcomeShown = true
	}
}

// Close transitions to closed from any state and fires the close hook.
func (s *Session) Close() {
	s.mu.Lock()
	wasOpen := s.open
	s.open = false
	s.mu.Unlock()
	if wasOpen && s.onClose != nil {
		s.onClose()
	}
}

// Submit sends one visitor message. It reports false when the input is
// ignored: empty text, panel closed, or a request already pending. At most
// one request is in flight per session; pending is cleared exactly once per
// accepted submit regardless of outcome.
func (s *Session) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || !s.open || s.pending {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	s.pending = true
	transcript := make([]domain.ChatMessage, len(s.messages))
	copy(transcript, s.messages)
	s.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.client.Chat(reqCtx, transcript)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.pending = false }()
	if err != nil || strings.TrimSpace(reply) == "" {
		s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: FallbackMessage})
		return true
	}
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	return true
}

// Messages returns a copy of the local transcript.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Open state accessors.

func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Session) IsPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
