package widget

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gallery-agent/internal/domain"
)

type scriptedChat struct {
	reply string
	err   error
	calls int32
	last  []domain.ChatMessage
}

func (c *scriptedChat) Chat(_ context.Context, messages []domain.ChatMessage) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	c.last = messages
	return c.reply, c.err
}

// blockingChat parks every call until released, for single-flight tests.
type blockingChat struct {
	started chan struct{}
	release chan struct{}
	calls   int32
}

func (c *blockingChat) Chat(_ context.Context, _ []domain.ChatMessage) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	c.started <- struct{}{}
	<-c.release
	return "done", nil
}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return s
}

func TestNewSession_RequiresClient(t *testing.T) {
	_, err := NewSession(Config{})
	require.Error(t, err)
}

func TestOpen_InjectsWelcomeExactlyOnce(t *testing.T) {
	client := &scriptedChat{reply: "ok"}
	s := newTestSession(t, Config{Client: client, WelcomePool: []string{"Welcome."}})

	s.Open()
	require.True(t, s.IsOpen())
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, domain.RoleAssistant, msgs[0].Role)
	require.Equal(t, "Welcome.", msgs[0].Content)

	// The welcome message is purely local.
	require.Zero(t, atomic.LoadInt32(&client.calls))

	// Re-opening never injects a second welcome.
	s.Close()
	s.Open()
	require.Len(t, s.Messages(), 1)
}

func TestOpen_WelcomeChosenFromPool(t *testing.T) {
	pool := []string{"one", "two", "three"}
	s := newTestSession(t, Config{Client: &scriptedChat{}, WelcomePool: pool})
	s.randInt = func(n int) int {
		require.Equal(t, len(pool), n)
		return 2
	}

	s.Open()
	require.Equal(t, "three", s.Messages()[0].Content)
}

func TestSubmit_AppendsVisitorMessageAndReply(t *testing.T) {
	client := &scriptedChat{reply: "The gallery opens at ten."}
	s := newTestSession(t, Config{Client: client, WelcomePool: []string{"Welcome."}})
	s.Open()

	require.True(t, s.Submit(context.Background(), "  when do you open?  "))
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "when do you open?"}, msgs[1])
	require.Equal(t, domain.ChatMessage{Role: domain.RoleAssistant, Content: "The gallery opens at ten."}, msgs[2])
	require.False(t, s.IsPending())

	// The full local transcript travels with the request.
	require.Len(t, client.last, 2)
}

func TestSubmit_IgnoredWhenClosedOrEmpty(t *testing.T) {
	client := &scriptedChat{reply: "ok"}
	s := newTestSession(t, Config{Client: client})

	require.False(t, s.Submit(context.Background(), "hello"), "closed panel ignores input")
	s.Open()
	require.False(t, s.Submit(context.Background(), "   "), "empty input ignored")
	require.Zero(t, atomic.LoadInt32(&client.calls))
}

func TestSubmit_SingleFlightWhilePending(t *testing.T) {
	client := &blockingChat{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(t, Config{Client: client, WelcomePool: []string{"Welcome."}})
	s.Open()

	done := make(chan bool)
	go func() { done <- s.Submit(context.Background(), "first") }()
	<-client.started
	require.True(t, s.IsPending())

	// A second submission while pending is a no-op.
	require.False(t, s.Submit(context.Background(), "second"))
	require.Equal(t, int32(1), atomic.LoadInt32(&client.calls))

	close(client.release)
	require.True(t, <-done)
	require.False(t, s.IsPending(), "pending cleared exactly once per submit")

	// The ignored message never entered the transcript.
	for _, m := range s.Messages() {
		require.NotEqual(t, "second", m.Content)
	}
}

func TestSubmit_NetworkFailureFallback(t *testing.T) {
	client := &scriptedChat{err: errors.New("connection refused")}
	s := newTestSession(t, Config{Client: client, WelcomePool: []string{"Welcome."}})
	s.Open()

	require.True(t, s.Submit(context.Background(), "hello"))
	msgs := s.Messages()
	require.Equal(t, FallbackMessage, msgs[len(msgs)-1].Content)
	require.False(t, s.IsPending())
}

func TestSubmit_TimeoutBehavesLikeNetworkFailure(t *testing.T) {
	slow := chatFunc(func(ctx context.Context, _ []domain.ChatMessage) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s := newTestSession(t, Config{Client: slow, WelcomePool: []string{"Welcome."}, RequestTimeout: 20 * time.Millisecond})
	s.Open()

	require.True(t, s.Submit(context.Background(), "hello"))
	msgs := s.Messages()
	require.Equal(t, FallbackMessage, msgs[len(msgs)-1].Content)
	require.False(t, s.IsPending())
}

func TestClose_FiresHostNotification(t *testing.T) {
	closed := 0
	s := newTestSession(t, Config{Client: &scriptedChat{}, OnClose: func() { closed++ }})

	s.Close() // closed → closed: no notification
	require.Zero(t, closed)

	s.Open()
	s.Close()
	require.Equal(t, 1, closed)
	require.False(t, s.IsOpen())
}

// chatFunc adapts a function to the ChatClient interface.
type chatFunc func(ctx context.Context, messages []domain.ChatMessage) (string, error)

func (f chatFunc) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	return f(ctx, messages)
}
