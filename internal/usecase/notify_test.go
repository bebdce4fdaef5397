package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gallery-agent/internal/domain"
)

type capturingSender struct {
	subject string
	html    string
	text    string
	calls   int
	err     error
}

func (s *capturingSender) Send(_ context.Context, subject, htmlBody, textBody string) (string, error) {
	s.calls++
	s.subject = subject
	s.html = htmlBody
	s.text = textBody
	if s.err != nil {
		return "", s.err
	}
	return "msg-42", nil
}

func newTestNotifier(t *testing.T, sender *capturingSender) *Notifier {
	t.Helper()
	n, err := NewNotifier(sender, nil)
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	return n
}

func TestNewNotifier_RequiresSender(t *testing.T) {
	_, err := NewNotifier(nil, nil)
	require.Error(t, err)
}

func TestDispatch_FormatsBothRepresentations(t *testing.T) {
	sender := &capturingSender{}
	n := newTestNotifier(t, sender)

	transcript := []domain.ChatMessage{
		visitor("I'd like a private viewing"),
		agent("Of course.\nWhen suits you?"),
	}
	id, err := n.Dispatch(context.Background(), transcript, "viewing request")
	require.NoError(t, err)
	require.Equal(t, "msg-42", id)
	require.Equal(t, 1, sender.calls)

	require.Equal(t, "Gallery Lead · viewing request", sender.subject)

	// Plain text: labeled turns separated by a delimiter.
	require.Contains(t, sender.text, "GALLERY LEAD ALERT")
	require.Contains(t, sender.text, "Trigger: viewing request")
	require.Contains(t, sender.text, "VISITOR:\nI'd like a private viewing")
	require.Contains(t, sender.text, "AGENT:\nOf course.\nWhen suits you?")
	require.Contains(t, sender.text, "\n\n---\n\n")

	// Styled document: header with upper-cased trigger, one block per message.
	require.Contains(t, sender.html, "GALLERY · LEAD ALERT")
	require.Contains(t, sender.html, "TRIGGER: VIEWING REQUEST")
	require.Contains(t, sender.html, "VISITOR")
	require.Contains(t, sender.html, "AGENT")
	require.Contains(t, sender.html, "Of course.<br>When suits you?")
	require.Contains(t, sender.html, "2 messages")
	require.Contains(t, sender.html, "Mar 14 2025")
}

func TestDispatch_EscapesMessageContent(t *testing.T) {
	sender := &capturingSender{}
	n := newTestNotifier(t, sender)

	_, err := n.Dispatch(context.Background(), []domain.ChatMessage{
		visitor("<script>alert(1)</script>"),
	}, "contact details shared")
	require.NoError(t, err)
	require.NotContains(t, sender.html, "<script>")
	require.Contains(t, sender.html, "&lt;script&gt;")
}

func TestDispatch_DefaultTriggerLabel(t *testing.T) {
	sender := &capturingSender{}
	n := newTestNotifier(t, sender)

	_, err := n.Dispatch(context.Background(), []domain.ChatMessage{visitor("hi")}, "  ")
	require.NoError(t, err)
	require.Equal(t, "Gallery Lead · Qualified lead", sender.subject)
}

func TestDispatch_EmptyTranscriptRejected(t *testing.T) {
	sender := &capturingSender{}
	n := newTestNotifier(t, sender)

	_, err := n.Dispatch(context.Background(), nil, "reason")
	require.Error(t, err)
	require.Zero(t, sender.calls)
}

func TestDispatch_TransportErrorWrapped(t *testing.T) {
	sender := &capturingSender{err: errors.New("550 rejected")}
	n := newTestNotifier(t, sender)

	_, err := n.Dispatch(context.Background(), []domain.ChatMessage{visitor("hi")}, "reason")
	require.Error(t, err)
	require.Contains(t, err.Error(), "550 rejected")
}
