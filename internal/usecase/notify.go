package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"gallery-agent/internal/domain"
)

const defaultTrigger = "Qualified lead"

// EmailSender submits one formatted notification to the outbound transport
// and returns the transport-assigned message id.
type EmailSender interface {
	Send(ctx context.Context, subject, htmlBody, textBody string) (string, error)
}

// Notifier formats qualified-lead transcripts and hands them to the email
// transport. Transport failures are logged and swallowed; this path must
// never influence the chat response.
type Notifier struct {
	sender EmailSender
	logger *slog.Logger
	now    func() time.Time
}

func NewNotifier(sender EmailSender, logger *slog.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("usecase: email sender must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, logger: logger, now: time.Now}, nil
}

// Dispatch sends one lead notification for the given transcript and trigger
// reason. The returned id identifies the message at the transport.
func (n *Notifier) Dispatch(ctx context.Context, messages []domain.ChatMessage, trigger string) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("usecase: dispatch requires a non-empty transcript")
	}
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		trigger = defaultTrigger
	}

	stamp := n.now().UTC().Format("Mon, Jan 2 2006, 15:04 MST")
	subject := "Gallery Lead · " + trigger

	id, err := n.sender.Send(ctx, subject, htmlBody(messages, trigger, stamp), textBody(messages, trigger, stamp))
	if err != nil {
		return "", fmt.Errorf("usecase: send lead notification: %w", err)
	}
	return id, nil
}

// textBody renders the plain-text representation: a timestamped header and
// the labeled transcript separated by delimiters.
func textBody(messages []domain.ChatMessage, trigger, stamp string) string {
	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		blocks = append(blocks, roleLabel(m.Role)+":\n"+m.Content)
	}
	return fmt.Sprintf("GALLERY LEAD ALERT\n%s\nTrigger: %s\n\n%s",
		stamp, trigger, strings.Join(blocks, "\n\n---\n\n"))
}

// htmlBody renders the styled representation: a header carrying the trigger
// reason and one role-distinguished block per message.
func htmlBody(messages []domain.ChatMessage, trigger, stamp string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:-apple-system,Helvetica,Arial,sans-serif;max-width:640px;margin:0 auto;background:#0a0a0a;color:#e0e0e0;padding:32px;border-radius:4px;">`)
	b.WriteString(`<div style="border-bottom:1px solid #222;padding-bottom:16px;margin-bottom:24px;">`)
	b.WriteString(`<h2 style="color:#fff;font-size:13px;letter-spacing:3px;text-transform:uppercase;margin:0;font-weight:400;">GALLERY · LEAD ALERT</h2>`)
	fmt.Fprintf(&b, `<p style="color:#666;font-size:12px;margin:8px 0 0 0;">%s</p>`, html.EscapeString(stamp))
	fmt.Fprintf(&b, `<p style="color:#999;font-size:12px;margin:4px 0 0 0;letter-spacing:1px;">TRIGGER: %s</p>`, html.EscapeString(strings.ToUpper(trigger)))
	b.WriteString(`</div><div style="font-size:14px;line-height:1.7;">`)
	for _, m := range messages {
		visitor := m.Role == domain.RoleUser
		bg, border, labelColor, textColor := "#0a0a0a", "#333", "#555", "#888"
		if visitor {
			bg, border, labelColor, textColor = "#111", "#fff", "#fff", "#e0e0e0"
		}
		fmt.Fprintf(&b, `<div style="margin-bottom:16px;padding:12px 16px;background:%s;border-left:2px solid %s;border-radius:2px;">`, bg, border)
		fmt.Fprintf(&b, `<div style="font-size:10px;letter-spacing:2px;color:%s;margin-bottom:6px;text-transform:uppercase;">%s</div>`, labelColor, roleLabel(m.Role))
		content := strings.ReplaceAll(html.EscapeString(m.Content), "\n", "<br>")
		fmt.Fprintf(&b, `<div style="color:%s;">%s</div></div>`, textColor, content)
	}
	b.WriteString(`</div><div style="border-top:1px solid #222;padding-top:16px;margin-top:24px;">`)
	fmt.Fprintf(&b, `<p style="font-size:11px;color:#444;margin:0;">Gallery Concierge · %d messages · %s</p>`, len(messages), html.EscapeString(trigger))
	b.WriteString(`</div></div>`)
	return b.String()
}

func roleLabel(role string) string {
	if role == domain.RoleUser {
		return "VISITOR"
	}
	return "AGENT"
}
