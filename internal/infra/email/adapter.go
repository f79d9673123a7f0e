package email

import (
	"context"
	"log/slog"
	"time"

	"notifyhub/internal/domain/notification"
	"notifyhub/internal/infra/template"
)

var _ notification.EmailAdapter = (*Adapter)(nil)

// batchConcurrency caps parallel provider calls in SendBatch.
const batchConcurrency = 5

// Renderer renders the notification email body.
type Renderer interface {
	Render(data template.EmailData) (html, text string, err error)
}

// Settings controls the fixed parts of every email.
type Settings struct {
	AppName        string
	PreferencesURL string
	Timeout        time.Duration
}

// Adapter is the email channel. It renders the payload with the fixed
// notification template and hands both parts to the configured sender.
// Email addresses are never deactivated on failure.
type Adapter struct {
	sender   Sender
	renderer Renderer
	settings Settings
}

// NewAdapter creates an email adapter. A nil sender leaves the adapter not
// ready, which makes the dispatcher skip email.
func NewAdapter(sender Sender, renderer Renderer, settings Settings) *Adapter {
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	return &Adapter{sender: sender, renderer: renderer, settings: settings}
}

// IsReady reports whether a sender and renderer are configured.
func (a *Adapter) IsReady() bool {
	return a != nil && a.sender != nil && a.renderer != nil
}

// Send renders payload for target and delivers it.
func (a *Adapter) Send(ctx context.Context, target notification.EmailTarget, payload notification.Payload) notification.SendResult {
	if !a.IsReady() {
		return notification.Failed("email adapter not initialized")
	}

	html, text, err := a.renderer.Render(template.EmailData{
		AppName:        a.settings.AppName,
		Name:           target.Name,
		Title:          payload.Title,
		Body:           payload.Body,
		ActionURL:      target.ActionURL,
		PreferencesURL: a.settings.PreferencesURL,
	})
	if err != nil {
		slog.Error("rendering notification email failed", "error", err)
		return notification.Failed(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, a.settings.Timeout)
	defer cancel()

	id, err := a.sender.Send(ctx, &Message{
		To:      target.Address,
		ToName:  target.Name,
		Subject: payload.Title,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return notification.Failed(err.Error())
	}

	return notification.Succeeded(id)
}

// SendBatch sends payload to every target independently.
func (a *Adapter) SendBatch(ctx context.Context, targets []notification.EmailTarget, payload notification.Payload) []notification.SendResult {
	return notification.SendEach(ctx, targets, batchConcurrency, func(ctx context.Context, t notification.EmailTarget) notification.SendResult {
		return a.Send(ctx, t, payload)
	})
}
