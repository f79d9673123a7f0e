package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notifyhub/internal/domain/notification"

	webpushgo "github.com/SherClockHolmes/webpush-go"
)

var _ notification.WebPushAdapter = (*Adapter)(nil)

const (
	// messageTTL tells the push service how long to hold an undelivered message.
	messageTTL = 24 * time.Hour

	batchConcurrency = 10
)

// Config holds the VAPID identity of this server.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subject is a contact email or https URL for the push service operator.
	Subject string
	Timeout time.Duration
}

func (c Config) complete() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != "" && c.Subject != ""
}

// Adapter delivers browser push messages signed with VAPID.
type Adapter struct {
	cfg        Config
	httpClient *http.Client
}

// NewAdapter creates a web push adapter. It is not ready unless the VAPID
// key pair and subject are all set.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	// webpush-go adds the mailto: scheme itself
	cfg.Subject = strings.TrimPrefix(cfg.Subject, "mailto:")

	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsReady reports whether VAPID credentials are configured.
func (a *Adapter) IsReady() bool {
	return a != nil && a.cfg.complete()
}

// message is the JSON body the service worker receives.
type message struct {
	Title   string                `json:"title"`
	Body    string                `json:"body"`
	Icon    string                `json:"icon,omitempty"`
	Badge   string                `json:"badge,omitempty"`
	Image   string                `json:"image,omitempty"`
	Data    map[string]string     `json:"data,omitempty"`
	Actions []notification.Action `json:"actions,omitempty"`
}

func newMessage(p notification.Payload) message {
	data := make(map[string]string, len(p.Data)+1)
	for k, v := range p.Data {
		data[k] = v
	}
	if p.Link != "" {
		data["url"] = p.Link
	}

	return message{
		Title:   p.Title,
		Body:    p.Body,
		Icon:    p.Icon,
		Badge:   p.Badge,
		Image:   p.Image,
		Data:    data,
		Actions: p.Actions,
	}
}

// Send encrypts payload for the subscription and posts it to the push
// service. 404 and 410 mean the subscription is gone for good.
func (a *Adapter) Send(ctx context.Context, target notification.WebPushTarget, payload notification.Payload) notification.SendResult {
	if !a.IsReady() {
		return notification.Failed("web push adapter not initialized")
	}

	body, err := json.Marshal(newMessage(payload))
	if err != nil {
		return notification.Failed(fmt.Sprintf("marshaling push message: %v", err))
	}

	resp, err := webpushgo.SendNotificationWithContext(ctx, body, &webpushgo.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpushgo.Keys{
			P256dh: target.P256dh,
			Auth:   target.Auth,
		},
	}, &webpushgo.Options{
		HTTPClient:      a.httpClient,
		Subscriber:      a.cfg.Subject,
		VAPIDPublicKey:  a.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: a.cfg.VAPIDPrivateKey,
		TTL:             int(messageTTL.Seconds()),
		Urgency:         webpushgo.UrgencyNormal,
	})
	if err != nil {
		return notification.Failed(err.Error())
	}
	defer resp.Body.Close()

	return classify(resp)
}

func classify(resp *http.Response) notification.SendResult {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return notification.Expired(notification.ErrCodeSubscriptionExpired,
			fmt.Sprintf("push service returned status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := fmt.Sprintf("push service returned status %d", resp.StatusCode)
		if s := strings.TrimSpace(string(detail)); s != "" {
			msg += ": " + s
		}
		return notification.Failed(msg)
	}
	return notification.Succeeded(resp.Header.Get("Location"))
}

// SendBatch sends payload to every subscription independently.
func (a *Adapter) SendBatch(ctx context.Context, targets []notification.WebPushTarget, payload notification.Payload) []notification.SendResult {
	return notification.SendEach(ctx, targets, batchConcurrency, func(ctx context.Context, t notification.WebPushTarget) notification.SendResult {
		return a.Send(ctx, t, payload)
	})
}
