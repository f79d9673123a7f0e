package fcm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"notifyhub/internal/domain/notification"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var (
	_ notification.FCMAdapter    = (*Adapter)(nil)
	_ notification.TokenVerifier = (*Adapter)(nil)
)

const (
	// maxBatch is the largest message list SendEach accepts.
	maxBatch = 500

	// apnsCategory is used when the payload carries no actions.
	apnsCategory = "GENERAL"
	apnsBadge    = 1
)

// Config holds the Firebase service account fields.
type Config struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
	Timeout     time.Duration
}

func (c Config) complete() bool {
	return c.ProjectID != "" && c.ClientEmail != "" && c.PrivateKey != ""
}

// credentialsJSON renders the minimal service account document the Google
// auth libraries accept.
func (c Config) credentialsJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   c.ProjectID,
		"client_email": c.ClientEmail,
		"private_key":  c.PrivateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
}

// client is the subset of the messaging client the adapter needs.
type client interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendDryRun(ctx context.Context, message *messaging.Message) (string, error)
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

// Adapter delivers native push to Android and iOS devices through FCM.
type Adapter struct {
	client  client
	timeout time.Duration

	// tokenExpired decides whether a send error means the token is dead.
	tokenExpired func(error) bool
}

// NewAdapter initializes the Firebase app. When credentials are missing or
// invalid the adapter is returned not ready and the error is logged.
func NewAdapter(ctx context.Context, cfg Config) *Adapter {
	a := &Adapter{timeout: cfg.Timeout, tokenExpired: isTokenExpired}
	if a.timeout <= 0 {
		a.timeout = 10 * time.Second
	}

	if !cfg.complete() {
		slog.Warn("FCM credentials not configured, native push disabled")
		return a
	}

	creds, err := cfg.credentialsJSON()
	if err != nil {
		slog.Error("encoding FCM credentials failed", "error", err)
		return a
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsJSON(creds))
	if err != nil {
		slog.Error("initializing firebase app failed", "error", err)
		return a
	}

	mc, err := app.Messaging(ctx)
	if err != nil {
		slog.Error("initializing FCM client failed", "error", err)
		return a
	}

	a.client = mc
	return a
}

// IsReady reports whether the messaging client was created.
func (a *Adapter) IsReady() bool {
	return a != nil && a.client != nil
}

func newMessage(token string, p notification.Payload) *messaging.Message {
	data := make(map[string]string, len(p.Data)+1)
	for k, v := range p.Data {
		data[k] = v
	}
	if p.Link != "" {
		data["link"] = p.Link
	}

	category := apnsCategory
	if len(p.Actions) > 0 && p.Actions[0].Action != "" {
		category = p.Actions[0].Action
	}

	badge := apnsBadge
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title:    p.Title,
			Body:     p.Body,
			ImageURL: p.Image,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "default",
				Icon:      p.Icon,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge:    &badge,
					Sound:    "default",
					Category: category,
				},
			},
		},
	}
}

// Send delivers payload to a single device token.
func (a *Adapter) Send(ctx context.Context, target notification.FCMTarget, payload notification.Payload) notification.SendResult {
	if !a.IsReady() {
		return notification.Failed("FCM adapter not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	id, err := a.client.Send(ctx, newMessage(target.Token, payload))
	if err != nil {
		return a.failure(err)
	}
	return notification.Succeeded(id)
}

// SendBatch delivers payload to every token using FCM's multi-send. The
// result slice lines up with targets.
func (a *Adapter) SendBatch(ctx context.Context, targets []notification.FCMTarget, payload notification.Payload) []notification.SendResult {
	results := make([]notification.SendResult, 0, len(targets))
	if len(targets) == 0 {
		return results
	}
	if !a.IsReady() {
		for range targets {
			results = append(results, notification.Failed("FCM adapter not initialized"))
		}
		return results
	}

	for start := 0; start < len(targets); start += maxBatch {
		end := min(start+maxBatch, len(targets))
		results = append(results, a.sendChunk(ctx, targets[start:end], payload)...)
	}
	return results
}

func (a *Adapter) sendChunk(ctx context.Context, targets []notification.FCMTarget, payload notification.Payload) []notification.SendResult {
	msgs := make([]*messaging.Message, len(targets))
	for i, t := range targets {
		msgs[i] = newMessage(t.Token, payload)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]notification.SendResult, len(targets))

	resp, err := a.client.SendEach(ctx, msgs)
	if err != nil {
		// The whole call failed, so no token can be blamed.
		for i := range results {
			results[i] = notification.Failed(err.Error())
		}
		return results
	}

	for i := range results {
		if i >= len(resp.Responses) || resp.Responses[i] == nil {
			results[i] = notification.Failed("missing response from FCM")
			continue
		}
		r := resp.Responses[i]
		if r.Success {
			results[i] = notification.Succeeded(r.MessageID)
			continue
		}
		results[i] = a.failure(r.Error)
	}
	return results
}

// VerifyToken checks a device token with a dry-run send.
func (a *Adapter) VerifyToken(ctx context.Context, token string) bool {
	if !a.IsReady() || token == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg := &messaging.Message{Token: token, Data: map[string]string{"verify": "true"}}
	if _, err := a.client.SendDryRun(ctx, msg); err != nil {
		slog.Debug("FCM token verification failed", "error", err)
		return false
	}
	return true
}

func (a *Adapter) failure(err error) notification.SendResult {
	if err == nil {
		return notification.Failed("unknown FCM error")
	}
	if a.tokenExpired(err) {
		return notification.Expired(notification.ErrCodeTokenExpired, err.Error())
	}
	return notification.Failed(err.Error())
}

// isTokenExpired matches the errors FCM returns for uninstalled apps and
// malformed registration tokens.
func isTokenExpired(err error) bool {
	if messaging.IsUnregistered(err) {
		return true
	}
	return errorutils.IsInvalidArgument(err) &&
		strings.Contains(strings.ToLower(err.Error()), "registration token")
}

