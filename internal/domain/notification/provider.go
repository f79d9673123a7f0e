package notification

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EmailTarget addresses one email recipient.
type EmailTarget struct {
	Address string
	Name    string
	// ActionURL is the absolute link rendered as the call-to-action, if any.
	ActionURL string
}

// WebPushTarget is a browser push subscription endpoint and its keys.
type WebPushTarget struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// FCMTarget is a device registration token.
type FCMTarget struct {
	Token    string
	Platform Platform
}

// ChannelAdapter wraps one delivery protocol.
// Implementations live in infra/ (email, webpush, fcm). Send never returns an
// error: every outcome is captured in the SendResult.
type ChannelAdapter[T any] interface {
	// IsReady reports whether the adapter has credentials to deliver.
	IsReady() bool

	// Send delivers payload to a single target.
	Send(ctx context.Context, target T, payload Payload) SendResult

	// SendBatch delivers payload to every target independently and returns
	// one result per target in input order.
	SendBatch(ctx context.Context, targets []T, payload Payload) []SendResult
}

// EmailAdapter, WebPushAdapter and FCMAdapter name the adapters the
// dispatcher consumes.
type (
	EmailAdapter   = ChannelAdapter[EmailTarget]
	WebPushAdapter = ChannelAdapter[WebPushTarget]
	FCMAdapter     = ChannelAdapter[FCMTarget]
)

// TokenVerifier is implemented by adapters that can check a target without
// delivering anything to the user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) bool
}

// SendEach calls send for every target with at most limit calls in flight
// and returns the results in input order. A limit <= 0 means unbounded.
func SendEach[T any](ctx context.Context, targets []T, limit int, send func(context.Context, T) SendResult) []SendResult {
	results := make([]SendResult, len(targets))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, target := range targets {
		g.Go(func() error {
			results[i] = send(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
