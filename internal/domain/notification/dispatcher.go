package notification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNotInitialized is returned when the dispatcher has no store to work with.
var ErrNotInitialized = errors.New("notification dispatcher is not initialized")

// Channel names used for logging and metrics.
const (
	channelEmail   = "email"
	channelWebPush = "webpush"
	channelFCM     = "fcm"
)

// DefaultBatchSize is how many recipients NotifyMany dispatches concurrently.
const DefaultBatchSize = 10

// Dispatcher orchestrates delivery of one event to a recipient:
// in-app record → preference check → email and push adapters → cleanup of
// expired push targets.
type Dispatcher struct {
	store      Store
	appBaseURL string
	email      EmailAdapter
	webPush    WebPushAdapter
	fcm        FCMAdapter
	recorder   Recorder
	batchSize  int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithEmail sets the email adapter.
func WithEmail(a EmailAdapter) DispatcherOption {
	return func(d *Dispatcher) { d.email = a }
}

// WithWebPush sets the web push adapter.
func WithWebPush(a WebPushAdapter) DispatcherOption {
	return func(d *Dispatcher) { d.webPush = a }
}

// WithFCM sets the FCM adapter.
func WithFCM(a FCMAdapter) DispatcherOption {
	return func(d *Dispatcher) { d.fcm = a }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithBatchSize overrides how many recipients NotifyMany runs at once.
func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// NewDispatcher creates a dispatcher over the given store. appBaseURL is used
// to turn relative deep links into absolute email links. Adapters left unset
// are treated as not ready.
func NewDispatcher(store Store, appBaseURL string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		recorder:   noopRecorder{},
		batchSize:  DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) ready() error {
	if d == nil || d.store == nil {
		return ErrNotInitialized
	}
	return nil
}

// ChannelReadiness reports which adapters can currently deliver.
type ChannelReadiness struct {
	Email   bool `json:"email"`
	WebPush bool `json:"webPush"`
	FCM     bool `json:"fcm"`
}

// Readiness reports the readiness of every configured adapter.
func (d *Dispatcher) Readiness() ChannelReadiness {
	if d == nil {
		return ChannelReadiness{}
	}
	return ChannelReadiness{
		Email:   d.email != nil && d.email.IsReady(),
		WebPush: d.webPush != nil && d.webPush.IsReady(),
		FCM:     d.fcm != nil && d.fcm.IsReady(),
	}
}

// Notify records an in-app notification for userID and delivers payload over
// every channel the recipient's preferences allow. Channel failures are
// reported inside the result; only ErrNotInitialized is returned as an error.
func (d *Dispatcher) Notify(ctx context.Context, userID string, t NotificationType, payload Payload, opts Options) (DispatchResult, error) {
	if err := d.ready(); err != nil {
		return DispatchResult{}, err
	}

	start := time.Now()
	defer func() { d.recorder.DispatchDuration("notify", time.Since(start)) }()

	user := d.lookupUser(ctx, userID)
	if user == nil {
		return DispatchResult{}, nil
	}

	d.createInApp(ctx, user, t, payload, opts)

	result := d.deliver(ctx, user, payload, func(ch Channel) bool {
		return WantsChannel(user, t, ch)
	})

	slog.Info("notification dispatched",
		"user_id", userID,
		"type", t,
		"email", result.Email != nil,
		"web_push", len(result.WebPush),
		"fcm", len(result.FCM),
		"duration", time.Since(start),
	)

	return result, nil
}

// TestChannel selects the channels SendTest exercises.
type TestChannel string

const (
	TestEmail TestChannel = "email"
	TestPush  TestChannel = "push"
	TestAll   TestChannel = "all"
)

// testPayload is delivered by SendTest.
var testPayload = Payload{
	Title: "Test notification",
	Body:  "This is a test notification. If you can read this, your notifications are set up correctly.",
	Link:  "/settings/notifications",
}

// SendTest delivers a fixed test message over the requested channels,
// ignoring the recipient's preferences. No in-app record is written.
func (d *Dispatcher) SendTest(ctx context.Context, userID string, ch TestChannel) (DispatchResult, error) {
	if err := d.ready(); err != nil {
		return DispatchResult{}, err
	}

	start := time.Now()
	defer func() { d.recorder.DispatchDuration("test", time.Since(start)) }()

	user := d.lookupUser(ctx, userID)
	if user == nil {
		return DispatchResult{}, nil
	}

	return d.deliver(ctx, user, testPayload, func(c Channel) bool {
		return ch == TestAll || Channel(ch) == c
	}), nil
}

// VerifyFCMToken checks a device token with a non-delivering send.
// It returns false when the FCM adapter is missing or not ready.
func (d *Dispatcher) VerifyFCMToken(ctx context.Context, token string) bool {
	if d == nil || d.fcm == nil || !d.fcm.IsReady() {
		return false
	}
	v, ok := d.fcm.(TokenVerifier)
	if !ok {
		return false
	}
	return v.VerifyToken(ctx, token)
}

// lookupUser returns nil when the recipient is missing or cannot be read.
func (d *Dispatcher) lookupUser(ctx context.Context, userID string) *User {
	user, err := d.store.GetUserByID(ctx, userID)
	if err != nil {
		slog.Error("recipient lookup failed", "user_id", userID, "error", err)
		return nil
	}
	if user == nil {
		slog.Info("recipient not found, nothing to notify", "user_id", userID)
		return nil
	}
	return user
}

func (d *Dispatcher) createInApp(ctx context.Context, user *User, t NotificationType, payload Payload, opts Options) {
	n := &InAppNotification{
		UserID:         user.ID,
		Type:           t,
		Title:          payload.Title,
		Message:        payload.Body,
		Link:           payload.Link,
		RelatedUserID:  opts.RelatedUserID,
		RelatedRouteID: opts.RelatedRouteID,
	}
	if err := d.store.CreateInAppNotification(ctx, n); err != nil {
		slog.Error("in-app notification write failed",
			"user_id", user.ID,
			"type", t,
			"error", err,
		)
	}
}

// deliver runs email and push concurrently for the channels want approves.
// Each goroutine owns a distinct field of the result.
func (d *Dispatcher) deliver(ctx context.Context, user *User, payload Payload, want func(Channel) bool) DispatchResult {
	var (
		result DispatchResult
		g      errgroup.Group
	)

	if d.Readiness().Email && want(ChannelEmail) {
		g.Go(func() error {
			result.Email = d.sendEmail(ctx, user, payload)
			return nil
		})
	}

	if want(ChannelPush) {
		g.Go(func() error {
			result.WebPush, result.FCM = d.sendPush(ctx, user, payload)
			return nil
		})
	}

	_ = g.Wait()
	return result
}

func (d *Dispatcher) sendEmail(ctx context.Context, user *User, payload Payload) *SendResult {
	if user.Email == "" {
		slog.Info("recipient has no email address, skipping email", "user_id", user.ID)
		return nil
	}

	target := EmailTarget{
		Address:   user.Email,
		Name:      user.Name(),
		ActionURL: d.absoluteURL(payload.Link),
	}

	res := d.email.Send(ctx, target, payload)
	d.recorder.ChannelSend(channelEmail, res)
	if !res.Success {
		slog.Warn("email delivery failed", "user_id", user.ID, "error", res.Error)
	}
	return &res
}

// sendPush partitions the user's subscriptions by platform and delivers to
// each eligible group whose adapter is ready. A nil slice means the channel
// was not attempted.
func (d *Dispatcher) sendPush(ctx context.Context, user *User, payload Payload) (web, native []SendResult) {
	ready := d.Readiness()
	if !ready.WebPush && !ready.FCM {
		return nil, nil
	}

	subs, err := d.store.GetPushSubscriptions(ctx, user.ID)
	if err != nil {
		slog.Error("fetching push subscriptions failed", "user_id", user.ID, "error", err)
		return nil, nil
	}

	var webSubs, fcmSubs []PushSubscription
	for _, s := range subs {
		switch {
		case s.webPushEligible():
			webSubs = append(webSubs, s)
		case s.fcmEligible():
			fcmSubs = append(fcmSubs, s)
		}
	}

	var g errgroup.Group
	if ready.WebPush && len(webSubs) > 0 {
		g.Go(func() error {
			web = deliverPush(ctx, d, channelWebPush, d.webPush, webSubs, payload, func(s PushSubscription) WebPushTarget {
				return WebPushTarget{Endpoint: s.Endpoint, P256dh: s.P256dh, Auth: s.Auth}
			})
			return nil
		})
	}
	if ready.FCM && len(fcmSubs) > 0 {
		g.Go(func() error {
			native = deliverPush(ctx, d, channelFCM, d.fcm, fcmSubs, payload, func(s PushSubscription) FCMTarget {
				return FCMTarget{Token: s.FCMToken, Platform: s.Platform}
			})
			return nil
		})
	}
	_ = g.Wait()

	return web, native
}

// deliverPush sends to every subscription through adapter and deactivates
// the ones whose target has expired.
func deliverPush[T any](
	ctx context.Context,
	d *Dispatcher,
	channel string,
	adapter ChannelAdapter[T],
	subs []PushSubscription,
	payload Payload,
	toTarget func(PushSubscription) T,
) []SendResult {
	targets := make([]T, len(subs))
	for i, s := range subs {
		targets[i] = toTarget(s)
	}

	results := adapter.SendBatch(ctx, targets, payload)

	for i, res := range results {
		if i >= len(subs) {
			break
		}
		d.recorder.ChannelSend(channel, res)

		switch {
		case res.TargetExpired():
			d.deactivate(ctx, channel, subs[i])
		case !res.Success:
			slog.Warn("push delivery failed",
				"channel", channel,
				"user_id", subs[i].UserID,
				"subscription_id", subs[i].ID,
				"error", res.Error,
			)
		}
	}

	return results
}

func (d *Dispatcher) deactivate(ctx context.Context, channel string, sub PushSubscription) {
	if err := d.store.DeactivatePushSubscription(ctx, sub.ID); err != nil {
		slog.Error("deactivating push subscription failed",
			"channel", channel,
			"subscription_id", sub.ID,
			"error", err,
		)
		return
	}
	d.recorder.SubscriptionDeactivated(channel)
	slog.Info("push subscription deactivated",
		"channel", channel,
		"user_id", sub.UserID,
		"subscription_id", sub.ID,
	)
}

// absoluteURL resolves a deep link against the app base URL.
func (d *Dispatcher) absoluteURL(link string) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return d.appBaseURL + "/" + strings.TrimLeft(link, "/")
}
