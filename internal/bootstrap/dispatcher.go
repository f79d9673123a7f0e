package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"notifyhub/internal/config"
	"notifyhub/internal/domain/notification"
	"notifyhub/internal/infra/email"
	"notifyhub/internal/infra/fcm"
	"notifyhub/internal/infra/template"
	"notifyhub/internal/infra/webpush"
)

const preferencesPath = "/settings/notifications"

// NewDispatcher builds every channel adapter from cfg and wires them into a
// dispatcher over store. Channels with missing credentials are left not
// ready and skipped at send time, they never stop startup.
func NewDispatcher(ctx context.Context, cfg *config.Config, store notification.Store, recorder notification.Recorder) (*notification.Dispatcher, error) {
	tmplEngine, err := template.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing template engine: %w", err)
	}

	sender, err := email.NewSender(email.Config{
		Provider:     cfg.Email.Provider,
		APIKey:       cfg.Email.APIKey,
		AccountToken: cfg.Email.AccountToken,
		FromAddress:  cfg.Email.FromAddress,
		FromName:     cfg.Email.FromName,
	})
	if err != nil {
		slog.Warn("email channel disabled", "error", err)
		sender = nil
	}

	emailAdapter := email.NewAdapter(sender, tmplEngine, email.Settings{
		AppName:        cfg.App.Name,
		PreferencesURL: strings.TrimRight(cfg.App.BaseURL, "/") + preferencesPath,
		Timeout:        cfg.Dispatch.SendTimeout(),
	})

	webPushAdapter := webpush.NewAdapter(webpush.Config{
		VAPIDPublicKey:  cfg.WebPush.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.WebPush.VAPIDPrivateKey,
		Subject:         cfg.WebPush.Subject,
		Timeout:         cfg.Dispatch.SendTimeout(),
	})
	if !webPushAdapter.IsReady() {
		slog.Warn("VAPID keys not configured, web push disabled")
	}

	fcmAdapter := fcm.NewAdapter(ctx, fcm.Config{
		ProjectID:   cfg.FCM.ProjectID,
		ClientEmail: cfg.FCM.ClientEmail,
		PrivateKey:  cfg.FCM.PrivateKey,
		Timeout:     cfg.Dispatch.SendTimeout(),
	})

	d := notification.NewDispatcher(store, cfg.App.BaseURL,
		notification.WithEmail(emailAdapter),
		notification.WithWebPush(webPushAdapter),
		notification.WithFCM(fcmAdapter),
		notification.WithRecorder(recorder),
		notification.WithBatchSize(cfg.Dispatch.BatchSize),
	)

	r := d.Readiness()
	slog.Info("dispatcher initialized",
		"email", r.Email,
		"webpush", r.WebPush,
		"fcm", r.FCM,
		"batch_size", cfg.Dispatch.BatchSize,
	)

	return d, nil
}
