package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"notifyhub/internal/domain/notification"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) Config {
	t.Helper()
	priv, pub, err := webpushgo.GenerateVAPIDKeys()
	require.NoError(t, err)
	return Config{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		Subject:         "mailto:ops@example.com",
	}
}

// newTarget builds a subscription with real client keys so encryption succeeds.
func newTarget(t *testing.T, endpoint string) notification.WebPushTarget {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return notification.WebPushTarget{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func TestAdapter_IsReady(t *testing.T) {
	cfg := newTestConfig(t)
	assert.True(t, NewAdapter(cfg).IsReady())

	incomplete := cfg
	incomplete.Subject = ""
	assert.False(t, NewAdapter(incomplete).IsReady())

	assert.False(t, NewAdapter(Config{}).IsReady())
}

func TestAdapter_Send(t *testing.T) {
	payload := notification.Payload{Title: "Route validated", Body: "Your route was validated.", Link: "/routes/7"}

	tests := []struct {
		name   string
		status int
		body   string
		want   func(t *testing.T, res notification.SendResult)
	}{
		{
			name:   "created",
			status: http.StatusCreated,
			want: func(t *testing.T, res notification.SendResult) {
				assert.True(t, res.Success)
				assert.Equal(t, "/messages/1", res.MessageID)
			},
		},
		{
			name:   "gone is expired",
			status: http.StatusGone,
			want: func(t *testing.T, res notification.SendResult) {
				assert.False(t, res.Success)
				assert.Equal(t, notification.ErrCodeSubscriptionExpired, res.Error)
				assert.True(t, res.TargetExpired())
			},
		},
		{
			name:   "not found is expired",
			status: http.StatusNotFound,
			want: func(t *testing.T, res notification.SendResult) {
				assert.Equal(t, notification.ErrCodeSubscriptionExpired, res.Error)
				assert.True(t, res.TargetExpired())
			},
		},
		{
			name:   "server error is unclassified",
			status: http.StatusTooManyRequests,
			body:   "slow down",
			want: func(t *testing.T, res notification.SendResult) {
				assert.False(t, res.Success)
				assert.Equal(t, notification.FailureUnclassified, res.Kind)
				assert.Equal(t, "push service returned status 429: slow down", res.Error)
				assert.False(t, res.TargetExpired())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "86400", r.Header.Get("TTL"))
				assert.Equal(t, "normal", r.Header.Get("Urgency"))
				assert.Contains(t, r.Header.Get("Authorization"), "vapid")
				w.Header().Set("Location", "/messages/1")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewAdapter(newTestConfig(t))
			res := a.Send(context.Background(), newTarget(t, srv.URL+"/push/abc"), payload)
			tt.want(t, res)
		})
	}
}

func TestAdapter_SendBatch_Independent(t *testing.T) {
	var calls atomic.Int32
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ok.Close()

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	a := NewAdapter(newTestConfig(t))
	targets := []notification.WebPushTarget{
		newTarget(t, ok.URL+"/1"),
		newTarget(t, gone.URL+"/2"),
		newTarget(t, ok.URL+"/3"),
	}

	results := a.SendBatch(context.Background(), targets, notification.Payload{Title: "T", Body: "B"})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].TargetExpired())
	assert.True(t, results[2].Success)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNewMessage(t *testing.T) {
	msg := newMessage(notification.Payload{
		Title:   "Friend request",
		Body:    "Sam sent you a request",
		Icon:    "/icon.png",
		Badge:   "/badge.png",
		Link:    "/friends",
		Data:    map[string]string{"friendId": "u2"},
		Actions: []notification.Action{{Action: "accept", Title: "Accept"}},
	})

	assert.Equal(t, "/friends", msg.Data["url"])
	assert.Equal(t, "u2", msg.Data["friendId"])
	assert.Equal(t, "/icon.png", msg.Icon)
	assert.Len(t, msg.Actions, 1)
}
