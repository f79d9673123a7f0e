package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notifyhub/internal/domain/notification"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const (
	usersTable         = "users"
	subscriptionsTable = "push_subscriptions"
	notificationsTable = "notifications"

	userColumns         = "id,email,username,display_name,email_notifications,push_notifications,notification_preferences"
	subscriptionColumns = "id,user_id,platform,endpoint,p256dh,auth,fcm_token,is_active"
)

var _ notification.Store = (*SupabaseStore)(nil)

// SupabaseStore implements notification.Store using the Supabase Go SDK.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore creates a new Supabase-backed store.
func NewSupabaseStore(supabaseURL, serviceKey string) (*SupabaseStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

type userRow struct {
	ID                 string          `json:"id"`
	Email              *string         `json:"email"`
	Username           *string         `json:"username"`
	DisplayName        *string         `json:"display_name"`
	EmailNotifications *bool           `json:"email_notifications"`
	PushNotifications  *bool           `json:"push_notifications"`
	Preferences        json.RawMessage `json:"notification_preferences"`
}

type subscriptionRow struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Platform string  `json:"platform"`
	Endpoint *string `json:"endpoint"`
	P256dh   *string `json:"p256dh"`
	Auth     *string `json:"auth"`
	FCMToken *string `json:"fcm_token"`
	IsActive bool    `json:"is_active"`
}

type notificationRow struct {
	ID             string  `json:"id,omitempty"`
	UserID         string  `json:"user_id"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	Link           *string `json:"link,omitempty"`
	RelatedUserID  *string `json:"related_user_id,omitempty"`
	RelatedRouteID *string `json:"related_route_id,omitempty"`
	IsRead         bool    `json:"is_read"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// GetUserByID retrieves a recipient. Returns nil, nil if no user exists.
func (s *SupabaseStore) GetUserByID(ctx context.Context, id string) (*notification.User, error) {
	data, _, err := s.client.From(usersTable).Select(userColumns, "", false).Eq("id", id).Limit(1, "").Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	var rows []userRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing user: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return rowToUser(&rows[0]), nil
}

// GetPushSubscriptions lists every push subscription owned by userID.
func (s *SupabaseStore) GetPushSubscriptions(ctx context.Context, userID string) ([]notification.PushSubscription, error) {
	data, _, err := s.client.From(subscriptionsTable).
		Select(subscriptionColumns, "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching push subscriptions: %w", err)
	}

	var rows []subscriptionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing push subscriptions: %w", err)
	}

	subs := make([]notification.PushSubscription, len(rows))
	for i, row := range rows {
		subs[i] = rowToSubscription(&row)
	}

	return subs, nil
}

// DeactivatePushSubscription sets is_active to false. Updating an already
// inactive row is harmless.
func (s *SupabaseStore) DeactivatePushSubscription(ctx context.Context, id string) error {
	update := map[string]any{
		"is_active":  false,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}

	_, _, err := s.client.From(subscriptionsTable).Update(update, "minimal", "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("deactivating push subscription: %w", err)
	}

	return nil
}

// CreateInAppNotification inserts an inbox record and fills in the
// generated id and timestamp.
func (s *SupabaseStore) CreateInAppNotification(ctx context.Context, n *notification.InAppNotification) error {
	row := notificationRow{
		UserID:         n.UserID,
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		Link:           optional(n.Link),
		RelatedUserID:  optional(n.RelatedUserID),
		RelatedRouteID: optional(n.RelatedRouteID),
	}

	data, _, err := s.client.From(notificationsTable).Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}

	var results []notificationRow
	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("parsing insert response: %w", err)
	}

	if len(results) > 0 {
		n.ID = results[0].ID
		if t, err := time.Parse(time.RFC3339Nano, results[0].CreatedAt); err == nil {
			n.CreatedAt = t
		}
	}

	return nil
}

func rowToUser(row *userRow) *notification.User {
	u := &notification.User{
		ID:                 row.ID,
		Email:              deref(row.Email),
		Username:           deref(row.Username),
		DisplayName:        deref(row.DisplayName),
		EmailNotifications: row.EmailNotifications,
		PushNotifications:  row.PushNotifications,
	}

	// Malformed preferences fall back to defaults rather than failing the lookup
	if len(row.Preferences) > 0 && string(row.Preferences) != "null" {
		var prefs notification.NotificationPreferences
		if err := json.Unmarshal(row.Preferences, &prefs); err == nil {
			u.Preferences = &prefs
		}
	}

	return u
}

func rowToSubscription(row *subscriptionRow) notification.PushSubscription {
	return notification.PushSubscription{
		ID:       row.ID,
		UserID:   row.UserID,
		Platform: notification.Platform(row.Platform),
		Endpoint: deref(row.Endpoint),
		P256dh:   deref(row.P256dh),
		Auth:     deref(row.Auth),
		FCMToken: deref(row.FCMToken),
		IsActive: row.IsActive,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
