package notification

// Channel represents a preference-bearing delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// NotificationType enumerates the in-product events that produce notifications.
type NotificationType string

const (
	TypeFriendRequest       NotificationType = "FRIEND_REQUEST"
	TypeFriendAccepted      NotificationType = "FRIEND_ACCEPTED"
	TypeRouteValidated      NotificationType = "ROUTE_VALIDATED"
	TypeCommentReceived     NotificationType = "COMMENT_RECEIVED"
	TypeRouteCreated        NotificationType = "ROUTE_CREATED"
	TypeAchievementUnlocked NotificationType = "ACHIEVEMENT_UNLOCKED"
	TypeSystem              NotificationType = "SYSTEM"
)

// AllTypes lists every notification type in declaration order.
var AllTypes = []NotificationType{
	TypeFriendRequest,
	TypeFriendAccepted,
	TypeRouteValidated,
	TypeCommentReceived,
	TypeRouteCreated,
	TypeAchievementUnlocked,
	TypeSystem,
}

// validTypes is the set of all recognized notification types.
var validTypes = func() map[NotificationType]bool {
	m := make(map[NotificationType]bool, len(AllTypes))
	for _, t := range AllTypes {
		m[t] = true
	}
	return m
}()

// IsValidType checks whether a notification type is recognized.
func IsValidType(t NotificationType) bool {
	return validTypes[t]
}

// Action is a channel-specific action button attached to a push notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Payload is the content of one notification, built fresh per event.
type Payload struct {
	Title   string            `json:"title" binding:"required"`
	Body    string            `json:"body" binding:"required"`
	Icon    string            `json:"icon,omitempty"`
	Badge   string            `json:"badge,omitempty"`
	Image   string            `json:"image,omitempty"`
	Link    string            `json:"link,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
	Actions []Action          `json:"actions,omitempty"`
}

// Platform tags the kind of device a push subscription belongs to.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// PushSubscription is a stored push delivery target owned by one user.
// Web subscriptions carry Endpoint/P256dh/Auth, native ones carry FCMToken.
type PushSubscription struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	Platform Platform `json:"platform"`
	Endpoint string   `json:"endpoint,omitempty"`
	P256dh   string   `json:"p256dh,omitempty"`
	Auth     string   `json:"auth,omitempty"`
	FCMToken string   `json:"fcm_token,omitempty"`
	IsActive bool     `json:"is_active"`
}

// webPushEligible reports whether s can receive a web push message.
func (s PushSubscription) webPushEligible() bool {
	return s.IsActive && s.Platform == PlatformWeb &&
		s.Endpoint != "" && s.P256dh != "" && s.Auth != ""
}

// fcmEligible reports whether s can receive an FCM message.
func (s PushSubscription) fcmEligible() bool {
	return s.IsActive && (s.Platform == PlatformIOS || s.Platform == PlatformAndroid) &&
		s.FCMToken != ""
}

// User is the subset of a recipient's account the dispatcher needs.
// EmailNotifications and PushNotifications are the global per-channel gates;
// nil means the user never set them.
type User struct {
	ID                 string                   `json:"id"`
	Email              string                   `json:"email"`
	Username           string                   `json:"username"`
	DisplayName        string                   `json:"display_name,omitempty"`
	EmailNotifications *bool                    `json:"email_notifications,omitempty"`
	PushNotifications  *bool                    `json:"push_notifications,omitempty"`
	Preferences        *NotificationPreferences `json:"notification_preferences,omitempty"`
}

// Name returns the name used to greet the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Options carries the optional related-entity ids of an event.
type Options struct {
	RelatedUserID  string `json:"relatedUserId,omitempty"`
	RelatedRouteID string `json:"relatedRouteId,omitempty"`
}
