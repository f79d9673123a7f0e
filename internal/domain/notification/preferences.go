package notification

// NotificationPreferences holds per-type send flags for each channel.
// Either map may be nil or miss types; WantsChannel fills the gaps.
type NotificationPreferences struct {
	Email map[NotificationType]bool `json:"email,omitempty"`
	Push  map[NotificationType]bool `json:"push,omitempty"`
}

// DefaultPreferences is applied for every type a user has not set.
// Push is on for everything; email stays off for high-frequency route events.
var DefaultPreferences = NotificationPreferences{
	Email: map[NotificationType]bool{
		TypeFriendRequest:       true,
		TypeFriendAccepted:      true,
		TypeRouteValidated:      false,
		TypeCommentReceived:     true,
		TypeRouteCreated:        false,
		TypeAchievementUnlocked: true,
		TypeSystem:              true,
	},
	Push: map[NotificationType]bool{
		TypeFriendRequest:       true,
		TypeFriendAccepted:      true,
		TypeRouteValidated:      true,
		TypeCommentReceived:     true,
		TypeRouteCreated:        true,
		TypeAchievementUnlocked: true,
		TypeSystem:              true,
	},
}

func (p *NotificationPreferences) channel(ch Channel) map[NotificationType]bool {
	if p == nil {
		return nil
	}
	switch ch {
	case ChannelEmail:
		return p.Email
	case ChannelPush:
		return p.Push
	}
	return nil
}

// globalGate returns the user's channel-wide switch, or nil when unset.
func (u *User) globalGate(ch Channel) *bool {
	switch ch {
	case ChannelEmail:
		return u.EmailNotifications
	case ChannelPush:
		return u.PushNotifications
	}
	return nil
}

// WantsChannel decides whether ch should fire for user and t.
// A global opt-out wins over anything per-type; otherwise the user's stored
// flag is used, falling back to DefaultPreferences when it is missing.
func WantsChannel(user *User, t NotificationType, ch Channel) bool {
	if user == nil {
		return DefaultPreferences.channel(ch)[t]
	}

	if gate := user.globalGate(ch); gate != nil && !*gate {
		return false
	}

	if user.Preferences != nil {
		if want, ok := user.Preferences.channel(ch)[t]; ok {
			return want
		}
	}

	return DefaultPreferences.channel(ch)[t]
}
