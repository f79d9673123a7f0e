package notification

// FailureKind classifies a failed send.
type FailureKind string

const (
	// FailureUnclassified is a transient or unknown failure; it never mutates
	// subscription state.
	FailureUnclassified FailureKind = "unclassified"

	// FailureExpiredTarget means the target is permanently gone and its
	// subscription must be deactivated.
	FailureExpiredTarget FailureKind = "expired_target"
)

// Error codes reported for expired targets, one per push channel.
const (
	ErrCodeSubscriptionExpired = "subscription_expired"
	ErrCodeTokenExpired        = "token_expired"
)

// SendResult is the outcome of one delivery attempt.
// Detail keeps the raw provider message for diagnostics.
type SendResult struct {
	Success   bool        `json:"success"`
	MessageID string      `json:"messageId,omitempty"`
	Kind      FailureKind `json:"kind,omitempty"`
	Error     string      `json:"error,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(messageID string) SendResult {
	return SendResult{Success: true, MessageID: messageID}
}

// Failed builds an unclassified failure carrying the provider message.
func Failed(msg string) SendResult {
	return SendResult{Kind: FailureUnclassified, Error: msg}
}

// Expired builds a permanent target failure.
func Expired(code, detail string) SendResult {
	return SendResult{Kind: FailureExpiredTarget, Error: code, Detail: detail}
}

// TargetExpired reports whether the result requires deactivating its target.
func (r SendResult) TargetExpired() bool {
	return !r.Success && r.Kind == FailureExpiredTarget
}

// DispatchResult aggregates what happened for one recipient.
// A nil field means the channel was not attempted.
type DispatchResult struct {
	Email   *SendResult  `json:"email,omitempty"`
	WebPush []SendResult `json:"webPush,omitempty"`
	FCM     []SendResult `json:"fcm,omitempty"`
}

// Empty reports whether no channel was attempted.
func (r DispatchResult) Empty() bool {
	return r.Email == nil && r.WebPush == nil && r.FCM == nil
}
