package notification

import "context"

// Store is the persistence collaborator the dispatcher reads recipients and
// subscriptions from. Implementations live in infra/store/ (e.g., Supabase).
type Store interface {
	// GetUserByID retrieves a recipient. Returns nil, nil if no user exists.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetPushSubscriptions lists every push subscription of a user,
	// active or not.
	GetPushSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error)

	// DeactivatePushSubscription marks a subscription inactive. Deactivating
	// an already inactive subscription is a no-op.
	DeactivatePushSubscription(ctx context.Context, id string) error

	// CreateInAppNotification inserts an inbox record.
	CreateInAppNotification(ctx context.Context, n *InAppNotification) error
}
