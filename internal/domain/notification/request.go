package notification

import "time"

// InAppNotification is the persisted record shown in the product's own inbox.
type InAppNotification struct {
	ID             string           `json:"id,omitempty"`
	UserID         string           `json:"user_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Link           string           `json:"link,omitempty"`
	RelatedUserID  string           `json:"related_user_id,omitempty"`
	RelatedRouteID string           `json:"related_route_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at,omitempty"`
}

// NotifyRequest is the API request payload for notifying one recipient.
type NotifyRequest struct {
	UserID         string           `json:"userId" binding:"required"`
	Type           NotificationType `json:"type" binding:"required"`
	Payload        Payload          `json:"payload" binding:"required"`
	RelatedUserID  string           `json:"relatedUserId"`
	RelatedRouteID string           `json:"relatedRouteId"`
	Async          bool             `json:"async"`
}

// NotifyManyRequest is the API request payload for fanning out to many recipients.
type NotifyManyRequest struct {
	UserIDs        []string         `json:"userIds" binding:"required,min=1"`
	Type           NotificationType `json:"type" binding:"required"`
	Payload        Payload          `json:"payload" binding:"required"`
	RelatedUserID  string           `json:"relatedUserId"`
	RelatedRouteID string           `json:"relatedRouteId"`
	Async          bool             `json:"async"`
}

// SendTestRequest is the API request payload for a diagnostic send.
type SendTestRequest struct {
	UserID  string      `json:"userId" binding:"required"`
	Channel TestChannel `json:"channel" binding:"required,oneof=email push all"`
}

// VerifyTokenRequest is the API request payload for checking an FCM token.
type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// QueuedResponse is returned when a dispatch was handed to the worker.
type QueuedResponse struct {
	Status     string `json:"status"`
	Recipients int    `json:"recipients"`
}
