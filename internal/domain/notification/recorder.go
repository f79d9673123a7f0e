package notification

import "time"

// Recorder receives dispatch outcomes for operational metrics.
// Implementations live in infra/metrics/.
type Recorder interface {
	// ChannelSend records one send attempt on a channel ("email", "webpush", "fcm").
	ChannelSend(channel string, result SendResult)

	// SubscriptionDeactivated records a deactivation triggered by an expired target.
	SubscriptionDeactivated(channel string)

	// DispatchDuration records how long one dispatch call took.
	DispatchDuration(mode string, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ChannelSend(string, SendResult) {}
func (noopRecorder) SubscriptionDeactivated(string) {}
func (noopRecorder) DispatchDuration(string, time.Duration) {}
