package metrics

import (
	"time"

	"notifyhub/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ notification.Recorder = (*Recorder)(nil)

// Send outcomes used as the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeExpired = "expired"
)

// Recorder exports dispatch outcomes as Prometheus metrics.
type Recorder struct {
	channelSends  *prometheus.CounterVec
	deactivations *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewRecorder registers the dispatch metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		channelSends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifyhub_channel_sends_total",
			Help: "Total number of channel send attempts.",
		}, []string{"channel", "outcome"}),

		deactivations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifyhub_subscriptions_deactivated_total",
			Help: "Total number of push subscriptions deactivated after an expired target.",
		}, []string{"channel"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notifyhub_dispatch_duration_seconds",
			Help:    "Duration of dispatch calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
	}
}

// ChannelSend counts one send attempt.
func (r *Recorder) ChannelSend(channel string, result notification.SendResult) {
	r.channelSends.WithLabelValues(channel, outcome(result)).Inc()
}

// SubscriptionDeactivated counts one deactivation.
func (r *Recorder) SubscriptionDeactivated(channel string) {
	r.deactivations.WithLabelValues(channel).Inc()
}

// DispatchDuration observes how long a dispatch took.
func (r *Recorder) DispatchDuration(mode string, d time.Duration) {
	r.duration.WithLabelValues(mode).Observe(d.Seconds())
}

func outcome(r notification.SendResult) string {
	switch {
	case r.Success:
		return OutcomeSuccess
	case r.TargetExpired():
		return OutcomeExpired
	default:
		return OutcomeFailed
	}
}
