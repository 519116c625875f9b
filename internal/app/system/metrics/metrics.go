// Package metrics exposes Prometheus collectors for account, collection and
// notification activity.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AccountEvents counts account lifecycle outcomes by event and result,
	// e.g. {event="register", result="ok"}.
	AccountEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookhunter_account_events_total",
		Help: "Account lifecycle operations by event and result",
	}, []string{"event", "result"})

	// CollectionEvents counts add/remove operations per collection.
	CollectionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookhunter_collection_events_total",
		Help: "Book add/remove operations by action, collection and result",
	}, []string{"action", "collection", "result"})

	// Compensations counts compensating writes and whether they succeeded.
	Compensations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookhunter_compensations_total",
		Help: "Compensating writes issued after a partial collection update",
	}, []string{"kind", "result"})

	// Notifications counts notifier hand-offs by result (sent, failed, dropped).
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookhunter_notifications_total",
		Help: "Outbound notifications by result",
	}, []string{"result"})

	// NotificationQueue is the number of notifications waiting to be sent.
	NotificationQueue = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bookhunter_notification_queue_depth",
		Help: "Notifications waiting in the dispatcher queue",
	})

	// RateLimited counts requests rejected by the auth rate limiter.
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookhunter_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by route",
	}, []string{"route"})
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			AccountEvents,
			CollectionEvents,
			Compensations,
			Notifications,
			NotificationQueue,
			RateLimited,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
