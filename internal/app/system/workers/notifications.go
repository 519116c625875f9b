// internal/app/system/workers/notifications.go
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/system/mailer"
	"github.com/dalemusser/bookhunter/internal/app/system/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by Send when the dispatcher cannot accept more work.
var ErrQueueFull = errors.New("notification queue full")

// ErrStopped is returned by Send after Stop.
var ErrStopped = errors.New("notification dispatcher stopped")

type notification struct {
	id      string
	to      string
	subject string
	body    string
}

// NotificationDispatcher is a background worker that hands notifications to
// a Notifier off the request path. It implements mailer.Notifier itself, so
// services enqueue through the same interface they would use to send.
type NotificationDispatcher struct {
	next        mailer.Notifier
	log         *zap.Logger
	sendTimeout time.Duration
	queue       chan notification

	mu      sync.RWMutex
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

var _ mailer.Notifier = (*NotificationDispatcher)(nil)

// NewNotificationDispatcher creates a dispatcher.
//
// Parameters:
//   - next: the Notifier that actually delivers (SMTP or log)
//   - logger: zap logger for logging
//   - queueSize: how many notifications may wait before Send rejects
//   - sendTimeout: per-delivery deadline (e.g., 30 seconds)
func NewNotificationDispatcher(next mailer.Notifier, logger *zap.Logger, queueSize int, sendTimeout time.Duration) *NotificationDispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &NotificationDispatcher{
		next:        next,
		log:         logger,
		sendTimeout: sendTimeout,
		queue:       make(chan notification, queueSize),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background delivery loop.
func (d *NotificationDispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	d.log.Info("notification dispatcher started", zap.Int("queue_size", cap(d.queue)))
}

// Stop rejects new work, delivers what is already queued and waits for the
// loop to finish or ctx to expire.
func (d *NotificationDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.log.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.log.Warn("notification dispatcher stop timed out", zap.Int("pending", len(d.queue)))
		return ctx.Err()
	}
}

// Send enqueues a notification and returns immediately. The context is not
// retained: delivery happens after the request has finished.
func (d *NotificationDispatcher) Send(_ context.Context, to, subject, body string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	n := notification{id: uuid.NewString(), to: to, subject: subject, body: body}
	select {
	case d.queue <- n:
		metrics.NotificationQueue.Inc()
		d.log.Debug("notification queued", zap.String("notification_id", n.id), zap.String("subject", subject))
		return nil
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.log.Warn("notification dropped: queue full", zap.String("notification_id", n.id), zap.String("subject", subject))
		return ErrQueueFull
	}
}

func (d *NotificationDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.stopCh:
			d.drain()
			return
		}
	}
}

func (d *NotificationDispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		default:
			return
		}
	}
}

func (d *NotificationDispatcher) deliver(n notification) {
	metrics.NotificationQueue.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.next.Send(ctx, n.to, n.subject, n.body); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		d.log.Error("notification delivery failed",
			zap.String("notification_id", n.id),
			zap.String("subject", n.subject),
			zap.Error(err))
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	d.log.Info("notification delivered",
		zap.String("notification_id", n.id),
		zap.String("subject", n.subject))
}
