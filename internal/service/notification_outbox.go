package service

import (
	"context"
	"sync"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultNotificationBuffer is the outbox queue size used when none is configured
const DefaultNotificationBuffer = 256

// NotificationOutbox delivers notifications off the request path. Accounting
// operations enqueue after their transaction commits; a single worker drains
// the queue. When the queue is full or the worker is not running the
// notification is delivered inline.
type NotificationOutbox struct {
	notifications *NotificationService
	logger        zerolog.Logger
	queue         chan *domain.Notification
	stopCh        chan struct{}
	doneCh        chan struct{}
	mu            sync.Mutex
	running       bool
}

// NewNotificationOutbox creates an outbox with the given queue size
func NewNotificationOutbox(notifications *NotificationService, logger zerolog.Logger, buffer int) *NotificationOutbox {
	if buffer <= 0 {
		buffer = DefaultNotificationBuffer
	}
	return &NotificationOutbox{
		notifications: notifications,
		logger:        logger.With().Str("component", "notification_outbox").Logger(),
		queue:         make(chan *domain.Notification, buffer),
	}
}

// Start begins draining the queue. A stopped outbox can be started again.
func (o *NotificationOutbox) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	stop, done := o.stopCh, o.doneCh
	o.mu.Unlock()

	o.logger.Info().Int("buffer", cap(o.queue)).Msg("Starting notification outbox")
	go o.run(ctx, stop, done)
}

// Stop drains what is queued and waits for the worker to exit. Notifications
// arriving after Stop are delivered inline.
func (o *NotificationOutbox) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	stop, done := o.stopCh, o.doneCh
	o.mu.Unlock()

	o.logger.Info().Msg("Stopping notification outbox")
	close(stop)
	<-done
	o.logger.Info().Msg("Notification outbox stopped")
}

// Notify implements Notifier
func (o *NotificationOutbox) Notify(ctx context.Context, n *domain.Notification) {
	if o.enqueue(n) {
		return
	}
	o.deliver(context.WithoutCancel(ctx), n)
}

// enqueue never blocks. The lock keeps drain from missing a late enqueue.
func (o *NotificationOutbox) enqueue(n *domain.Notification) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return false
	}
	select {
	case o.queue <- n:
		return true
	default:
		o.logger.Warn().Str("member_id", n.MemberID.String()).Msg("Notification queue full, delivering inline")
		return false
	}
}

// IsRunning reports whether the worker is draining the queue
func (o *NotificationOutbox) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Pending returns the number of queued notifications
func (o *NotificationOutbox) Pending() int {
	return len(o.queue)
}

func (o *NotificationOutbox) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case n := <-o.queue:
			o.deliver(ctx, n)
		case <-ctx.Done():
			o.mu.Lock()
			if o.stopCh == stop {
				o.running = false
			}
			o.mu.Unlock()
			o.drain(context.WithoutCancel(ctx))
			return
		case <-stop:
			o.drain(ctx)
			return
		}
	}
}

// drain flushes remaining notifications. running is already false, so later
// calls deliver inline.
func (o *NotificationOutbox) drain(ctx context.Context) {
	for {
		select {
		case n := <-o.queue:
			o.deliver(ctx, n)
		default:
			return
		}
	}
}

func (o *NotificationOutbox) deliver(ctx context.Context, n *domain.Notification) {
	if err := o.notifications.Deliver(ctx, n); err != nil {
		o.logger.Error().
			Err(err).
			Str("member_id", n.MemberID.String()).
			Str("title", n.Title).
			Msg("Failed to deliver notification")
	}
}
