package application

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/internal/domain/entity"
)

// Advisory is the record published when an advertisement enters review.
type Advisory struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Status string `json:"status"`
}

// Publisher delivers one JSON message to the external queue.
// helpers.RabbitQueue and helpers.SQSPublisher satisfy it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Emitter accepts advisories without blocking the caller.
type Emitter interface {
	Emit(ad *entity.Advertisement, authorEmail string)
}

// DisabledNotifier drops every advisory.
type DisabledNotifier struct{}

func (DisabledNotifier) Emit(*entity.Advertisement, string) {}

// Notifier hands advisories to a single worker over a bounded buffer. Emit
// drops the advisory when the buffer is full; publish failures are logged
// and discarded.
type Notifier struct {
	pub     Publisher
	logger  *logrus.Logger
	timeout time.Duration

	queue chan Advisory

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
	once    sync.Once
}

func NewNotifier(pub Publisher, logger *logrus.Logger, size int, timeout time.Duration) *Notifier {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		pub:     pub,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan Advisory, size),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. It runs until Close; ctx bounds each publish.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	if n.started || n.closed {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()
	go func() {
		defer close(n.done)
		for a := range n.queue {
			n.publish(ctx, a)
		}
	}()
}

func (n *Notifier) publish(parent context.Context, a Advisory) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), n.timeout)
	defer cancel()
	if err := n.pub.PublishJSON(ctx, a); err != nil {
		advisoriesFailed.Add(1)
		if n.logger != nil {
			n.logger.WithError(err).WithField("advertisement_id", a.ID).Warn("publish advisory failed")
		}
		return
	}
	advisoriesPublished.Add(1)
}

func (n *Notifier) Emit(ad *entity.Advertisement, authorEmail string) {
	if ad == nil {
		return
	}
	a := Advisory{ID: ad.ID, Title: ad.Title, Author: authorEmail, Status: ad.Status.String()}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		advisoriesDropped.Add(1)
		return
	}
	select {
	case n.queue <- a:
	default:
		advisoriesDropped.Add(1)
		if n.logger != nil {
			n.logger.WithField("advertisement_id", ad.ID).Warn("advisory queue full, dropping")
		}
	}
}

// Close stops accepting advisories and waits for the worker to drain the
// buffer or for ctx to end, whichever comes first.
func (n *Notifier) Close(ctx context.Context) error {
	n.once.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
	})
	n.mu.RLock()
	started := n.started
	n.mu.RUnlock()
	if !started {
		return nil
	}
	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Emitter = (*Notifier)(nil)
	_ Emitter = DisabledNotifier{}
)
