// Package events emits user lifecycle notifications.
//
// Publishing is fire-and-forget: SendUserEvent hands the message to an
// in-process queue and returns. Transport failures are logged and the event is
// dropped; nothing is reported back to the request that triggered it.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Evgesha-thunder/user-service/pkg/middleware"
	"github.com/Evgesha-thunder/user-service/pkg/models"
)

// Transport delivers an already serialized message to a broker.
type Transport interface {
	Publish(ctx context.Context, topic, key string, body []byte, correlationID string) error
}

// Options tunes the notifier's worker pool.
type Options struct {
	// Workers is the number of publishing goroutines. Messages with the same
	// key always go to the same worker, so they are published in order.
	Workers int
	// QueueSize is the buffer per worker. A full queue drops the event.
	QueueSize      int
	PublishTimeout time.Duration
}

var DefaultOptions = Options{
	Workers:        4,
	QueueSize:      256,
	PublishTimeout: 10 * time.Second,
}

type message struct {
	key           string
	operation     models.UserOperation
	body          []byte
	correlationID string
}

// Notifier publishes UserOperationEvents to models.UserEventsTopic.
type Notifier struct {
	transport Transport
	topic     string
	timeout   time.Duration
	log       *slog.Logger
	marshal   func(v any) ([]byte, error)

	mu     sync.RWMutex
	closed bool
	queues []chan message
	wg     sync.WaitGroup
}

// NewNotifier starts the worker pool. Call Close to drain it.
func NewNotifier(transport Transport, log *slog.Logger, opts Options) *Notifier {
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions.QueueSize
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultOptions.PublishTimeout
	}

	n := &Notifier{
		transport: transport,
		topic:     models.UserEventsTopic,
		timeout:   opts.PublishTimeout,
		log:       log.With("component", "notifier"),
		marshal:   json.Marshal,
		queues:    make([]chan message, opts.Workers),
	}
	for i := range n.queues {
		n.queues[i] = make(chan message, opts.QueueSize)
		n.wg.Add(1)
		go n.worker(n.queues[i])
	}
	return n
}

// SendUserEvent enqueues an event about user. It never blocks on the broker
// and never fails the caller.
func (n *Notifier) SendUserEvent(ctx context.Context, op models.UserOperation, user models.User) {
	key := strconv.FormatInt(user.ID, 10)
	log := n.log.With("operation", op, "key", key)

	body, err := n.marshal(models.UserOperationEvent{Operation: op, Email: user.Email})
	if err != nil {
		log.Error("failed to serialize user event, dropping", "error", err)
		return
	}

	msg := message{
		key:           key,
		operation:     op,
		body:          body,
		correlationID: middleware.CorrelationIDFromContext(ctx),
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		log.Warn("notifier closed, dropping user event")
		return
	}

	select {
	case n.queues[n.shard(key)] <- msg:
	default:
		log.Error("publish queue full, dropping user event")
	}
}

// Close stops accepting events and waits until queued events are published or
// ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		for _, q := range n.queues {
			close(q)
		}
	}
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("notifier: pending events not flushed"), ctx.Err())
	}
}

func (n *Notifier) worker(queue <-chan message) {
	defer n.wg.Done()
	for msg := range queue {
		n.publish(msg)
	}
}

func (n *Notifier) publish(msg message) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	log := n.log.With("operation", msg.operation, "key", msg.key, "correlation_id", msg.correlationID)
	if err := n.transport.Publish(ctx, n.topic, msg.key, msg.body, msg.correlationID); err != nil {
		log.Error("failed to publish user event", "error", err)
		return
	}
	log.Debug("user event published", "topic", n.topic)
}

func (n *Notifier) shard(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(n.queues)))
}
