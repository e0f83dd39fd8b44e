package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/musichub/catalog-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Deduper suppresses notifications that were already delivered.
type Deduper interface {
	Claim(ctx context.Context, kind, email string) (bool, error)
	Release(ctx context.Context, kind, email string) error
}

// Dispatcher routes notifications to a fixed set of workers using consistent
// hashing on the recipient email, so messages to one address stay ordered.
type Dispatcher struct {
	workers  []chan ports.Notification
	notifier ports.Notifier
	dedup    Deduper
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. dedup may be nil.
func NewDispatcher(numWorkers int, notifier ports.Notifier, dedup Deduper, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.Notification, numWorkers),
		notifier: notifier,
		dedup:    dedup,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands n to the worker responsible for its email. It never blocks:
// when that worker's buffer is full the notification is dropped.
func (d *Dispatcher) Enqueue(n ports.Notification) {
	select {
	case d.workers[d.shardIndex(n.Email)] <- n:
	default:
		d.log.Warn().Str("email", n.Email).Str("kind", string(n.Kind)).Msg("notification queue full, dropping")
	}
}

// shardIndex maps an email deterministically to a worker index.
func (d *Dispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Notification) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ch:
			d.deliver(ctx, id, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, n ports.Notification) {
	if d.dedup != nil {
		fresh, err := d.dedup.Claim(ctx, string(n.Kind), n.Email)
		if err != nil {
			d.log.Warn().Err(err).Str("email", n.Email).Msg("dedup check failed, sending anyway")
		} else if !fresh {
			d.log.Debug().Str("email", n.Email).Str("kind", string(n.Kind)).Msg("duplicate notification skipped")
			return
		}
	}

	if err := d.notifier.Send(ctx, n); err != nil {
		d.log.Error().Err(err).
			Str("email", n.Email).
			Str("kind", string(n.Kind)).
			Int("worker_id", id).
			Msg("notification delivery failed")
		if d.dedup != nil {
			if relErr := d.dedup.Release(ctx, string(n.Kind), n.Email); relErr != nil {
				d.log.Warn().Err(relErr).Str("email", n.Email).Msg("failed to release dedup key")
			}
		}
		return
	}

	d.log.Info().Str("email", n.Email).Str("kind", string(n.Kind)).Msg("notification sent")
}
