package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	defaultBuffer  = 256
	drainTimeout   = 5 * time.Second
)

type notification struct {
	userID  string
	message string
}

// Dispatcher implements ports.NotificationEmitter. Notifications are routed
// to a fixed set of workers by hashing the recipient, so each user's
// notifications are persisted in emission order.
type Dispatcher struct {
	workers []chan notification
	service ports.NotificationService
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers shards of buffer slots each.
// Non-positive values fall back to the defaults.
func NewDispatcher(numWorkers, buffer int, service ports.NotificationService, m *metrics.Metrics, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		workers: make([]chan notification, numWorkers),
		service: service,
		metrics: m,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan notification, buffer)
	}
	return d
}

// Run processes notifications until ctx is cancelled, then persists whatever
// is still buffered and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, ch := range d.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
	wg.Wait()
	return nil
}

// Emit enqueues a notification without blocking. When the recipient's shard
// is full the notification is dropped and counted.
func (d *Dispatcher) Emit(_ context.Context, userID, message string) {
	idx := d.shardIndex(userID)
	select {
	case d.workers[idx] <- notification{userID: userID, message: message}:
		d.metrics.QueueDepth(strconv.Itoa(idx), len(d.workers[idx]))
	default:
		d.metrics.Dropped("queue_full")
		d.log.Warn().Str("user_id", userID).Int("worker_id", idx).Msg("notification queue full, dropping")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan notification) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case n := <-ch:
			d.metrics.QueueDepth(label, len(ch))
			d.persist(ctx, id, n)
		}
	}
}

func (d *Dispatcher) drain(id int, ch <-chan notification) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case n := <-ch:
			d.persist(ctx, id, n)
		default:
			d.metrics.QueueDepth(strconv.Itoa(id), 0)
			return
		}
	}
}

func (d *Dispatcher) persist(ctx context.Context, id int, n notification) {
	if _, err := d.service.Persist(ctx, n.userID, n.message); err != nil {
		d.metrics.Dropped("persist_failed")
		d.log.Error().Err(err).
			Str("user_id", n.userID).
			Int("worker_id", id).
			Msg("notification persistence failed")
	}
}

var _ ports.NotificationEmitter = (*Dispatcher)(nil)
