package audit

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Recorder persists auth events asynchronously across a fixed set of workers,
// sharded by subject so each account's trail is written in order. Recording is
// best-effort: a full shard drops the event rather than blocking the request.
type Recorder struct {
	workers []chan domain.AuthEvent
	events  ports.AuthEventRepository
	log     zerolog.Logger
}

// NewRecorder creates a Recorder with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewRecorder(numWorkers int, events ports.AuthEventRepository, log zerolog.Logger) *Recorder {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	r := &Recorder{
		workers: make([]chan domain.AuthEvent, numWorkers),
		events:  events,
		log:     log,
	}
	for i := range r.workers {
		r.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return r
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	for i, ch := range r.workers {
		go r.runWorker(ctx, i, ch)
	}
}

// Record enqueues an event for persistence without blocking the caller.
func (r *Recorder) Record(event domain.AuthEvent) {
	select {
	case r.workers[r.shardIndex(event)] <- event:
	default:
		r.log.Warn().Str("kind", string(event.Kind)).Msg("audit shard full, event dropped")
	}
}

// shardIndex maps an event deterministically to a worker index. Events for the
// same subject (or identifier, for failed logins) land on the same shard.
func (r *Recorder) shardIndex(event domain.AuthEvent) int {
	key := event.Subject
	if key == "" {
		key = event.Identifier
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(r.workers)
}

func (r *Recorder) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := r.events.Insert(ctx, event); err != nil {
				r.log.Error().Err(err).
					Str("kind", string(event.Kind)).
					Int("worker_id", id).
					Msg("audit event persistence failed")
			}
		}
	}
}
