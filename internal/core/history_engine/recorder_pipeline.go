package history_engine

import (
	"context"
	"sync"
	"time"

	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/metrics"
	"github.com/markdave123-py/aspiro/internal/models"
)

const writeTimeout = 10 * time.Second

// HistoryRecorder writes chat turns with a fixed pool of workers. Turns are
// sharded by user id, so one user's turns are written in the order they were
// recorded. History is best effort: a full queue drops the turn and a failed
// write is logged, neither reaches the chat caller.
type HistoryRecorder struct {
	appender Appender
	metrics  *metrics.Metrics
	logger   logging.Logger

	queues []chan models.Turn
	wg     sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewHistoryRecorder builds the recorder with numWorkers queues of queueSize.
func NewHistoryRecorder(appender Appender, numWorkers, queueSize int, m *metrics.Metrics, logger logging.Logger) *HistoryRecorder {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	queues := make([]chan models.Turn, numWorkers)
	for i := range queues {
		queues[i] = make(chan models.Turn, queueSize)
	}
	return &HistoryRecorder{
		appender: appender,
		metrics:  m,
		logger:   logger,
		queues:   queues,
	}
}

// Start launches one worker per queue. Writes use ctx's values but not its
// cancellation, so Close can drain after the server context is done.
func (r *HistoryRecorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true

	base := context.WithoutCancel(ctx)
	for w, q := range r.queues {
		r.wg.Add(1)
		go func(w int, q <-chan models.Turn) {
			defer r.wg.Done()
			for turn := range q {
				r.metrics.HistoryQueueDepth.Dec()
				r.processOne(base, w, turn)
			}
		}(w, q)
	}
	r.logger.Info(ctx, "history recorder started", "workers", len(r.queues))
}

func (r *HistoryRecorder) Record(turn models.Turn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(turn, "recorder closed")
		return false
	}

	q := r.queues[shard(turn.UserID, len(r.queues))]
	select {
	case q <- turn:
		r.metrics.HistoryQueueDepth.Inc()
		return true
	default:
		r.drop(turn, "queue full")
		return false
	}
}

// Close is idempotent. Turns still queued are written before it returns.
func (r *HistoryRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, q := range r.queues {
		close(q)
	}
	started := r.started
	r.mu.Unlock()

	if started {
		r.wg.Wait()
		return
	}
	for w, q := range r.queues {
		for turn := range q {
			r.metrics.HistoryQueueDepth.Dec()
			r.processOne(context.Background(), w, turn)
		}
	}
}

func (r *HistoryRecorder) processOne(ctx context.Context, worker int, turn models.Turn) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, err := r.appender.AppendTurn(ctx, turn); err != nil {
		r.metrics.HistoryWriteFailed.Inc()
		r.logger.Error(ctx, "history write failed",
			"user_id", turn.UserID, "worker", worker, "err", err)
	}
}

func (r *HistoryRecorder) drop(turn models.Turn, reason string) {
	r.metrics.HistoryDropped.Inc()
	r.logger.Warn(context.Background(), "history turn dropped",
		"user_id", turn.UserID, "reason", reason)
}

func shard(userID int64, n int) int {
	if userID < 0 {
		userID = -userID
	}
	return int(userID % int64(n))
}

var _ Recorder = (*HistoryRecorder)(nil)
