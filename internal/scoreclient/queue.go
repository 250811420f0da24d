package scoreclient

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	util "github.com/nadmetry/scorerelay/internal/util"
)

const (
	batchDelay         = 2 * time.Second
	maxBatchSize       = 5
	defaultMaxAttempts = 5
	queueTick          = 1 * time.Second

	priorityBackoffBase = 3 * time.Second
	priorityBackoffSpan = 5 * time.Second
	priorityBackoffCap  = 60 * time.Second
	standardBackoffBase = 1 * time.Second
	standardBackoffCap  = 30 * time.Second
)

// Callbacks fan submission outcomes back to the originating game events.
type Callbacks struct {
	OnSuccess func(SubmitResult)
	OnFailure func(errMsg string)
	OnRetry   func(attempt int)
}

// QueuedTransaction is one pending score submission and its retry state.
type QueuedTransaction struct {
	ID                string
	PlayerAddress     string
	ScoreAmount       int64
	TransactionAmount int64
	Attempts          int
	MaxAttempts       int
	NextRetryAt       time.Time

	callbacks []Callbacks
}

type TransactionStatus struct {
	ID          string    `json:"id"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	ScoreAmount int64     `json:"scoreAmount"`
	NextRetryAt time.Time `json:"nextRetryAt"`
}

type QueueStatus struct {
	Pending      int                 `json:"pending"`
	Transactions []TransactionStatus `json:"transactions"`
}

// TransactionQueue batches, coalesces and retries score submissions.
// Incoming entries sit in a short-lived batch; at flush, entries for the
// same player merge into one combined transaction so concurrent UI events
// do not contend for the signer's nonce.
type TransactionQueue struct {
	mu           sync.Mutex
	submit       SubmitFunc
	now          func() time.Time
	sched        Scheduler
	explorerLink func(txHash string) string

	pendingBatch []*QueuedTransaction
	queue        []*QueuedTransaction
	batchTimer   Timer
	inFlight     bool
}

func NewTransactionQueue(submit SubmitFunc) *TransactionQueue {
	return &TransactionQueue{
		submit: submit,
		now:    time.Now,
		sched:  realScheduler{},
	}
}

func (q *TransactionQueue) WithClock(now func() time.Time) *TransactionQueue {
	q.now = now
	return q
}

func (q *TransactionQueue) WithScheduler(s Scheduler) *TransactionQueue {
	q.sched = s
	return q
}

// WithExplorerLink sets the function used to render confirmation links in
// the log, typically Client.ExplorerLink.
func (q *TransactionQueue) WithExplorerLink(fn func(txHash string) string) *TransactionQueue {
	q.explorerLink = fn
	return q
}

// Enqueue adds a submission to the pending batch and returns its id. The
// batch flushes after the batch delay or as soon as it fills.
func (q *TransactionQueue) Enqueue(playerAddress string, scoreAmount, transactionAmount int64, cb *Callbacks) string {
	tx := &QueuedTransaction{
		ID:                "tx_" + uuid.NewString(),
		PlayerAddress:     playerAddress,
		ScoreAmount:       scoreAmount,
		TransactionAmount: transactionAmount,
		MaxAttempts:       defaultMaxAttempts,
		NextRetryAt:       q.now(),
	}
	if cb != nil {
		tx.callbacks = []Callbacks{*cb}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pendingBatch = append(q.pendingBatch, tx)
	if len(q.pendingBatch) >= maxBatchSize {
		q.flushBatchLocked()
		return tx.ID
	}
	if q.batchTimer != nil {
		q.batchTimer.Stop()
	}
	q.batchTimer = q.sched.AfterFunc(batchDelay, q.FlushBatch)
	return tx.ID
}

// FlushBatch moves the pending batch into the durable queue, merging
// same-player entries into combined transactions.
func (q *TransactionQueue) FlushBatch() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flushBatchLocked()
}

func (q *TransactionQueue) flushBatchLocked() {
	if q.batchTimer != nil {
		q.batchTimer.Stop()
		q.batchTimer = nil
	}
	if len(q.pendingBatch) == 0 {
		return
	}

	byPlayer := lo.GroupBy(q.pendingBatch, func(tx *QueuedTransaction) string {
		return tx.PlayerAddress
	})
	for _, group := range byPlayer {
		if len(group) == 1 {
			q.queue = append(q.queue, group[0])
			continue
		}
		q.queue = append(q.queue, q.combine(group))
	}
	q.pendingBatch = nil
}

func (q *TransactionQueue) combine(group []*QueuedTransaction) *QueuedTransaction {
	combined := &QueuedTransaction{
		ID:            "batch_" + uuid.NewString(),
		PlayerAddress: group[0].PlayerAddress,
		ScoreAmount: lo.SumBy(group, func(tx *QueuedTransaction) int64 {
			return tx.ScoreAmount
		}),
		TransactionAmount: lo.SumBy(group, func(tx *QueuedTransaction) int64 {
			return tx.TransactionAmount
		}),
		MaxAttempts: defaultMaxAttempts,
		NextRetryAt: q.now(),
	}
	for _, tx := range group {
		combined.callbacks = append(combined.callbacks, tx.callbacks...)
	}
	return combined
}

// Run drives the queue on the production tick until ctx is cancelled.
func (q *TransactionQueue) Run(ctx context.Context) {
	ticker := time.NewTicker(queueTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			q.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick submits every queued transaction whose retry time has passed.
// Callable directly with an injected clock for deterministic tests.
func (q *TransactionQueue) Tick(ctx context.Context) {
	q.mu.Lock()
	if q.inFlight || len(q.queue) == 0 {
		q.mu.Unlock()
		return
	}
	q.inFlight = true
	now := q.now()
	ready := lo.Filter(q.queue, func(tx *QueuedTransaction, _ int) bool {
		return !tx.NextRetryAt.After(now)
	})
	q.mu.Unlock()

	for _, tx := range ready {
		q.attempt(ctx, tx)
	}

	q.mu.Lock()
	q.inFlight = false
	q.mu.Unlock()
}

func (q *TransactionQueue) attempt(ctx context.Context, tx *QueuedTransaction) {
	q.mu.Lock()
	tx.Attempts++
	attempt := tx.Attempts
	q.mu.Unlock()

	if attempt > 1 {
		for _, cb := range tx.callbacks {
			if cb.OnRetry != nil {
				cb.OnRetry(attempt)
			}
		}
	}

	result, err := q.submit(ctx, tx.PlayerAddress, tx.ScoreAmount, tx.TransactionAmount)
	if err == nil && result.Success {
		q.remove(tx.ID)
		if q.explorerLink != nil && result.TransactionHash != "" {
			util.LogInfo("Transaction confirmed: %s", q.explorerLink(result.TransactionHash))
		}
		for _, cb := range tx.callbacks {
			if cb.OnSuccess != nil {
				cb.OnSuccess(result)
			}
		}
		return
	}

	errMsg := result.Error
	if errMsg == "" && err != nil {
		errMsg = err.Error()
	}
	if errMsg == "" {
		errMsg = "submission failed"
	}

	if attempt >= tx.MaxAttempts {
		q.remove(tx.ID)
		util.LogWarn("Transaction %s failed permanently after %d attempts: %s", tx.ID, attempt, errMsg)
		for _, cb := range tx.callbacks {
			if cb.OnFailure != nil {
				cb.OnFailure(errMsg)
			}
		}
		return
	}

	delay := backoffDelay(isPriorityConflict(errMsg), attempt)
	q.mu.Lock()
	tx.NextRetryAt = q.now().Add(delay)
	q.mu.Unlock()
	util.LogInfo("Transaction %s attempt %d failed (%s), retrying in %v", tx.ID, attempt, errMsg, delay)
}

// isPriorityConflict spots the chain's nonce contention error. Those
// resolve on chain-settlement timescales, so they get the longer, more
// randomized backoff.
func isPriorityConflict(errMsg string) bool {
	return strings.Contains(errMsg, "higher priority")
}

func backoffDelay(priority bool, attempts int) time.Duration {
	if priority {
		delay := priorityBackoffBase +
			time.Duration(rand.Float64()*float64(priorityBackoffSpan)) +
			time.Duration(attempts)*time.Second
		return min(delay, priorityBackoffCap)
	}
	delay := standardBackoffBase << (attempts - 1)
	return min(delay, standardBackoffCap)
}

func (q *TransactionQueue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = lo.Filter(q.queue, func(tx *QueuedTransaction, _ int) bool {
		return tx.ID != id
	})
}

// Status snapshots the queue for UI display.
func (q *TransactionQueue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStatus{
		Pending: len(q.queue),
		Transactions: lo.Map(q.queue, func(tx *QueuedTransaction, _ int) TransactionStatus {
			return TransactionStatus{
				ID:          tx.ID,
				Attempts:    tx.Attempts,
				MaxAttempts: tx.MaxAttempts,
				ScoreAmount: tx.ScoreAmount,
				NextRetryAt: tx.NextRetryAt,
			}
		}),
	}
}

// Destroy flushes the pending batch and drops all queue state. In-flight
// network requests are not cancelled.
func (q *TransactionQueue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flushBatchLocked()
	q.queue = nil
	q.pendingBatch = nil
}
