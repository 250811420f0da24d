package scoreclient

import (
	"context"
	"sync"
	"time"

	util "github.com/nadmetry/scorerelay/internal/util"
)

const defaultSubmitDelay = 5 * time.Second

// SubmitFunc is the submission path the reliability layers drive. The
// default binds a Client and session token handling; tests inject fakes.
type SubmitFunc func(ctx context.Context, playerAddress string, scoreAmount, transactionAmount int64) (SubmitResult, error)

// ScoreSubmissionManager batches many small score increments into one
// network call after a quiet period. Every add resets the debounce timer,
// so a steady stream of clicks costs at most one write per quiet period.
type ScoreSubmissionManager struct {
	mu                  sync.Mutex
	playerAddress       string
	submit              SubmitFunc
	pendingScore        int64
	pendingTransactions int64
	timer               Timer
	sched               Scheduler
	delay               time.Duration
}

func NewScoreSubmissionManager(playerAddress string, submit SubmitFunc) *ScoreSubmissionManager {
	return &ScoreSubmissionManager{
		playerAddress: playerAddress,
		submit:        submit,
		sched:         realScheduler{},
		delay:         defaultSubmitDelay,
	}
}

func (m *ScoreSubmissionManager) WithScheduler(s Scheduler) *ScoreSubmissionManager {
	m.sched = s
	return m
}

func (m *ScoreSubmissionManager) WithDelay(d time.Duration) *ScoreSubmissionManager {
	m.delay = d
	return m
}

// AddScore accumulates points and reschedules the flush.
func (m *ScoreSubmissionManager) AddScore(points int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingScore += points
	m.scheduleLocked()
}

// AddTransaction accumulates action counts and reschedules the flush.
func (m *ScoreSubmissionManager) AddTransaction(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingTransactions += count
	m.scheduleLocked()
}

func (m *ScoreSubmissionManager) scheduleLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = m.sched.AfterFunc(m.delay, func() {
		result, err := m.SubmitImmediately(context.Background())
		if err != nil || !result.Success {
			util.LogWarn("Debounced score submission failed for %s: %v %s", m.playerAddress, err, result.Error)
		} else if result.TransactionHash != "" {
			util.LogInfo("Debounced score submitted for %s: tx %s", m.playerAddress, result.TransactionHash)
		}
	})
}

// SubmitImmediately cancels the pending timer, snapshots and zeroes the
// accumulated totals, and issues one submission. A no-op success when
// nothing is pending.
func (m *ScoreSubmissionManager) SubmitImmediately(ctx context.Context) (SubmitResult, error) {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	score := m.pendingScore
	transactions := m.pendingTransactions
	m.pendingScore = 0
	m.pendingTransactions = 0
	m.mu.Unlock()

	if score == 0 && transactions == 0 {
		return SubmitResult{Success: true, Message: "No pending data to submit"}, nil
	}
	return m.submit(ctx, m.playerAddress, score, transactions)
}

// Pending reports the accumulated totals not yet submitted.
func (m *ScoreSubmissionManager) Pending() (score, transactions int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingScore, m.pendingTransactions
}

// Destroy cancels the pending timer without submitting.
func (m *ScoreSubmissionManager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
