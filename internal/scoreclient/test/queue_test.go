package main

import (
	"context"
	"errors"
	"testing"
	"time"

	scoreclient "github.com/nadmetry/scorerelay/internal/scoreclient"
)

const otherPlayer = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

func newQueue(submit *capturedSubmit, at *time.Time) (*scoreclient.TransactionQueue, *fakeScheduler) {
	sched := &fakeScheduler{}
	q := scoreclient.NewTransactionQueue(submit.fn).
		WithClock(func() time.Time { return *at }).
		WithScheduler(sched)
	return q, sched
}

func TestBatchCoalescesSamePlayer(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Success: true}}
	q, _ := newQueue(submit, &now)

	q.Enqueue(player, 10, 1, nil)
	q.Enqueue(player, 20, 1, nil)
	q.Enqueue(player, 30, 1, nil)
	q.FlushBatch()

	status := q.Status()
	if status.Pending != 1 {
		t.Fatalf("Pending = %d, want 1 combined transaction", status.Pending)
	}
	if status.Transactions[0].ScoreAmount != 60 {
		t.Errorf("Combined score = %d, want 60", status.Transactions[0].ScoreAmount)
	}

	q.Tick(context.Background())
	if submit.callCount() != 1 {
		t.Fatalf("Submit called %d times, want 1", submit.callCount())
	}
	if got := submit.calls[0]; got.score != 60 || got.transactions != 3 {
		t.Errorf("Submitted (%d, %d), want (60, 3)", got.score, got.transactions)
	}
}

func TestBatchKeepsPlayersSeparate(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Success: true}}
	q, _ := newQueue(submit, &now)

	q.Enqueue(player, 10, 1, nil)
	q.Enqueue(otherPlayer, 20, 1, nil)
	q.FlushBatch()

	if got := q.Status().Pending; got != 2 {
		t.Errorf("Pending = %d, want 2 (one per player)", got)
	}
}

func TestFullBatchFlushesImmediately(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Success: true}}
	q, _ := newQueue(submit, &now)

	for i := 0; i < 5; i++ {
		q.Enqueue(player, 1, 1, nil)
	}
	// No timer fire: the fifth entry fills the batch.
	if got := q.Status().Pending; got != 1 {
		t.Errorf("Pending = %d, want 1 combined transaction after full batch", got)
	}
}

func TestBatchFlushTimer(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Success: true}}
	q, sched := newQueue(submit, &now)

	q.Enqueue(player, 5, 1, nil)
	if got := q.Status().Pending; got != 0 {
		t.Fatalf("Entry reached the queue before the batch window closed")
	}
	sched.fireLast()
	if got := q.Status().Pending; got != 1 {
		t.Errorf("Pending = %d after batch timer, want 1", got)
	}
}

func TestSuccessRemovesAndCallsBack(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Success: true, TransactionHash: "0xhash"}}
	q, _ := newQueue(submit, &now)

	succeeded := 0
	q.Enqueue(player, 10, 1, &scoreclient.Callbacks{
		OnSuccess: func(r scoreclient.SubmitResult) {
			succeeded++
			if r.TransactionHash != "0xhash" {
				t.Errorf("OnSuccess hash = %q", r.TransactionHash)
			}
		},
	})
	q.FlushBatch()
	q.Tick(context.Background())

	if succeeded != 1 {
		t.Errorf("OnSuccess called %d times, want 1", succeeded)
	}
	if got := q.Status().Pending; got != 0 {
		t.Errorf("Pending = %d after success, want 0", got)
	}
}

func TestCombinedCallbacksFanOut(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Success: true}}
	q, _ := newQueue(submit, &now)

	calls := 0
	cb := &scoreclient.Callbacks{OnSuccess: func(scoreclient.SubmitResult) { calls++ }}
	q.Enqueue(player, 1, 1, cb)
	q.Enqueue(player, 2, 1, cb)
	q.FlushBatch()
	q.Tick(context.Background())

	if calls != 2 {
		t.Errorf("Fan-out success callbacks = %d, want 2", calls)
	}
}

func TestBackoffDistinguishesPriorityConflicts(t *testing.T) {
	now := time.Now()
	generic := &capturedSubmit{result: scoreclient.SubmitResult{Error: "Failed to update player data"}}
	priority := &capturedSubmit{result: scoreclient.SubmitResult{Error: "Another transaction has higher priority. Please retry shortly."}}

	qGeneric, _ := newQueue(generic, &now)
	qPriority, _ := newQueue(priority, &now)

	qGeneric.Enqueue(player, 1, 1, nil)
	qGeneric.FlushBatch()
	qGeneric.Tick(context.Background())

	qPriority.Enqueue(player, 1, 1, nil)
	qPriority.FlushBatch()
	qPriority.Tick(context.Background())

	genericRetry := qGeneric.Status().Transactions[0].NextRetryAt
	priorityRetry := qPriority.Status().Transactions[0].NextRetryAt

	if genericRetry.After(now.Add(1 * time.Second)) {
		t.Errorf("Generic first retry at %v, want ≤ now+1s", genericRetry)
	}
	if priorityRetry.Before(now.Add(3 * time.Second)) {
		t.Errorf("Priority first retry at %v, want ≥ now+3s", priorityRetry)
	}
	if !priorityRetry.After(genericRetry) {
		t.Error("Priority conflict retry not strictly later than generic retry")
	}
}

func TestNotDueEntriesAreSkipped(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Error: "boom"}}
	q, _ := newQueue(submit, &now)

	q.Enqueue(player, 1, 1, nil)
	q.FlushBatch()
	q.Tick(context.Background())
	if submit.callCount() != 1 {
		t.Fatalf("First tick: %d calls, want 1", submit.callCount())
	}

	// Backoff pushed NextRetryAt forward; an immediate tick does nothing.
	q.Tick(context.Background())
	if submit.callCount() != 1 {
		t.Errorf("Tick before NextRetryAt attempted a submit")
	}

	now = now.Add(time.Minute)
	q.Tick(context.Background())
	if submit.callCount() != 2 {
		t.Errorf("Tick after NextRetryAt: %d calls, want 2", submit.callCount())
	}
}

func TestExhaustedAttemptsFailPermanently(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{failErr: errors.New("connection refused")}
	q, _ := newQueue(submit, &now)

	var failMsg string
	retries := 0
	q.Enqueue(player, 1, 1, &scoreclient.Callbacks{
		OnFailure: func(msg string) { failMsg = msg },
		OnRetry:   func(int) { retries++ },
	})
	q.FlushBatch()

	for i := 0; i < 5; i++ {
		q.Tick(context.Background())
		now = now.Add(2 * time.Minute)
	}

	if submit.callCount() != 5 {
		t.Errorf("Submit attempted %d times, want 5", submit.callCount())
	}
	if got := q.Status().Pending; got != 0 {
		t.Errorf("Pending = %d after exhausting attempts, want 0", got)
	}
	if failMsg != "connection refused" {
		t.Errorf("OnFailure message = %q", failMsg)
	}
	if retries != 4 {
		t.Errorf("OnRetry called %d times, want 4 (attempts 2..5)", retries)
	}
}

func TestDestroyDrainsState(t *testing.T) {
	now := time.Now()
	submit := &capturedSubmit{result: scoreclient.SubmitResult{Success: true}}
	q, _ := newQueue(submit, &now)

	q.Enqueue(player, 1, 1, nil)
	q.Destroy()
	if got := q.Status().Pending; got != 0 {
		t.Errorf("Pending = %d after Destroy, want 0", got)
	}
}
