package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ad/go-telegram-quiz/internal/models"
)

type DBTask struct {
	Exec func(*sql.DB) (interface{}, error)
	Resp chan DBResult
}

type DBResult struct {
	Data interface{}
	Err  error
}

// retryPolicy controls how a failed task is repeated. Backoff grows
// linearly with the attempt number unless flat is set.
type retryPolicy struct {
	attempts int
	delay    time.Duration
	flat     bool
}

func (p retryPolicy) wait(attempt int) time.Duration {
	if p.flat {
		return p.delay
	}
	return time.Duration(attempt+1) * p.delay
}

// DBQueue serializes all store access through a single worker goroutine.
// Transactions executed by a task therefore never interleave within one process.
type DBQueue struct {
	tasks  chan DBTask
	db     *sql.DB
	policy retryPolicy
}

func newQueue(db *sql.DB, policy retryPolicy) *DBQueue {
	q := &DBQueue{
		tasks:  make(chan DBTask, 100),
		db:     db,
		policy: policy,
	}
	go q.worker()
	return q
}

func NewDBQueue(db *sql.DB) *DBQueue {
	return newQueue(db, retryPolicy{attempts: 3, delay: 100 * time.Millisecond})
}

func NewDBQueueForTest(db *sql.DB) *DBQueue {
	return newQueue(db, retryPolicy{attempts: 3, delay: time.Millisecond, flat: true})
}

func (q *DBQueue) Execute(task func(*sql.DB) (interface{}, error)) (interface{}, error) {
	resp := make(chan DBResult, 1)
	q.tasks <- DBTask{Exec: task, Resp: resp}
	result := <-resp
	return result.Data, result.Err
}

// ExecuteTx runs task inside one transaction. The transaction commits only
// when task succeeds; a retried attempt starts a fresh transaction.
func (q *DBQueue) ExecuteTx(ctx context.Context, task func(*sql.Tx) (interface{}, error)) (interface{}, error) {
	return q.Execute(func(db *sql.DB) (interface{}, error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		data, err := task(tx)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return data, nil
	})
}

func (q *DBQueue) worker() {
	for task := range q.tasks {
		task.Resp <- q.executeWithRetry(task)
	}
}

func (q *DBQueue) executeWithRetry(task DBTask) DBResult {
	var lastErr error
	for attempt := 0; attempt < q.policy.attempts; attempt++ {
		data, err := task.Exec(q.db)
		if err == nil {
			return DBResult{Data: data}
		}
		lastErr = err
		if isPermanent(err) {
			break
		}
		if attempt < q.policy.attempts-1 {
			time.Sleep(q.policy.wait(attempt))
		}
	}
	return DBResult{Err: lastErr}
}

// isPermanent reports errors that a retry cannot change.
func isPermanent(err error) bool {
	return errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		models.IsDomainError(err)
}

func (q *DBQueue) Close() {
	close(q.tasks)
}

func (q *DBQueue) DB() *sql.DB {
	return q.db
}
