package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ad/go-telegram-quiz/internal/models"
	_ "modernc.org/sqlite"
	"pgregory.net/rapid"
)

func TestDBQueueRetry_Property(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	queue := NewDBQueueForTest(db)
	defer queue.Close()

	rapid.Check(t, func(t *rapid.T) {
		failUntil := rapid.IntRange(0, 4).Draw(t, "failUntil")
		expectedData := rapid.Int().Draw(t, "expectedData")

		var attempts int32

		task := func(_ *sql.DB) (interface{}, error) {
			attempt := int(atomic.AddInt32(&attempts, 1))
			if attempt <= failUntil {
				return nil, errors.New("simulated failure")
			}
			return expectedData, nil
		}

		result, err := queue.Execute(task)

		actualAttempts := int(atomic.LoadInt32(&attempts))

		if failUntil >= 3 {
			if err == nil {
				t.Fatalf("expected error after 3 retries, got nil")
			}
			if actualAttempts != 3 {
				t.Fatalf("expected exactly 3 attempts, got %d", actualAttempts)
			}
		} else {
			if err != nil {
				t.Fatalf("expected success, got error: %v", err)
			}
			if result != expectedData {
				t.Fatalf("expected data %v, got %v", expectedData, result)
			}
			expectedAttempts := failUntil + 1
			if actualAttempts != expectedAttempts {
				t.Fatalf("expected %d attempts, got %d", expectedAttempts, actualAttempts)
			}
		}
	})
}

func TestDBQueueDoesNotRetryDomainErrors(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	queue := NewDBQueueForTest(db)
	defer queue.Close()

	for _, sentinel := range []error{models.ErrNotFound, models.ErrConflict, models.ErrForbidden, models.ErrValidation, sql.ErrNoRows} {
		var attempts int32
		_, err := queue.Execute(func(_ *sql.DB) (interface{}, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, fmt.Errorf("wrapped: %w", sentinel)
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected %v, got %v", sentinel, err)
		}
		if n := atomic.LoadInt32(&attempts); n != 1 {
			t.Fatalf("%v: expected a single attempt, got %d", sentinel, n)
		}
	}
}

func TestDBQueueExecuteTx_RollsBackOnError(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE items (name TEXT)`); err != nil {
		t.Fatal(err)
	}

	queue := NewDBQueueForTest(db)
	defer queue.Close()

	_, err = queue.ExecuteTx(context.Background(), func(tx *sql.Tx) (interface{}, error) {
		if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('lost')`); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("abort: %w", models.ErrConflict)
	})
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := queue.ExecuteTx(context.Background(), func(tx *sql.Tx) (interface{}, error) {
		return tx.Exec(`INSERT INTO items (name) VALUES ('kept')`)
	}); err != nil {
		t.Fatal(err)
	}

	var names []string
	rows, err := db.Query(`SELECT name FROM items`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatal(err)
		}
		names = append(names, n)
	}
	if len(names) != 1 || names[0] != "kept" {
		t.Fatalf("expected only the committed row, got %v", names)
	}
}

func TestRetryPolicyWait(t *testing.T) {
	linear := retryPolicy{attempts: 3, delay: 10 * time.Millisecond}
	if got := linear.wait(1); got != 20*time.Millisecond {
		t.Fatalf("linear wait: got %v", got)
	}
	flat := retryPolicy{attempts: 3, delay: 10 * time.Millisecond, flat: true}
	if got := flat.wait(2); got != 10*time.Millisecond {
		t.Fatalf("flat wait: got %v", got)
	}
}
