package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/models"
)

const eventColumns = `id, name, status, current_question_index, creator_id, created_at`

type EventRepository struct {
	queue *DBQueue
}

func NewEventRepository(queue *DBQueue) *EventRepository {
	return &EventRepository{queue: queue}
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var status string
	if err := row.Scan(&e.ID, &e.Name, &status, &e.CurrentQuestionIndex, &e.CreatorID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Status = models.EventStatus(status)
	return &e, nil
}

func (r *EventRepository) Create(name string, creatorID int64) (*models.Event, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`
			INSERT INTO events (name, status, creator_id) VALUES (?, ?, ?)
		`, name, models.EventNotStarted, creatorID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: event %q already exists", models.ErrConflict, name)
			}
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("creator %d: %w", creatorID, models.ErrNotFound)
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return scanEvent(db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Event), nil
}

func (r *EventRepository) GetByID(id int64) (*models.Event, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		e, err := scanEvent(db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %d: %w", id, models.ErrNotFound)
		}
		return e, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Event), nil
}

// FindOpenForRegistration returns the most recent event accepting players.
func (r *EventRepository) FindOpenForRegistration() (*models.Event, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		e, err := scanEvent(db.QueryRow(`
			SELECT `+eventColumns+` FROM events WHERE status = ? ORDER BY id DESC LIMIT 1
		`, models.EventRegistration))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event in registration: %w", models.ErrNotFound)
		}
		return e, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Event), nil
}

// GetAllWithQuizzes lists events together with the quizzes attached to them.
func (r *EventRepository) GetAllWithQuizzes() ([]*models.Event, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY id`)
		if err != nil {
			return nil, err
		}
		events := []*models.Event{}
		byID := map[int64]*models.Event{}
		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			e.Quizzes = []models.QuizBrief{}
			events = append(events, e)
			byID[e.ID] = e
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		qrows, err := db.Query(`SELECT id, name, is_active, event_id FROM quizzes WHERE event_id IS NOT NULL ORDER BY id`)
		if err != nil {
			return nil, err
		}
		defer qrows.Close()
		for qrows.Next() {
			var brief models.QuizBrief
			var eventID int64
			if err := qrows.Scan(&brief.ID, &brief.Name, &brief.IsActive, &eventID); err != nil {
				return nil, err
			}
			if e, ok := byID[eventID]; ok {
				e.Quizzes = append(e.Quizzes, brief)
			}
		}
		return events, qrows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Event), nil
}

func (r *EventRepository) UpdatePhase(id int64, status models.EventStatus, questionIndex int) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`
			UPDATE events SET status = ?, current_question_index = ? WHERE id = ?
		`, status, questionIndex, id)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("event %d: %w", id, models.ErrNotFound)
		}
		return nil, nil
	})
	return err
}

func (r *EventRepository) CountPlayers(id int64) (int, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM event_players WHERE event_id = ?`, id).Scan(&n)
		return n, err
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}
