package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/models"
)

const quizColumns = `id, name, description, is_active, event_id, answer_limit, created_at`

type QuizRepository struct {
	queue *DBQueue
}

func NewQuizRepository(queue *DBQueue) *QuizRepository {
	return &QuizRepository{queue: queue}
}

func scanQuiz(row rowScanner) (*models.Quiz, error) {
	var q models.Quiz
	var description sql.NullString
	var eventID, answerLimit sql.NullInt64
	if err := row.Scan(&q.ID, &q.Name, &description, &q.IsActive, &eventID, &answerLimit, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.Description = description.String
	if eventID.Valid {
		v := eventID.Int64
		q.EventID = &v
	}
	if answerLimit.Valid {
		v := int(answerLimit.Int64)
		q.AnswerLimit = &v
	}
	return &q, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r *QuizRepository) Create(quiz *models.Quiz) (*models.Quiz, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`
			INSERT INTO quizzes (name, description, is_active, event_id, answer_limit)
			VALUES (?, ?, ?, ?, ?)
		`, quiz.Name, quiz.Description, quiz.IsActive, nullableInt64(quiz.EventID), nullableInt(quiz.AnswerLimit))
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("event %v: %w", nullableInt64(quiz.EventID), models.ErrNotFound)
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return scanQuiz(db.QueryRow(`SELECT `+quizColumns+` FROM quizzes WHERE id = ?`, id))
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Quiz), nil
}

func (r *QuizRepository) GetByID(id int64) (*models.Quiz, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		q, err := scanQuiz(db.QueryRow(`SELECT `+quizColumns+` FROM quizzes WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quiz %d: %w", id, models.ErrNotFound)
		}
		return q, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Quiz), nil
}

func (r *QuizRepository) GetAll() ([]*models.Quiz, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`SELECT ` + quizColumns + ` FROM quizzes ORDER BY id`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		quizzes := []*models.Quiz{}
		for rows.Next() {
			q, err := scanQuiz(rows)
			if err != nil {
				return nil, err
			}
			quizzes = append(quizzes, q)
		}
		return quizzes, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Quiz), nil
}

func (r *QuizRepository) SetActive(id int64, active bool) error {
	return r.updateOne(id, `UPDATE quizzes SET is_active = ? WHERE id = ?`, active, id)
}

// SetAnswerLimit stores the per-user answer quota. nil clears the override.
func (r *QuizRepository) SetAnswerLimit(id int64, limit *int) error {
	return r.updateOne(id, `UPDATE quizzes SET answer_limit = ? WHERE id = ?`, nullableInt(limit), id)
}

// Delete removes the quiz with its questions and submissions.
func (r *QuizRepository) Delete(id int64) error {
	return r.updateOne(id, `DELETE FROM quizzes WHERE id = ?`, id)
}

func (r *QuizRepository) updateOne(id int64, query string, args ...any) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(query, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("quiz %d: %w", id, models.ErrNotFound)
		}
		return nil, nil
	})
	return err
}
