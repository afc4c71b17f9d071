package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/models"
)

const questionColumns = `id, quiz_id, type, text, options, correct_answers, points, duration_seconds, images, created_at`

type QuestionRepository struct {
	queue *DBQueue
}

func NewQuestionRepository(queue *DBQueue) *QuestionRepository {
	return &QuestionRepository{queue: queue}
}

// scanQuestion keeps the stored type verbatim. An unknown type is scored as zero.
func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var qtype string
	var duration sql.NullInt64
	err := row.Scan(&q.ID, &q.QuizID, &qtype, &q.Text, &q.Options, &q.CorrectAnswers,
		&q.Points, &duration, &q.Images, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.Type = models.QuestionType(qtype)
	if duration.Valid {
		v := int(duration.Int64)
		q.DurationSeconds = &v
	}
	if q.Text == nil {
		q.Text = models.LocalizedText{}
	}
	if q.Options == nil {
		q.Options = models.LocalizedList{}
	}
	if q.CorrectAnswers == nil {
		q.CorrectAnswers = models.LocalizedList{}
	}
	if q.Images == nil {
		q.Images = models.StringList{}
	}
	return &q, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertQuestion(ex execer, q *models.Question) (int64, error) {
	res, err := ex.Exec(`
		INSERT INTO questions (quiz_id, type, text, options, correct_answers, points, duration_seconds, images)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, q.QuizID, string(q.Type), q.Text, q.Options, q.CorrectAnswers, q.Points, nullableInt(q.DurationSeconds), q.Images)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("quiz %d: %w", q.QuizID, models.ErrNotFound)
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r *QuestionRepository) Create(q *models.Question) (*models.Question, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		id, err := insertQuestion(db, q)
		if err != nil {
			return nil, err
		}
		return scanQuestion(db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Question), nil
}

// CreateBatch stores all questions or none of them.
func (r *QuestionRepository) CreateBatch(questions []*models.Question) ([]int64, error) {
	result, err := r.queue.ExecuteTx(context.Background(), func(tx *sql.Tx) (interface{}, error) {
		ids := make([]int64, 0, len(questions))
		for _, q := range questions {
			id, err := insertQuestion(tx, q)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]int64), nil
}

func (r *QuestionRepository) GetByID(id int64) (*models.Question, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		q, err := scanQuestion(db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %d: %w", id, models.ErrNotFound)
		}
		return q, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Question), nil
}

func (r *QuestionRepository) GetByQuiz(quizID int64) ([]*models.Question, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`SELECT `+questionColumns+` FROM questions WHERE quiz_id = ? ORDER BY id`, quizID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		questions := []*models.Question{}
		for rows.Next() {
			q, err := scanQuestion(rows)
			if err != nil {
				return nil, err
			}
			questions = append(questions, q)
		}
		return questions, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Question), nil
}

// Delete removes the question and returns it so callers can clean up media.
func (r *QuestionRepository) Delete(id int64) (*models.Question, error) {
	result, err := r.queue.ExecuteTx(context.Background(), func(tx *sql.Tx) (interface{}, error) {
		q, err := scanQuestion(tx.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %d: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(`DELETE FROM questions WHERE id = ?`, id); err != nil {
			return nil, err
		}
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Question), nil
}
