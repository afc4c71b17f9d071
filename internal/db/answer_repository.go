package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/models"
)

type AnswerRepository struct {
	queue *DBQueue
}

func NewAnswerRepository(queue *DBQueue) *AnswerRepository {
	return &AnswerRepository{queue: queue}
}

// ScoreFunc evaluates a submission against the stored question.
type ScoreFunc func(q *models.Question) int

type Submission struct {
	UserID     int64
	QuestionID int64
	Answers    []string
	Locale     string
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadLimits(ctx context.Context, q queryer, quizID, userID int64) (models.QuizLimits, *int, error) {
	var answerLimit sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT answer_limit FROM quizzes WHERE id = ?`, quizID).Scan(&answerLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QuizLimits{}, nil, fmt.Errorf("quiz %d: %w", quizID, models.ErrNotFound)
	}
	if err != nil {
		return models.QuizLimits{}, nil, err
	}

	var total, answered int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE quiz_id = ?`, quizID).Scan(&total); err != nil {
		return models.QuizLimits{}, nil, err
	}
	if err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_answers WHERE quiz_id = ? AND user_id = ?
	`, quizID, userID).Scan(&answered); err != nil {
		return models.QuizLimits{}, nil, err
	}

	var override *int
	if answerLimit.Valid {
		v := int(answerLimit.Int64)
		override = &v
	}
	return models.NewQuizLimits(total, answered, override), override, nil
}

// Limits returns the quota snapshot of a user in a quiz.
func (r *AnswerRepository) Limits(ctx context.Context, quizID, userID int64) (*models.QuizLimits, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		limits, _, err := loadLimits(ctx, db, quizID, userID)
		if err != nil {
			return nil, err
		}
		return &limits, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.QuizLimits), nil
}

// Submit records an answer and credits the awarded points in one transaction.
// Duplicate answers fail with ErrConflict, an exhausted quota with ErrForbidden.
func (r *AnswerRepository) Submit(ctx context.Context, s Submission, score ScoreFunc) (*models.SubmissionResult, error) {
	result, err := r.queue.ExecuteTx(ctx, func(tx *sql.Tx) (interface{}, error) {
		question, err := scanQuestion(tx.QueryRowContext(ctx,
			`SELECT `+questionColumns+` FROM questions WHERE id = ?`, s.QuestionID))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %d: %w", s.QuestionID, models.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM user_answers WHERE user_id = ? AND question_id = ?
		`, s.UserID, s.QuestionID).Scan(&exists); err != nil {
			return nil, err
		}
		if exists > 0 {
			return nil, fmt.Errorf("%w: question %d already answered", models.ErrConflict, s.QuestionID)
		}

		limits, override, err := loadLimits(ctx, tx, question.QuizID, s.UserID)
		if err != nil {
			return nil, err
		}
		if limits.RemainingAllowed <= 0 {
			return nil, fmt.Errorf("%w: answer limit %d reached for quiz %d",
				models.ErrForbidden, limits.EffectiveLimit, question.QuizID)
		}

		awarded := score(question)

		res, err := tx.ExecContext(ctx, `
			INSERT INTO user_answers (user_id, question_id, quiz_id, answers, locale, points_awarded)
			VALUES (?, ?, ?, ?, ?, ?)
		`, s.UserID, s.QuestionID, question.QuizID, models.StringList(s.Answers), s.Locale, awarded)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: question %d already answered", models.ErrConflict, s.QuestionID)
			}
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("user %d: %w", s.UserID, models.ErrNotFound)
			}
			return nil, err
		}
		answerID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET points = points + ? WHERE id = ?`, awarded, s.UserID); err != nil {
			return nil, err
		}
		var total int
		if err := tx.QueryRowContext(ctx, `SELECT points FROM users WHERE id = ?`, s.UserID).Scan(&total); err != nil {
			return nil, err
		}

		return &models.SubmissionResult{
			AnswerID:        answerID,
			AwardedPoints:   awarded,
			UserPointsTotal: total,
			Limits:          models.NewQuizLimits(limits.TotalQuestions, limits.Answered+1, override),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.SubmissionResult), nil
}

func (r *AnswerRepository) GetByUser(userID int64) ([]*models.UserAnswer, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`
			SELECT id, user_id, question_id, quiz_id, answers, locale, points_awarded, created_at
			FROM user_answers WHERE user_id = ? ORDER BY id
		`, userID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		answers := []*models.UserAnswer{}
		for rows.Next() {
			var a models.UserAnswer
			if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.QuizID, &a.Answers,
				&a.Locale, &a.PointsAwarded, &a.CreatedAt); err != nil {
				return nil, err
			}
			answers = append(answers, &a)
		}
		return answers, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.UserAnswer), nil
}
