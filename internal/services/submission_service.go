package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/ad/go-telegram-quiz/internal/monitoring"
	"go.uber.org/zap"
)

// SubmissionService gates answer submissions by quota and uniqueness and
// credits the evaluated points.
type SubmissionService struct {
	answerRepo *db.AnswerRepository
	quizRepo   *db.QuizRepository
	evaluator  *AnswerEvaluator
	locales    *LocaleResolver
	log        *zap.Logger
}

func NewSubmissionService(answerRepo *db.AnswerRepository, quizRepo *db.QuizRepository, evaluator *AnswerEvaluator, locales *LocaleResolver, log *zap.Logger) *SubmissionService {
	return &SubmissionService{
		answerRepo: answerRepo,
		quizRepo:   quizRepo,
		evaluator:  evaluator,
		locales:    locales,
		log:        log.Named("submissions"),
	}
}

// ComputeLimits returns the caller's quota in a quiz.
func (s *SubmissionService) ComputeLimits(ctx context.Context, user *models.User, quizID int64) (*models.QuizLimits, error) {
	return s.answerRepo.Limits(ctx, quizID, user.ID)
}

// Submit evaluates and records one answer. The checks, the insert and the
// points credit commit together or not at all.
func (s *SubmissionService) Submit(ctx context.Context, user *models.User, questionID int64, answers []string, locale string) (*models.SubmissionResult, error) {
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user %d is not active", models.ErrForbidden, user.TelegramID)
	}
	if answers == nil {
		answers = []string{}
	}
	locale = s.locales.Normalize(locale)

	result, err := s.answerRepo.Submit(ctx, db.Submission{
		UserID:     user.ID,
		QuestionID: questionID,
		Answers:    answers,
		Locale:     locale,
	}, func(q *models.Question) int {
		return s.evaluator.Evaluate(q, answers, locale)
	})

	outcome := submissionOutcome(err)
	if result != nil {
		monitoring.ObserveSubmission(outcome, result.AwardedPoints)
	} else {
		monitoring.ObserveSubmission(outcome, 0)
	}

	if err != nil {
		if outcome == monitoring.OutcomeError {
			s.log.Error("submission failed",
				zap.Int64("user_id", user.ID),
				zap.Int64("question_id", questionID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log.Info("answer accepted",
		zap.Int64("user_id", user.ID),
		zap.Int64("question_id", questionID),
		zap.Int("awarded", result.AwardedPoints),
		zap.Int("total", result.UserPointsTotal),
	)
	return result, nil
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeAccepted
	case errors.Is(err, models.ErrNotFound):
		return monitoring.OutcomeNotFound
	case errors.Is(err, models.ErrConflict):
		return monitoring.OutcomeConflict
	case errors.Is(err, models.ErrForbidden):
		return monitoring.OutcomeForbidden
	default:
		return monitoring.OutcomeError
	}
}
