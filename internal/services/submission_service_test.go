package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubmissionService(env *testEnv) *SubmissionService {
	locales := NewLocaleResolver(DefaultLocale)
	return NewSubmissionService(env.answers, env.quizzes, NewAnswerEvaluator(locales, true), locales, nopLogger())
}

func TestSubmitScoresAndCredits(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestSubmissionService(env)
	ctx := context.Background()

	user := env.addUser(t, 100, "alice", true, false)
	_, qs := env.addQuiz(t, nil, singleQuestion("Paris", 3), singleQuestion("Paris", 2))

	res, err := svc.Submit(ctx, user, qs[0].ID, []string{"Paris"}, "en")
	require.NoError(t, err)
	assert.Equal(t, 3, res.AwardedPoints)
	assert.Equal(t, 3, res.UserPointsTotal)
	assert.Equal(t, models.QuizLimits{TotalQuestions: 2, Answered: 1, EffectiveLimit: 2, RemainingAllowed: 1}, res.Limits)

	// Empty locale resolves to the fallback, where the answer is wrong.
	res, err = svc.Submit(ctx, user, qs[1].ID, []string{"Лион"}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.AwardedPoints)
	assert.Equal(t, 3, res.UserPointsTotal)
	assert.Equal(t, 0, res.Limits.RemainingAllowed)

	stored, err := env.answers.GetByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "ru", stored[1].Locale)
}

func TestSubmitRejectsInactiveUser(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestSubmissionService(env)

	user := env.addUser(t, 100, "alice", false, false)
	_, qs := env.addQuiz(t, nil, singleQuestion("Paris", 1))

	_, err := svc.Submit(context.Background(), user, qs[0].ID, []string{"Paris"}, "en")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestSubmitErrors(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestSubmissionService(env)
	ctx := context.Background()

	limit := 1
	user := env.addUser(t, 100, "alice", true, false)
	_, qs := env.addQuiz(t, &limit, singleQuestion("Paris", 1), singleQuestion("Paris", 1))

	_, err := svc.Submit(ctx, user, 9999, []string{"Paris"}, "en")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Submit(ctx, user, qs[0].ID, []string{"Paris"}, "en")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, user, qs[0].ID, []string{"Paris"}, "en")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = svc.Submit(ctx, user, qs[1].ID, []string{"Paris"}, "en")
	assert.ErrorIs(t, err, models.ErrForbidden)

	fresh, err := env.users.GetByTelegramID(100)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Points, "failed submissions must not credit points")
}

func TestComputeLimitsTracksOverride(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestSubmissionService(env)
	quizSvc := NewQuizService(env.quizzes, env.questions, NewLocaleResolver(""), nil, DefaultMaxImageBytes, nopLogger())
	ctx := context.Background()

	user := env.addUser(t, 100, "alice", true, false)
	quiz, questions := env.addQuiz(t, nil, singleQuestion("Paris", 1), singleQuestion("Paris", 1), singleQuestion("Paris", 1))

	limits, err := svc.ComputeLimits(ctx, user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, limits.EffectiveLimit)

	two := 2
	_, err = quizSvc.SetAnswerLimit(ctx, quiz.ID, &two)
	require.NoError(t, err)
	limits, err = svc.ComputeLimits(ctx, user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, limits.EffectiveLimit)

	ten := 10
	_, err = quizSvc.SetAnswerLimit(ctx, quiz.ID, &ten)
	require.NoError(t, err)
	limits, err = svc.ComputeLimits(ctx, user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuizLimits{TotalQuestions: 3, Answered: 0, EffectiveLimit: 10, RemainingAllowed: 10}, *limits)

	five := 5
	_, err = quizSvc.SetAnswerLimit(ctx, quiz.ID, &five)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, user, questions[0].ID, []string{"Париж"}, "")
	require.NoError(t, err)
	limits, err = svc.ComputeLimits(ctx, user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuizLimits{TotalQuestions: 3, Answered: 1, EffectiveLimit: 5, RemainingAllowed: 4}, *limits)

	_, err = quizSvc.SetAnswerLimit(ctx, quiz.ID, nil)
	require.NoError(t, err)

	negative := -1
	_, err = quizSvc.SetAnswerLimit(ctx, quiz.ID, &negative)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.ComputeLimits(ctx, user, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConcurrentSubmissionsRespectLimit(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestSubmissionService(env)
	ctx := context.Background()

	limit := 2
	user := env.addUser(t, 100, "alice", true, false)
	var questions []*models.Question
	for i := 0; i < 6; i++ {
		questions = append(questions, singleQuestion("Paris", 1))
	}
	_, qs := env.addQuiz(t, &limit, questions...)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, forbidden := 0, 0
	for _, q := range qs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Submit(ctx, user, id, []string{"Paris"}, "en")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, models.ErrForbidden):
				forbidden++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(q.ID)
	}
	wg.Wait()

	assert.Equal(t, 2, accepted)
	assert.Equal(t, 4, forbidden)

	fresh, err := env.users.GetByTelegramID(100)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Points)
}
