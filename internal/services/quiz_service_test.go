package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuizService(t *testing.T, env *testEnv) (*QuizService, string) {
	root := t.TempDir()
	store := NewLocalMediaStore(root, "/media/")
	return NewQuizService(env.quizzes, env.questions, NewLocaleResolver("ru"), store, DefaultMaxImageBytes, nopLogger()), root
}

func TestQuizCRUD(t *testing.T) {
	env := setupTestEnv(t)
	svc, _ := newTestQuizService(t, env)
	ctx := context.Background()

	_, err := svc.CreateQuiz(ctx, QuizInput{Name: "  "})
	assert.ErrorIs(t, err, models.ErrValidation)

	negative := -2
	_, err = svc.CreateQuiz(ctx, QuizInput{Name: "Раунд", AnswerLimit: &negative})
	assert.ErrorIs(t, err, models.ErrValidation)

	quiz, err := svc.CreateQuiz(ctx, QuizInput{Name: " Раунд ", Description: "первый"})
	require.NoError(t, err)
	assert.Equal(t, "Раунд", quiz.Name)
	assert.False(t, quiz.IsActive)
	assert.Nil(t, quiz.AnswerLimit)

	quiz, err = svc.SetActive(ctx, quiz.ID, true)
	require.NoError(t, err)
	assert.True(t, quiz.IsActive)

	zero := 0
	quiz, err = svc.SetAnswerLimit(ctx, quiz.ID, &zero)
	require.NoError(t, err)
	require.NotNil(t, quiz.AnswerLimit)
	assert.Equal(t, 0, *quiz.AnswerLimit)

	_, err = svc.SetAnswerLimit(ctx, 9999, &zero)
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err := svc.ListQuizzes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteQuiz(ctx, quiz.ID))
	_, err = svc.GetQuiz(ctx, quiz.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateQuestionValidatesAndResolvesLocale(t *testing.T) {
	env := setupTestEnv(t)
	svc, _ := newTestQuizService(t, env)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(ctx, QuizInput{Name: "Раунд"})
	require.NoError(t, err)

	_, err = svc.CreateQuestion(ctx, &models.Question{
		QuizID:         quiz.ID,
		Type:           models.QuestionSingle,
		Text:           models.LocalizedText{"ru": "?"},
		Options:        models.LocalizedList{"ru": {"A", "B"}},
		CorrectAnswers: models.LocalizedList{"ru": {"C"}},
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	q, err := svc.CreateQuestion(ctx, singleQuestion("Paris", 0))
	assert.ErrorIs(t, err, models.ErrNotFound, "quiz id 0 does not exist")
	assert.Nil(t, q)

	in := singleQuestion("Paris", 0)
	in.QuizID = quiz.ID
	q, err = svc.CreateQuestion(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Points, "points default to 1")

	view, err := svc.GetQuestionView(ctx, q.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, "Capital of France?", view.Text)
	assert.Equal(t, []string{"Paris", "Lyon"}, view.Options)

	view, err = svc.GetQuestionView(ctx, q.ID, "de")
	require.NoError(t, err)
	assert.Equal(t, "ru", view.Locale)
	assert.Equal(t, []string{"Париж", "Лион"}, view.Options)

	views, err := svc.ListQuestions(ctx, quiz.ID, "")
	require.NoError(t, err)
	require.Len(t, views, 1)

	_, err = svc.ListQuestions(ctx, 9999, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, svc.DeleteQuestion(ctx, q.ID, true))
	assert.ErrorIs(t, svc.DeleteQuestion(ctx, q.ID, true), models.ErrNotFound)
}

func TestUploadQuizImagesUsesLabels(t *testing.T) {
	env := setupTestEnv(t)
	svc, root := newTestQuizService(t, env)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(ctx, QuizInput{Name: "Раунд"})
	require.NoError(t, err)

	urls, err := svc.UploadQuizImages(ctx, quiz.ID, []Upload{
		memUpload("cat.png", "image/png", []byte("1")),
		memUpload("dog.jpg", "image/jpeg", []byte("2")),
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.Contains(t, urls[0], "/quizes/")
	assert.FileExists(t, filepath.Join(root, "quizes", fmt.Sprint(quiz.ID), "A.png"))
	assert.FileExists(t, filepath.Join(root, "quizes", fmt.Sprint(quiz.ID), "B.jpg"))

	_, err = svc.UploadQuizImages(ctx, quiz.ID, []Upload{memUpload("x.txt", "text/plain", []byte("1"))})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.UploadQuizImages(ctx, quiz.ID, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}
