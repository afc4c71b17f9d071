package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"go.uber.org/zap"
)

type QuizService struct {
	quizRepo     *db.QuizRepository
	questionRepo *db.QuestionRepository
	locales      *LocaleResolver
	media        MediaStore
	maxImage     int64
	log          *zap.Logger
}

func NewQuizService(quizRepo *db.QuizRepository, questionRepo *db.QuestionRepository, locales *LocaleResolver, media MediaStore, maxImage int64, log *zap.Logger) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		locales:      locales,
		media:        media,
		maxImage:     maxImage,
		log:          log.Named("quiz"),
	}
}

type QuizInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	EventID     *int64 `json:"event_id"`
	AnswerLimit *int   `json:"answer_limit"`
}

func validateAnswerLimit(limit *int) error {
	if limit != nil && *limit < 0 {
		return fmt.Errorf("%w: answer_limit must be >= 0", models.ErrValidation)
	}
	return nil
}

func (s *QuizService) CreateQuiz(_ context.Context, in QuizInput) (*models.Quiz, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: quiz name is required", models.ErrValidation)
	}
	if err := validateAnswerLimit(in.AnswerLimit); err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.Create(&models.Quiz{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		EventID:     in.EventID,
		AnswerLimit: in.AnswerLimit,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("quiz created", zap.Int64("quiz_id", quiz.ID), zap.String("name", quiz.Name))
	return quiz, nil
}

func (s *QuizService) ListQuizzes(_ context.Context) ([]*models.Quiz, error) {
	return s.quizRepo.GetAll()
}

func (s *QuizService) GetQuiz(_ context.Context, id int64) (*models.Quiz, error) {
	return s.quizRepo.GetByID(id)
}

func (s *QuizService) SetActive(_ context.Context, id int64, active bool) (*models.Quiz, error) {
	if err := s.quizRepo.SetActive(id, active); err != nil {
		return nil, err
	}
	return s.quizRepo.GetByID(id)
}

// SetAnswerLimit overrides the per-user answer quota of a quiz. nil clears it.
func (s *QuizService) SetAnswerLimit(_ context.Context, id int64, limit *int) (*models.Quiz, error) {
	if err := validateAnswerLimit(limit); err != nil {
		return nil, err
	}
	if err := s.quizRepo.SetAnswerLimit(id, limit); err != nil {
		return nil, err
	}
	s.log.Info("answer limit changed", zap.Int64("quiz_id", id), zap.Any("answer_limit", limit))
	return s.quizRepo.GetByID(id)
}

func (s *QuizService) DeleteQuiz(ctx context.Context, id int64) error {
	questions, err := s.questionRepo.GetByQuiz(id)
	if err != nil {
		return err
	}
	if err := s.quizRepo.Delete(id); err != nil {
		return err
	}
	for _, q := range questions {
		s.deleteImages(ctx, q.Images)
	}
	return nil
}

func (s *QuizService) CreateQuestion(_ context.Context, q *models.Question) (*models.Question, error) {
	if err := ValidateQuestion(q); err != nil {
		return nil, err
	}
	return s.questionRepo.Create(q)
}

func (s *QuizService) GetQuestion(_ context.Context, id int64) (*models.Question, error) {
	return s.questionRepo.GetByID(id)
}

// GetQuestionView resolves the question for display in one locale.
func (s *QuizService) GetQuestionView(ctx context.Context, id int64, locale string) (*models.QuestionView, error) {
	q, err := s.questionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.view(q, locale), nil
}

func (s *QuizService) view(q *models.Question, locale string) *models.QuestionView {
	text, resolved := s.locales.Text(q.Text, locale)
	return &models.QuestionView{
		ID:              q.ID,
		QuizID:          q.QuizID,
		Type:            q.Type,
		Locale:          resolved,
		Text:            text,
		Options:         s.locales.Options(q.Options, locale),
		Points:          q.Points,
		DurationSeconds: q.DurationSeconds,
		Images:          q.Images,
	}
}

func (s *QuizService) ListQuestions(_ context.Context, quizID int64, locale string) ([]*models.QuestionView, error) {
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.GetByQuiz(quizID)
	if err != nil {
		return nil, err
	}
	views := make([]*models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, s.view(q, locale))
	}
	return views, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, id int64, deleteImages bool) error {
	q, err := s.questionRepo.Delete(id)
	if err != nil {
		return err
	}
	if deleteImages {
		s.deleteImages(ctx, q.Images)
	}
	return nil
}

func (s *QuizService) deleteImages(ctx context.Context, urls []string) {
	if s.media == nil {
		return
	}
	for _, url := range urls {
		if err := s.media.Delete(ctx, url); err != nil {
			s.log.Warn("failed to delete image", zap.String("url", url), zap.Error(err))
		}
	}
}

// UploadQuizImages stores images named A, B, C... in upload order.
func (s *QuizService) UploadQuizImages(ctx context.Context, quizID int64, files []Upload) ([]string, error) {
	if s.media == nil {
		return nil, fmt.Errorf("media storage is not configured")
	}
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", models.ErrValidation)
	}
	for _, f := range files {
		if err := ValidateImage(f, s.maxImage); err != nil {
			return nil, err
		}
	}

	urls := make([]string, 0, len(files))
	for i, f := range files {
		url, err := saveUpload(ctx, s.media, quizImageKey(quizID, ImageLabel(i)+imageExt(f)), f)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
