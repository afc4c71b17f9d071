package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

var testDBCounter int64

type testEnv struct {
	queue         *db.DBQueue
	users         *db.UserRepository
	events        *db.EventRepository
	quizzes       *db.QuizRepository
	questions     *db.QuestionRepository
	answers       *db.AnswerRepository
	adminChats    *db.AdminChatRepository
	notifications *db.AdminNotificationRepository
	settings      *db.SettingsRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := fmt.Sprintf("file:svctest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	sqlDB, err := db.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InitSchema(sqlDB); err != nil {
		t.Fatal(err)
	}
	queue := db.NewDBQueueForTest(sqlDB)
	t.Cleanup(func() {
		queue.Close()
		sqlDB.Close()
	})
	return &testEnv{
		queue:         queue,
		users:         db.NewUserRepository(queue),
		events:        db.NewEventRepository(queue),
		quizzes:       db.NewQuizRepository(queue),
		questions:     db.NewQuestionRepository(queue),
		answers:       db.NewAnswerRepository(queue),
		adminChats:    db.NewAdminChatRepository(queue),
		notifications: db.NewAdminNotificationRepository(queue),
		settings:      db.NewSettingsRepository(queue),
	}
}

// addUser stores an admin-seeded user and then sets its flags.
func (e *testEnv) addUser(t *testing.T, telegramID int64, nickname string, active, admin bool) *models.User {
	t.Helper()
	if err := e.users.UpsertAdmin(&models.User{TelegramID: telegramID, Nickname: nickname}); err != nil {
		t.Fatal(err)
	}
	if !admin {
		if _, err := e.queue.DB().Exec(`UPDATE users SET is_admin = FALSE WHERE telegram_id = ?`, telegramID); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.users.SetActive(telegramID, active); err != nil {
		t.Fatal(err)
	}
	u, err := e.users.GetByTelegramID(telegramID)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func (e *testEnv) addQuiz(t *testing.T, limit *int, questions ...*models.Question) (*models.Quiz, []*models.Question) {
	t.Helper()
	quiz, err := e.quizzes.Create(&models.Quiz{Name: "quiz", IsActive: true, AnswerLimit: limit})
	if err != nil {
		t.Fatal(err)
	}
	var stored []*models.Question
	for _, q := range questions {
		q.QuizID = quiz.ID
		created, err := e.questions.Create(q)
		if err != nil {
			t.Fatal(err)
		}
		stored = append(stored, created)
	}
	return quiz, stored
}

func singleQuestion(correct string, points int) *models.Question {
	return &models.Question{
		Type:           models.QuestionSingle,
		Text:           models.LocalizedText{"ru": "Столица Франции?", "en": "Capital of France?"},
		Options:        models.LocalizedList{"ru": {"Париж", "Лион"}, "en": {"Paris", "Lyon"}},
		CorrectAnswers: models.LocalizedList{"ru": {"Париж"}, "en": {correct}},
		Points:         points,
	}
}

type sentMessage struct {
	ChatID int64
	Text   string
	Markup tgmodels.ReplyMarkup
}

type fakeBot struct {
	mu       sync.Mutex
	nextID   int
	sent     []sentMessage
	edited   []bot.EditMessageTextParams
	answered []string
	failSend bool
}

func (f *fakeBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return nil, fmt.Errorf("telegram unavailable")
	}
	f.nextID++
	chatID, _ := params.ChatID.(int64)
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: params.Text, Markup: params.ReplyMarkup})
	return &tgmodels.Message{ID: f.nextID}, nil
}

func (f *fakeBot) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*tgmodels.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, *params)
	return &tgmodels.Message{ID: params.MessageID}, nil
}

func (f *fakeBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, params.CallbackQueryID)
	return true, nil
}

func (f *fakeBot) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []*models.User
}

func (r *recordingNotifier) NotifyRegistration(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, user)
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}
