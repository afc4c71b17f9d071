package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/ad/go-telegram-quiz/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testDBCounter int64

type fakeBot struct {
	mu       sync.Mutex
	nextID   int
	sent     []*bot.SendMessageParams
	edited   []*bot.EditMessageTextParams
	answered []*bot.AnswerCallbackQueryParams
}

func (f *fakeBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, params)
	return &tgmodels.Message{ID: f.nextID}, nil
}

func (f *fakeBot) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*tgmodels.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, params)
	return &tgmodels.Message{ID: params.MessageID}, nil
}

func (f *fakeBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, params)
	return true, nil
}

type directMessage struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []directMessage
}

func (r *recordingNotifier) NotifyUser(chatID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, directMessage{chatID: chatID, text: text})
}

type handlerEnv struct {
	handler       *BotHandler
	api           *fakeBot
	notifier      *recordingNotifier
	queue         *db.DBQueue
	users         *db.UserRepository
	adminChats    *db.AdminChatRepository
	notifications *db.AdminNotificationRepository
	events        *services.EventManager
}

func setupHandler(t *testing.T) *handlerEnv {
	t.Helper()
	name := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	sqlDB, err := db.Open(name)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(sqlDB))
	queue := db.NewDBQueueForTest(sqlDB)
	t.Cleanup(func() {
		queue.Close()
		sqlDB.Close()
	})

	log := zap.NewNop()
	api := &fakeBot{}
	userRepo := db.NewUserRepository(queue)
	eventRepo := db.NewEventRepository(queue)
	adminChats := db.NewAdminChatRepository(queue)
	notifications := db.NewAdminNotificationRepository(queue)
	settings := db.NewSettingsRepository(queue)

	errMgr := services.NewErrorManager(api, adminChats, log)
	msgs := services.NewMessageManager(api, errMgr, log)
	users := services.NewUserManager(userRepo, eventRepo, nil, log)
	events := services.NewEventManager(eventRepo, settings, log)
	leaderboard := services.NewLeaderboardService(userRepo)
	notifier := &recordingNotifier{}

	h := NewBotHandler(errMgr, msgs, users, events, leaderboard, adminChats, notifications, settings, notifier, log)
	return &handlerEnv{
		handler:       h,
		api:           api,
		notifier:      notifier,
		queue:         queue,
		users:         userRepo,
		adminChats:    adminChats,
		notifications: notifications,
		events:        events,
	}
}

func (e *handlerEnv) addPending(t *testing.T, telegramID int64, nickname string) {
	t.Helper()
	require.NoError(t, e.users.UpsertAdmin(&models.User{TelegramID: telegramID, Nickname: nickname}))
	_, err := e.queue.DB().Exec(`UPDATE users SET is_admin = FALSE, is_active = FALSE WHERE telegram_id = ?`, telegramID)
	require.NoError(t, err)
}

func callbackUpdate(fromID, chatID int64, messageID int, data string) *tgmodels.Update {
	return &tgmodels.Update{
		CallbackQuery: &tgmodels.CallbackQuery{
			ID:   "cb1",
			From: tgmodels.User{ID: fromID},
			Data: data,
			Message: tgmodels.MaybeInaccessibleMessage{
				Type:    tgmodels.MaybeInaccessibleMessageTypeMessage,
				Message: &tgmodels.Message{ID: messageID, Chat: tgmodels.Chat{ID: chatID}},
			},
		},
	}
}

func messageUpdate(fromID int64, text string) *tgmodels.Update {
	return &tgmodels.Update{
		Message: &tgmodels.Message{
			ID:   1,
			From: &tgmodels.User{ID: fromID},
			Chat: tgmodels.Chat{ID: fromID},
			Text: text,
		},
	}
}

func TestApproveFromAdminChat(t *testing.T) {
	env := setupHandler(t)
	require.NoError(t, env.adminChats.Add(-100))
	require.NoError(t, env.adminChats.Add(-200))
	env.addPending(t, 42, "neo")
	require.NoError(t, env.notifications.Save(&models.AdminNotification{UserTID: 42, AdminChatID: -100, MessageID: 10}))
	require.NoError(t, env.notifications.Save(&models.AdminNotification{UserTID: 42, AdminChatID: -200, MessageID: 20}))

	env.handler.Handle(context.Background(), callbackUpdate(555, -100, 10, services.ApprovePrefix+"42"))

	user, err := env.users.GetByTelegramID(42)
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	require.Len(t, env.api.answered, 1)
	require.Len(t, env.api.edited, 2, "both admin chats get the decision")
	for _, e := range env.api.edited {
		assert.Contains(t, e.Text, "активирован")
	}

	pending, err := env.notifications.GetPendingByUser(42)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, int64(42), env.notifier.sent[0].chatID)
	assert.Contains(t, env.notifier.sent[0].text, "активирована")
}

func TestRejectDeletesUser(t *testing.T) {
	env := setupHandler(t)
	require.NoError(t, env.users.UpsertAdmin(&models.User{TelegramID: 1, Nickname: "admin"}))
	env.addPending(t, 42, "neo")

	env.handler.Handle(context.Background(), callbackUpdate(1, 1, 77, services.RejectPrefix+"42"))

	_, err := env.users.GetByTelegramID(42)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.Len(t, env.api.edited, 1, "callback message is edited when no notifications were stored")
	assert.Equal(t, 77, env.api.edited[0].MessageID)
	assert.Contains(t, env.api.edited[0].Text, "отклонена")

	require.Len(t, env.notifier.sent, 1)
	assert.Contains(t, env.notifier.sent[0].text, "отклонена")
}

func TestModerationRequiresAdmin(t *testing.T) {
	env := setupHandler(t)
	env.addPending(t, 42, "neo")
	env.addPending(t, 43, "intruder")

	env.handler.Handle(context.Background(), callbackUpdate(43, 43, 5, services.ApprovePrefix+"42"))

	user, err := env.users.GetByTelegramID(42)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	require.Len(t, env.api.answered, 1)
	assert.Contains(t, env.api.answered[0].Text, "прав")
	assert.Empty(t, env.notifier.sent)
}

func TestModerationUnknownUser(t *testing.T) {
	env := setupHandler(t)
	require.NoError(t, env.adminChats.Add(-100))

	env.handler.Handle(context.Background(), callbackUpdate(1, -100, 3, services.ApprovePrefix+"999"))

	require.Len(t, env.api.edited, 1)
	assert.Contains(t, env.api.edited[0].Text, "не найден")
	assert.Empty(t, env.notifier.sent)
}

func TestStartReportsStatus(t *testing.T) {
	env := setupHandler(t)
	env.addPending(t, 42, "neo")
	require.NoError(t, env.users.UpsertAdmin(&models.User{TelegramID: 1, Nickname: "admin"}))

	env.handler.Handle(context.Background(), messageUpdate(42, "/start"))
	env.handler.Handle(context.Background(), messageUpdate(1, "/start"))
	env.handler.Handle(context.Background(), messageUpdate(7, "/start"))

	require.Len(t, env.api.sent, 3)
	assert.Contains(t, env.api.sent[0].Text, "рассмотрении")
	assert.Contains(t, env.api.sent[1].Text, "/admin")
	assert.Contains(t, env.api.sent[2].Text, "не зарегистрированы")
}

func TestAdminCommands(t *testing.T) {
	env := setupHandler(t)
	require.NoError(t, env.users.UpsertAdmin(&models.User{TelegramID: 1, Nickname: "admin"}))
	env.addPending(t, 42, "neo")
	event, err := env.events.Create("Игра", 1)
	require.NoError(t, err)

	env.handler.Handle(context.Background(), messageUpdate(42, "/admin"))
	assert.Empty(t, env.api.sent, "non-admins get no menu")

	env.handler.Handle(context.Background(), messageUpdate(1, "/admin"))
	env.handler.Handle(context.Background(), messageUpdate(1, "/users"))
	env.handler.Handle(context.Background(), messageUpdate(1, "/top"))
	require.Len(t, env.api.sent, 3)
	assert.Contains(t, env.api.sent[0].Text, "Админ-панель")
	assert.Contains(t, env.api.sent[1].Text, "Участники")
	assert.Contains(t, env.api.sent[2].Text, "Рейтинг")

	env.handler.Handle(context.Background(), callbackUpdate(1, 1, 9, fmt.Sprintf("event_next:%d", event.ID)))
	stored, err := env.events.Status(event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventRegistration, stored.Status)
	require.NotEmpty(t, env.api.edited)
	assert.True(t, strings.Contains(env.api.edited[len(env.api.edited)-1].Text, "registration"))

	env.handler.Handle(context.Background(), callbackUpdate(1, 1, 9, "promote:42"))
	promoted, err := env.users.GetByTelegramID(42)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)
}

func TestFormatLeaderboardEscapes(t *testing.T) {
	text := FormatLeaderboard([]models.LeaderboardEntry{
		{Nickname: "a", FirstName: "<b>", Points: 3},
		{Nickname: "solo", Points: 1},
	})
	assert.Contains(t, text, "1. &lt;b&gt; — 3")
	assert.Contains(t, text, "2. @solo — 1")
	assert.Equal(t, "🏆 Рейтинг пуст", FormatLeaderboard(nil))
}
