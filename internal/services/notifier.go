package services

import (
	"context"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	ApprovePrefix = "approve_tg:"
	RejectPrefix  = "reject_tg:"
)

// RegistrationNotifier is told about new applications after they are stored.
type RegistrationNotifier interface {
	NotifyRegistration(user *models.User)
}

type notification struct {
	registration *models.User
	chatID       int64
	text         string
}

// Notifier delivers outbound Telegram messages from a single worker so that
// request handlers never wait on the Telegram API. Delivery failures are
// logged and dropped.
type Notifier struct {
	jobs          chan notification
	messages      *MessageManager
	adminChats    *db.AdminChatRepository
	notifications *db.AdminNotificationRepository
	log           *zap.Logger
}

func NewNotifier(messages *MessageManager, adminChats *db.AdminChatRepository, notifications *db.AdminNotificationRepository, log *zap.Logger) *Notifier {
	return &Notifier{
		jobs:          make(chan notification, 100),
		messages:      messages,
		adminChats:    adminChats,
		notifications: notifications,
		log:           log.Named("notifier"),
	}
}

func ModerationKeyboard(telegramID int64) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
			{Text: "✅ Активировать", CallbackData: fmt.Sprintf("%s%d", ApprovePrefix, telegramID)},
			{Text: "❌ Отклонить", CallbackData: fmt.Sprintf("%s%d", RejectPrefix, telegramID)},
		}},
	}
}

func (n *Notifier) NotifyRegistration(user *models.User) {
	n.enqueue(notification{registration: user})
}

// NotifyUser queues a direct message to a chat.
func (n *Notifier) NotifyUser(chatID int64, text string) {
	n.enqueue(notification{chatID: chatID, text: text})
}

func (n *Notifier) enqueue(job notification) {
	select {
	case n.jobs <- job:
	default:
		n.log.Warn("notification queue full, dropping message")
	}
}

// Run processes notifications until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-n.jobs:
			n.deliver(ctx, job)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, job notification) {
	if job.registration != nil {
		n.sendModerationRequest(ctx, job.registration)
		return
	}
	if _, err := n.messages.SendWithRetry(ctx, &bot.SendMessageParams{
		ChatID:    job.chatID,
		Text:      job.text,
		ParseMode: tgmodels.ParseModeHTML,
	}); err != nil {
		n.log.Warn("direct message failed", zap.Int64("chat_id", job.chatID), zap.Error(err))
	}
}

func (n *Notifier) sendModerationRequest(ctx context.Context, user *models.User) {
	chats, err := n.adminChats.GetAll()
	if err != nil {
		n.log.Error("failed to load admin chats", zap.Error(err))
		return
	}
	if len(chats) == 0 {
		n.log.Warn("no admin chats configured, registration left unannounced", zap.Int64("telegram_id", user.TelegramID))
		return
	}

	text := FormatRegistration(user)
	for _, chatID := range chats {
		msg, err := n.messages.SendWithRetry(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        text,
			ParseMode:   tgmodels.ParseModeHTML,
			ReplyMarkup: ModerationKeyboard(user.TelegramID),
		})
		if err != nil {
			n.log.Warn("failed to notify admin chat", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		if err := n.notifications.Save(&models.AdminNotification{
			UserTID:     user.TelegramID,
			AdminChatID: chatID,
			MessageID:   msg.ID,
		}); err != nil {
			n.log.Error("failed to record admin notification", zap.Error(err))
		}
	}
}
