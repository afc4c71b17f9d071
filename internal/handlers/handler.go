package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/ad/go-telegram-quiz/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// UserNotifier queues direct messages to participants.
type UserNotifier interface {
	NotifyUser(chatID int64, text string)
}

type BotHandler struct {
	errorManager  *services.ErrorManager
	msgManager    *services.MessageManager
	userManager   *services.UserManager
	eventManager  *services.EventManager
	adminChats    *db.AdminChatRepository
	notifications *db.AdminNotificationRepository
	settingsRepo  *db.SettingsRepository
	notifier      UserNotifier
	adminHandler  *AdminHandler
	log           *zap.Logger
}

func NewBotHandler(
	errorManager *services.ErrorManager,
	msgManager *services.MessageManager,
	userManager *services.UserManager,
	eventManager *services.EventManager,
	leaderboard *services.LeaderboardService,
	adminChats *db.AdminChatRepository,
	notifications *db.AdminNotificationRepository,
	settingsRepo *db.SettingsRepository,
	notifier UserNotifier,
	log *zap.Logger,
) *BotHandler {
	return &BotHandler{
		errorManager:  errorManager,
		msgManager:    msgManager,
		userManager:   userManager,
		eventManager:  eventManager,
		adminChats:    adminChats,
		notifications: notifications,
		settingsRepo:  settingsRepo,
		notifier:      notifier,
		adminHandler:  NewAdminHandler(msgManager, userManager, eventManager, leaderboard, log),
		log:           log.Named("bot"),
	}
}

func (h *BotHandler) HandleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	h.Handle(ctx, update)
}

// Handle dispatches one update. Panics are reported to the admin chat.
func (h *BotHandler) Handle(ctx context.Context, update *tgmodels.Update) {
	defer h.recoverPanic(ctx, update)

	if update.Message != nil {
		h.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *BotHandler) recoverPanic(ctx context.Context, update *tgmodels.Update) {
	if r := recover(); r != nil {
		h.errorManager.NotifyAdmin(ctx, r, update)
	}
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *tgmodels.Message) {
	if msg.From == nil {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "/start" || strings.HasPrefix(text, "/start ") {
		h.handleStart(ctx, msg)
		return
	}

	if strings.HasPrefix(text, "/") && h.isAdmin(msg.From.ID) {
		h.adminHandler.HandleCommand(ctx, msg)
	}
}

func (h *BotHandler) handleStart(ctx context.Context, msg *tgmodels.Message) {
	texts, err := h.settingsRepo.GetBotTexts()
	if err != nil {
		h.log.Error("failed to load bot texts", zap.Error(err))
		texts = &models.BotTexts{}
	}

	var reply string
	user, err := h.userManager.GetUser(msg.From.ID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		reply = texts.StartUnknown
		if open, err := h.eventManager.RegistrationOpen(); err == nil && !open {
			reply += "\n\n" + h.eventManager.PhaseMessage(models.EventNotStarted)
		}
	case err != nil:
		h.log.Error("failed to load user", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
		reply = "⚠️ Ошибка, попробуйте позже"
	case user.IsActive:
		reply = texts.StartActive
		if user.IsAdmin {
			reply += "\n\nКоманды администратора: /admin"
		}
	default:
		reply = texts.StartPending
	}

	h.msgManager.SendWithRetry(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   reply,
	})
}

func (h *BotHandler) handleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) {
	switch {
	case strings.HasPrefix(callback.Data, services.ApprovePrefix):
		h.handleModeration(ctx, callback, true)
	case strings.HasPrefix(callback.Data, services.RejectPrefix):
		h.handleModeration(ctx, callback, false)
	default:
		if h.isAdmin(callback.From.ID) && h.adminHandler.HandleCallback(ctx, callback) {
			return
		}
		h.msgManager.AnswerCallback(ctx, callback.ID, "")
	}
}

func (h *BotHandler) isAdmin(telegramID int64) bool {
	ok, err := h.userManager.IsAdmin(telegramID)
	if err != nil {
		h.log.Error("admin check failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return false
	}
	return ok
}

// canModerate allows registered admin chats and admin users.
func (h *BotHandler) canModerate(callback *tgmodels.CallbackQuery) bool {
	if msg := callback.Message.Message; msg != nil {
		if ok, err := h.adminChats.IsAdminChat(msg.Chat.ID); err == nil && ok {
			return true
		}
	}
	return h.isAdmin(callback.From.ID)
}

func (h *BotHandler) handleModeration(ctx context.Context, callback *tgmodels.CallbackQuery, approve bool) {
	prefix := services.RejectPrefix
	if approve {
		prefix = services.ApprovePrefix
	}
	telegramID, err := strconv.ParseInt(strings.TrimPrefix(callback.Data, prefix), 10, 64)
	if err != nil || telegramID == 0 {
		h.msgManager.AnswerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}

	if !h.canModerate(callback) {
		h.log.Warn("moderation denied", zap.Int64("from", callback.From.ID), zap.Int64("target", telegramID))
		h.msgManager.AnswerCallback(ctx, callback.ID, "⛔ Недостаточно прав")
		return
	}
	h.msgManager.AnswerCallback(ctx, callback.ID, "")

	var user *models.User
	status := models.ModerationRejected
	if approve {
		status = models.ModerationApproved
		user, err = h.userManager.Activate(telegramID)
	} else {
		user, err = h.userManager.Reject(telegramID)
	}
	if errors.Is(err, models.ErrNotFound) {
		h.editDecision(ctx, callback, telegramID, fmt.Sprintf("⚠️ Пользователь [%d] не найден", telegramID))
		h.resolve(telegramID, status)
		return
	}
	if err != nil {
		h.log.Error("moderation failed", zap.Int64("target", telegramID), zap.Bool("approve", approve), zap.Error(err))
		return
	}

	h.editDecision(ctx, callback, telegramID, services.FormatDecision(user, approve))
	h.resolve(telegramID, status)
	h.notifyDecision(telegramID, approve)

	h.log.Info("registration moderated",
		zap.Int64("target", telegramID),
		zap.Int64("by", callback.From.ID),
		zap.String("status", string(status)),
	)
}

// editDecision rewrites every pending moderation message of the applicant.
// When none were recorded, the message that carried the button is edited.
func (h *BotHandler) editDecision(ctx context.Context, callback *tgmodels.CallbackQuery, telegramID int64, text string) {
	pending, err := h.notifications.GetPendingByUser(telegramID)
	if err != nil {
		h.log.Error("failed to load admin notifications", zap.Error(err))
	}

	edited := false
	for _, n := range pending {
		if err := h.msgManager.EditText(ctx, n.AdminChatID, n.MessageID, text, nil); err != nil {
			h.log.Warn("failed to edit admin message", zap.Int64("chat_id", n.AdminChatID), zap.Error(err))
			continue
		}
		if msg := callback.Message.Message; msg != nil && msg.Chat.ID == n.AdminChatID && msg.ID == n.MessageID {
			edited = true
		}
	}

	if msg := callback.Message.Message; msg != nil && !edited {
		if err := h.msgManager.EditText(ctx, msg.Chat.ID, msg.ID, text, nil); err != nil {
			h.log.Warn("failed to edit callback message", zap.Error(err))
		}
	}
}

func (h *BotHandler) resolve(telegramID int64, status models.ModerationStatus) {
	if err := h.notifications.Resolve(telegramID, status); err != nil {
		h.log.Error("failed to resolve admin notifications", zap.Int64("target", telegramID), zap.Error(err))
	}
}

func (h *BotHandler) notifyDecision(telegramID int64, approved bool) {
	if h.notifier == nil {
		return
	}
	texts, err := h.settingsRepo.GetBotTexts()
	if err != nil {
		h.log.Error("failed to load bot texts", zap.Error(err))
		return
	}
	text := texts.RejectedMessage
	if approved {
		text = texts.ApprovedMessage
	}
	if text != "" {
		h.notifier.NotifyUser(telegramID, text)
	}
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
