package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BotAPI is the subset of the Telegram client used by the services.
// *bot.Bot satisfies it.
type BotAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*tgmodels.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

var ErrBotDisabled = errors.New("telegram bot is not configured")

type MessageManager struct {
	api      BotAPI
	errMgr   *ErrorManager
	maxRetry int
	log      *zap.Logger
}

func NewMessageManager(api BotAPI, errMgr *ErrorManager, log *zap.Logger) *MessageManager {
	return &MessageManager{
		api:      api,
		errMgr:   errMgr,
		maxRetry: 2,
		log:      log.Named("messages"),
	}
}

func (m *MessageManager) Enabled() bool {
	return m.api != nil
}

func (m *MessageManager) SendWithRetry(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	if m.api == nil {
		m.log.Debug("bot disabled, message dropped", zap.Any("chat_id", params.ChatID))
		return nil, ErrBotDisabled
	}
	var lastErr error
	for attempt := 0; attempt < m.maxRetry; attempt++ {
		msg, err := m.api.SendMessage(ctx, params)
		if err == nil {
			return msg, nil
		}
		lastErr = err
	}
	chatID, _ := params.ChatID.(int64)
	m.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(lastErr))
	if m.errMgr != nil {
		m.errMgr.NotifyAdminWithCurl(ctx, chatID, params, lastErr)
	}
	return nil, lastErr
}

// EditText replaces the text of a sent message. When Telegram no longer has
// the message, the text is sent as a new one.
func (m *MessageManager) EditText(ctx context.Context, chatID int64, messageID int, text string, keyboard *tgmodels.InlineKeyboardMarkup) error {
	if m.api == nil {
		return ErrBotDisabled
	}
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := m.api.EditMessageText(ctx, params)
	if isMessageNotFoundError(err) {
		send := &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: tgmodels.ParseModeHTML}
		if keyboard != nil {
			send.ReplyMarkup = keyboard
		}
		_, err = m.SendWithRetry(ctx, send)
	}
	return err
}

func isMessageNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "message to edit not found") ||
		strings.Contains(errStr, "MESSAGE_ID_INVALID")
}

func (m *MessageManager) AnswerCallback(ctx context.Context, callbackID, text string) {
	if m.api == nil {
		return
	}
	if _, err := m.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		m.log.Debug("callback ack failed", zap.Error(err))
	}
}
