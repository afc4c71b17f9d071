package services

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// AdminChatSource lists the chats that receive operational alerts.
type AdminChatSource interface {
	GetAll() ([]int64, error)
}

type ErrorManager struct {
	api   BotAPI
	chats AdminChatSource
	log   *zap.Logger
}

func NewErrorManager(api BotAPI, chats AdminChatSource, log *zap.Logger) *ErrorManager {
	return &ErrorManager{
		api:   api,
		chats: chats,
		log:   log.Named("errors"),
	}
}

func (e *ErrorManager) primaryChat() (int64, bool) {
	if e.api == nil || e.chats == nil {
		return 0, false
	}
	ids, err := e.chats.GetAll()
	if err != nil || len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

func (e *ErrorManager) NotifyAdmin(ctx context.Context, panicValue interface{}, update *models.Update) {
	userInfo := "unknown"

	if update != nil {
		if update.Message != nil && update.Message.From != nil {
			userInfo = fmt.Sprintf("[%d]", update.Message.From.ID)
			if update.Message.From.FirstName != "" {
				userInfo = update.Message.From.FirstName + " " + userInfo
			}
			if update.Message.From.Username != "" {
				userInfo = userInfo + " @" + update.Message.From.Username
			}
		} else if update.CallbackQuery != nil && update.CallbackQuery.From.ID != 0 {
			userInfo = fmt.Sprintf("[%d]", update.CallbackQuery.From.ID)
			if update.CallbackQuery.From.FirstName != "" {
				userInfo = update.CallbackQuery.From.FirstName + " " + userInfo
			}
			if update.CallbackQuery.From.Username != "" {
				userInfo = userInfo + " @" + update.CallbackQuery.From.Username
			}
		}
	}

	stack := string(debug.Stack())
	e.log.Error("panic in bot handler", zap.String("user", userInfo), zap.Any("panic", panicValue), zap.String("stack", stack))

	chatID, ok := e.primaryChat()
	if !ok {
		return
	}
	msg := truncate(fmt.Sprintf("🚨 Panic in handler\nUser: %s\nError: %v\n\nStack trace:\n%s",
		userInfo, panicValue, stack))

	_, _ = e.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   msg,
	})
}

func (e *ErrorManager) NotifyAdminWithCurl(ctx context.Context, chatID int64, request interface{}, err error) {
	adminChat, ok := e.primaryChat()
	if !ok || adminChat == chatID {
		return
	}

	msg := truncate(fmt.Sprintf("❌ Failed to send message\nChat: [%d]\nError: %v\n\nCurl:\n%s",
		chatID, err, e.buildCurlCommand(request)))

	_, _ = e.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: adminChat,
		Text:   msg,
	})
}

func (e *ErrorManager) buildCurlCommand(request interface{}) string {
	jsonData, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return fmt.Sprintf("# Failed to serialize request: %v", err)
	}

	return fmt.Sprintf("curl -X POST 'https://api.telegram.org/bot[BOT_TOKEN]/sendMessage' \\\n  -H 'Content-Type: application/json' \\\n  -d '%s'",
		string(jsonData))
}

func truncate(msg string) string {
	if len(msg) > 4000 {
		return msg[:4000] + "\n... (truncated)"
	}
	return msg
}
