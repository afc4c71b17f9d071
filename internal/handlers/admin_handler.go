package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/ad/go-telegram-quiz/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// AdminHandler serves the admin menu inside the bot. Callers check that the
// sender is an admin.
type AdminHandler struct {
	msgManager   *services.MessageManager
	userManager  *services.UserManager
	eventManager *services.EventManager
	leaderboard  *services.LeaderboardService
	log          *zap.Logger
}

func NewAdminHandler(
	msgManager *services.MessageManager,
	userManager *services.UserManager,
	eventManager *services.EventManager,
	leaderboard *services.LeaderboardService,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		msgManager:   msgManager,
		userManager:  userManager,
		eventManager: eventManager,
		leaderboard:  leaderboard,
		log:          log.Named("bot.admin"),
	}
}

func (h *AdminHandler) HandleCommand(ctx context.Context, msg *tgmodels.Message) bool {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "/admin":
		h.showAdminMenu(ctx, msg.Chat.ID, 0)
	case "/users":
		page := 1
		if len(fields) > 1 {
			if n, err := parseInt64(fields[1]); err == nil {
				page = int(n)
			}
		}
		h.showUserList(ctx, msg.Chat.ID, 0, page)
	case "/events":
		h.showEvents(ctx, msg.Chat.ID, 0)
	case "/top":
		limit := 0
		if len(fields) > 1 {
			if n, err := parseInt64(fields[1]); err == nil {
				limit = int(n)
			}
		}
		h.showLeaderboard(ctx, msg.Chat.ID, 0, limit)
	default:
		return false
	}
	return true
}

func (h *AdminHandler) HandleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) bool {
	msg := callback.Message.Message
	if msg == nil {
		return false
	}
	chatID, messageID := msg.Chat.ID, msg.ID
	data := callback.Data

	switch {
	case data == "admin:menu":
		h.showAdminMenu(ctx, chatID, messageID)
	case data == "admin:events":
		h.showEvents(ctx, chatID, messageID)
	case data == "admin:top":
		h.showLeaderboard(ctx, chatID, messageID, 0)
	case strings.HasPrefix(data, "userlist:"):
		h.handleUserListNavigation(ctx, chatID, messageID, data)
	case strings.HasPrefix(data, "user:"):
		h.showUserDetails(ctx, chatID, messageID, data)
	case strings.HasPrefix(data, "promote:"):
		h.handlePromote(ctx, chatID, messageID, data)
	case strings.HasPrefix(data, "event_next:"):
		h.handleNextPhase(ctx, chatID, messageID, data)
	default:
		return false
	}

	h.msgManager.AnswerCallback(ctx, callback.ID, "")
	return true
}

func (h *AdminHandler) editOrSend(ctx context.Context, chatID int64, messageID int, text string, keyboard *tgmodels.InlineKeyboardMarkup) {
	if messageID != 0 {
		if err := h.msgManager.EditText(ctx, chatID, messageID, text, keyboard); err != nil {
			h.log.Warn("edit failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return
	}
	h.sendMessage(ctx, chatID, text, keyboard)
}

func (h *AdminHandler) sendMessage(ctx context.Context, chatID int64, text string, keyboard *tgmodels.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	h.msgManager.SendWithRetry(ctx, params)
}

func backKeyboard() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{Text: "⬅️ Назад", CallbackData: "admin:menu"}},
		},
	}
}

func (h *AdminHandler) showAdminMenu(ctx context.Context, chatID int64, messageID int) {
	keyboard := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{Text: "👥 Участники", CallbackData: "userlist:1"}},
			{{Text: "🏁 События", CallbackData: "admin:events"}},
			{{Text: "🏆 Рейтинг", CallbackData: "admin:top"}},
		},
	}
	h.editOrSend(ctx, chatID, messageID, services.FormatBold("🔧 Админ-панель"), keyboard)
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

func (h *AdminHandler) showUserList(ctx context.Context, chatID int64, messageID int, page int) {
	result, err := h.userManager.GetUserListPage(page)
	if err != nil {
		h.editOrSend(ctx, chatID, messageID, "⚠️ Ошибка при получении списка пользователей", nil)
		return
	}

	if len(result.Users) == 0 {
		h.editOrSend(ctx, chatID, messageID, "👥 Участников пока нет", backKeyboard())
		return
	}

	text := fmt.Sprintf("👥 Участники (стр. %d/%d)", result.CurrentPage, result.TotalPages)
	h.editOrSend(ctx, chatID, messageID, text, buildUserListKeyboard(result))
}

func userButtonText(u *models.User) string {
	mark := "⏳"
	if u.IsActive {
		mark = "✅"
	}
	return mark + " " + truncateText(u.DisplayName(), 40)
}

func buildUserListKeyboard(page *services.UserListPage) *tgmodels.InlineKeyboardMarkup {
	var rows [][]tgmodels.InlineKeyboardButton

	for i := 0; i < len(page.Users); i += 2 {
		row := []tgmodels.InlineKeyboardButton{
			{Text: userButtonText(page.Users[i]), CallbackData: fmt.Sprintf("user:%d", page.Users[i].TelegramID)},
		}
		if i+1 < len(page.Users) {
			row = append(row, tgmodels.InlineKeyboardButton{
				Text:         userButtonText(page.Users[i+1]),
				CallbackData: fmt.Sprintf("user:%d", page.Users[i+1].TelegramID),
			})
		}
		rows = append(rows, row)
	}

	var navRow []tgmodels.InlineKeyboardButton
	if page.HasPrev {
		navRow = append(navRow, tgmodels.InlineKeyboardButton{Text: "◀️", CallbackData: fmt.Sprintf("userlist:%d", page.CurrentPage-1)})
	}
	if page.HasNext {
		navRow = append(navRow, tgmodels.InlineKeyboardButton{Text: "▶️", CallbackData: fmt.Sprintf("userlist:%d", page.CurrentPage+1)})
	}
	if len(navRow) > 0 {
		rows = append(rows, navRow)
	}

	rows = append(rows, []tgmodels.InlineKeyboardButton{
		{Text: "⬅️ Назад", CallbackData: "admin:menu"},
	})

	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (h *AdminHandler) handleUserListNavigation(ctx context.Context, chatID int64, messageID int, data string) {
	page, _ := parseInt64(strings.TrimPrefix(data, "userlist:"))
	if page < 1 {
		page = 1
	}
	h.showUserList(ctx, chatID, messageID, int(page))
}

func (h *AdminHandler) showUserDetails(ctx context.Context, chatID int64, messageID int, data string) {
	telegramID, _ := parseInt64(strings.TrimPrefix(data, "user:"))
	if telegramID == 0 {
		return
	}

	user, err := h.userManager.GetUser(telegramID)
	if err != nil {
		h.editOrSend(ctx, chatID, messageID, "⚠️ Пользователь не найден", backKeyboard())
		return
	}
	h.editOrSend(ctx, chatID, messageID, FormatUserDetails(user), BuildUserDetailsKeyboard(user))
}

func FormatUserDetails(u *models.User) string {
	var sb strings.Builder
	sb.WriteString(services.FormatBold(u.DisplayName()))
	sb.WriteString("\n\n")

	status := "⏳ ожидает подтверждения"
	if u.IsActive {
		status = "✅ активен"
	}
	sb.WriteString("Статус: " + status + "\n")
	if u.IsAdmin {
		sb.WriteString("Роль: администратор\n")
	}
	sb.WriteString(fmt.Sprintf("Очки: %d\n", u.Points))
	sb.WriteString("Зарегистрирован: " + html.EscapeString(u.CreatedAt.Format("02.01.2006 15:04")))
	return sb.String()
}

func BuildUserDetailsKeyboard(u *models.User) *tgmodels.InlineKeyboardMarkup {
	var rows [][]tgmodels.InlineKeyboardButton
	if !u.IsActive {
		rows = append(rows, []tgmodels.InlineKeyboardButton{
			{Text: "✅ Активировать", CallbackData: fmt.Sprintf("%s%d", services.ApprovePrefix, u.TelegramID)},
			{Text: "❌ Отклонить", CallbackData: fmt.Sprintf("%s%d", services.RejectPrefix, u.TelegramID)},
		})
	}
	if !u.IsAdmin {
		rows = append(rows, []tgmodels.InlineKeyboardButton{
			{Text: "⭐ Сделать админом", CallbackData: fmt.Sprintf("promote:%d", u.TelegramID)},
		})
	}
	rows = append(rows, []tgmodels.InlineKeyboardButton{
		{Text: "⬅️ К списку", CallbackData: "userlist:1"},
	})
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (h *AdminHandler) handlePromote(ctx context.Context, chatID int64, messageID int, data string) {
	telegramID, _ := parseInt64(strings.TrimPrefix(data, "promote:"))
	if telegramID == 0 {
		return
	}
	user, err := h.userManager.Promote(telegramID)
	if err != nil {
		h.editOrSend(ctx, chatID, messageID, "⚠️ "+html.EscapeString(err.Error()), backKeyboard())
		return
	}
	h.editOrSend(ctx, chatID, messageID, FormatUserDetails(user), BuildUserDetailsKeyboard(user))
}

func (h *AdminHandler) showEvents(ctx context.Context, chatID int64, messageID int) {
	events, err := h.eventManager.List()
	if err != nil {
		h.editOrSend(ctx, chatID, messageID, "⚠️ Ошибка при получении событий", backKeyboard())
		return
	}
	if len(events) == 0 {
		h.editOrSend(ctx, chatID, messageID, "🏁 Событий пока нет", backKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString(services.FormatBold("🏁 События"))
	var rows [][]tgmodels.InlineKeyboardButton
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("\n\n#%d %s — %s, квизов: %d", e.ID, html.EscapeString(e.Name), e.Status, len(e.Quizzes)))
		if e.Status != models.EventFinished {
			rows = append(rows, []tgmodels.InlineKeyboardButton{
				{Text: fmt.Sprintf("⏭ #%d: следующая фаза", e.ID), CallbackData: fmt.Sprintf("event_next:%d", e.ID)},
			})
		}
	}
	rows = append(rows, backKeyboard().InlineKeyboard...)
	h.editOrSend(ctx, chatID, messageID, sb.String(), &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (h *AdminHandler) handleNextPhase(ctx context.Context, chatID int64, messageID int, data string) {
	eventID, _ := parseInt64(strings.TrimPrefix(data, "event_next:"))
	if eventID == 0 {
		return
	}
	if _, err := h.eventManager.NextPhase(eventID); err != nil {
		h.log.Warn("next phase failed", zap.Int64("event_id", eventID), zap.Error(err))
	}
	h.showEvents(ctx, chatID, messageID)
}

func (h *AdminHandler) showLeaderboard(ctx context.Context, chatID int64, messageID int, limit int) {
	entries, err := h.leaderboard.Top(ctx, limit)
	if err != nil {
		h.editOrSend(ctx, chatID, messageID, "⚠️ Ошибка при получении рейтинга", backKeyboard())
		return
	}
	h.editOrSend(ctx, chatID, messageID, FormatLeaderboard(entries), backKeyboard())
}

func FormatLeaderboard(entries []models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🏆 Рейтинг пуст"
	}
	var sb strings.Builder
	sb.WriteString(services.FormatBold("🏆 Рейтинг"))
	for i, e := range entries {
		name := strings.TrimSpace(e.FirstName + " " + e.LastName)
		if name == "" {
			name = "@" + e.Nickname
		}
		sb.WriteString(fmt.Sprintf("\n%d. %s — %d", i+1, html.EscapeString(name), e.Points))
	}
	return sb.String()
}
