package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/models"
)

func FormatBold(text string) string {
	return fmt.Sprintf("<b>%s</b>", html.EscapeString(text))
}

func FormatCode(text string) string {
	return fmt.Sprintf("<code>%s</code>", html.EscapeString(text))
}

// FormatRegistration renders the moderation request shown to admins.
func FormatRegistration(u *models.User) string {
	var sb strings.Builder
	sb.WriteString(FormatBold("Новая регистрация"))
	sb.WriteString("\n")
	sb.WriteString("Telegram ID: " + FormatCode(fmt.Sprint(u.TelegramID)) + "\n")
	sb.WriteString("Имя: " + html.EscapeString(u.FirstName) + "\n")
	sb.WriteString("Фамилия: " + html.EscapeString(u.LastName) + "\n")
	sb.WriteString("Никнейм: @" + html.EscapeString(u.Nickname) + "\n\n")
	sb.WriteString("Одобрить пользователя?")
	return sb.String()
}

// FormatDecision renders the admin message after moderation.
func FormatDecision(u *models.User, approved bool) string {
	if approved {
		return fmt.Sprintf("✅ Пользователь %s активирован.", html.EscapeString(u.DisplayName()))
	}
	return fmt.Sprintf("❌ Заявка %s отклонена.", html.EscapeString(u.DisplayName()))
}
