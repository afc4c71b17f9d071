package models

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Nickname   string    `json:"nickname"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsAdmin    bool      `json:"is_admin"`
	IsActive   bool      `json:"is_active"`
	Points     int       `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	if u.Nickname != "" {
		parts = append(parts, fmt.Sprintf("@%s", u.Nickname))
	}
	parts = append(parts, fmt.Sprintf("[%d]", u.TelegramID))
	return strings.Join(parts, " ")
}

// Registration is the payload of a new participant application.
type Registration struct {
	TelegramID int64  `json:"telegram_id"`
	Nickname   string `json:"nickname"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

type LeaderboardEntry struct {
	TelegramID int64  `json:"telegram_id"`
	Nickname   string `json:"nickname"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Points     int    `json:"points"`
}
