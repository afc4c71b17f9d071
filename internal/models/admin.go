package models

type AdminNotification struct {
	ID          int64
	UserTID     int64
	AdminChatID int64
	MessageID   int
	Status      ModerationStatus
}
