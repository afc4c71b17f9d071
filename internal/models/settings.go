package models

// BotTexts holds the user-facing messages the moderation bot sends.
type BotTexts struct {
	ApprovedMessage string
	RejectedMessage string
	StartActive     string
	StartPending    string
	StartUnknown    string
}
