package models

import "time"

type Quiz struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	EventID     *int64    `json:"event_id"`
	AnswerLimit *int      `json:"answer_limit"`
	CreatedAt   time.Time `json:"created_at"`
}

type QuizBrief struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type QuizLimits struct {
	TotalQuestions   int `json:"total_questions"`
	Answered         int `json:"answered"`
	EffectiveLimit   int `json:"effective_limit"`
	RemainingAllowed int `json:"remaining_allowed"`
}

// NewQuizLimits derives the quota for a user. The effective limit is the
// quiz override when set, otherwise the question count. An override above
// the question count is reported as is.
func NewQuizLimits(total, answered int, override *int) QuizLimits {
	effective := total
	if override != nil {
		effective = *override
	}
	if effective < 0 {
		effective = 0
	}
	remaining := effective - answered
	if remaining < 0 {
		remaining = 0
	}
	return QuizLimits{
		TotalQuestions:   total,
		Answered:         answered,
		EffectiveLimit:   effective,
		RemainingAllowed: remaining,
	}
}
