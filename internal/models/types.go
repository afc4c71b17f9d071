package models

import "fmt"

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionOpen     QuestionType = "open"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionOpen:
		return true
	}
	return false
}

func ParseQuestionType(s string) (QuestionType, error) {
	t := QuestionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown question type %q", ErrValidation, s)
	}
	return t, nil
}

type EventStatus string

const (
	EventNotStarted   EventStatus = "not_started"
	EventRegistration EventStatus = "registration"
	EventStarted      EventStatus = "started"
	EventFinished     EventStatus = "finished"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)
