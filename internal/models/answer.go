package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type UserAnswer struct {
	ID            int64
	UserID        int64
	QuestionID    int64
	QuizID        int64
	Answers       StringList
	Locale        string
	PointsAwarded int
	CreatedAt     time.Time
}

// AnswerPayload accepts either a JSON string or a JSON array of strings and
// always holds a list.
type AnswerPayload []string

func (p *AnswerPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = AnswerPayload{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = AnswerPayload{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("answers must be a string or a list of strings: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	*p = list
	return nil
}

type SubmissionResult struct {
	AnswerID        int64      `json:"answer_id"`
	AwardedPoints   int        `json:"awarded_points"`
	UserPointsTotal int        `json:"user_points_total"`
	Limits          QuizLimits `json:"limits"`
}
