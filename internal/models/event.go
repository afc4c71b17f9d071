package models

import "time"

type Event struct {
	ID                   int64       `json:"id"`
	Name                 string      `json:"name"`
	Status               EventStatus `json:"status"`
	CurrentQuestionIndex int         `json:"current_question_index"`
	CreatorID            int64       `json:"creator_id"`
	CreatedAt            time.Time   `json:"created_at"`
	Quizzes              []QuizBrief `json:"quizzes,omitempty"`
}
