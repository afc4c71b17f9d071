package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LocalizedText maps a locale code ("ru", "en") to a string.
type LocalizedText map[string]string

// LocalizedList maps a locale code to a list of strings.
type LocalizedList map[string][]string

func (t LocalizedText) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	b, err := json.Marshal(t)
	return string(b), err
}

func (t *LocalizedText) Scan(src any) error {
	return scanJSON(src, t)
}

func (l LocalizedList) Value() (driver.Value, error) {
	if l == nil {
		return "{}", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *LocalizedList) Scan(src any) error {
	return scanJSON(src, l)
}

// StringList is a JSON encoded list column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (s *StringList) Scan(src any) error {
	return scanJSON(src, s)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}

type Question struct {
	ID              int64         `json:"id"`
	QuizID          int64         `json:"quiz_id"`
	Type            QuestionType  `json:"type"`
	Text            LocalizedText `json:"text"`
	Options         LocalizedList `json:"options"`
	CorrectAnswers  LocalizedList `json:"correct_answers"`
	Points          int           `json:"points"`
	DurationSeconds *int          `json:"duration_seconds,omitempty"`
	Images          StringList    `json:"images"`
	CreatedAt       time.Time     `json:"created_at"`
}

// QuestionView is a question resolved to a single locale, without correct answers.
type QuestionView struct {
	ID              int64        `json:"id"`
	QuizID          int64        `json:"quiz_id"`
	Type            QuestionType `json:"type"`
	Locale          string       `json:"locale"`
	Text            string       `json:"text"`
	Options         []string     `json:"options"`
	Points          int          `json:"points"`
	DurationSeconds *int         `json:"duration_seconds,omitempty"`
	Images          []string     `json:"images"`
}
