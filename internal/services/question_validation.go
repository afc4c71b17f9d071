package services

import (
	"fmt"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/models"
)

// ValidateQuestion checks the structural invariants of a question and fills
// defaults. It returns an error wrapping models.ErrValidation.
func ValidateQuestion(q *models.Question) error {
	if !q.Type.Valid() {
		return fmt.Errorf("%w: unknown question type %q", models.ErrValidation, q.Type)
	}
	if q.Points == 0 {
		q.Points = 1
	}
	if q.Points < 1 {
		return fmt.Errorf("%w: points must be at least 1", models.ErrValidation)
	}
	if q.DurationSeconds != nil && *q.DurationSeconds < 0 {
		return fmt.Errorf("%w: duration_seconds must not be negative", models.ErrValidation)
	}
	if !hasText(q.Text) {
		return fmt.Errorf("%w: question text is required in at least one locale", models.ErrValidation)
	}
	if q.Options == nil {
		q.Options = models.LocalizedList{}
	}
	if q.CorrectAnswers == nil {
		q.CorrectAnswers = models.LocalizedList{}
	}
	if q.Images == nil {
		q.Images = models.StringList{}
	}

	switch q.Type {
	case models.QuestionOpen:
		for locale, opts := range q.Options {
			if len(opts) > 0 {
				return fmt.Errorf("%w: open question must not have options (locale %s)", models.ErrValidation, locale)
			}
		}
	case models.QuestionSingle, models.QuestionMultiple:
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: %s question needs options", models.ErrValidation, q.Type)
		}
		if len(q.CorrectAnswers) == 0 {
			return fmt.Errorf("%w: %s question needs correct answers", models.ErrValidation, q.Type)
		}
		for locale, opts := range q.Options {
			if len(opts) == 0 {
				return fmt.Errorf("%w: empty options for locale %s", models.ErrValidation, locale)
			}
			if _, ok := q.CorrectAnswers[locale]; !ok {
				return fmt.Errorf("%w: no correct answers for locale %s", models.ErrValidation, locale)
			}
		}
		for locale, correct := range q.CorrectAnswers {
			opts, ok := q.Options[locale]
			if !ok {
				return fmt.Errorf("%w: correct answers for locale %s have no options", models.ErrValidation, locale)
			}
			if q.Type == models.QuestionSingle && len(correct) != 1 {
				return fmt.Errorf("%w: single question needs exactly one correct answer for locale %s", models.ErrValidation, locale)
			}
			if len(correct) == 0 {
				return fmt.Errorf("%w: no correct answers for locale %s", models.ErrValidation, locale)
			}
			allowed := toSet(opts)
			for _, c := range correct {
				if !allowed[c] {
					return fmt.Errorf("%w: correct answer %q is not an option for locale %s", models.ErrValidation, c, locale)
				}
			}
		}
	}
	return nil
}

func hasText(t models.LocalizedText) bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
