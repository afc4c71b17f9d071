package services

import (
	"strings"
	"testing"

	"github.com/ad/go-telegram-quiz/internal/models"
	"pgregory.net/rapid"
)

func newTestEvaluator() *AnswerEvaluator {
	return NewAnswerEvaluator(NewLocaleResolver(DefaultLocale), true)
}

var optionLetters = []string{"A", "B", "C", "D", "E", "F"}

func TestEvaluatorBounds_Property(t *testing.T) {
	e := newTestEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		qtype := rapid.SampledFrom([]models.QuestionType{
			models.QuestionSingle, models.QuestionMultiple, models.QuestionOpen, "essay",
		}).Draw(rt, "type")
		points := rapid.IntRange(1, 20).Draw(rt, "points")
		correct := rapid.SliceOfDistinct(rapid.SampledFrom(optionLetters), rapid.ID[string]).Draw(rt, "correct")
		answers := rapid.SliceOf(rapid.SampledFrom(append(optionLetters, "a", " A "))).Draw(rt, "answers")
		locale := rapid.SampledFrom([]string{"", "ru", "en", "de"}).Draw(rt, "locale")

		q := &models.Question{
			Type:           qtype,
			Points:         points,
			Options:        models.LocalizedList{"ru": optionLetters},
			CorrectAnswers: models.LocalizedList{"ru": correct},
		}

		got := e.Evaluate(q, answers, locale)
		if got < 0 || got > points {
			rt.Fatalf("score %d outside [0, %d]", got, points)
		}
		if !qtype.Valid() && got != 0 {
			rt.Fatalf("unknown type must score 0, got %d", got)
		}
	})
}

func TestEvaluatorMultipleFormula_Property(t *testing.T) {
	e := newTestEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		points := rapid.IntRange(1, 20).Draw(rt, "points")
		correct := rapid.SliceOfNDistinct(rapid.SampledFrom(optionLetters), 1, len(optionLetters), rapid.ID[string]).Draw(rt, "correct")
		answers := rapid.SliceOf(rapid.SampledFrom(optionLetters)).Draw(rt, "answers")

		q := &models.Question{
			Type:           models.QuestionMultiple,
			Points:         points,
			CorrectAnswers: models.LocalizedList{"ru": correct},
		}
		got := e.Evaluate(q, answers, "ru")

		correctSet := toSet(correct)
		given := toSet(answers)
		hits := 0
		for a := range given {
			if correctSet[a] {
				hits++
			}
		}

		switch {
		case len(given) == len(correctSet) && hits == len(correctSet):
			if got != points {
				rt.Fatalf("exact set must earn %d, got %d", points, got)
			}
		case hits == 0:
			if got != 0 {
				rt.Fatalf("disjoint set must earn 0, got %d", got)
			}
		default:
			if want := points * hits / len(correctSet); got != want {
				rt.Fatalf("expected floor(%d*%d/%d)=%d, got %d", points, hits, len(correctSet), want, got)
			}
		}
	})
}

func TestEvaluatorMultipleMonotonic_Property(t *testing.T) {
	e := newTestEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		points := rapid.IntRange(1, 20).Draw(rt, "points")
		correct := rapid.SliceOfNDistinct(rapid.SampledFrom(optionLetters), 2, len(optionLetters), rapid.ID[string]).Draw(rt, "correct")
		q := &models.Question{
			Type:           models.QuestionMultiple,
			Points:         points,
			CorrectAnswers: models.LocalizedList{"ru": correct},
		}

		prev := -1
		for i := 0; i <= len(correct); i++ {
			got := e.Evaluate(q, correct[:i], "ru")
			if got < prev {
				rt.Fatalf("score decreased from %d to %d when adding a correct option", prev, got)
			}
			prev = got
		}
	})
}

func TestEvaluatorOpenNormalization_Property(t *testing.T) {
	e := newTestEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.StringMatching(`[a-zа-я]{3,10}`).Draw(rt, "base")
		variant := rapid.SampledFrom([]string{
			strings.ToUpper(base),
			"  " + base + "\t",
			capitalize(base),
		}).Draw(rt, "variant")

		q := &models.Question{
			Type:           models.QuestionOpen,
			Points:         5,
			CorrectAnswers: models.LocalizedList{"ru": {base}},
		}
		if got := e.Evaluate(q, []string{variant}, "ru"); got != 5 {
			rt.Fatalf("variant %q of %q must match, got %d", variant, base, got)
		}
	})
}

func TestEvaluatorCases(t *testing.T) {
	e := newTestEvaluator()

	tests := []struct {
		name     string
		question *models.Question
		answers  []string
		locale   string
		want     int
	}{
		{
			name: "multiple partial credit across alphabets",
			question: &models.Question{Type: models.QuestionMultiple, Points: 2,
				CorrectAnswers: models.LocalizedList{"ru": {"A", "E"}}},
			answers: []string{"A", "Б"}, locale: "ru", want: 1,
		},
		{
			name: "multiple superset keeps full intersection",
			question: &models.Question{Type: models.QuestionMultiple, Points: 4,
				CorrectAnswers: models.LocalizedList{"ru": {"A", "B"}}},
			answers: []string{"A", "B", "C"}, locale: "ru", want: 4,
		},
		{
			name: "multiple duplicates collapse",
			question: &models.Question{Type: models.QuestionMultiple, Points: 3,
				CorrectAnswers: models.LocalizedList{"ru": {"A", "B"}}},
			answers: []string{"A", "A", "B"}, locale: "ru", want: 3,
		},
		{
			name: "multiple empty correct set",
			question: &models.Question{Type: models.QuestionMultiple, Points: 3,
				CorrectAnswers: models.LocalizedList{"en": {"A"}}},
			answers: []string{"A"}, locale: "de", want: 0,
		},
		{
			name: "open with diacritics",
			question: &models.Question{Type: models.QuestionOpen, Points: 1,
				CorrectAnswers: models.LocalizedList{"en": {"Café"}}},
			answers: []string{" CAFE "}, locale: "en", want: 1,
		},
		{
			name: "open decomposed input",
			question: &models.Question{Type: models.QuestionOpen, Points: 1,
				CorrectAnswers: models.LocalizedList{"ru": {"ёлка"}}},
			answers: []string{"Ёлка"}, locale: "ru", want: 1,
		},
		{
			name: "open uses first element only",
			question: &models.Question{Type: models.QuestionOpen, Points: 1,
				CorrectAnswers: models.LocalizedList{"ru": {"Paris"}}},
			answers: []string{"London", "Paris"}, locale: "ru", want: 0,
		},
		{
			name: "open empty submission",
			question: &models.Question{Type: models.QuestionOpen, Points: 1,
				CorrectAnswers: models.LocalizedList{"ru": {"Paris"}}},
			answers: []string{}, locale: "ru", want: 0,
		},
		{
			name: "single exact",
			question: &models.Question{Type: models.QuestionSingle, Points: 3,
				CorrectAnswers: models.LocalizedList{"ru": {"B"}}},
			answers: []string{"B"}, locale: "ru", want: 3,
		},
		{
			name: "single is case sensitive",
			question: &models.Question{Type: models.QuestionSingle, Points: 3,
				CorrectAnswers: models.LocalizedList{"ru": {"B"}}},
			answers: []string{"b"}, locale: "ru", want: 0,
		},
		{
			name: "single with two selections",
			question: &models.Question{Type: models.QuestionSingle, Points: 3,
				CorrectAnswers: models.LocalizedList{"ru": {"B"}}},
			answers: []string{"B", "C"}, locale: "ru", want: 0,
		},
		{
			name: "locale falls back to ru",
			question: &models.Question{Type: models.QuestionSingle, Points: 2,
				CorrectAnswers: models.LocalizedList{"ru": {"Да"}}},
			answers: []string{"Да"}, locale: "en", want: 2,
		},
		{
			name: "empty locale means fallback",
			question: &models.Question{Type: models.QuestionSingle, Points: 2,
				CorrectAnswers: models.LocalizedList{"ru": {"Да"}, "en": {"Yes"}}},
			answers: []string{"Да"}, locale: "", want: 2,
		},
		{
			name: "unknown type",
			question: &models.Question{Type: "essay", Points: 2,
				CorrectAnswers: models.LocalizedList{"ru": {"x"}}},
			answers: []string{"x"}, locale: "ru", want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Evaluate(tt.question, tt.answers, tt.locale); got != tt.want {
				t.Errorf("Evaluate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEvaluatorWithoutPartialCredit(t *testing.T) {
	e := NewAnswerEvaluator(NewLocaleResolver(DefaultLocale), false)
	q := &models.Question{Type: models.QuestionMultiple, Points: 2,
		CorrectAnswers: models.LocalizedList{"ru": {"A", "E"}}}

	if got := e.Evaluate(q, []string{"A"}, "ru"); got != 0 {
		t.Errorf("expected 0 without partial credit, got %d", got)
	}
	if got := e.Evaluate(q, []string{"E", "A"}, "ru"); got != 2 {
		t.Errorf("expected full points for exact set, got %d", got)
	}
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
