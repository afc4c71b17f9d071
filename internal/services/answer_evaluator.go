package services

import "github.com/ad/go-telegram-quiz/internal/models"

// AnswerEvaluator scores submissions. It is pure and safe for concurrent use.
type AnswerEvaluator struct {
	locales       *LocaleResolver
	partialCredit bool
}

func NewAnswerEvaluator(locales *LocaleResolver, partialCredit bool) *AnswerEvaluator {
	return &AnswerEvaluator{locales: locales, partialCredit: partialCredit}
}

// Evaluate returns the points earned, between 0 and the question value.
func (e *AnswerEvaluator) Evaluate(q *models.Question, answers []string, locale string) int {
	if q == nil || q.Points <= 0 {
		return 0
	}
	correct := e.locales.Correct(q.CorrectAnswers, locale)

	switch q.Type {
	case models.QuestionOpen:
		return e.evaluateOpen(q.Points, correct, answers)
	case models.QuestionSingle:
		return e.evaluateSingle(q.Points, correct, answers)
	case models.QuestionMultiple:
		return e.evaluateMultiple(q.Points, correct, answers)
	default:
		return 0
	}
}

func (e *AnswerEvaluator) evaluateOpen(points int, accepted, answers []string) int {
	if len(answers) == 0 || len(accepted) == 0 {
		return 0
	}
	given := NormalizeOpenAnswer(answers[0])
	for _, a := range accepted {
		if NormalizeOpenAnswer(a) == given {
			return points
		}
	}
	return 0
}

func (e *AnswerEvaluator) evaluateSingle(points int, correct, answers []string) int {
	if len(answers) != 1 || len(correct) == 0 {
		return 0
	}
	if answers[0] == correct[0] {
		return points
	}
	return 0
}

func (e *AnswerEvaluator) evaluateMultiple(points int, correct, answers []string) int {
	correctSet := toSet(correct)
	if len(correctSet) == 0 {
		return 0
	}
	given := toSet(answers)

	hits := 0
	for a := range given {
		if correctSet[a] {
			hits++
		}
	}
	if hits == len(correctSet) && len(given) == len(correctSet) {
		return points
	}
	if !e.partialCredit {
		return 0
	}
	return points * hits / len(correctSet)
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}
