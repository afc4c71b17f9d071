package fsm

import (
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/models"
)

// phases lists event statuses in the order an event moves through them.
var phases = []models.EventStatus{
	models.EventNotStarted,
	models.EventRegistration,
	models.EventStarted,
	models.EventFinished,
}

func Phases() []models.EventStatus {
	out := make([]models.EventStatus, len(phases))
	copy(out, phases)
	return out
}

func IsTerminal(s models.EventStatus) bool {
	return s == models.EventFinished
}

// Next returns the status following s.
func Next(s models.EventStatus) (models.EventStatus, error) {
	for i, p := range phases {
		if p != s {
			continue
		}
		if i == len(phases)-1 {
			return "", fmt.Errorf("%w: event is already %s", models.ErrValidation, s)
		}
		return phases[i+1], nil
	}
	return "", fmt.Errorf("%w: unknown event status %q", models.ErrValidation, s)
}

func AcceptsRegistrations(s models.EventStatus) bool {
	return s == models.EventRegistration
}
