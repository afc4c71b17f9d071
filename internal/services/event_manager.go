package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/fsm"
	"github.com/ad/go-telegram-quiz/internal/models"
	"go.uber.org/zap"
)

type EventManager struct {
	eventRepo    *db.EventRepository
	settingsRepo *db.SettingsRepository
	log          *zap.Logger
}

func NewEventManager(eventRepo *db.EventRepository, settingsRepo *db.SettingsRepository, log *zap.Logger) *EventManager {
	return &EventManager{
		eventRepo:    eventRepo,
		settingsRepo: settingsRepo,
		log:          log.Named("events"),
	}
}

func (m *EventManager) Create(name string, creatorID int64) (*models.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: event name is required", models.ErrValidation)
	}
	event, err := m.eventRepo.Create(name, creatorID)
	if err != nil {
		return nil, err
	}
	m.log.Info("event created", zap.Int64("event_id", event.ID), zap.String("name", name), zap.Int64("creator", creatorID))
	return event, nil
}

func (m *EventManager) List() ([]*models.Event, error) {
	return m.eventRepo.GetAllWithQuizzes()
}

func (m *EventManager) Status(id int64) (*models.Event, error) {
	return m.eventRepo.GetByID(id)
}

// NextPhase moves the event one step forward. Entering the started phase
// rewinds the question pointer.
func (m *EventManager) NextPhase(id int64) (*models.Event, error) {
	event, err := m.eventRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	next, err := fsm.Next(event.Status)
	if err != nil {
		return nil, err
	}

	index := event.CurrentQuestionIndex
	if next == models.EventStarted {
		index = 0
	}
	if err := m.eventRepo.UpdatePhase(id, next, index); err != nil {
		return nil, err
	}

	m.log.Info("event phase changed",
		zap.Int64("event_id", id),
		zap.String("from", string(event.Status)),
		zap.String("to", string(next)),
	)
	event.Status = next
	event.CurrentQuestionIndex = index
	return event, nil
}

// RegistrationOpen reports whether any event currently accepts applications.
func (m *EventManager) RegistrationOpen() (bool, error) {
	_, err := m.eventRepo.FindOpenForRegistration()
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// PhaseMessage returns the bot text shown to users while an event is in the
// given phase. Admins can override it through the settings table.
func (m *EventManager) PhaseMessage(status models.EventStatus) string {
	key := "event_" + string(status) + "_message"
	message, err := m.settingsRepo.Get(key)
	if err == nil && message != "" {
		return message
	}
	return defaultPhaseMessage(status)
}

func defaultPhaseMessage(status models.EventStatus) string {
	switch status {
	case models.EventNotStarted:
		return "Игра ещё не началась. Ожидайте объявления о старте!"
	case models.EventRegistration:
		return "Регистрация открыта."
	case models.EventStarted:
		return "Игра идёт!"
	case models.EventFinished:
		return "Игра завершена! Спасибо за участие!"
	default:
		return ""
	}
}
