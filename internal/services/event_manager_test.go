package services

import (
	"testing"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.addUser(t, 1, "admin", true, true)
	events := NewEventManager(env.events, env.settings, nopLogger())

	event, err := events.Create("  Финал  ", admin.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, "Финал", event.Name)
	assert.Equal(t, models.EventNotStarted, event.Status)

	_, err = events.Create("Финал", admin.TelegramID)
	assert.ErrorIs(t, err, models.ErrConflict)
	_, err = events.Create("", admin.TelegramID)
	assert.ErrorIs(t, err, models.ErrValidation)

	open, err := events.RegistrationOpen()
	require.NoError(t, err)
	assert.False(t, open)

	want := []models.EventStatus{models.EventRegistration, models.EventStarted, models.EventFinished}
	for _, status := range want {
		event, err = events.NextPhase(event.ID)
		require.NoError(t, err)
		assert.Equal(t, status, event.Status)

		stored, err := events.Status(event.ID)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status)

		if status == models.EventRegistration {
			open, err := events.RegistrationOpen()
			require.NoError(t, err)
			assert.True(t, open)
		}
	}

	_, err = events.NextPhase(event.ID)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = events.NextPhase(9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEventListIncludesQuizzes(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.addUser(t, 1, "admin", true, true)
	events := NewEventManager(env.events, env.settings, nopLogger())

	event, err := events.Create("Игра", admin.TelegramID)
	require.NoError(t, err)
	_, err = env.quizzes.Create(&models.Quiz{Name: "Раунд 1", EventID: &event.ID})
	require.NoError(t, err)

	list, err := events.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Quizzes, 1)
	assert.Equal(t, "Раунд 1", list[0].Quizzes[0].Name)
}

func TestPhaseMessageOverride(t *testing.T) {
	env := setupTestEnv(t)
	events := NewEventManager(env.events, env.settings, nopLogger())

	assert.NotEmpty(t, events.PhaseMessage(models.EventFinished))

	require.NoError(t, env.settings.Set("event_finished_message", "До встречи!"))
	assert.Equal(t, "До встречи!", events.PhaseMessage(models.EventFinished))
}
