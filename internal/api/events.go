package api

import (
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/gin-gonic/gin"
)

type eventStatusResponse struct {
	GameStatus           models.EventStatus `json:"game_status"`
	CurrentQuestionIndex int                `json:"current_question_index"`
}

func (s *Server) createEvent(c *gin.Context) {
	event, err := s.events.Create(c.Query("name"), currentUser(c).TelegramID)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, event)
}

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.events.List()
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, events)
}

func (s *Server) eventStatus(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	event, err := s.events.Status(id)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, eventStatusResponse{GameStatus: event.Status, CurrentQuestionIndex: event.CurrentQuestionIndex})
}

func (s *Server) nextPhase(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	event, err := s.events.NextPhase(id)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, eventStatusResponse{GameStatus: event.Status, CurrentQuestionIndex: event.CurrentQuestionIndex})
}
