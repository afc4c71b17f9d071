package api

import (
	"net/http"
	"strconv"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) register(c *gin.Context) {
	var req models.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	user, err := s.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, user)
}

func (s *Server) checkAdmin(c *gin.Context) {
	id, ok := callerTelegramID(c)
	if !ok {
		BadRequest(c, "telegram_id is required")
		return
	}
	isAdmin, err := s.users.IsAdmin(id)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	if !isAdmin {
		Error(c, http.StatusForbidden, "not an admin")
		return
	}
	Success(c, gin.H{"telegram_id": id, "is_admin": true})
}

func (s *Server) listUsers(c *gin.Context) {
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(c, "invalid page")
			return
		}
		result, err := s.users.GetUserListPage(page)
		if err != nil {
			respondError(c, s.log, err)
			return
		}
		Success(c, result)
		return
	}

	result, err := s.users.ListUsers()
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, result)
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := pathInt64(c, "telegram_id")
	if !ok {
		return
	}
	user, err := s.users.GetUser(id)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, user)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := pathInt64(c, "telegram_id")
	if !ok {
		return
	}
	if err := s.users.DeleteUser(id); err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, gin.H{"deleted": id})
}

func (s *Server) promoteUser(c *gin.Context) {
	id, ok := pathInt64(c, "telegram_id")
	if !ok {
		return
	}
	user, err := s.users.Promote(id)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, user)
}

func (s *Server) activateUser(c *gin.Context) {
	id, ok := pathInt64(c, "telegram_id")
	if !ok {
		return
	}
	user, err := s.users.Activate(id)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, user)
}

func (s *Server) getLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := s.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, entries)
}
