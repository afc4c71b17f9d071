package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	TelegramIDHeader = "X-Telegram-ID"
	currentUserKey   = "current_user"
)

func callerTelegramID(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.GetHeader(TelegramIDHeader))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("telegram_id"))
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// CurrentUser resolves the caller from the X-Telegram-ID header or the
// telegram_id query parameter.
func (s *Server) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := callerTelegramID(c)
		if !ok {
			respondError(c, s.log, fmt.Errorf("%w: missing %s", models.ErrUnauthorized, TelegramIDHeader))
			return
		}
		user, err := s.users.Authenticate(id)
		if err != nil {
			respondError(c, s.log, err)
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RequireActive rejects callers whose registration is not approved yet.
func (s *Server) RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsActive {
			Error(c, http.StatusForbidden, "user is not active")
			return
		}
		c.Next()
	}
}

func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin {
			Error(c, http.StatusForbidden, "admin privileges required")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(currentUserKey).(*models.User)
}

func pathInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		BadRequest(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}
