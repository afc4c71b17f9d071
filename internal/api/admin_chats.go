package api

import (
	"github.com/gin-gonic/gin"
)

type adminChatRequest struct {
	ChatID int64 `json:"chat_id" binding:"required"`
}

type bulkAdminChatsRequest struct {
	ChatIDs []int64 `json:"chat_ids" binding:"required,min=1"`
}

func (s *Server) listAdminChats(c *gin.Context) {
	ids, err := s.adminChats.GetAll()
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, ids)
}

func (s *Server) addAdminChat(c *gin.Context) {
	var req adminChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := s.adminChats.Add(req.ChatID); err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, gin.H{"chat_id": req.ChatID})
}

func (s *Server) bulkAddAdminChats(c *gin.Context) {
	var req bulkAdminChatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	added, err := s.adminChats.AddMany(req.ChatIDs)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, gin.H{"added": added})
}

func (s *Server) removeAdminChat(c *gin.Context) {
	id, ok := pathInt64(c, "chat_id")
	if !ok {
		return
	}
	if err := s.adminChats.Remove(id); err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, gin.H{"deleted": id})
}
