package handlers

import (
	"net/http"

	"hivelog/internal/middleware"
	"hivelog/internal/models"
	"hivelog/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type voteRequest struct {
	Type string `json:"vote_type"` // up | down | remove
}

// Vote 返回一个处理 target 类型投票的 handler，路径参数 id 为目标 ID
func (h *VoteHandler) Vote(target models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req voteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		user := middleware.CurrentUser(c)
		result, err := h.votes.ApplyVote(c.Request.Context(), target, id, user.ID, models.ParseVoteType(req.Type))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
