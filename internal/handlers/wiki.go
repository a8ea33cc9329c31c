package handlers

import (
	"net/http"

	"hivelog/internal/middleware"
	"hivelog/internal/models"
	"hivelog/internal/services"

	"github.com/gin-gonic/gin"
)

type WikiHandler struct {
	wikis *services.WikiService
}

func NewWikiHandler(wikis *services.WikiService) *WikiHandler {
	return &WikiHandler{wikis: wikis}
}

// Get GET /api/posts/:id/wiki
func (h *WikiHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	wiki, err := h.wikis.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wiki)
}

// GetByID GET /api/wikis/:id
func (h *WikiHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	wiki, err := h.wikis.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wiki)
}

func (h *WikiHandler) Versions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	history, err := h.wikis.Versions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Update POST /api/posts/:id/wiki/update 用新的高质量评论增量更新
func (h *WikiHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.wikis.UpdateWiki(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Verify 只有版主和管理员可以标记为已核实
func (h *WikiHandler) Verify(c *gin.Context) {
	if !middleware.CurrentUser(c).CanModerate() {
		respondError(c, services.ErrForbidden)
		return
	}
	h.setStatus(c, models.VerificationVerified)
}

// Dispute 任何登录用户都可以提出异议
func (h *WikiHandler) Dispute(c *gin.Context) {
	h.setStatus(c, models.VerificationDisputed)
}

func (h *WikiHandler) setStatus(c *gin.Context, status models.VerificationStatus) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	wiki, err := h.wikis.SetVerification(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verification_status": wiki.VerificationStatus, "version": wiki.Version})
}
