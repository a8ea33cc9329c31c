package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hivelog/internal/models"
	"hivelog/internal/services"
	"hivelog/internal/store"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	transitions *services.TransitionService
	posts       *services.PostService
	users       store.UserStore
}

func NewAdminHandler(transitions *services.TransitionService, posts *services.PostService, users store.UserStore) *AdminHandler {
	return &AdminHandler{transitions: transitions, posts: posts, users: users}
}

// Transition 手动触发单个帖子的转换，同步等待 AI 结果
func (h *AdminHandler) Transition(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	wiki, err := h.transitions.ManualTransition(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post transitioned to wiki", "wiki": wiki})
}

// Rollback 把卡在 processing 的帖子放回 sandbox
func (h *AdminHandler) Rollback(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.transitions.ForceRollback(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post rolled back to sandbox"})
}

func (h *AdminHandler) Sweep(c *gin.Context) {
	n, err := h.transitions.RunSweep(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitioned": n})
}

func (h *AdminHandler) Pin(c *gin.Context)    { h.setFlag(c, h.posts.SetPinned, true) }
func (h *AdminHandler) Unpin(c *gin.Context)  { h.setFlag(c, h.posts.SetPinned, false) }
func (h *AdminHandler) Lock(c *gin.Context)   { h.setFlag(c, h.posts.SetLocked, true) }
func (h *AdminHandler) Unlock(c *gin.Context) { h.setFlag(c, h.posts.SetLocked, false) }

type postFlagFunc func(ctx context.Context, id uint, on bool) (*models.Post, error)

func (h *AdminHandler) setFlag(c *gin.Context, set postFlagFunc, on bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	post, err := set(c.Request.Context(), id, on)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

type userStatusRequest struct {
	Active bool `json:"active"`
}

// SetUserActive 封禁或解封用户
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req userStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.users.SetUserActive(c.Request.Context(), id, req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = services.ErrNotFound
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": req.Active})
}
