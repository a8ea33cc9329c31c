package handlers

import (
	"errors"
	"net/http"

	"hivelog/internal/middleware"
	"hivelog/internal/services"
	"hivelog/internal/store"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	store store.NotificationStore
}

func NewNotificationHandler(s store.NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: s}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	unreadOnly := c.Query("unread") == "true"

	list, err := h.store.ListNotifications(c.Request.Context(), user.ID, unreadOnly, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.MarkNotificationRead(c.Request.Context(), id, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = services.ErrNotFound
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.store.MarkAllNotificationsRead(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteNotification(c.Request.Context(), id, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = services.ErrNotFound
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.store.DeleteAllNotifications(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
