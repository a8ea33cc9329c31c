package handlers

import (
	"net/http"

	"hivelog/internal/middleware"
	"hivelog/internal/services"
	"hivelog/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type updateProfileRequest struct {
	Bio    *string `json:"bio"`
	Avatar *string `json:"avatar"`
}

// Profile GET /api/users/:username
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) Posts(c *gin.Context) {
	page, err := h.users.Posts(c.Request.Context(), c.Param("username"),
		utils.StringToInt(c.DefaultQuery("page", "1")),
		utils.StringToInt(c.DefaultQuery("limit", "20")),
		middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) Comments(c *gin.Context) {
	page, err := h.users.Comments(c.Request.Context(), c.Param("username"),
		utils.StringToInt(c.DefaultQuery("page", "1")),
		utils.StringToInt(c.DefaultQuery("limit", "20")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateMe PATCH /api/auth/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user := middleware.CurrentUser(c)
	updated, err := h.users.UpdateProfile(c.Request.Context(), user.ID, services.UpdateProfileInput{
		Bio:    req.Bio,
		Avatar: req.Avatar,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}
