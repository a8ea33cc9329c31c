package handlers

import (
	"net/http"

	"hivelog/internal/middleware"
	"hivelog/internal/models"
	"hivelog/internal/services"
	"hivelog/internal/store"
	"hivelog/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts   *services.PostService
	threads *services.ThreadService
}

func NewPostHandler(posts *services.PostService, threads *services.ThreadService) *PostHandler {
	return &PostHandler{posts: posts, threads: threads}
}

type createPostRequest struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category models.Category `json:"category"`
	Tags     []string        `json:"tags"`
}

type updatePostRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

// List GET /api/posts?stage=&category=&search=&sort=&page=&limit=
func (h *PostHandler) List(c *gin.Context) {
	filter := store.PostFilter{
		Stage:    models.Stage(c.Query("stage")),
		Category: models.Category(c.Query("category")),
		Search:   c.Query("search"),
		Sort:     store.PostSort(c.DefaultQuery("sort", string(store.SortRecent))),
		Page:     utils.StringToInt(c.DefaultQuery("page", "1")),
		Limit:    utils.StringToInt(c.DefaultQuery("limit", "20")),
	}

	page, err := h.posts.List(c.Request.Context(), filter, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user := middleware.CurrentUser(c)
	post, err := h.posts.Create(c.Request.Context(), user.ID, services.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	post, err := h.posts.Get(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	post, err := h.posts.Update(c.Request.Context(), middleware.CurrentUser(c), id, services.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Deactivate(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Comments GET /api/posts/:id/comments?sort=best|recent|oldest
func (h *PostHandler) Comments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	mode := services.ParseThreadSort(c.Query("sort"))
	thread, err := h.threads.BuildThread(c.Request.Context(), id, mode, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": thread, "sort": mode})
}
