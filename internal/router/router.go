package router

import (
	"hivelog/internal/handlers"
	"hivelog/internal/middleware"
	"hivelog/internal/models"
	"hivelog/internal/services"
	"hivelog/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps 路由需要的所有服务
type Deps struct {
	DB            *gorm.DB
	Store         store.Store
	SessionSecret string

	Auth        *services.AuthService
	Posts       *services.PostService
	Comments    *services.CommentService
	Threads     *services.ThreadService
	Votes       *services.VoteService
	Wikis       *services.WikiService
	Users       *services.UserService
	Transitions *services.TransitionService
}

// New 构建 gin 引擎并注册所有 API 路由
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	sessionStore := cookie.NewStore([]byte(d.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions("hivelog_session", sessionStore))
	r.Use(middleware.LoadUser(d.Store))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Auth, d.Store)
	postHandler := handlers.NewPostHandler(d.Posts, d.Threads)
	commentHandler := handlers.NewCommentHandler(d.Comments)
	voteHandler := handlers.NewVoteHandler(d.Votes)
	wikiHandler := handlers.NewWikiHandler(d.Wikis)
	userHandler := handlers.NewUserHandler(d.Users)
	notificationHandler := handlers.NewNotificationHandler(d.Store)
	adminHandler := handlers.NewAdminHandler(d.Transitions, d.Posts, d.Store)
	healthHandler := handlers.NewHealthHandler(d.DB)

	r.GET("/healthz", healthHandler.Health)

	api := r.Group("/api")

	// 公共路由
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)

	api.GET("/posts", postHandler.List)                  // 帖子列表
	api.GET("/posts/:id", postHandler.Get)               // 帖子详情，计入浏览
	api.GET("/posts/:id/comments", postHandler.Comments) // 评论树
	api.GET("/posts/:id/wiki", wikiHandler.Get)          // 当前 wiki
	api.GET("/posts/:id/wiki/versions", wikiHandler.Versions)
	api.GET("/wikis/:id", wikiHandler.GetByID)
	api.GET("/comments/:id", commentHandler.Get)
	api.GET("/users/:username", userHandler.Profile)
	api.GET("/users/:username/posts", userHandler.Posts)
	api.GET("/users/:username/comments", userHandler.Comments)

	// 需要登录
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/auth/me", authHandler.Me)
		authorized.PATCH("/auth/me", userHandler.UpdateMe)

		authorized.POST("/posts", postHandler.Create)
		authorized.PUT("/posts/:id", postHandler.Update)
		authorized.DELETE("/posts/:id", postHandler.Delete)
		authorized.POST("/posts/:id/vote", voteHandler.Vote(models.TargetPost))

		authorized.POST("/posts/:id/comments", commentHandler.Create)
		authorized.PUT("/comments/:id", commentHandler.Edit)
		authorized.DELETE("/comments/:id", commentHandler.Delete)
		authorized.POST("/comments/:id/vote", voteHandler.Vote(models.TargetComment))

		authorized.POST("/posts/:id/wiki/update", wikiHandler.Update)
		authorized.POST("/posts/:id/wiki/verify", wikiHandler.Verify)
		authorized.POST("/posts/:id/wiki/dispute", wikiHandler.Dispute)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
		authorized.DELETE("/notifications", notificationHandler.DeleteAll)
	}

	// 管理后台
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/posts/:id/transition", adminHandler.Transition)
		admin.POST("/posts/:id/rollback", adminHandler.Rollback)
		admin.POST("/sweep", adminHandler.Sweep)
		admin.PUT("/posts/:id/pin", adminHandler.Pin)
		admin.PUT("/posts/:id/unpin", adminHandler.Unpin)
		admin.PUT("/posts/:id/lock", adminHandler.Lock)
		admin.PUT("/posts/:id/unlock", adminHandler.Unlock)
		admin.PUT("/users/:id/status", adminHandler.SetUserActive)
	}
}
