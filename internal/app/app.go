package app

import (
	"context"
	"fmt"

	"hivelog/internal/config"
	"hivelog/internal/db"
	"hivelog/internal/jobs"
	"hivelog/internal/llm"
	"hivelog/internal/notify"
	"hivelog/internal/router"
	"hivelog/internal/services"
	"hivelog/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App 进程内共享的依赖，server 和 hivectl 都从这里构建
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Store  store.Store

	Auth        *services.AuthService
	Posts       *services.PostService
	Comments    *services.CommentService
	Threads     *services.ThreadService
	Votes       *services.VoteService
	Wikis       *services.WikiService
	Users       *services.UserService
	Transitions *services.TransitionService
	Scores      *services.ScoreService

	closers []func() error
}

// New 连接数据库并组装所有服务
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return Build(ctx, cfg, conn)
}

// Build 在已有连接上组装服务，测试里传入 sqlite 内存库
func Build(ctx context.Context, cfg *config.Config, conn *gorm.DB) (*App, error) {
	ai, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	a := &App{Config: cfg, DB: conn, Store: store.NewGormStore(conn)}

	notifiers := notify.Multi{notify.NewStoreNotifier(a.Store)}
	if cfg.RedisAddr != "" {
		pub := notify.NewRedisPublisher(cfg.RedisAddr)
		notifiers = append(notifiers, pub)
		a.closers = append(a.closers, pub.Close)
	}
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.SlackToken, cfg.SlackChannel))
	}

	lc := cfg.Lifecycle
	synth := services.NewSynthesisService(ai, lc)

	a.Scores = services.NewScoreService(a.Store)
	a.Auth = services.NewAuthService(a.Store)
	a.Posts = services.NewPostService(a.Store, a.Scores)
	a.Comments = services.NewCommentService(a.Store, notifiers, lc)
	a.Threads = services.NewThreadService(a.Store, lc)
	a.Votes = services.NewVoteService(a.Store)
	a.Wikis = services.NewWikiService(a.Store, synth, notifiers, lc)
	a.Users = services.NewUserService(a.Store, a.Posts)
	a.Transitions = services.NewTransitionService(a.Store, synth, notifiers, lc)

	logrus.WithFields(logrus.Fields{
		"llm":   cfg.LLM.Provider,
		"redis": cfg.RedisAddr != "",
		"slack": cfg.SlackToken != "",
	}).Info("services initialized")
	return a, nil
}

// Migrate 建表
func (a *App) Migrate() error {
	return a.Store.Migrate()
}

// Router 构建 HTTP 路由
func (a *App) Router() *gin.Engine {
	return router.New(router.Deps{
		DB:            a.DB,
		Store:         a.Store,
		SessionSecret: a.Config.SessionSecret,
		Auth:          a.Auth,
		Posts:         a.Posts,
		Comments:      a.Comments,
		Threads:       a.Threads,
		Votes:         a.Votes,
		Wikis:         a.Wikis,
		Users:         a.Users,
		Transitions:   a.Transitions,
	})
}

// Executor 定时任务：沙盒转换扫描和每日分数校准
func (a *App) Executor() *jobs.TaskExecutor {
	return jobs.NewTaskExecutor(
		jobs.NewTransitionSweepJob(a.Transitions, a.Config.TransitionSchedule),
		jobs.NewScoreRefreshJob(a.Scores),
	)
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logrus.WithError(err).Warn("close failed")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
