package tester

import (
	"context"
	"fmt"
	"testing"
	"time"

	"hivelog/internal/models"
	"hivelog/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB opens an isolated in-memory database for one test and migrates it.
func DB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库在连接全部关闭后消失，单连接同时避免 sqlite 写锁竞争
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// Store wraps DB in a GormStore.
func Store(t testing.TB) *store.GormStore {
	t.Helper()
	return store.NewGormStore(DB(t))
}

var userSeq int

func User(t testing.TB, s store.Store) *models.User {
	t.Helper()
	userSeq++
	u := &models.User{
		Username: fmt.Sprintf("user%d", userSeq),
		Email:    fmt.Sprintf("user%d@example.com", userSeq),
		Password: "x",
		Role:     models.RoleUser,
		IsActive: true,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// Post creates an active sandbox post whose sandbox started at start.
func Post(t testing.TB, s store.Store, author *models.User, start time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:           author.ID,
		Title:            "Should we adopt four-day weeks?",
		Content:          "Looking for experiences from teams that tried it.",
		Category:         models.CategoryDiscussion,
		Tags:             []string{"work", "process"},
		Stage:            models.StageSandbox,
		SandboxStartDate: start,
		IsActive:         true,
	}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

// Comment inserts a comment row directly, bypassing counters.
func Comment(t testing.TB, s store.Store, post *models.Post, author *models.User, parent *models.Comment, content string, up, down int) *models.Comment {
	t.Helper()
	c := &models.Comment{
		PostID:        post.ID,
		UserID:        author.ID,
		Content:       content,
		UpvoteCount:   up,
		DownvoteCount: down,
	}
	if parent != nil {
		c.ParentID = &parent.ID
		c.Depth = parent.Depth + 1
	}
	require.NoError(t, s.CreateComment(context.Background(), c))
	return c
}
