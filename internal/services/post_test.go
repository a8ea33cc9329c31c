package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"hivelog/internal/models"
	"hivelog/internal/store"
	"hivelog/internal/tester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	e.posts.now = func() time.Time { return now }

	post, err := e.posts.Create(ctx, author.ID, CreatePostInput{
		Title:   "  Remote work retrospectives  ",
		Content: "What did your team learn after a year?",
		Tags:    []string{"Remote", "remote ", "", "culture"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Remote work retrospectives", post.Title)
	assert.Equal(t, models.CategoryGeneral, post.Category)
	assert.Equal(t, []string{"remote", "culture"}, []string(post.Tags))
	assert.Equal(t, models.StageSandbox, post.Stage)
	assert.True(t, post.SandboxStartDate.Equal(now))
	assert.True(t, post.IsActive)
	assert.Equal(t, author.Username, post.User.Username)

	tests := []struct {
		name string
		in   CreatePostInput
	}{
		{"short title", CreatePostInput{Title: "Hey", Content: "long enough content"}},
		{"long title", CreatePostInput{Title: strings.Repeat("t", 301), Content: "long enough content"}},
		{"short content", CreatePostInput{Title: "A fine title", Content: "too short"}},
		{"bad category", CreatePostInput{Title: "A fine title", Content: "long enough content", Category: "rant"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.posts.Create(ctx, author.ID, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestListPosts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	now := time.Now().UTC()

	quiet := tester.Post(t, e.store, author, now)
	busy := tester.Post(t, e.store, author, now)
	e.setInteraction(t, busy, 40)
	wiki := tester.Post(t, e.store, author, now.Add(-40*24*time.Hour))
	require.NoError(t, e.store.UpdatePostFields(ctx, wiki.ID, map[string]any{"stage": models.StageWiki, "title": "Findings about caching"}))
	hidden := tester.Post(t, e.store, author, now)
	require.NoError(t, e.posts.Deactivate(ctx, author, hidden.ID))

	page, err := e.posts.List(ctx, store.PostFilter{Sort: store.SortTrending}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, busy.ID, page.Posts[0].ID)

	page, err = e.posts.List(ctx, store.PostFilter{Stage: models.StageSandbox}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Posts, 2)
	ids := []uint{page.Posts[0].ID, page.Posts[1].ID}
	assert.ElementsMatch(t, []uint{quiet.ID, busy.ID}, ids)

	page, err = e.posts.List(ctx, store.PostFilter{Search: "CACHING"}, 0)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, wiki.ID, page.Posts[0].ID)

	page, err = e.posts.List(ctx, store.PostFilter{Page: 2, Limit: 2, Sort: store.SortRecent}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Posts, 1)
}

func TestGetPostCountsViews(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	viewer := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())

	_, err := e.votes.ApplyVote(ctx, models.TargetPost, post.ID, viewer.ID, models.VoteUp)
	require.NoError(t, err)

	got, err := e.posts.Get(ctx, post.ID, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)
	assert.Equal(t, models.VoteUp, got.UserVote)

	got, err = e.posts.Get(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)
	assert.Empty(t, got.UserVote)

	require.NoError(t, e.posts.Deactivate(ctx, author, post.ID))
	_, err = e.posts.Get(ctx, post.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	stranger := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())

	title := "A sharper question title"
	_, err := e.posts.Update(ctx, stranger, post.ID, UpdatePostInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := e.posts.Update(ctx, author, post.ID, UpdatePostInput{Title: &title, Tags: []string{"Meta"}})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, []string{"meta"}, []string(got.Tags))
	assert.Equal(t, post.Content, got.Content)

	short := "no"
	_, err = e.posts.Update(ctx, author, post.ID, UpdatePostInput{Content: &short})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, e.posts.Deactivate(ctx, stranger, post.ID), ErrForbidden)
}

func TestPinAndLockPost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	now := time.Now().UTC()

	older := tester.Post(t, e.store, author, now.Add(-time.Hour))
	e.setCreatedAt(t, older, now.Add(-time.Hour))
	newer := tester.Post(t, e.store, author, now)

	pinned, err := e.posts.SetPinned(ctx, older.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)

	// 置顶优先于任何排序
	for _, sort := range []store.PostSort{store.SortRecent, store.SortTrending, store.SortDiscussed} {
		page, err := e.posts.List(ctx, store.PostFilter{Sort: sort}, 0)
		require.NoError(t, err)
		require.Len(t, page.Posts, 2)
		assert.Equal(t, older.ID, page.Posts[0].ID, sort)
	}

	_, err = e.posts.SetPinned(ctx, older.ID, false)
	require.NoError(t, err)
	page, err := e.posts.List(ctx, store.PostFilter{Sort: store.SortRecent}, 0)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, page.Posts[0].ID)

	locked, err := e.posts.SetLocked(ctx, newer.ID, true)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	_, err = e.comments.Create(ctx, author.ID, CreateCommentInput{PostID: newer.ID, Content: "too late"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.posts.SetLocked(ctx, newer.ID, false)
	require.NoError(t, err)
	_, err = e.comments.Create(ctx, author.ID, CreateCommentInput{PostID: newer.ID, Content: "reopened"})
	assert.NoError(t, err)

	require.NoError(t, e.posts.Deactivate(ctx, author, newer.ID))
	_, err = e.posts.SetPinned(ctx, newer.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.posts.SetLocked(ctx, 9999, true)
	assert.ErrorIs(t, err, ErrNotFound)
}
