package services

import (
	"context"
	"testing"
	"time"

	"hivelog/internal/models"
	"hivelog/internal/store"
	"hivelog/internal/tester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func karmaOf(t *testing.T, e *env, userID uint) int {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.Karma
}

func TestApplyVoteIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	voter := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())

	for range 3 {
		res, err := e.votes.ApplyVote(ctx, models.TargetPost, post.ID, voter.ID, models.VoteUp)
		require.NoError(t, err)
		assert.Equal(t, &VoteResult{VoteScore: 1, UpvoteCount: 1, UserVote: models.VoteUp}, res)
	}

	got := e.post(t, post.ID)
	assert.Equal(t, 1, got.UpvoteCount)
	assert.Equal(t, 1, got.VoteScore)
	assert.InDelta(t, 2.0, got.InteractionScore, 1e-9)
	assert.Equal(t, 1, karmaOf(t, e, author.ID))
}

func TestApplyVoteExclusive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	voter := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())

	steps := []struct {
		vote      models.VoteType
		up, down  int
		userVote  models.VoteType
		wantKarma int
	}{
		{models.VoteUp, 1, 0, models.VoteUp, 1},
		// 赞改踩：撤销 +1 再记 -1，声望净变化 -2
		{models.VoteDown, 0, 1, models.VoteDown, -1},
		{models.VoteRemove, 0, 0, "", 0},
		{models.VoteDown, 0, 1, models.VoteDown, -1},
		{"sideways", 0, 0, "", 0},
	}

	for _, step := range steps {
		res, err := e.votes.ApplyVote(ctx, models.TargetPost, post.ID, voter.ID, step.vote)
		require.NoError(t, err)
		assert.Equal(t, step.up, res.UpvoteCount, "vote %s", step.vote)
		assert.Equal(t, step.down, res.DownvoteCount, "vote %s", step.vote)
		assert.Equal(t, step.up-step.down, res.VoteScore)
		assert.Equal(t, step.userVote, res.UserVote)
		assert.Equal(t, step.wantKarma, karmaOf(t, e, author.ID), "vote %s", step.vote)
	}

	page, err := e.posts.List(ctx, store.PostFilter{}, voter.ID)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Empty(t, page.Posts[0].UserVote)
}

func TestApplyVoteManyUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())

	for i := range 5 {
		voter := tester.User(t, e.store)
		vote := models.VoteUp
		if i%2 == 1 {
			vote = models.VoteDown
		}
		_, err := e.votes.ApplyVote(ctx, models.TargetPost, post.ID, voter.ID, vote)
		require.NoError(t, err)
	}

	got := e.post(t, post.ID)
	assert.Equal(t, 3, got.UpvoteCount)
	assert.Equal(t, 2, got.DownvoteCount)
	assert.Equal(t, 1, got.VoteScore)
	assert.InDelta(t, 8.0, got.InteractionScore, 1e-9)
	assert.Equal(t, 1, karmaOf(t, e, author.ID))
}

func TestApplyVoteComment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())
	commenter := tester.User(t, e.store)
	comment := tester.Comment(t, e.store, post, commenter, nil, "A short but useful note.", 10, 0)

	voter := tester.User(t, e.store)
	res, err := e.votes.ApplyVote(ctx, models.TargetComment, comment.ID, voter.ID, models.VoteUp)
	require.NoError(t, err)
	// 计数以投票记录为准
	assert.Equal(t, 1, res.UpvoteCount)

	for range 10 {
		v := tester.User(t, e.store)
		_, err := e.votes.ApplyVote(ctx, models.TargetComment, comment.ID, v.ID, models.VoteUp)
		require.NoError(t, err)
	}

	got, err := e.comments.Get(ctx, comment.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, got.VoteScore)
	assert.True(t, got.IsHighQuality)
	assert.Equal(t, models.VoteUp, got.UserVote)

	// 评论投票不影响声望
	assert.Equal(t, 0, karmaOf(t, e, commenter.ID))
	assert.Equal(t, 0, e.post(t, post.ID).UpvoteCount)
}

func TestApplyVoteMissingTargets(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())

	_, err := e.votes.ApplyVote(ctx, models.TargetPost, 404, author.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.votes.ApplyVote(ctx, models.TargetComment, 404, author.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.votes.ApplyVote(ctx, "story", post.ID, author.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, e.posts.Deactivate(ctx, author, post.ID))
	_, err = e.votes.ApplyVote(ctx, models.TargetPost, post.ID, author.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrNotFound)
}
