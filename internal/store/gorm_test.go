package store_test

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

func TestSetStageIfCurrent(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	post := tester.Post(t, s, tester.User(t, s), time.Now().UTC())

	ok, err := s.SetStageIfCurrent(ctx, post.ID, models.StageSandbox, models.StageProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	// 第二个竞争者失败
	ok, err = s.SetStageIfCurrent(ctx, post.ID, models.StageSandbox, models.StageProcessing)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Now().UTC()
	ok, err = s.CompleteTransition(ctx, post.ID, at)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageWiki, got.Stage)
	assert.Equal(t, 1, got.WikiVersion)
	require.NotNil(t, got.SandboxEndDate)
	assert.True(t, got.SandboxEndDate.Equal(at))

	ok, err = s.CompleteTransition(ctx, post.ID, at)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionRollsBack(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	post := tester.Post(t, s, tester.User(t, s), time.Now().UTC())

	err := s.Transaction(ctx, func(tx store.Store) error {
		if err := tx.IncrementCommentCount(ctx, post.ID, 1); err != nil {
			return err
		}
		return store.ErrNotFound
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentCount)
}

func TestPostCounters(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	post := tester.Post(t, s, tester.User(t, s), time.Now().UTC())

	require.NoError(t, s.SetPostVotes(ctx, post.ID, 3, 1))
	require.NoError(t, s.IncrementCommentCount(ctx, post.ID, 2))
	for range 5 {
		require.NoError(t, s.IncrementViewCount(ctx, post.ID))
	}
	require.NoError(t, s.RefreshInteractionScore(ctx, post.ID))

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.VoteScore)
	assert.Equal(t, 2, got.CommentCount)
	assert.Equal(t, 5, got.ViewCount)
	assert.InDelta(t, models.InteractionScore(3, 1, 2, 5), got.InteractionScore, 1e-9)

	assert.ErrorIs(t, s.UpdatePostFields(ctx, 9999, map[string]any{"title": "x"}), store.ErrNotFound)
	_, err = s.GetPost(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVotes(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	u := tester.User(t, s)

	vote, err := s.GetVote(ctx, u.ID, models.TargetPost, 1)
	require.NoError(t, err)
	assert.Nil(t, vote)

	require.NoError(t, s.PutVote(ctx, &models.Vote{UserID: u.ID, TargetType: models.TargetPost, TargetID: 1, Value: 1}))
	// 同一用户同一目标只保留一条
	require.NoError(t, s.PutVote(ctx, &models.Vote{UserID: u.ID, TargetType: models.TargetPost, TargetID: 1, Value: -1}))
	require.NoError(t, s.PutVote(ctx, &models.Vote{UserID: u.ID, TargetType: models.TargetComment, TargetID: 1, Value: 1}))

	up, down, err := s.CountVotes(ctx, models.TargetPost, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, up)
	assert.Equal(t, 1, down)

	votes, err := s.ListUserVotes(ctx, u.ID, models.TargetPost, []uint{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[uint]models.VoteType{1: models.VoteDown}, votes)

	require.NoError(t, s.ClearVote(ctx, u.ID, models.TargetPost, 1))
	up, down, err = s.CountVotes(ctx, models.TargetPost, 1)
	require.NoError(t, err)
	assert.Zero(t, up+down)
}

func TestUpdateWikiIfVersion(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	post := tester.Post(t, s, tester.User(t, s), time.Now().UTC())

	wiki := &models.Wiki{PostID: post.ID, Version: 1, GeneratedAt: time.Now().UTC(), VerificationStatus: models.VerificationPending}
	wiki.SetContent(models.WikiContent{Summary: "first"})
	require.NoError(t, s.CreateWiki(ctx, wiki))

	stale := *wiki
	wiki.Version = 2
	wiki.Summary = "second"
	ok, err := s.UpdateWikiIfVersion(ctx, wiki, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	stale.Version = 2
	stale.Summary = "lost update"
	ok, err = s.UpdateWikiIfVersion(ctx, &stale, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetWikiByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "second", got.Summary)
}

func TestKarmaAndNotifications(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	u := tester.User(t, s)

	require.NoError(t, s.AddKarma(ctx, u.ID, 3, "post vote"))
	require.NoError(t, s.AddKarma(ctx, u.ID, -1, "post vote"))
	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Karma)

	for range 3 {
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: u.ID, Type: models.NotificationTypeComment}))
	}
	list, err := s.ListNotifications(ctx, u.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, s.MarkNotificationRead(ctx, list[0].ID, u.ID))
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, list[0].ID, u.ID+1), store.ErrNotFound)

	n, err := s.CountUnread(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, s.MarkAllNotificationsRead(ctx, u.ID))
	n, err = s.CountUnread(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEditCommentKeepsVoteColumns(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	author := tester.User(t, s)
	post := tester.Post(t, s, author, time.Now().UTC())
	// 编辑前拿到的旧快照，票数还是 0
	snapshot := tester.Comment(t, s, post, author, nil, "short", 0, 0)

	require.NoError(t, s.SetCommentVotes(ctx, snapshot.ID, 7, 1))

	long := strings.Repeat("x", 250)
	require.NoError(t, s.EditComment(ctx, snapshot.ID, long, time.Now().UTC()))

	got, err := s.GetComment(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.UpvoteCount)
	assert.Equal(t, 1, got.DownvoteCount)
	assert.Equal(t, 6, got.VoteScore)
	assert.Equal(t, long, got.Content)
	assert.True(t, got.IsEdited)

	wantScore, wantHigh := models.ClassifyQuality(6, 250)
	assert.InDelta(t, wantScore, got.QualityScore, 1e-9)
	assert.Equal(t, wantHigh, got.IsHighQuality)

	// 投票时按当前内容长度重新计算
	require.NoError(t, s.SetCommentVotes(ctx, snapshot.ID, 12, 0))
	got, err = s.GetComment(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, long, got.Content)
	assert.InDelta(t, 14.5, got.QualityScore, 1e-9)
	assert.True(t, got.IsHighQuality)

	assert.ErrorIs(t, s.SetCommentVotes(ctx, 9999, 1, 0), store.ErrNotFound)
}

func TestSoftDeleteCommentOnce(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	author := tester.User(t, s)
	post := tester.Post(t, s, author, time.Now().UTC())
	c := tester.Comment(t, s, post, author, nil, "bye", 3, 0)

	ok, err := s.SoftDeleteComment(ctx, c.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SoftDeleteComment(ctx, c.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetComment(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeletedCommentPlaceholder, got.Content)
	assert.Equal(t, 3, got.UpvoteCount)

	// 已删除的评论不能再编辑
	assert.ErrorIs(t, s.EditComment(ctx, c.ID, "again", time.Now().UTC()), store.ErrNotFound)
}

func TestForUpdateReads(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	author := tester.User(t, s)
	post := tester.Post(t, s, author, time.Now().UTC())
	c := tester.Comment(t, s, post, author, nil, "locked read", 0, 0)

	err := s.Transaction(ctx, func(tx store.Store) error {
		p, err := tx.GetPostForUpdate(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.ID, p.ID)

		got, err := tx.GetCommentForUpdate(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "locked read", got.Content)

		_, err = tx.GetPostForUpdate(ctx, 9999)
		return err
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteNotifications(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	u := tester.User(t, s)
	other := tester.User(t, s)

	for range 3 {
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: u.ID, Type: models.NotificationTypeComment}))
	}
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: other.ID, Type: models.NotificationTypeComment}))

	list, err := s.ListNotifications(ctx, u.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	// 只能删除自己的通知
	assert.ErrorIs(t, s.DeleteNotification(ctx, list[0].ID, other.ID), store.ErrNotFound)
	require.NoError(t, s.DeleteNotification(ctx, list[0].ID, u.ID))
	assert.ErrorIs(t, s.DeleteNotification(ctx, list[0].ID, u.ID), store.ErrNotFound)

	require.NoError(t, s.DeleteAllNotifications(ctx, u.ID))
	list, err = s.ListNotifications(ctx, u.ID, false, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.ListNotifications(ctx, other.ID, false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
