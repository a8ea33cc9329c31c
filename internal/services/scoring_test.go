package services

import (
	"context"
	"testing"
	"time"

	"hivelog/internal/models"
	"hivelog/internal/tester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreServiceBatchesViews(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	score := NewScoreService(e.store)
	score.Start(ctx)
	posts := NewPostService(e.store, score)

	author := tester.User(t, e.store)
	post := tester.Post(t, e.store, author, time.Now().UTC())

	for range 10 {
		_, err := posts.Get(ctx, post.ID, 0)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		p, err := e.store.GetPost(context.Background(), post.ID)
		return err == nil && p.InteractionScore > 0.99
	}, 3*time.Second, 50*time.Millisecond)

	got := e.post(t, post.ID)
	assert.Equal(t, 10, got.ViewCount)
	assert.InDelta(t, 1.0, got.InteractionScore, 1e-9)
}

func TestScheduleUpdateDeduplicates(t *testing.T) {
	e := newEnv(t)
	score := NewScoreService(e.store)

	score.ScheduleUpdate(1)
	score.ScheduleUpdate(1)
	score.ScheduleUpdate(2)
	assert.Len(t, score.queue, 2)

	score.processBatch(context.Background(), []uint{1, 2})
	assert.Empty(t, score.pending)
}

func TestRefreshSandboxScores(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := tester.User(t, e.store)

	drifted := tester.Post(t, e.store, author, time.Now().UTC())
	require.NoError(t, e.store.UpdatePostFields(ctx, drifted.ID, map[string]any{"upvote_count": 4, "comment_count": 2}))
	e.setInteraction(t, drifted, 999)

	wiki := tester.Post(t, e.store, author, time.Now().UTC())
	require.NoError(t, e.store.UpdatePostFields(ctx, wiki.ID, map[string]any{"stage": models.StageWiki}))
	e.setInteraction(t, wiki, 999)

	n, err := NewScoreService(e.store).RefreshSandboxScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.InDelta(t, 14.0, e.post(t, drifted.ID).InteractionScore, 1e-9)
	assert.InDelta(t, 999.0, e.post(t, wiki.ID).InteractionScore, 1e-9)
}
