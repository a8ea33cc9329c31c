package services

import (
	"context"
	"sync"
	"time"

	"hivelog/internal/store"

	"github.com/sirupsen/logrus"
)

const (
	scoreQueueSize     = 1000
	scoreBatchSize     = 50
	scoreFlushInterval = 500 * time.Millisecond
)

// ScoreService 异步刷新帖子的互动分。浏览计数频繁，这里合并成批量更新
type ScoreService struct {
	store   store.PostStore
	queue   chan uint // 待更新的帖子 ID 队列
	pending map[uint]bool
	mu      sync.Mutex
}

func NewScoreService(s store.PostStore) *ScoreService {
	return &ScoreService{
		store:   s,
		queue:   make(chan uint, scoreQueueSize), // 缓冲队列，防止阻塞
		pending: make(map[uint]bool),
	}
}

// Start 启动后台 worker，ctx 结束时处理完剩余批次后退出
func (s *ScoreService) Start(ctx context.Context) {
	go s.worker(ctx)
}

// ScheduleUpdate 将帖子加入更新队列（异步），已在队列中的帖子跳过
func (s *ScoreService) ScheduleUpdate(postID uint) {
	s.mu.Lock()
	if s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		// 队列满了，移除 pending 标记
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		logrus.WithField("post_id", postID).Warn("score queue full, skipping update")
	}
}

func (s *ScoreService) worker(ctx context.Context) {
	// 批量处理：收集一批请求后统一处理
	batch := make([]uint, 0, scoreBatchSize)
	ticker := time.NewTicker(scoreFlushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		s.processBatch(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= scoreBatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return
		}
	}
}

func (s *ScoreService) processBatch(ctx context.Context, postIDs []uint) {
	// 先清除 pending 状态，刷新期间到来的更新会重新入队
	s.mu.Lock()
	for _, id := range postIDs {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if err := s.store.RefreshInteractionScore(ctx, postIDs...); err != nil {
		logrus.WithError(err).WithField("posts", len(postIDs)).Error("failed to refresh interaction scores")
	}
}

// RefreshSandboxScores 重新计算所有沙盒帖子的互动分，修正可能的计数漂移
func (s *ScoreService) RefreshSandboxScores(ctx context.Context) (int, error) {
	posts, err := s.store.ListSandboxPosts(ctx)
	if err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		return 0, nil
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	if err := s.store.RefreshInteractionScore(ctx, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}
