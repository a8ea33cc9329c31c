package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"hivelog/internal/config"
	"hivelog/internal/models"
	"hivelog/internal/notify"
	"hivelog/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TransitionService 驱动 sandbox -> processing -> wiki 状态机
type TransitionService struct {
	store    store.Store
	synth    *SynthesisService
	notifier notify.Notifier
	cfg      config.Lifecycle
	now      func() time.Time
}

func NewTransitionService(s store.Store, synth *SynthesisService, n notify.Notifier, cfg config.Lifecycle) *TransitionService {
	return &TransitionService{
		store:    s,
		synth:    synth,
		notifier: n,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunSweep 扫描所有沙盒帖子，对满足条件的逐个转换。
// 单个帖子失败只记录日志，不影响其他帖子；返回成功转换的数量
func (s *TransitionService) RunSweep(ctx context.Context, now time.Time) (int, error) {
	log := logrus.WithField("run_id", uuid.NewString())

	posts, err := s.store.ListSandboxPosts(ctx)
	if err != nil {
		return 0, err
	}

	var eligible []*models.Post
	for _, p := range posts {
		if IsEligibleForTransition(p, now, s.cfg) {
			eligible = append(eligible, p)
		}
	}
	log.WithFields(logrus.Fields{
		"sandbox":  len(posts),
		"eligible": len(eligible),
	}).Info("transition sweep started")

	var transitioned atomic.Int64
	var g errgroup.Group
	g.SetLimit(max(s.cfg.SweepConcurrency, 1))

	for _, post := range eligible {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			plog := log.WithField("post_id", post.ID)
			if _, err := s.transition(ctx, post, now); err != nil {
				plog.WithError(err).Error("post transition failed")
				return nil
			}
			transitioned.Add(1)
			plog.Info("post transitioned to wiki")
			return nil
		})
	}
	_ = g.Wait()

	count := int(transitioned.Load())
	log.WithField("transitioned", count).Info("transition sweep finished")
	return count, nil
}

// ManualTransition 立即转换单个帖子，帖子必须处于 sandbox 阶段
func (s *TransitionService) ManualTransition(ctx context.Context, postID uint) (*models.Wiki, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, translate(err)
	}
	if !post.IsActive {
		return nil, ErrNotFound
	}
	if post.Stage != models.StageSandbox {
		return nil, &StateError{PostID: post.ID, Actual: post.Stage, Expected: models.StageSandbox}
	}
	return s.transition(ctx, post, s.now())
}

// ForceRollback 把卡在 processing 的帖子放回 sandbox
func (s *TransitionService) ForceRollback(ctx context.Context, postID uint) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return translate(err)
	}
	if post.Stage != models.StageProcessing {
		return &StateError{PostID: post.ID, Actual: post.Stage, Expected: models.StageProcessing}
	}

	ok, err := s.store.SetStageIfCurrent(ctx, post.ID, models.StageProcessing, models.StageSandbox)
	if err != nil {
		return err
	}
	if !ok {
		return s.stateError(ctx, post.ID, models.StageProcessing)
	}

	logrus.WithField("post_id", post.ID).Warn("post forced back to sandbox")
	post.Stage = models.StageSandbox
	s.notifier.PostTransition(ctx, post, models.StageSandbox)
	s.notifier.PostRolledBack(ctx, post, notify.RollbackForced)
	return nil
}

func (s *TransitionService) stateError(ctx context.Context, postID uint, expected models.Stage) error {
	e := &StateError{PostID: postID, Expected: expected}
	if current, err := s.store.GetPost(ctx, postID); err == nil {
		e.Actual = current.Stage
	}
	return e
}

func (s *TransitionService) transition(ctx context.Context, post *models.Post, now time.Time) (*models.Wiki, error) {
	log := logrus.WithField("post_id", post.ID)

	// 先占位再调用 AI，同时挡住并发的第二次转换
	ok, err := s.store.SetStageIfCurrent(ctx, post.ID, models.StageSandbox, models.StageProcessing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.stateError(ctx, post.ID, models.StageSandbox)
	}
	post.Stage = models.StageProcessing
	log.WithField("stage", post.Stage).Info("post entered processing")
	s.notifier.PostTransition(ctx, post, models.StageProcessing)

	wiki, err := s.synthesize(ctx, post, now)
	if err != nil {
		s.rollback(ctx, post, err)
		return nil, err
	}

	post.Stage = models.StageWiki
	post.SandboxEndDate = &now
	post.WikiVersion = 1
	post.LastWikiUpdate = &now

	s.notifier.PostTransition(ctx, post, models.StageWiki)
	s.notifier.WikiReady(ctx, post)
	return wiki, nil
}

func (s *TransitionService) synthesize(ctx context.Context, post *models.Post, now time.Time) (*models.Wiki, error) {
	comments, err := s.store.ListCommentsByPost(ctx, post.ID, true)
	if err != nil {
		return nil, err
	}

	result, err := s.synth.Synthesize(ctx, post, comments, now)
	if err != nil {
		return nil, err
	}

	wiki := &models.Wiki{
		PostID:             post.ID,
		Version:            1,
		GeneratedBy:        "AI",
		GeneratedAt:        now,
		Stats:              result.Stats,
		Completeness:       result.Completeness,
		VerificationStatus: models.VerificationPending,
		PreviousVersions:   []models.WikiRevision{},
	}
	wiki.SetContent(result.Content)

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateWiki(ctx, wiki); err != nil {
			return err
		}
		ok, err := tx.CompleteTransition(ctx, post.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// 生成期间被管理员强制回滚
			return &StateError{PostID: post.ID, Actual: models.StageSandbox, Expected: models.StageProcessing}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wiki, nil
}

// rollback 失败后回到 sandbox，等待下一轮扫描
func (s *TransitionService) rollback(ctx context.Context, post *models.Post, cause error) {
	log := logrus.WithField("post_id", post.ID).WithError(cause)

	var stateErr *StateError
	if errors.As(cause, &stateErr) {
		log.Warn("transition aborted, post no longer processing")
		return
	}

	// 原 ctx 可能已超时
	ctx = context.WithoutCancel(ctx)
	ok, err := s.store.SetStageIfCurrent(ctx, post.ID, models.StageProcessing, models.StageSandbox)
	if err != nil {
		log.WithField("rollback_error", err).Error("failed to roll post back to sandbox")
		return
	}
	if ok {
		post.Stage = models.StageSandbox
		log.Warn("transition failed, post rolled back to sandbox")
		s.notifier.PostTransition(ctx, post, models.StageSandbox)
		s.notifier.PostRolledBack(ctx, post, notify.RollbackSynthesisFailed)
	}
}
