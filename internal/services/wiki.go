package services

import (
	"context"
	"slices"
	"time"

	"hivelog/internal/config"
	"hivelog/internal/models"
	"hivelog/internal/notify"
	"hivelog/internal/store"
	"hivelog/internal/utils"

	"github.com/sirupsen/logrus"
)

const (
	previousVersionNote = "Previous version before update"
	wikiCacheSize       = 500
	wikiCacheTTL        = 5 * time.Minute
)

// WikiView 对外返回的 wiki，附带渲染后的 HTML
type WikiView struct {
	*models.Wiki
	SummaryHTML    string `json:"summary_html"`
	ConclusionHTML string `json:"conclusion_html"`
}

type VersionHistory struct {
	CurrentVersion   int                   `json:"current_version"`
	GeneratedAt      time.Time             `json:"generated_at"`
	PreviousVersions []models.WikiRevision `json:"versions"`
}

type UpdateResult struct {
	Wiki    *models.Wiki `json:"wiki"`
	Changes string       `json:"changes"`
}

type WikiService struct {
	store    store.Store
	synth    *SynthesisService
	notifier notify.Notifier
	cfg      config.Lifecycle
	cache    *utils.Cache[uint, *WikiView]
	now      func() time.Time
}

func NewWikiService(s store.Store, synth *SynthesisService, n notify.Notifier, cfg config.Lifecycle) *WikiService {
	return &WikiService{
		store:    s,
		synth:    synth,
		notifier: n,
		cfg:      cfg,
		cache:    utils.NewCache[uint, *WikiView](wikiCacheSize, wikiCacheTTL),
		now:      time.Now,
	}
}

// Get 按帖子读取 wiki（带缓存）。帖子是否有效每次都查，缓存里只放渲染结果
func (s *WikiService) Get(ctx context.Context, postID uint) (*WikiView, error) {
	if _, err := activePost(ctx, s.store, postID); err != nil {
		return nil, err
	}
	return s.cache.GetOrLoad(postID, func() (*WikiView, error) {
		wiki, err := s.store.GetWikiByPost(ctx, postID)
		if err != nil {
			return nil, translate(err)
		}
		return &WikiView{
			Wiki:           wiki,
			SummaryHTML:    utils.RenderMarkdown(wiki.Summary),
			ConclusionHTML: utils.RenderMarkdown(wiki.Conclusion),
		}, nil
	})
}

// GetByID 按 wiki 自身的 ID 读取
func (s *WikiService) GetByID(ctx context.Context, id uint) (*WikiView, error) {
	wiki, err := s.store.GetWiki(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return s.Get(ctx, wiki.PostID)
}

func (s *WikiService) Versions(ctx context.Context, postID uint) (*VersionHistory, error) {
	if _, err := activePost(ctx, s.store, postID); err != nil {
		return nil, err
	}
	wiki, err := s.store.GetWikiByPost(ctx, postID)
	if err != nil {
		return nil, translate(err)
	}
	return &VersionHistory{
		CurrentVersion:   wiki.Version,
		GeneratedAt:      wiki.GeneratedAt,
		PreviousVersions: wiki.PreviousVersions,
	}, nil
}

// SetVerification 标记为已核实或有争议
func (s *WikiService) SetVerification(ctx context.Context, postID uint, status models.VerificationStatus) (*models.Wiki, error) {
	switch status {
	case models.VerificationVerified, models.VerificationDisputed, models.VerificationPending:
	default:
		return nil, invalid("unknown verification status %q", status)
	}
	if _, err := activePost(ctx, s.store, postID); err != nil {
		return nil, err
	}

	wiki, err := s.store.GetWikiByPost(ctx, postID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.store.SetVerificationStatus(ctx, wiki.ID, status); err != nil {
		return nil, translate(err)
	}
	s.cache.Delete(postID)

	wiki.VerificationStatus = status
	return wiki, nil
}

// UpdateWiki 用 wiki 生成之后出现的高质量评论做增量更新。
// AI 失败或返回内容不合法时 wiki 不做任何修改；历史快照与新内容在同一事务中写入
func (s *WikiService) UpdateWiki(ctx context.Context, postID uint) (*UpdateResult, error) {
	post, err := activePost(ctx, s.store, postID)
	if err != nil {
		return nil, err
	}
	if post.Stage != models.StageWiki {
		return nil, &StateError{PostID: post.ID, Actual: post.Stage, Expected: models.StageWiki}
	}

	wiki, err := s.store.GetWikiByPost(ctx, post.ID)
	if err != nil {
		return nil, translate(err)
	}

	newComments, err := s.store.ListHighQualityCommentsSince(ctx, post.ID, wiki.GeneratedAt, s.cfg.MaxNewCommentsPerUpdate)
	if err != nil {
		return nil, err
	}
	if len(newComments) == 0 {
		return nil, ErrNothingToUpdate
	}

	log := logrus.WithFields(logrus.Fields{
		"post_id":      post.ID,
		"wiki_version": wiki.Version,
		"new_comments": len(newComments),
	})
	log.Info("updating wiki")

	rev, err := s.synth.Revise(ctx, post, wiki, newComments)
	if err != nil {
		log.WithError(err).Warn("wiki update failed")
		return nil, err
	}

	now := s.now()
	expected := wiki.Version

	wiki.PreviousVersions = append(slices.Clone(wiki.PreviousVersions), models.WikiRevision{
		Version:     wiki.Version,
		GeneratedAt: wiki.GeneratedAt,
		Summary:     wiki.Summary,
		Changes:     previousVersionNote,
	})
	wiki.Version = expected + 1
	wiki.SetContent(rev.Content)
	wiki.GeneratedAt = now
	wiki.Completeness = rev.Completeness
	wiki.VerificationStatus = models.VerificationPending

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		ok, err := tx.UpdateWikiIfVersion(ctx, wiki, expected)
		if err != nil {
			return err
		}
		if !ok {
			// 并发更新已经写入了新版本
			return ErrStateConflict
		}
		return tx.SetWikiVersion(ctx, post.ID, wiki.Version, now)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Delete(post.ID)
	s.notifier.WikiUpdated(ctx, post, wiki.Version)
	log.WithField("new_version", wiki.Version).Info("wiki updated")

	return &UpdateResult{Wiki: wiki, Changes: rev.Changes}, nil
}
