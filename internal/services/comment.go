package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"hivelog/internal/config"
	"hivelog/internal/models"
	"hivelog/internal/notify"
	"hivelog/internal/store"
)

const maxCommentLength = 10000

type CommentService struct {
	store    store.Store
	notifier notify.Notifier
	cfg      config.Lifecycle
	now      func() time.Time
}

func NewCommentService(s store.Store, n notify.Notifier, cfg config.Lifecycle) *CommentService {
	return &CommentService{store: s, notifier: n, cfg: cfg, now: time.Now}
}

type CreateCommentInput struct {
	PostID   uint
	ParentID *uint
	Content  string
}

func validCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return "", invalid("content is required")
	}
	if n > maxCommentLength {
		return "", invalid("content must be at most %d characters", maxCommentLength)
	}
	return content, nil
}

// Create 创建评论或回复。回复深度为父评论深度加一，超过上限直接拒绝，不做任何写入
func (s *CommentService) Create(ctx context.Context, userID uint, in CreateCommentInput) (*models.Comment, error) {
	content, err := validCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	post, err := s.store.GetPost(ctx, in.PostID)
	if err != nil {
		return nil, translate(err)
	}
	if !post.IsActive {
		return nil, ErrNotFound
	}
	if post.IsLocked {
		return nil, ErrForbidden
	}

	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  userID,
		Content: content,
	}

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.store.GetComment(ctx, *in.ParentID)
		if err != nil {
			return nil, translate(err)
		}
		if parent.PostID != post.ID {
			return nil, invalid("parent comment belongs to another post")
		}
		comment.ParentID = &parent.ID
		comment.Depth = parent.Depth + 1
		if comment.Depth > s.cfg.MaxNestingDepth {
			return nil, ErrDepthLimit
		}
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateComment(ctx, comment); err != nil {
			return err
		}
		return tx.IncrementCommentCount(ctx, post.ID, 1)
	})
	if err != nil {
		return nil, err
	}

	if parent != nil {
		s.notifier.Reply(ctx, parent, comment)
	} else {
		s.notifier.NewComment(ctx, post, comment)
	}

	return s.store.GetComment(ctx, comment.ID)
}

// Edit 只有作者可以修改。只写内容相关的列，质量标记按库里当前的得分重新计算
func (s *CommentService) Edit(ctx context.Context, user *models.User, id uint, content string) (*models.Comment, error) {
	content, err := validCommentContent(content)
	if err != nil {
		return nil, err
	}

	comment, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if comment.IsDeleted {
		return nil, ErrNotFound
	}
	if comment.UserID != user.ID {
		return nil, ErrForbidden
	}

	if err := s.store.EditComment(ctx, id, content, s.now()); err != nil {
		return nil, translate(err)
	}
	return s.store.GetComment(ctx, id)
}

// Delete 软删除：保留节点让子回复继续挂在下面，内容替换为占位符
func (s *CommentService) Delete(ctx context.Context, user *models.User, id uint) error {
	comment, err := s.store.GetComment(ctx, id)
	if err != nil {
		return translate(err)
	}
	if comment.UserID != user.ID && !user.IsAdmin() {
		return ErrForbidden
	}
	if comment.IsDeleted {
		return nil
	}

	return s.store.Transaction(ctx, func(tx store.Store) error {
		deleted, err := tx.SoftDeleteComment(ctx, comment.ID, s.now())
		if err != nil || !deleted {
			// 并发删除只扣一次评论数
			return err
		}
		return tx.IncrementCommentCount(ctx, comment.PostID, -1)
	})
}

// Get 获取单条评论，viewerID 为 0 时不标注投票
func (s *CommentService) Get(ctx context.Context, id, viewerID uint) (*models.Comment, error) {
	comment, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if viewerID != 0 {
		vote, err := s.store.GetVote(ctx, viewerID, models.TargetComment, id)
		if err != nil {
			return nil, err
		}
		comment.UserVote = vote.Type()
	}
	return comment, nil
}
