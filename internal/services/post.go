package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"hivelog/internal/models"
	"hivelog/internal/store"

	mapset "github.com/deckarep/golang-set/v2"
	"gorm.io/datatypes"
)

const (
	minTitleLength   = 5
	maxTitleLength   = 300
	minContentLength = 10
	maxTags          = 10
)

type PostService struct {
	store store.Store
	score *ScoreService
	now   func() time.Time
}

func NewPostService(s store.Store, score *ScoreService) *PostService {
	return &PostService{store: s, score: score, now: time.Now}
}

type CreatePostInput struct {
	Title    string
	Content  string
	Category models.Category
	Tags     []string
}

// UpdatePostInput nil 字段保持不变
type UpdatePostInput struct {
	Title   *string
	Content *string
	Tags    []string
}

type PostPage struct {
	Posts []*models.Post `json:"posts"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
}

func validTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n < minTitleLength || n > maxTitleLength {
		return "", invalid("title must be between %d and %d characters", minTitleLength, maxTitleLength)
	}
	return s, nil
}

func validContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < minContentLength {
		return "", invalid("content must be at least %d characters", minContentLength)
	}
	return s, nil
}

// normalizeTags 去空白、转小写、去重
func normalizeTags(tags []string) datatypes.JSONSlice[string] {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make(datatypes.JSONSlice[string], 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || !seen.Add(t) {
			continue
		}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

// activePost 已下线的帖子对外一律当作不存在
func activePost(ctx context.Context, s store.PostStore, id uint) (*models.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !post.IsActive {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, userID uint, in CreatePostInput) (*models.Post, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	content, err := validContent(in.Content)
	if err != nil {
		return nil, err
	}
	if in.Category == "" {
		in.Category = models.CategoryGeneral
	}
	if !in.Category.Valid() {
		return nil, invalid("unknown category %q", in.Category)
	}

	post := &models.Post{
		UserID:           userID,
		Title:            title,
		Content:          content,
		Category:         in.Category,
		Tags:             normalizeTags(in.Tags),
		Stage:            models.StageSandbox,
		SandboxStartDate: s.now(),
		IsActive:         true,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, post.ID)
}

func (s *PostService) List(ctx context.Context, filter store.PostFilter, viewerID uint) (*PostPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	posts, total, err := s.store.ListPosts(ctx, filter)
	if err != nil {
		return nil, err
	}

	if viewerID != 0 && len(posts) > 0 {
		ids := make([]uint, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		votes, err := s.store.ListUserVotes(ctx, viewerID, models.TargetPost, ids)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			p.UserVote = votes[p.ID]
		}
	}

	return &PostPage{
		Posts: posts,
		Total: total,
		Page:  filter.Page,
		Pages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
	}, nil
}

// Get 读取帖子并累加浏览数，互动分交给后台批量刷新
func (s *PostService) Get(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	post, err := activePost(ctx, s.store, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.IncrementViewCount(ctx, post.ID); err != nil {
		return nil, err
	}
	post.ViewCount++
	if s.score != nil {
		s.score.ScheduleUpdate(post.ID)
	}

	if viewerID != 0 {
		vote, err := s.store.GetVote(ctx, viewerID, models.TargetPost, post.ID)
		if err != nil {
			return nil, err
		}
		post.UserVote = vote.Type()
	}
	return post, nil
}

// Update 只有作者可以修改标题、内容和标签
func (s *PostService) Update(ctx context.Context, user *models.User, id uint, in UpdatePostInput) (*models.Post, error) {
	post, err := activePost(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != user.ID {
		return nil, ErrForbidden
	}

	fields := map[string]any{}
	if in.Title != nil {
		title, err := validTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if in.Content != nil {
		content, err := validContent(*in.Content)
		if err != nil {
			return nil, err
		}
		fields["content"] = content
	}
	if in.Tags != nil {
		fields["tags"] = normalizeTags(in.Tags)
	}
	if len(fields) == 0 {
		return post, nil
	}

	if err := s.store.UpdatePostFields(ctx, post.ID, fields); err != nil {
		return nil, translate(err)
	}
	return s.store.GetPost(ctx, post.ID)
}

// Deactivate 软删除，作者或管理员
func (s *PostService) Deactivate(ctx context.Context, user *models.User, id uint) error {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return translate(err)
	}
	if post.UserID != user.ID && !user.IsAdmin() {
		return ErrForbidden
	}
	if !post.IsActive {
		return nil
	}
	return translate(s.store.UpdatePostFields(ctx, post.ID, map[string]any{"is_active": false}))
}

// SetPinned 置顶帖子排在列表最前面
func (s *PostService) SetPinned(ctx context.Context, id uint, pinned bool) (*models.Post, error) {
	return s.setFlag(ctx, id, "is_pinned", pinned)
}

// SetLocked 锁定后不再接受新评论
func (s *PostService) SetLocked(ctx context.Context, id uint, locked bool) (*models.Post, error) {
	return s.setFlag(ctx, id, "is_locked", locked)
}

func (s *PostService) setFlag(ctx context.Context, id uint, column string, value bool) (*models.Post, error) {
	post, err := activePost(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePostFields(ctx, post.ID, map[string]any{column: value}); err != nil {
		return nil, translate(err)
	}
	return s.store.GetPost(ctx, post.ID)
}
