package services

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"hivelog/internal/models"
	"hivelog/internal/store"
)

const (
	maxBioLength       = 500
	maxAvatarLength    = 500
	profileRecentPosts = 10
)

type UserProfile struct {
	User         *models.User   `json:"user"`
	PostCount    int64          `json:"post_count"`
	CommentCount int64          `json:"comment_count"`
	RecentPosts  []*models.Post `json:"recent_posts"`
}

type CommentPage struct {
	Comments []*models.Comment `json:"comments"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
}

// UpdateProfileInput nil 字段保持不变
type UpdateProfileInput struct {
	Bio    *string
	Avatar *string
}

type UserService struct {
	store store.Store
	posts *PostService
}

func NewUserService(s store.Store, posts *PostService) *UserService {
	return &UserService{store: s, posts: posts}
}

// lookup 被封禁的用户不再公开展示
func (s *UserService) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, translate(err)
	}
	if !user.IsActive {
		return nil, ErrNotFound
	}
	return user, nil
}

// Profile 用户主页：基本信息、发帖数、评论数和最近的帖子
func (s *UserService) Profile(ctx context.Context, username string) (*UserProfile, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, postCount, err := s.store.ListPosts(ctx, store.PostFilter{
		UserID: user.ID,
		Sort:   store.SortRecent,
		Page:   1,
		Limit:  profileRecentPosts,
	})
	if err != nil {
		return nil, err
	}
	_, commentCount, err := s.store.ListCommentsByUser(ctx, user.ID, 1, 1)
	if err != nil {
		return nil, err
	}

	return &UserProfile{
		User:         user,
		PostCount:    postCount,
		CommentCount: commentCount,
		RecentPosts:  posts,
	}, nil
}

func (s *UserService) Posts(ctx context.Context, username string, page, limit int, viewerID uint) (*PostPage, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.posts.List(ctx, store.PostFilter{
		UserID: user.ID,
		Sort:   store.SortRecent,
		Page:   page,
		Limit:  limit,
	}, viewerID)
}

func (s *UserService) Comments(ctx context.Context, username string, page, limit int) (*CommentPage, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	comments, total, err := s.store.ListCommentsByUser(ctx, user.ID, page, limit)
	if err != nil {
		return nil, err
	}
	return &CommentPage{
		Comments: comments,
		Total:    total,
		Page:     page,
		Pages:    int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// UpdateProfile 修改自己的简介和头像，头像只接受 http(s) 地址或空串
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return nil, invalid("bio must be at most %d characters", maxBioLength)
		}
		in.Bio = &bio
	}
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		if avatar != "" {
			u, err := url.Parse(avatar)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || len(avatar) > maxAvatarLength {
				return nil, invalid("avatar must be an http(s) URL")
			}
		}
		in.Avatar = &avatar
	}

	if in.Bio != nil || in.Avatar != nil {
		if err := s.store.UpdateUserProfile(ctx, userID, in.Bio, in.Avatar); err != nil {
			return nil, translate(err)
		}
	}
	return s.store.GetUser(ctx, userID)
}
