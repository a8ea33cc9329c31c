package store

import (
	"context"
	"errors"
	"time"

	"hivelog/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

type Store interface {
	PostStore
	CommentStore
	VoteStore
	WikiStore
	UserStore
	NotificationStore
	// Transaction runs f inside a single database transaction.
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

// PostSort 帖子列表排序方式
type PostSort string

const (
	SortRecent    PostSort = "recent"
	SortPopular   PostSort = "popular"
	SortTrending  PostSort = "trending"
	SortDiscussed PostSort = "discussed"
)

type PostFilter struct {
	UserID   uint
	Stage    models.Stage
	Category models.Category
	Search   string
	Sort     PostSort
	Page     int
	Limit    int
}

type PostStore interface {
	// CreatePost creates a new post.
	CreatePost(ctx context.Context, post *models.Post) error
	// GetPost retrieves an active or inactive post by ID with its author.
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	// GetPostForUpdate retrieves a post and locks its row until the transaction ends.
	GetPostForUpdate(ctx context.Context, id uint) (*models.Post, error)
	// ListPosts retrieves active posts matching the filter and the total count, pinned posts first.
	ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error)
	// ListSandboxPosts retrieves active posts that are still in the sandbox stage.
	ListSandboxPosts(ctx context.Context) ([]*models.Post, error)
	// SetStageIfCurrent moves a post from expected to next stage atomically.
	// It reports false when the post was not in the expected stage.
	SetStageIfCurrent(ctx context.Context, id uint, expected, next models.Stage) (bool, error)
	// CompleteTransition moves a processing post to the wiki stage and stamps the wiki fields.
	CompleteTransition(ctx context.Context, id uint, at time.Time) (bool, error)
	// SetWikiVersion mirrors the wiki version on the post.
	SetWikiVersion(ctx context.Context, id uint, version int, at time.Time) error
	// UpdatePostFields updates the given columns only.
	UpdatePostFields(ctx context.Context, id uint, fields map[string]any) error
	// SetPostVotes stores the vote tallies and the derived scores.
	SetPostVotes(ctx context.Context, id uint, up, down int) error
	// IncrementCommentCount adjusts the comment counter and the interaction score atomically.
	IncrementCommentCount(ctx context.Context, id uint, delta int) error
	// IncrementViewCount adds one view.
	IncrementViewCount(ctx context.Context, id uint) error
	// RefreshInteractionScore recomputes the interaction score from the stored counters.
	RefreshInteractionScore(ctx context.Context, ids ...uint) error
}

type CommentStore interface {
	// CreateComment creates a new comment.
	CreateComment(ctx context.Context, comment *models.Comment) error
	// GetComment retrieves a comment by ID with its author.
	GetComment(ctx context.Context, id uint) (*models.Comment, error)
	// GetCommentForUpdate retrieves a comment and locks its row until the transaction ends.
	GetCommentForUpdate(ctx context.Context, id uint) (*models.Comment, error)
	// SetCommentVotes stores the vote tallies and recomputes quality from the stored content.
	SetCommentVotes(ctx context.Context, id uint, up, down int) error
	// EditComment replaces the content and recomputes quality from the stored vote score.
	EditComment(ctx context.Context, id uint, content string, at time.Time) error
	// SoftDeleteComment marks a live comment deleted. It reports false when it was already deleted.
	SoftDeleteComment(ctx context.Context, id uint, at time.Time) (bool, error)
	// ListCommentsByUser retrieves a user's live comments, newest first, and the total count.
	ListCommentsByUser(ctx context.Context, userID uint, page, limit int) ([]*models.Comment, int64, error)
	// ListCommentsByPost retrieves all comments of a post with authors.
	ListCommentsByPost(ctx context.Context, postID uint, includeDeleted bool) ([]*models.Comment, error)
	// ListHighQualityCommentsSince retrieves live high-quality comments created after since, best first.
	ListHighQualityCommentsSince(ctx context.Context, postID uint, since time.Time, limit int) ([]*models.Comment, error)
}

type VoteStore interface {
	// GetVote retrieves the vote of a user on a target, nil when absent.
	GetVote(ctx context.Context, userID uint, target models.TargetType, targetID uint) (*models.Vote, error)
	// ClearVote removes the user from both vote sets of a target.
	ClearVote(ctx context.Context, userID uint, target models.TargetType, targetID uint) error
	// PutVote adds the user to one vote set of a target, replacing any concurrent value.
	PutVote(ctx context.Context, vote *models.Vote) error
	// CountVotes returns the size of the up and down sets of a target.
	CountVotes(ctx context.Context, target models.TargetType, targetID uint) (up, down int, err error)
	// ListUserVotes returns the user's votes on the given targets keyed by target ID.
	ListUserVotes(ctx context.Context, userID uint, target models.TargetType, targetIDs []uint) (map[uint]models.VoteType, error)
}

type WikiStore interface {
	// CreateWiki creates the first wiki version of a post.
	CreateWiki(ctx context.Context, wiki *models.Wiki) error
	// GetWiki retrieves a wiki by ID.
	GetWiki(ctx context.Context, id uint) (*models.Wiki, error)
	// GetWikiByPost retrieves the wiki of a post.
	GetWikiByPost(ctx context.Context, postID uint) (*models.Wiki, error)
	// UpdateWikiIfVersion writes the wiki only when the stored version equals expected.
	UpdateWikiIfVersion(ctx context.Context, wiki *models.Wiki, expected int) (bool, error)
	// SetVerificationStatus updates the verification status of a wiki.
	SetVerificationStatus(ctx context.Context, id uint, status models.VerificationStatus) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdateUserProfile updates the non-nil profile fields.
	UpdateUserProfile(ctx context.Context, id uint, bio, avatar *string) error
	// SetUserActive enables or disables an account.
	SetUserActive(ctx context.Context, id uint, active bool) error
	// AddKarma records a karma change and updates the balance.
	AddKarma(ctx context.Context, userID uint, amount int, action string) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkNotificationRead(ctx context.Context, id, userID uint) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) error
	DeleteNotification(ctx context.Context, id, userID uint) error
	DeleteAllNotifications(ctx context.Context, userID uint) error
}
