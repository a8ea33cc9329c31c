package services

import (
	"context"
	"sort"

	"hivelog/internal/config"
	"hivelog/internal/models"
	"hivelog/internal/store"
)

type ThreadSort string

const (
	ThreadBest   ThreadSort = "best"
	ThreadRecent ThreadSort = "recent"
	ThreadOldest ThreadSort = "oldest"
)

// ParseThreadSort 未知值回退到 best
func ParseThreadSort(s string) ThreadSort {
	switch ThreadSort(s) {
	case ThreadRecent, ThreadOldest:
		return ThreadSort(s)
	}
	return ThreadBest
}

// ThreadNode 评论树节点。超过展示深度的节点 Replies 为空，MoreReplies 记录被折叠的直接回复数
type ThreadNode struct {
	*models.Comment
	Replies     []*ThreadNode `json:"replies"`
	MoreReplies int           `json:"more_replies,omitempty"`
}

type ThreadService struct {
	store store.Store
	cfg   config.Lifecycle
}

func NewThreadService(s store.Store, cfg config.Lifecycle) *ThreadService {
	return &ThreadService{store: s, cfg: cfg}
}

func lessFunc(mode ThreadSort) func(a, b *models.Comment) bool {
	switch mode {
	case ThreadRecent:
		return func(a, b *models.Comment) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	case ThreadOldest:
		return func(a, b *models.Comment) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	}
	return func(a, b *models.Comment) bool {
		if a.VoteScore != b.VoteScore {
			return a.VoteScore > b.VoteScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}
}

// BuildThread 一次取出帖子的全部有效评论，在内存里建树。
// viewerID 非 0 时为每个节点标注该用户的投票，不修改存储
func (s *ThreadService) BuildThread(ctx context.Context, postID uint, mode ThreadSort, viewerID uint) ([]*ThreadNode, error) {
	if _, err := activePost(ctx, s.store, postID); err != nil {
		return nil, err
	}

	comments, err := s.store.ListCommentsByPost(ctx, postID, false)
	if err != nil {
		return nil, err
	}

	if viewerID != 0 && len(comments) > 0 {
		ids := make([]uint, len(comments))
		for i, c := range comments {
			ids[i] = c.ID
		}
		votes, err := s.store.ListUserVotes(ctx, viewerID, models.TargetComment, ids)
		if err != nil {
			return nil, err
		}
		for _, c := range comments {
			c.UserVote = votes[c.ID]
		}
	}

	return buildForest(comments, lessFunc(mode), s.cfg.DisplayMaxDepth), nil
}

func buildForest(comments []*models.Comment, less func(a, b *models.Comment) bool, maxDepth int) []*ThreadNode {
	children := make(map[uint][]*models.Comment)
	var roots []*models.Comment
	for _, c := range comments {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	sortComments := func(list []*models.Comment) {
		sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
	}

	var attach func(c *models.Comment, level int) *ThreadNode
	attach = func(c *models.Comment, level int) *ThreadNode {
		node := &ThreadNode{Comment: c, Replies: []*ThreadNode{}}
		kids := children[c.ID]
		if level >= maxDepth {
			node.MoreReplies = len(kids)
			return node
		}
		sortComments(kids)
		for _, k := range kids {
			node.Replies = append(node.Replies, attach(k, level+1))
		}
		return node
	}

	sortComments(roots)
	forest := make([]*ThreadNode, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, attach(r, 0))
	}
	return forest
}
