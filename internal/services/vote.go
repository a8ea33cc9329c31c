package services

import (
	"context"

	"hivelog/internal/models"
	"hivelog/internal/store"
)

// 声望动作
const (
	ActionPostVoted = "post vote"
)

type VoteResult struct {
	VoteScore     int             `json:"vote_score"`
	UpvoteCount   int             `json:"upvote_count"`
	DownvoteCount int             `json:"downvote_count"`
	UserVote      models.VoteType `json:"user_vote,omitempty"`
}

type VoteService struct {
	store store.Store
}

func NewVoteService(s store.Store) *VoteService {
	return &VoteService{store: s}
}

// ApplyVote 先把用户从赞和踩两个集合中移除，再按 voteType 加入其中一个。
// 同一调用重复执行结果不变；未识别的类型按 remove 处理。
// 只有帖子投票会调整作者声望，按新旧投票的净变化计算。
// 目标行在事务内加锁，并发投票按顺序重新计票，计数不会被旧值覆盖。
func (s *VoteService) ApplyVote(ctx context.Context, target models.TargetType, targetID, userID uint, voteType models.VoteType) (*VoteResult, error) {
	voteType = models.ParseVoteType(string(voteType))

	var result VoteResult
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var (
			authorID uint
			post     *models.Post
			comment  *models.Comment
			err      error
		)

		switch target {
		case models.TargetPost:
			post, err = tx.GetPostForUpdate(ctx, targetID)
			if err != nil {
				return translate(err)
			}
			if !post.IsActive {
				return ErrNotFound
			}
			authorID = post.UserID
		case models.TargetComment:
			comment, err = tx.GetCommentForUpdate(ctx, targetID)
			if err != nil {
				return translate(err)
			}
			if comment.IsDeleted {
				return ErrNotFound
			}
		default:
			return invalid("unknown vote target %q", target)
		}

		previous, err := tx.GetVote(ctx, userID, target, targetID)
		if err != nil {
			return err
		}

		if err := tx.ClearVote(ctx, userID, target, targetID); err != nil {
			return err
		}
		if voteType != models.VoteRemove {
			if err := tx.PutVote(ctx, &models.Vote{
				UserID:     userID,
				TargetType: target,
				TargetID:   targetID,
				Value:      voteType.Value(),
			}); err != nil {
				return err
			}
		}

		up, down, err := tx.CountVotes(ctx, target, targetID)
		if err != nil {
			return err
		}

		if post != nil {
			if err := tx.SetPostVotes(ctx, post.ID, up, down); err != nil {
				return err
			}
			if delta := voteType.Value() - previous.Type().Value(); delta != 0 {
				if err := tx.AddKarma(ctx, authorID, delta, ActionPostVoted); err != nil {
					return err
				}
			}
		} else if err := tx.SetCommentVotes(ctx, comment.ID, up, down); err != nil {
			return err
		}

		result = VoteResult{
			VoteScore:     up - down,
			UpvoteCount:   up,
			DownvoteCount: down,
		}
		if voteType != models.VoteRemove {
			result.UserVote = voteType
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
