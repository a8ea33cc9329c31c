package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Stage 帖子生命周期阶段
type Stage string

const (
	StageSandbox    Stage = "sandbox"
	StageProcessing Stage = "processing"
	StageWiki       Stage = "wiki"
)

type Category string

const (
	CategoryQuestion   Category = "question"
	CategoryDiscussion Category = "discussion"
	CategoryIdea       Category = "idea"
	CategoryExperience Category = "experience"
	CategoryHelp       Category = "help"
	CategoryGeneral    Category = "general"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryQuestion, CategoryDiscussion, CategoryIdea, CategoryExperience, CategoryHelp, CategoryGeneral:
		return true
	}
	return false
}

// 互动分权重
const (
	WeightUpvote   = 2.0
	WeightDownvote = 1.0
	WeightComment  = 3.0
	WeightView     = 0.1
)

type Post struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	UserID           uint                        `gorm:"not null;index" json:"user_id"`
	User             User                        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Title            string                      `gorm:"size:300;not null" json:"title"`
	Content          string                      `gorm:"type:text;not null" json:"content"`
	Category         Category                    `gorm:"size:20;not null;index" json:"category"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	Stage            Stage                       `gorm:"size:20;not null;default:sandbox;index" json:"stage"`
	SandboxStartDate time.Time                   `gorm:"index" json:"sandbox_start_date"`
	SandboxEndDate   *time.Time                  `json:"sandbox_end_date"`
	UpvoteCount      int                         `gorm:"default:0" json:"upvote_count"`
	DownvoteCount    int                         `gorm:"default:0" json:"downvote_count"`
	VoteScore        int                         `gorm:"default:0;index" json:"vote_score"`
	ViewCount        int                         `gorm:"default:0" json:"view_count"`
	CommentCount     int                         `gorm:"default:0" json:"comment_count"`
	InteractionScore float64                     `gorm:"default:0" json:"interaction_score"`
	WikiVersion      int                         `gorm:"default:0" json:"wiki_version"`
	LastWikiUpdate   *time.Time                  `json:"last_wiki_update"`
	IsActive         bool                        `gorm:"default:true;index" json:"is_active"`
	IsPinned         bool                        `gorm:"default:false" json:"is_pinned"`
	IsLocked         bool                        `gorm:"default:false" json:"is_locked"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`

	// 非数据库字段，查询时按当前用户填充
	UserVote VoteType `gorm:"-" json:"user_vote,omitempty"`
}

// Recalculate 重新计算派生字段
func (p *Post) Recalculate() {
	p.VoteScore = p.UpvoteCount - p.DownvoteCount
	p.InteractionScore = InteractionScore(p.UpvoteCount, p.DownvoteCount, p.CommentCount, p.ViewCount)
}

func (p *Post) BeforeSave(tx *gorm.DB) error {
	p.Recalculate()
	return nil
}

// InteractionScore 2×赞 + 1×踩 + 3×评论 + 0.1×浏览
func InteractionScore(up, down, comments, views int) float64 {
	return float64(up)*WeightUpvote +
		float64(down)*WeightDownvote +
		float64(comments)*WeightComment +
		float64(views)*WeightView
}

// InteractionScoreExpr 与 InteractionScore 等价的 SQL 表达式，用于原子更新
const InteractionScoreExpr = "upvote_count * 2 + downvote_count * 1 + comment_count * 3 + view_count * 0.1"
