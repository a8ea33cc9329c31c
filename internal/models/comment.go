package models

import (
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

// DeletedCommentPlaceholder 软删除后替换的内容
const DeletedCommentPlaceholder = "[comment deleted]"

type Comment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PostID        uint       `gorm:"not null;index" json:"post_id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	ParentID      *uint      `gorm:"index" json:"parent_id"` // Nullable for top-level comments
	Depth         int        `gorm:"default:0" json:"depth"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	UpvoteCount   int        `gorm:"default:0" json:"upvote_count"`
	DownvoteCount int        `gorm:"default:0" json:"downvote_count"`
	VoteScore     int        `gorm:"default:0;index" json:"vote_score"`
	QualityScore  float64    `gorm:"default:0" json:"quality_score"`
	IsHighQuality bool       `gorm:"default:false;index" json:"is_high_quality"`
	IsEdited      bool       `gorm:"default:false" json:"is_edited"`
	EditedAt      *time.Time `json:"edited_at"`
	IsDeleted     bool       `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	UserVote VoteType `gorm:"-" json:"user_vote,omitempty"`
}

// Recalculate 重新计算票数得分和质量标记
func (c *Comment) Recalculate() {
	c.VoteScore = c.UpvoteCount - c.DownvoteCount
	c.QualityScore, c.IsHighQuality = ClassifyQuality(c.VoteScore, utf8.RuneCountInString(c.Content))
}

func (c *Comment) BeforeSave(tx *gorm.DB) error {
	c.Recalculate()
	return nil
}

// ClassifyQuality 质量分 = 得分 + 长度/100；
// 高质量：得分 > 10，或者长度 > 200 且得分 > 5
func ClassifyQuality(voteScore, contentLength int) (float64, bool) {
	score := float64(voteScore) + float64(contentLength)/100
	high := voteScore > 10 || (contentLength > 200 && voteScore > 5)
	return score, high
}
