package models

import (
	"time"
)

type VoteType string

const (
	VoteUp     VoteType = "up"
	VoteDown   VoteType = "down"
	VoteRemove VoteType = "remove"
)

// ParseVoteType 未识别的值一律视为 remove
func ParseVoteType(s string) VoteType {
	switch VoteType(s) {
	case VoteUp:
		return VoteUp
	case VoteDown:
		return VoteDown
	}
	return VoteRemove
}

// Value 1 / -1 / 0
func (v VoteType) Value() int {
	switch v {
	case VoteUp:
		return 1
	case VoteDown:
		return -1
	}
	return 0
}

type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Vote 每个用户对每个目标最多一条记录，Value 决定落在赞集合还是踩集合
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_user_target" json:"user_id"`
	TargetType TargetType `gorm:"size:10;not null;uniqueIndex:idx_user_target;index:idx_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_user_target;index:idx_target" json:"target_id"`
	Value      int        `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt  time.Time  `json:"created_at"`
}

// Type 将 Value 转回 VoteType
func (v *Vote) Type() VoteType {
	if v == nil {
		return ""
	}
	switch v.Value {
	case 1:
		return VoteUp
	case -1:
		return VoteDown
	}
	return ""
}
