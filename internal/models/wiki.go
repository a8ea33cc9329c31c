package models

import (
	"time"

	"gorm.io/datatypes"
)

type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationDisputed VerificationStatus = "disputed"
)

type Opinion struct {
	Text           string   `json:"text"`
	Strength       Strength `json:"strength,omitempty"`
	SourceComments []uint   `json:"source_comments"`
}

type Opinions struct {
	Supporting []Opinion `json:"supporting"`
	Opposing   []Opinion `json:"opposing"`
	Neutral    []Opinion `json:"neutral"`
}

type KeyPoint struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Importance     Importance `json:"importance"`
	SourceComments []uint     `json:"source_comments"`
}

type PendingQuestion struct {
	Question   string     `json:"question"`
	Context    string     `json:"context,omitempty"`
	Importance Importance `json:"importance,omitempty"`
}

// WikiContent wiki 的五个内容段落
type WikiContent struct {
	Summary          string            `json:"summary"`
	Opinions         Opinions          `json:"opinions"`
	KeyPoints        []KeyPoint        `json:"key_points"`
	PendingQuestions []PendingQuestion `json:"pending_questions"`
	Conclusion       string            `json:"conclusion"`
}

type DiscussionStats struct {
	TotalComments      int     `json:"total_comments"`
	UniqueParticipants int     `json:"unique_participants"`
	DiscussionDuration float64 `json:"discussion_duration"` // hours
}

// WikiRevision 历史版本快照，只追加
type WikiRevision struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Summary     string    `json:"summary"`
	Changes     string    `json:"changes"`
}

type Wiki struct {
	ID                 uint                              `gorm:"primaryKey" json:"id"`
	PostID             uint                              `gorm:"not null;uniqueIndex" json:"post_id"`
	Post               Post                              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Summary            string                            `gorm:"type:text;not null" json:"summary"`
	Opinions           Opinions                          `gorm:"type:text;serializer:json" json:"opinions"`
	KeyPoints          []KeyPoint                        `gorm:"type:text;serializer:json" json:"key_points"`
	PendingQuestions   []PendingQuestion                 `gorm:"type:text;serializer:json" json:"pending_questions"`
	Conclusion         string                            `gorm:"type:text" json:"conclusion"`
	Version            int                               `gorm:"not null;default:1" json:"version"`
	GeneratedBy        string                            `gorm:"size:20;default:'AI'" json:"generated_by"`
	GeneratedAt        time.Time                         `json:"generated_at"`
	Stats              DiscussionStats                   `gorm:"column:discussion_stats;type:text;serializer:json" json:"discussion_stats"`
	Completeness       int                               `gorm:"default:0" json:"completeness"`
	VerificationStatus VerificationStatus                `gorm:"size:20;default:'pending'" json:"verification_status"`
	PreviousVersions   datatypes.JSONSlice[WikiRevision] `json:"previous_versions"`
	CreatedAt          time.Time                         `json:"created_at"`
	UpdatedAt          time.Time                         `json:"updated_at"`
}

func (w *Wiki) Content() WikiContent {
	return WikiContent{
		Summary:          w.Summary,
		Opinions:         w.Opinions,
		KeyPoints:        w.KeyPoints,
		PendingQuestions: w.PendingQuestions,
		Conclusion:       w.Conclusion,
	}
}

// SetContent 替换五个内容段落
func (w *Wiki) SetContent(c WikiContent) {
	w.Summary = c.Summary
	w.Opinions = c.Opinions
	w.KeyPoints = c.KeyPoints
	w.PendingQuestions = c.PendingQuestions
	w.Conclusion = c.Conclusion
}
