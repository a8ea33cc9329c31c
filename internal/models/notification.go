package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeComment        NotificationType = "comment"
	NotificationTypeReply          NotificationType = "reply"
	NotificationTypePostTransition NotificationType = "post_transition"
	NotificationTypeWikiReady      NotificationType = "wiki_ready"
	NotificationTypeWikiUpdated    NotificationType = "wiki_updated"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID   *uint            `gorm:"index" json:"actor_id"` // Sender, nil for system
	PostID    *uint            `gorm:"index" json:"post_id"`
	CommentID *uint            `json:"comment_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	Link      string           `json:"link"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
