package models

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"-"`
	Password  string    `gorm:"not null" json:"-"` // Hash
	Avatar    string    `json:"avatar"`
	Bio       string    `gorm:"size:500" json:"bio"`
	Karma     int       `gorm:"default:0" json:"karma"`
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanModerate 版主和管理员
func (u *User) CanModerate() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleModerator)
}
