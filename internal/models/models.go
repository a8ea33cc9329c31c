package models

import "gorm.io/gorm"

// Migrate 自动迁移所有表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Post{},
		&Comment{},
		&Vote{},
		&Wiki{},
		&KarmaLog{},
		&Notification{},
	)
}
