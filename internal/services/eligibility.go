package services

import (
	"time"

	"hivelog/internal/config"
	"hivelog/internal/models"
)

const day = 24 * time.Hour

// DaysInSandbox 自进入沙盒起经过的天数（小数）
func DaysInSandbox(post *models.Post, now time.Time) float64 {
	return float64(now.Sub(post.SandboxStartDate)) / float64(day)
}

// IsEligibleForTransition 时间够长或互动够多，满足其一即可
func IsEligibleForTransition(post *models.Post, now time.Time, cfg config.Lifecycle) bool {
	if DaysInSandbox(post, now) >= float64(cfg.MinDays) {
		return true
	}
	return post.InteractionScore >= cfg.MinInteractionThreshold
}
