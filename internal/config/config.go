package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Lifecycle 帖子生命周期相关的阈值，注入到各个 service 中
type Lifecycle struct {
	MinDays                 int           // 沙盒最少天数
	MinInteractionThreshold float64       // 互动分阈值
	MaxCommentContextSize   int           // 生成 wiki 时最多带入的评论数
	MaxNewCommentsPerUpdate int           // 增量更新时最多带入的新评论数
	MaxNestingDepth         int           // 评论创建的硬性嵌套上限
	DisplayMaxDepth         int           // 评论树展示深度
	SynthesisTimeout        time.Duration // 单次 AI 调用超时
	SweepConcurrency        int
}

// DefaultLifecycle 返回默认阈值
func DefaultLifecycle() Lifecycle {
	return Lifecycle{
		MinDays:                 30,
		MinInteractionThreshold: 50,
		MaxCommentContextSize:   50,
		MaxNewCommentsPerUpdate: 10,
		MaxNestingDepth:         10,
		DisplayMaxDepth:         5,
		SynthesisTimeout:        90 * time.Second,
		SweepConcurrency:        1,
	}
}

type LLM struct {
	Provider     string // openai | gemini
	BaseURL      string
	Token        string
	Model        string
	GeminiAPIKey string
}

type Config struct {
	Port               string
	DatabaseURL        string
	SessionSecret      string
	FrontendURL        string
	RedisAddr          string
	SlackToken         string
	SlackChannel       string
	LogLevel           string
	LogFormat          string
	TransitionSchedule string

	LLM       LLM
	Lifecycle Lifecycle
}

// Load loads configuration from .env and environment variables
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, reading env vars from system")
	}

	def := DefaultLifecycle()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=hivelog port=5432 sslmode=disable"),
		SessionSecret:      getEnv("SESSION_SECRET", "secret_key_change_me"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		SlackToken:         getEnv("SLACK_BOT_TOKEN", ""),
		SlackChannel:       getEnv("SLACK_CHANNEL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		TransitionSchedule: getEnv("TRANSITION_SCHEDULE", "@hourly"),
		LLM: LLM{
			Provider:     getEnv("LLM_PROVIDER", "openai"),
			BaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Token:        getEnv("LLM_TOKEN", ""),
			Model:        getEnv("LLM_MODEL", "gpt-4o-mini"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		},
		Lifecycle: Lifecycle{
			MinDays:                 getEnvInt("AI_SYNTHESIS_DELAY_DAYS", def.MinDays),
			MinInteractionThreshold: getEnvFloat("MIN_INTERACTION_THRESHOLD", def.MinInteractionThreshold),
			MaxCommentContextSize:   getEnvInt("MAX_COMMENT_CONTEXT", def.MaxCommentContextSize),
			MaxNewCommentsPerUpdate: getEnvInt("MAX_NEW_COMMENTS_PER_UPDATE", def.MaxNewCommentsPerUpdate),
			MaxNestingDepth:         getEnvInt("MAX_NESTING_DEPTH", def.MaxNestingDepth),
			DisplayMaxDepth:         getEnvInt("DISPLAY_MAX_DEPTH", def.DisplayMaxDepth),
			SynthesisTimeout:        getEnvDuration("SYNTHESIS_TIMEOUT", def.SynthesisTimeout),
			SweepConcurrency:        getEnvInt("SWEEP_CONCURRENCY", def.SweepConcurrency),
		},
	}
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	return c.Lifecycle.Validate()
}

func (l Lifecycle) Validate() error {
	if l.MinDays <= 0 {
		return fmt.Errorf("AI_SYNTHESIS_DELAY_DAYS must be positive")
	}
	if l.MinInteractionThreshold <= 0 {
		return fmt.Errorf("MIN_INTERACTION_THRESHOLD must be positive")
	}
	if l.MaxCommentContextSize <= 0 || l.MaxNewCommentsPerUpdate <= 0 {
		return fmt.Errorf("comment context limits must be positive")
	}
	if l.MaxNestingDepth <= 0 || l.DisplayMaxDepth <= 0 {
		return fmt.Errorf("nesting depths must be positive")
	}
	if l.SynthesisTimeout <= 0 {
		return fmt.Errorf("SYNTHESIS_TIMEOUT must be positive")
	}
	if l.SweepConcurrency <= 0 {
		return fmt.Errorf("SWEEP_CONCURRENCY must be positive")
	}
	return nil
}

// ConfigureLogging 设置 logrus 的级别和输出格式
func ConfigureLogging(c *Config) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}
