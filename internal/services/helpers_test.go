package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"hivelog/internal/config"
	"hivelog/internal/llm"
	"hivelog/internal/models"
	"hivelog/internal/notify"
	"hivelog/internal/store"
	"hivelog/internal/tester"

	"gorm.io/gorm"
)

// fakeAI 可编程的 AI 替身
type fakeAI struct {
	mu       sync.Mutex
	generate func(ctx context.Context, dc llm.DiscussionContext) (string, error)
	update   func(ctx context.Context, uc llm.UpdateContext) (string, error)
	contexts []llm.DiscussionContext
	updates  []llm.UpdateContext
}

func (f *fakeAI) Generate(ctx context.Context, dc llm.DiscussionContext) (string, error) {
	f.mu.Lock()
	f.contexts = append(f.contexts, dc)
	fn := f.generate
	f.mu.Unlock()
	if fn == nil {
		return scenarioAJSON(), nil
	}
	return fn(ctx, dc)
}

func (f *fakeAI) Update(ctx context.Context, uc llm.UpdateContext) (string, error) {
	f.mu.Lock()
	f.updates = append(f.updates, uc)
	fn := f.update
	f.mu.Unlock()
	if fn == nil {
		return updateJSON("Updated summary that folds in the new arguments.", "Added the new arguments"), nil
	}
	return fn(ctx, uc)
}

// scenarioAContent 120 字摘要、2 条支持、0 条反对、4 个要点、60 字结论、1 个待解决问题
func scenarioAContent() map[string]any {
	return map[string]any{
		"summary": strings.Repeat("s", 120),
		"opinions": map[string]any{
			"supporting": []any{
				map[string]any{"text": "Fewer meetings", "strength": "strong", "source_comments": []any{1}},
				map[string]any{"text": "Better focus", "strength": "moderate", "source_comments": []any{2, 99}},
			},
			"opposing": []any{},
			"neutral":  []any{},
		},
		"key_points": []any{
			map[string]any{"title": "a", "description": "a", "importance": "high", "source_comments": []any{1}},
			map[string]any{"title": "b", "description": "b", "importance": "medium"},
			map[string]any{"title": "c", "description": "c", "importance": "low"},
			map[string]any{"title": "d", "description": "d", "importance": "high"},
		},
		"pending_questions": []any{"Does it scale to support teams?"},
		"conclusion":       strings.Repeat("c", 60),
	}
}

func scenarioAJSON() string {
	b, _ := json.Marshal(scenarioAContent())
	return string(b)
}

func updateJSON(summary, changes string) string {
	c := scenarioAContent()
	c["summary"] = summary
	c["changes"] = changes
	b, _ := json.Marshal(c)
	return string(b)
}

type env struct {
	db       *gorm.DB
	store    *store.GormStore
	ai       *fakeAI
	rec      *notify.Recorder
	cfg      config.Lifecycle
	synth    *SynthesisService
	trans    *TransitionService
	wikis    *WikiService
	comments *CommentService
	threads  *ThreadService
	votes    *VoteService
	posts    *PostService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := tester.DB(t)
	s := store.NewGormStore(db)
	ai := &fakeAI{}
	rec := &notify.Recorder{}
	cfg := config.DefaultLifecycle()
	cfg.SynthesisTimeout = 2 * time.Second

	synth := NewSynthesisService(ai, cfg)
	return &env{
		db:       db,
		store:    s,
		ai:       ai,
		rec:      rec,
		cfg:      cfg,
		synth:    synth,
		trans:    NewTransitionService(s, synth, rec, cfg),
		wikis:    NewWikiService(s, synth, rec, cfg),
		comments: NewCommentService(s, rec, cfg),
		threads:  NewThreadService(s, cfg),
		votes:    NewVoteService(s),
		posts:    NewPostService(s, nil),
	}
}

func (e *env) post(t *testing.T, id uint) *models.Post {
	t.Helper()
	p, err := e.store.GetPost(context.Background(), id)
	if err != nil {
		t.Fatalf("get post %d: %v", id, err)
	}
	return p
}

func (e *env) setCommentTime(t *testing.T, c *models.Comment, at time.Time) {
	t.Helper()
	if err := e.db.Model(&models.Comment{}).Where("id = ?", c.ID).UpdateColumn("created_at", at).Error; err != nil {
		t.Fatalf("set created_at: %v", err)
	}
	c.CreatedAt = at
}

func (e *env) setCreatedAt(t *testing.T, p *models.Post, at time.Time) {
	t.Helper()
	if err := e.db.Model(&models.Post{}).Where("id = ?", p.ID).UpdateColumn("created_at", at).Error; err != nil {
		t.Fatalf("set created_at: %v", err)
	}
	p.CreatedAt = at
}

func (e *env) setInteraction(t *testing.T, p *models.Post, score float64) {
	t.Helper()
	if err := e.db.Model(&models.Post{}).Where("id = ?", p.ID).UpdateColumn("interaction_score", score).Error; err != nil {
		t.Fatalf("set interaction_score: %v", err)
	}
	p.InteractionScore = score
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
