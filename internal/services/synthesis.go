package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"hivelog/internal/config"
	"hivelog/internal/llm"
	"hivelog/internal/models"

	mapset "github.com/deckarep/golang-set/v2"
)

// Synthesis 一次首次生成的结果
type Synthesis struct {
	Content      models.WikiContent
	Stats        models.DiscussionStats
	Completeness int
}

// Revision 一次增量更新的结果
type Revision struct {
	Content      models.WikiContent
	Changes      string
	Completeness int
}

// SynthesisService 组装讨论上下文、调用 AI、校验返回内容
type SynthesisService struct {
	ai  llm.Synthesizer
	cfg config.Lifecycle
}

func NewSynthesisService(ai llm.Synthesizer, cfg config.Lifecycle) *SynthesisService {
	return &SynthesisService{ai: ai, cfg: cfg}
}

func excerpt(index int, c *models.Comment) llm.CommentExcerpt {
	return llm.CommentExcerpt{
		Index:       index,
		Author:      c.User.Username,
		Content:     c.Content,
		VoteScore:   c.VoteScore,
		HighQuality: c.IsHighQuality,
	}
}

// RankComments 去掉已删除评论，按得分从高到低稳定排序后取前 limit 条
func RankComments(comments []*models.Comment, limit int) []*models.Comment {
	live := make([]*models.Comment, 0, len(comments))
	for _, c := range comments {
		if !c.IsDeleted {
			live = append(live, c)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].VoteScore > live[j].VoteScore
	})
	if limit > 0 && len(live) > limit {
		live = live[:limit]
	}
	return live
}

// Synthesize 为帖子生成首个 wiki 版本。comments 应包含已删除评论，用于统计
func (s *SynthesisService) Synthesize(ctx context.Context, post *models.Post, comments []*models.Comment, now time.Time) (*Synthesis, error) {
	ranked := RankComments(comments, s.cfg.MaxCommentContextSize)

	dc := llm.DiscussionContext{
		Title:         post.Title,
		Content:       post.Content,
		Category:      string(post.Category),
		Tags:          post.Tags,
		Comments:      make([]llm.CommentExcerpt, len(ranked)),
		TotalComments: len(comments),
	}
	for i, c := range ranked {
		dc.Comments[i] = excerpt(i+1, c)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SynthesisTimeout)
	defer cancel()

	raw, err := s.ai.Generate(ctx, dc)
	if err != nil {
		return nil, &SynthesisError{PostID: post.ID, Stage: "generate", Err: err}
	}

	content, _, err := ParseWikiContent(raw, false)
	if err != nil {
		return nil, &SynthesisError{PostID: post.ID, Stage: "generate", Err: err}
	}

	// 模型按 1 开始的序号引用评论，转换成评论 ID，越界的引用丢弃
	mapSourceComments(&content, func(ref uint) (uint, bool) {
		if ref < 1 || int(ref) > len(ranked) {
			return 0, false
		}
		return ranked[ref-1].ID, true
	})

	return &Synthesis{
		Content:      content,
		Stats:        ComputeStats(post, comments, now),
		Completeness: Completeness(content),
	}, nil
}

// Revise 用新的高质量评论更新已有 wiki，返回新内容和变更说明
func (s *SynthesisService) Revise(ctx context.Context, post *models.Post, wiki *models.Wiki, newComments []*models.Comment) (*Revision, error) {
	// 更新时直接用评论 ID 作为引用编号，和现有内容中的引用保持一致
	known := mapset.NewThreadUnsafeSet[uint]()
	collectSourceComments(wiki.Content(), known)

	uc := llm.UpdateContext{
		Title:       post.Title,
		Version:     wiki.Version,
		Current:     wiki.Content(),
		NewComments: make([]llm.CommentExcerpt, len(newComments)),
	}
	for i, c := range newComments {
		uc.NewComments[i] = excerpt(int(c.ID), c)
		known.Add(c.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SynthesisTimeout)
	defer cancel()

	raw, err := s.ai.Update(ctx, uc)
	if err != nil {
		return nil, &SynthesisError{PostID: post.ID, Stage: "update", Err: err}
	}

	content, changes, err := ParseWikiContent(raw, true)
	if err != nil {
		return nil, &SynthesisError{PostID: post.ID, Stage: "update", Err: err}
	}

	mapSourceComments(&content, func(ref uint) (uint, bool) {
		return ref, known.Contains(ref)
	})

	return &Revision{
		Content:      content,
		Changes:      changes,
		Completeness: Completeness(content),
	}, nil
}

// ComputeStats 总评论数包含已删除的评论，参与人数按作者去重
func ComputeStats(post *models.Post, comments []*models.Comment, now time.Time) models.DiscussionStats {
	authors := mapset.NewThreadUnsafeSet[uint]()
	for _, c := range comments {
		authors.Add(c.UserID)
	}
	return models.DiscussionStats{
		TotalComments:      len(comments),
		UniqueParticipants: authors.Cardinality(),
		DiscussionDuration: now.Sub(post.SandboxStartDate).Hours(),
	}
}

// Completeness 0-100，只依赖内容本身
func Completeness(c models.WikiContent) int {
	score := 0
	if utf8.RuneCountInString(c.Summary) > 100 {
		score += 30
	}
	if len(c.Opinions.Supporting) > 0 {
		score += 15
	}
	if len(c.Opinions.Opposing) > 0 {
		score += 15
	}
	if len(c.KeyPoints) >= 3 {
		score += 20
	}
	if utf8.RuneCountInString(c.Conclusion) > 50 {
		score += 10
	}
	if len(c.PendingQuestions) > 0 {
		score += 10
	}
	return min(score, 100)
}

func mapSourceComments(c *models.WikiContent, resolve func(ref uint) (uint, bool)) {
	remap := func(refs []uint) []uint {
		out := make([]uint, 0, len(refs))
		seen := mapset.NewThreadUnsafeSet[uint]()
		for _, r := range refs {
			id, ok := resolve(r)
			if ok && seen.Add(id) {
				out = append(out, id)
			}
		}
		return out
	}
	for _, bucket := range []*[]models.Opinion{&c.Opinions.Supporting, &c.Opinions.Opposing, &c.Opinions.Neutral} {
		for i := range *bucket {
			(*bucket)[i].SourceComments = remap((*bucket)[i].SourceComments)
		}
	}
	for i := range c.KeyPoints {
		c.KeyPoints[i].SourceComments = remap(c.KeyPoints[i].SourceComments)
	}
}

func collectSourceComments(c models.WikiContent, into mapset.Set[uint]) {
	for _, bucket := range [][]models.Opinion{c.Opinions.Supporting, c.Opinions.Opposing, c.Opinions.Neutral} {
		for _, o := range bucket {
			into.Append(o.SourceComments...)
		}
	}
	for _, k := range c.KeyPoints {
		into.Append(k.SourceComments...)
	}
}

// ---- 解析与校验 ----

var errMalformed = errors.New("malformed ai response")

type rawOpinion struct {
	Text           string            `json:"text"`
	Strength       string            `json:"strength"`
	SourceComments []json.RawMessage `json:"source_comments"`
}

type rawContent struct {
	Summary  *string `json:"summary"`
	Opinions *struct {
		Supporting []rawOpinion `json:"supporting"`
		Opposing   []rawOpinion `json:"opposing"`
		Neutral    []rawOpinion `json:"neutral"`
	} `json:"opinions"`
	KeyPoints *[]struct {
		Title          string            `json:"title"`
		Description    string            `json:"description"`
		Importance     string            `json:"importance"`
		SourceComments []json.RawMessage `json:"source_comments"`
	} `json:"key_points"`
	PendingQuestions *[]json.RawMessage `json:"pending_questions"`
	Conclusion       *string            `json:"conclusion"`
	Changes          *string            `json:"changes"`
}

// cleanJSON 去掉模型常带的 markdown 代码块，截取最外层对象
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)

	if start, end := strings.Index(input, "{"), strings.LastIndex(input, "}"); start >= 0 && end > start {
		input = input[start : end+1]
	}
	return input
}

// ParseWikiContent 解析模型输出。五个段落缺任何一个都视为失败；
// withChanges 为 true 时还要求 changes 字段
func ParseWikiContent(raw string, withChanges bool) (models.WikiContent, string, error) {
	var rc rawContent
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &rc); err != nil {
		return models.WikiContent{}, "", fmt.Errorf("%w: %v", errMalformed, err)
	}

	var missing []string
	if rc.Summary == nil || strings.TrimSpace(*rc.Summary) == "" {
		missing = append(missing, "summary")
	}
	if rc.Opinions == nil {
		missing = append(missing, "opinions")
	}
	if rc.KeyPoints == nil {
		missing = append(missing, "key_points")
	}
	if rc.PendingQuestions == nil {
		missing = append(missing, "pending_questions")
	}
	if rc.Conclusion == nil {
		missing = append(missing, "conclusion")
	}
	if withChanges && (rc.Changes == nil || strings.TrimSpace(*rc.Changes) == "") {
		missing = append(missing, "changes")
	}
	if len(missing) > 0 {
		return models.WikiContent{}, "", fmt.Errorf("%w: missing %s", errMalformed, strings.Join(missing, ", "))
	}

	content := models.WikiContent{
		Summary:    strings.TrimSpace(*rc.Summary),
		Conclusion: strings.TrimSpace(*rc.Conclusion),
		Opinions: models.Opinions{
			Supporting: normalizeOpinions(rc.Opinions.Supporting, models.StrengthModerate),
			Opposing:   normalizeOpinions(rc.Opinions.Opposing, models.StrengthModerate),
			Neutral:    normalizeOpinions(rc.Opinions.Neutral, ""),
		},
		KeyPoints:        []models.KeyPoint{},
		PendingQuestions: []models.PendingQuestion{},
	}

	for _, kp := range *rc.KeyPoints {
		title, desc := strings.TrimSpace(kp.Title), strings.TrimSpace(kp.Description)
		if title == "" && desc == "" {
			continue
		}
		content.KeyPoints = append(content.KeyPoints, models.KeyPoint{
			Title:          title,
			Description:    desc,
			Importance:     normalizeImportance(kp.Importance, models.ImportanceMedium),
			SourceComments: parseRefs(kp.SourceComments),
		})
	}

	for _, item := range *rc.PendingQuestions {
		if q, ok := parseQuestion(item); ok {
			content.PendingQuestions = append(content.PendingQuestions, q)
		}
	}

	var changes string
	if rc.Changes != nil {
		changes = strings.TrimSpace(*rc.Changes)
	}
	return content, changes, nil
}

func normalizeOpinions(in []rawOpinion, fallback models.Strength) []models.Opinion {
	out := make([]models.Opinion, 0, len(in))
	for _, o := range in {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			continue
		}
		strength := models.Strength(strings.ToLower(strings.TrimSpace(o.Strength)))
		switch strength {
		case models.StrengthStrong, models.StrengthModerate, models.StrengthWeak:
		default:
			strength = fallback
		}
		out = append(out, models.Opinion{
			Text:           text,
			Strength:       strength,
			SourceComments: parseRefs(o.SourceComments),
		})
	}
	return out
}

func normalizeImportance(s string, fallback models.Importance) models.Importance {
	imp := models.Importance(strings.ToLower(strings.TrimSpace(s)))
	switch imp {
	case models.ImportanceHigh, models.ImportanceMedium, models.ImportanceLow:
		return imp
	}
	return fallback
}

// parseQuestion 接受字符串或 {question, context, importance} 对象
func parseQuestion(raw json.RawMessage) (models.PendingQuestion, bool) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		return models.PendingQuestion{Question: text, Importance: models.ImportanceMedium}, text != ""
	}

	var obj struct {
		Question   string `json:"question"`
		Context    string `json:"context"`
		Importance string `json:"importance"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.PendingQuestion{}, false
	}
	q := strings.TrimSpace(obj.Question)
	return models.PendingQuestion{
		Question:   q,
		Context:    strings.TrimSpace(obj.Context),
		Importance: normalizeImportance(obj.Importance, models.ImportanceMedium),
	}, q != ""
}

// parseRefs 引用可能是数字也可能是 "3" 这样的字符串，无法识别的忽略
func parseRefs(in []json.RawMessage) []uint {
	out := make([]uint, 0, len(in))
	for _, r := range in {
		s := strings.Trim(strings.TrimSpace(string(r)), `"#`)
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || n == 0 {
			continue
		}
		out = append(out, uint(n))
	}
	return out
}
