package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"hivelog/internal/models"
)

// CommentExcerpt 传给模型的一条评论，Index 从 1 开始，模型用它引用来源
type CommentExcerpt struct {
	Index       int
	Author      string
	Content     string
	VoteScore   int
	HighQuality bool
}

// DiscussionContext 首次生成 wiki 时的讨论上下文
type DiscussionContext struct {
	Title         string
	Content       string
	Category      string
	Tags          []string
	Comments      []CommentExcerpt
	TotalComments int
}

// UpdateContext 增量更新时的上下文
type UpdateContext struct {
	Title       string
	Version     int
	Current     models.WikiContent
	NewComments []CommentExcerpt
}

const generateSystemPrompt = "You are an expert discussion analyst. You turn long threaded discussions into structured, neutral wiki entries and always answer with a single valid JSON object."

const updateSystemPrompt = "You are an expert wiki editor. You revise an existing wiki entry using new contributions and always answer with a single valid JSON object."

const contentSchema = `{
  "summary": "string, 200-300 words",
  "opinions": {
    "supporting": [{"text": "string", "strength": "strong|moderate|weak", "source_comments": [1]}],
    "opposing":   [{"text": "string", "strength": "strong|moderate|weak", "source_comments": [2]}],
    "neutral":    [{"text": "string", "source_comments": [3]}]
  },
  "key_points": [{"title": "string", "description": "string", "importance": "high|medium|low", "source_comments": [1, 2]}],
  "pending_questions": [{"question": "string", "context": "string", "importance": "high|medium|low"}],
  "conclusion": "string, 100-150 words"`

func writeComments(b *strings.Builder, comments []CommentExcerpt) {
	for _, c := range comments {
		fmt.Fprintf(b, "\n[%d] @%s (score: %d", c.Index, c.Author, c.VoteScore)
		if c.HighQuality {
			b.WriteString(", high quality")
		}
		b.WriteString(")\n")
		b.WriteString(c.Content)
		b.WriteString("\n")
	}
}

// GeneratePrompt 构造首次生成的用户提示词
func GeneratePrompt(dc DiscussionContext) string {
	var b strings.Builder

	b.WriteString("# Discussion\n")
	fmt.Fprintf(&b, "Title: %s\n", dc.Title)
	fmt.Fprintf(&b, "Original post: %s\n", dc.Content)
	fmt.Fprintf(&b, "Category: %s\n", dc.Category)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(dc.Tags, ", "))
	fmt.Fprintf(&b, "Total comments: %d\n", dc.TotalComments)

	b.WriteString("\n# Top comments\n")
	writeComments(&b, dc.Comments)

	b.WriteString("\n# Task\n")
	b.WriteString("Analyze the discussion and produce a wiki entry as JSON with exactly this shape:\n")
	b.WriteString(contentSchema)
	b.WriteString("\n}\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Stay objective and neutral.\n")
	b.WriteString("- Reference source comments by their bracketed number.\n")
	b.WriteString("- Give 5-7 key points and 3-5 pending questions.\n")
	b.WriteString("- Return only the JSON object, no extra text.\n")

	return b.String()
}

// UpdatePrompt 构造增量更新的用户提示词，附带当前版本完整内容
func UpdatePrompt(uc UpdateContext) string {
	var b strings.Builder

	current, _ := json.MarshalIndent(uc.Current, "", "  ")

	fmt.Fprintf(&b, "# Current wiki for %q (version %d)\n", uc.Title, uc.Version)
	b.Write(current)
	b.WriteString("\n\n# New high-quality comments\n")
	writeComments(&b, uc.NewComments)

	b.WriteString("\n# Task\n")
	b.WriteString("Update the wiki using the new comments. Keep the existing structure and only add or revise what the new information changes.\n")
	b.WriteString("Return JSON with exactly this shape:\n")
	b.WriteString(contentSchema)
	b.WriteString(",\n  \"changes\": \"short description of what changed\"\n}\n\n")
	b.WriteString("Reference new comments by their bracketed number. Return only the JSON object.\n")

	return b.String()
}
