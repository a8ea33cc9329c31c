package notify

import (
	"context"
	"fmt"
	"sync"

	"hivelog/internal/models"
	"hivelog/internal/store"

	"github.com/sirupsen/logrus"
)

// RollbackReason 帖子从 processing 回到 sandbox 的原因
type RollbackReason string

const (
	RollbackSynthesisFailed RollbackReason = "synthesis_failed"
	RollbackForced          RollbackReason = "forced"
)

// Notifier 通知出口。调用方不关心结果，实现自己记录失败
type Notifier interface {
	PostTransition(ctx context.Context, post *models.Post, stage models.Stage)
	PostRolledBack(ctx context.Context, post *models.Post, reason RollbackReason)
	WikiReady(ctx context.Context, post *models.Post)
	WikiUpdated(ctx context.Context, post *models.Post, version int)
	NewComment(ctx context.Context, post *models.Post, comment *models.Comment)
	Reply(ctx context.Context, parent, reply *models.Comment)
}

var stageNames = map[models.Stage]string{
	models.StageSandbox:    "active discussion",
	models.StageProcessing: "processing",
	models.StageWiki:       "living wiki",
}

// ---- 数据库通知 ----

// StoreNotifier 把通知写进 notifications 表
type StoreNotifier struct {
	store store.NotificationStore
}

func NewStoreNotifier(s store.NotificationStore) *StoreNotifier {
	return &StoreNotifier{store: s}
}

func (n *StoreNotifier) create(ctx context.Context, item *models.Notification) {
	// 请求结束后通知仍需写入
	ctx = context.WithoutCancel(ctx)
	if err := n.store.CreateNotification(ctx, item); err != nil {
		logrus.WithError(err).WithField("type", item.Type).Warn("failed to create notification")
	}
}

func (n *StoreNotifier) PostTransition(ctx context.Context, post *models.Post, stage models.Stage) {
	n.create(ctx, &models.Notification{
		UserID:  post.UserID,
		PostID:  &post.ID,
		Type:    models.NotificationTypePostTransition,
		Message: fmt.Sprintf("Your post moved to the %s stage", stageNames[stage]),
		Link:    fmt.Sprintf("/posts/%d", post.ID),
	})
}

// PostRolledBack 作者已经收到回到 sandbox 的转换通知
func (n *StoreNotifier) PostRolledBack(context.Context, *models.Post, RollbackReason) {}

func (n *StoreNotifier) WikiReady(ctx context.Context, post *models.Post) {
	n.create(ctx, &models.Notification{
		UserID:  post.UserID,
		PostID:  &post.ID,
		Type:    models.NotificationTypeWikiReady,
		Message: "Your post has been turned into a living wiki",
		Link:    fmt.Sprintf("/posts/%d/wiki", post.ID),
	})
}

func (n *StoreNotifier) WikiUpdated(ctx context.Context, post *models.Post, version int) {
	n.create(ctx, &models.Notification{
		UserID:  post.UserID,
		PostID:  &post.ID,
		Type:    models.NotificationTypeWikiUpdated,
		Message: fmt.Sprintf("The wiki for your post was updated to version %d", version),
		Link:    fmt.Sprintf("/posts/%d/wiki", post.ID),
	})
}

func (n *StoreNotifier) NewComment(ctx context.Context, post *models.Post, comment *models.Comment) {
	if post.UserID == comment.UserID {
		return
	}
	n.create(ctx, &models.Notification{
		UserID:    post.UserID,
		ActorID:   &comment.UserID,
		PostID:    &post.ID,
		CommentID: &comment.ID,
		Type:      models.NotificationTypeComment,
		Message:   "commented on your post",
		Link:      fmt.Sprintf("/posts/%d", post.ID),
	})
}

func (n *StoreNotifier) Reply(ctx context.Context, parent, reply *models.Comment) {
	if parent.UserID == reply.UserID {
		return
	}
	n.create(ctx, &models.Notification{
		UserID:    parent.UserID,
		ActorID:   &reply.UserID,
		PostID:    &reply.PostID,
		CommentID: &reply.ID,
		Type:      models.NotificationTypeReply,
		Message:   "replied to your comment",
		Link:      fmt.Sprintf("/posts/%d", reply.PostID),
	})
}

// ---- 组合 ----

type Multi []Notifier

func (m Multi) PostTransition(ctx context.Context, post *models.Post, stage models.Stage) {
	for _, n := range m {
		n.PostTransition(ctx, post, stage)
	}
}

func (m Multi) PostRolledBack(ctx context.Context, post *models.Post, reason RollbackReason) {
	for _, n := range m {
		n.PostRolledBack(ctx, post, reason)
	}
}

func (m Multi) WikiReady(ctx context.Context, post *models.Post) {
	for _, n := range m {
		n.WikiReady(ctx, post)
	}
}

func (m Multi) WikiUpdated(ctx context.Context, post *models.Post, version int) {
	for _, n := range m {
		n.WikiUpdated(ctx, post, version)
	}
}

func (m Multi) NewComment(ctx context.Context, post *models.Post, comment *models.Comment) {
	for _, n := range m {
		n.NewComment(ctx, post, comment)
	}
}

func (m Multi) Reply(ctx context.Context, parent, reply *models.Comment) {
	for _, n := range m {
		n.Reply(ctx, parent, reply)
	}
}

type Nop struct{}

func (Nop) PostTransition(context.Context, *models.Post, models.Stage)   {}
func (Nop) PostRolledBack(context.Context, *models.Post, RollbackReason) {}
func (Nop) WikiReady(context.Context, *models.Post)                      {}
func (Nop) WikiUpdated(context.Context, *models.Post, int)               {}
func (Nop) NewComment(context.Context, *models.Post, *models.Comment)    {}
func (Nop) Reply(context.Context, *models.Comment, *models.Comment)      {}

// ---- 测试用 ----

// Event 一次通知调用的记录
type Event struct {
	Kind    string
	PostID  uint
	Stage   models.Stage
	Version int
}

// Recorder 记录所有调用，供测试断言
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

// Kinds 返回按调用顺序排列的事件类型
func (r *Recorder) Kinds(postID uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []string
	for _, e := range r.Events {
		if e.PostID == postID {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

func (r *Recorder) PostTransition(_ context.Context, post *models.Post, stage models.Stage) {
	r.add(Event{Kind: "transition:" + string(stage), PostID: post.ID, Stage: stage})
}

func (r *Recorder) PostRolledBack(_ context.Context, post *models.Post, reason RollbackReason) {
	r.add(Event{Kind: "rollback:" + string(reason), PostID: post.ID})
}

func (r *Recorder) WikiReady(_ context.Context, post *models.Post) {
	r.add(Event{Kind: "wiki_ready", PostID: post.ID})
}

func (r *Recorder) WikiUpdated(_ context.Context, post *models.Post, version int) {
	r.add(Event{Kind: "wiki_updated", PostID: post.ID, Version: version})
}

func (r *Recorder) NewComment(_ context.Context, post *models.Post, _ *models.Comment) {
	r.add(Event{Kind: "comment", PostID: post.ID})
}

func (r *Recorder) Reply(_ context.Context, _, reply *models.Comment) {
	r.add(Event{Kind: "reply", PostID: reply.PostID})
}
