package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"hivelog/internal/models"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Second

func userChannel(id uint) string {
	return "hivelog:user:" + strconv.FormatUint(uint64(id), 10)
}

func postChannel(id uint) string {
	return "hivelog:post:" + strconv.FormatUint(uint64(id), 10)
}

// Message 推送给实时网关的事件
type Message struct {
	Type      models.NotificationType `json:"type"`
	PostID    uint                    `json:"post_id"`
	CommentID uint                    `json:"comment_id,omitempty"`
	ActorID   uint                    `json:"actor_id,omitempty"`
	Stage     models.Stage            `json:"stage,omitempty"`
	Version   int                     `json:"version,omitempty"`
	Reason    RollbackReason          `json:"reason,omitempty"`
	At        time.Time               `json:"at"`
}

var _ Notifier = (*RedisPublisher)(nil)

// RedisPublisher 通过 redis pub/sub 发布事件，作者频道和帖子频道各一份
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr string) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
		Protocol: 2,  // Connection protocol
	})
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func (p *RedisPublisher) publish(ctx context.Context, msg Message, channels ...string) {
	msg.At = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Warn("failed to encode realtime message")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	for _, ch := range channels {
		if err := p.client.Publish(ctx, ch, data).Err(); err != nil {
			logrus.WithError(err).WithField("channel", ch).Warn("failed to publish realtime message")
		}
	}
}

func (p *RedisPublisher) PostTransition(ctx context.Context, post *models.Post, stage models.Stage) {
	p.publish(ctx, Message{Type: models.NotificationTypePostTransition, PostID: post.ID, Stage: stage},
		userChannel(post.UserID), postChannel(post.ID))
}

// PostRolledBack 只推到帖子频道，供管理后台刷新状态
func (p *RedisPublisher) PostRolledBack(ctx context.Context, post *models.Post, reason RollbackReason) {
	p.publish(ctx, Message{Type: models.NotificationTypePostTransition, PostID: post.ID, Stage: models.StageSandbox, Reason: reason},
		postChannel(post.ID))
}

func (p *RedisPublisher) WikiReady(ctx context.Context, post *models.Post) {
	p.publish(ctx, Message{Type: models.NotificationTypeWikiReady, PostID: post.ID, Stage: models.StageWiki, Version: 1},
		userChannel(post.UserID), postChannel(post.ID))
}

func (p *RedisPublisher) WikiUpdated(ctx context.Context, post *models.Post, version int) {
	p.publish(ctx, Message{Type: models.NotificationTypeWikiUpdated, PostID: post.ID, Version: version},
		userChannel(post.UserID), postChannel(post.ID))
}

func (p *RedisPublisher) NewComment(ctx context.Context, post *models.Post, comment *models.Comment) {
	channels := []string{postChannel(post.ID)}
	if post.UserID != comment.UserID {
		channels = append(channels, userChannel(post.UserID))
	}
	p.publish(ctx, Message{Type: models.NotificationTypeComment, PostID: post.ID, CommentID: comment.ID, ActorID: comment.UserID},
		channels...)
}

func (p *RedisPublisher) Reply(ctx context.Context, parent, reply *models.Comment) {
	if parent.UserID == reply.UserID {
		return
	}
	p.publish(ctx, Message{Type: models.NotificationTypeReply, PostID: reply.PostID, CommentID: reply.ID, ActorID: reply.UserID},
		userChannel(parent.UserID))
}
