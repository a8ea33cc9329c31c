package notify

import (
	"context"
	"fmt"
	"time"

	"hivelog/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

var _ Notifier = (*SlackNotifier)(nil)

// SlackNotifier 把生命周期事件发到管理员频道，评论类事件不发送
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string, options ...slack.Option) *SlackNotifier {
	return &SlackNotifier{api: slack.New(token, options...), channel: channel}
}

func (s *SlackNotifier) send(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false)); err != nil {
		logrus.WithError(err).WithField("channel", s.channel).Warn("failed to post slack message")
	}
}

func (s *SlackNotifier) PostTransition(context.Context, *models.Post, models.Stage) {}

func (s *SlackNotifier) PostRolledBack(ctx context.Context, post *models.Post, reason RollbackReason) {
	switch reason {
	case RollbackForced:
		s.send(ctx, fmt.Sprintf(":leftwards_arrow_with_hook: post #%d %q was manually rolled back to sandbox", post.ID, post.Title))
	default:
		s.send(ctx, fmt.Sprintf(":warning: wiki synthesis failed for post #%d %q, rolled back to sandbox", post.ID, post.Title))
	}
}

func (s *SlackNotifier) WikiReady(ctx context.Context, post *models.Post) {
	s.send(ctx, fmt.Sprintf(":books: post #%d %q is now a living wiki", post.ID, post.Title))
}

func (s *SlackNotifier) WikiUpdated(ctx context.Context, post *models.Post, version int) {
	s.send(ctx, fmt.Sprintf(":pencil2: wiki for post #%d updated to v%d, needs verification", post.ID, version))
}

func (s *SlackNotifier) NewComment(context.Context, *models.Post, *models.Comment) {}

func (s *SlackNotifier) Reply(context.Context, *models.Comment, *models.Comment) {}
