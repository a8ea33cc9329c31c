package jobs

import (
	"context"
	"time"

	"hivelog/internal/services"

	"github.com/sirupsen/logrus"
)

type Sweeper interface {
	RunSweep(ctx context.Context, now time.Time) (int, error)
}

// TransitionSweepJob 定期把满足条件的沙盒帖子转为 wiki
type TransitionSweepJob struct {
	sweeper  Sweeper
	schedule string
}

func NewTransitionSweepJob(s Sweeper, schedule string) *TransitionSweepJob {
	return &TransitionSweepJob{sweeper: s, schedule: schedule}
}

func (j *TransitionSweepJob) Name() string     { return "transition-sweep" }
func (j *TransitionSweepJob) Schedule() string { return j.schedule }

func (j *TransitionSweepJob) Run(ctx context.Context) error {
	n, err := j.sweeper.RunSweep(ctx, time.Now())
	if err != nil {
		return err
	}
	logrus.WithField("transitioned", n).Info("transition sweep finished")
	return nil
}

// ScoreRefreshJob 每天凌晨重算沙盒帖子的互动分
type ScoreRefreshJob struct {
	score *services.ScoreService
}

func NewScoreRefreshJob(s *services.ScoreService) *ScoreRefreshJob {
	return &ScoreRefreshJob{score: s}
}

func (j *ScoreRefreshJob) Name() string     { return "score-refresh" }
func (j *ScoreRefreshJob) Schedule() string { return "0 0 3 * * *" }

func (j *ScoreRefreshJob) Run(ctx context.Context) error {
	n, err := j.score.RefreshSandboxScores(ctx)
	if err != nil {
		return err
	}
	logrus.WithField("posts", n).Info("sandbox scores refreshed")
	return nil
}
