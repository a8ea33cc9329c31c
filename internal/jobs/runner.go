package jobs

import (
	"context"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor 按 cron 表达式调度任务，同一任务上一轮未结束时跳过本轮
type TaskExecutor struct {
	cron     *cron.Cron
	cronJobs []CronJob
	running  mapset.Set[string]
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewTaskExecutor(cronJobs ...CronJob) *TaskExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskExecutor{
		cron:     cron.New(),
		cronJobs: cronJobs,
		running:  mapset.NewThreadUnsafeSet[string](),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers every job with the scheduler and starts it.
func (t *TaskExecutor) Start() error {
	for _, job := range t.cronJobs {
		if err := t.cron.AddFunc(job.Schedule(), t.guard(job)); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		logrus.WithFields(logrus.Fields{"job": job.Name(), "schedule": job.Schedule()}).Info("job scheduled")
	}

	t.cron.Start()
	return nil
}

func (t *TaskExecutor) guard(job Job) func() {
	return func() {
		t.mu.Lock()
		if t.running.Contains(job.Name()) {
			t.mu.Unlock()
			logrus.WithField("job", job.Name()).Warn("job is still running, skipping")
			return
		}
		t.running.Add(job.Name())
		t.mu.Unlock()

		defer func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.running.Remove(job.Name())
		}()

		log := logrus.WithField("job", job.Name())
		if err := job.Run(t.ctx); err != nil {
			log.WithError(err).Error("job failed")
			return
		}
		log.Debug("job finished")
	}
}

// Stop 停止调度并取消正在运行的任务
func (t *TaskExecutor) Stop() {
	logrus.Info("stopping all jobs")
	t.cron.Stop()
	t.cancel()
}
