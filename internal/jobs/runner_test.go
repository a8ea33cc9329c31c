package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Name() string     { return "blocking" }
func (j *blockingJob) Schedule() string { return "@every 1h" }

func (j *blockingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	j.started <- struct{}{}
	<-j.release
	return nil
}

func TestGuardSkipsOverlappingRuns(t *testing.T) {
	job := &blockingJob{started: make(chan struct{}, 1), release: make(chan struct{})}
	ex := NewTaskExecutor(job)
	run := ex.guard(job)

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	<-job.started

	// 上一轮还没结束，直接返回
	run()
	assert.EqualValues(t, 1, job.runs.Load())

	close(job.release)
	<-done

	go run()
	select {
	case <-job.started:
	case <-time.After(time.Second):
		t.Fatal("job did not run again after the previous run finished")
	}
	assert.EqualValues(t, 2, job.runs.Load())
}

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) RunSweep(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	return 2, f.err
}

func TestTransitionSweepJob(t *testing.T) {
	s := &fakeSweeper{}
	job := NewTransitionSweepJob(s, "@hourly")
	assert.Equal(t, "@hourly", job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	s.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, 2, s.calls)

	// 失败只记录日志，不影响下一轮
	ex := NewTaskExecutor(job)
	ex.guard(job)()
	assert.Equal(t, 3, s.calls)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	ex := NewTaskExecutor(NewTransitionSweepJob(&fakeSweeper{}, "every now and then"))
	err := ex.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transition-sweep")
}

func TestStopCancelsContext(t *testing.T) {
	ex := NewTaskExecutor()
	require.NoError(t, ex.Start())
	ex.Stop()
	assert.ErrorIs(t, ex.ctx.Err(), context.Canceled)
}
