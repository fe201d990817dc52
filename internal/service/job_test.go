package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/codegen-api/internal/data"
	"github.com/target/codegen-api/internal/domain/model"
	apperrors "github.com/target/codegen-api/internal/errors"
	"github.com/target/codegen-api/internal/mocks"
	"github.com/target/codegen-api/internal/observability/notify"
	"github.com/target/codegen-api/internal/service/failurenotifier"
	"go.uber.org/mock/gomock"
)

type jobFixture struct {
	repo  *data.JobRepo
	clock *data.FixedTimeProvider
	svc   *JobService
}

func newJobFixture(t *testing.T, opts JobServiceOptions) jobFixture {
	t.Helper()
	clock := data.NewFixedTimeProvider(testEpoch)
	repo := data.NewJobRepo(data.RepoConfig{TimeProvider: clock})
	opts.Repo = repo
	svc, err := NewJobService(opts)
	require.NoError(t, err)
	return jobFixture{repo: repo, clock: clock, svc: svc}
}

// claimOne enqueues a job and moves it to running.
func (f jobFixture) claimOne(t *testing.T, target model.Target) *model.Job {
	t.Helper()
	ctx := context.Background()
	id, err := f.svc.Enqueue(ctx, model.GenerateRequest{Prompt: "todo list", Target: target})
	require.NoError(t, err)
	job, err := f.svc.ClaimNext(ctx)
	require.NoError(t, err)
	require.Equal(t, id, job.ID)
	return job
}

func TestNewJobService_RequiresRepo(t *testing.T) {
	_, err := NewJobService(JobServiceOptions{})
	require.Error(t, err)

	assert.Panics(t, func() { MustNewJobService(JobServiceOptions{}) })
}

func TestJobService_Get_NotFound(t *testing.T) {
	f := newJobFixture(t, JobServiceOptions{})

	_, err := f.svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "Job missing not found", err.Error())
}

func TestJobService_Complete_PublishesEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := mocks.NewMockEventPublisher(ctrl)
	f := newJobFixture(t, JobServiceOptions{Events: events})
	ctx := context.Background()

	job := f.claimOne(t, model.TargetFrontend)
	f.clock.AddTime(1500 * time.Millisecond)

	events.EXPECT().
		PublishCodeGenerated(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt model.CodeGeneratedEvent) error {
			assert.Equal(t, job.ID, evt.ID)
			assert.Equal(t, model.TargetFrontend, evt.Target)
			assert.True(t, evt.Success)
			assert.Empty(t, evt.Error)
			assert.Equal(t, int64(1500), evt.GenerationTimeMs)
			return nil
		})

	result := model.GenerateResponse{JobID: job.ID, Files: []model.GeneratedFile{{Path: "a.tsx"}}}
	got, err := f.svc.Complete(ctx, job.ID, result)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, model.ProgressDone, got.Progress)
}

func TestJobService_Complete_PublishErrorIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := mocks.NewMockEventPublisher(ctrl)
	f := newJobFixture(t, JobServiceOptions{Events: events})

	job := f.claimOne(t, model.TargetSQL)
	events.EXPECT().PublishCodeGenerated(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	got, err := f.svc.Complete(context.Background(), job.ID, model.GenerateResponse{JobID: job.ID})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
}

func TestJobService_Complete_TerminalJob(t *testing.T) {
	f := newJobFixture(t, JobServiceOptions{})
	ctx := context.Background()

	job := f.claimOne(t, model.TargetSQL)
	_, err := f.svc.Complete(ctx, job.ID, model.GenerateResponse{JobID: job.ID})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, job.ID, model.GenerateResponse{JobID: job.ID})
	require.ErrorIs(t, err, model.ErrJobTerminal)
}

func TestJobService_Fail_PublishesAndNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := mocks.NewMockEventPublisher(ctrl)

	var (
		mu       sync.Mutex
		received []notify.JobFailurePayload
	)
	notifier := failurenotifier.NewService(failurenotifier.Options{
		Sinks: []failurenotifier.SinkRegistration{{
			Name: "recorder",
			Sink: notify.SinkFunc(func(_ context.Context, p notify.JobFailurePayload) error {
				mu.Lock()
				defer mu.Unlock()
				received = append(received, p)
				return nil
			}),
		}},
	})

	f := newJobFixture(t, JobServiceOptions{Events: events, FailureNotifier: notifier})
	job := f.claimOne(t, model.TargetInfra)

	events.EXPECT().
		PublishCodeGenerated(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt model.CodeGeneratedEvent) error {
			assert.False(t, evt.Success)
			assert.Equal(t, "LLM service is not available", evt.Error)
			return nil
		})

	got, err := f.svc.Fail(context.Background(), job.ID, "LLM service is not available", JobFailureDetails{
		Provider:   "openai",
		ErrorClass: "llm_unavailable",
		Metadata:   map[string]string{"component": "worker"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	p := received[0]
	assert.Equal(t, job.ID, p.JobID)
	assert.Equal(t, "infra", p.Target)
	assert.Equal(t, "todo list", p.Prompt)
	assert.Equal(t, "openai", p.Provider)
	assert.Equal(t, "LLM service is not available", p.Error)
	assert.Equal(t, "llm_unavailable", p.ErrorClass)
	assert.Equal(t, notify.SeverityCritical, p.Severity)
	assert.Equal(t, testEpoch, p.OccurredAt)
	assert.Equal(t, "worker", p.Metadata["component"])
}

func TestJobService_Fail_RequiresMessage(t *testing.T) {
	f := newJobFixture(t, JobServiceOptions{})
	job := f.claimOne(t, model.TargetBackend)

	_, err := f.svc.Fail(context.Background(), job.ID, "", JobFailureDetails{})
	require.Error(t, err)

	stored, err := f.svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, stored.Status)
}

func TestJobService_WaitForTerminal_WakesOnCompletion(t *testing.T) {
	f := newJobFixture(t, JobServiceOptions{})
	job := f.claimOne(t, model.TargetBackend)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = f.svc.Complete(context.Background(), job.ID, model.GenerateResponse{JobID: job.ID})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// the long poll interval means only the notification can wake the waiter in time
	got, err := f.svc.WaitForTerminal(ctx, job.ID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
}

func TestJobService_WaitForTerminal_AlreadyTerminal(t *testing.T) {
	f := newJobFixture(t, JobServiceOptions{})
	job := f.claimOne(t, model.TargetBackend)
	_, err := f.svc.Fail(context.Background(), job.ID, "boom", JobFailureDetails{})
	require.NoError(t, err)

	got, err := f.svc.WaitForTerminal(context.Background(), job.ID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
}

func TestJobService_WaitForTerminal_Deadline(t *testing.T) {
	f := newJobFixture(t, JobServiceOptions{})
	id, err := f.svc.Enqueue(context.Background(), model.GenerateRequest{Prompt: "p", Target: model.TargetSQL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	got, err := f.svc.WaitForTerminal(ctx, id, 5*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, got)
	assert.Equal(t, model.JobStatusPending, got.Status)
}

func TestJobService_WaitForTerminal_NotFound(t *testing.T) {
	f := newJobFixture(t, JobServiceOptions{})

	_, err := f.svc.WaitForTerminal(context.Background(), "missing", time.Millisecond)
	assert.True(t, apperrors.IsNotFound(err))
}
