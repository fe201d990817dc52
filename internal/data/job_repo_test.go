package data

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/codegen-api/internal/domain/job"
	"github.com/target/codegen-api/internal/domain/model"
)

func newTestRepo(t *testing.T) (*JobRepo, *FixedTimeProvider) {
	t.Helper()
	clock := NewFixedTimeProvider(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewJobRepo(RepoConfig{TimeProvider: clock}), clock
}

func addJob(t *testing.T, repo *JobRepo, prompt string) string {
	t.Helper()
	id, err := repo.AddJob(context.Background(), model.GenerateRequest{Prompt: prompt, Target: model.TargetBackend})
	require.NoError(t, err)
	return id
}

func TestJobRepo_AddJob(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	id := addJob(t, repo, "todo api")
	assert.NotEmpty(t, id)

	got, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "todo api", got.Prompt)
	assert.Equal(t, model.TargetBackend, got.Target)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, model.ProgressQueued, got.Progress)
	assert.Equal(t, clock.Now(), got.CreatedAt)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Error)
	assert.Nil(t, got.CompletedAt)
}

func TestJobRepo_AddJob_UniqueIDs(t *testing.T) {
	repo, _ := newTestRepo(t)

	seen := make(map[string]struct{})
	for i := range 50 {
		id := addJob(t, repo, fmt.Sprintf("prompt %d", i))
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Equal(t, 50, repo.Len())
}

func TestJobRepo_AddJob_DuplicateIDRejected(t *testing.T) {
	repo := NewJobRepo(RepoConfig{IDGenerator: func() string { return "fixed" }})
	ctx := context.Background()

	_, err := repo.AddJob(ctx, model.GenerateRequest{Prompt: "a", Target: model.TargetSQL})
	require.NoError(t, err)
	_, err = repo.AddJob(ctx, model.GenerateRequest{Prompt: "b", Target: model.TargetSQL})
	require.Error(t, err)
}

func TestJobRepo_GetJob_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, model.ErrJobNotFound)
	assert.Nil(t, got)
}

func TestJobRepo_GetJob_ReturnsCopy(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	id := addJob(t, repo, "x")

	got, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	got.Status = model.JobStatusFailed
	got.Prompt = "mutated"

	again, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, again.Status)
	assert.Equal(t, "x", again.Prompt)
}

func TestJobRepo_ClaimNext(t *testing.T) {
	t.Run("claims in insertion order", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		ctx := context.Background()
		first := addJob(t, repo, "first")
		second := addJob(t, repo, "second")

		claimed, err := repo.ClaimNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, claimed.ID)
		assert.Equal(t, model.JobStatusRunning, claimed.Status)
		assert.Equal(t, model.ProgressClaimed, claimed.Progress)

		claimed, err = repo.ClaimNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, second, claimed.ID)
	})

	t.Run("empty queue", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		claimed, err := repo.ClaimNext(context.Background())
		require.ErrorIs(t, err, model.ErrNoJobsAvailable)
		assert.Nil(t, claimed)
	})

	t.Run("concurrent claims never share a job", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		for i := range 20 {
			addJob(t, repo, fmt.Sprintf("p%d", i))
		}

		var (
			mu      sync.Mutex
			claimed = make(map[string]int)
			wg      sync.WaitGroup
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					j, err := repo.ClaimNext(context.Background())
					if err != nil {
						return
					}
					mu.Lock()
					claimed[j.ID]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, claimed, 20)
		for id, n := range claimed {
			assert.Equal(t, 1, n, "job %s claimed %d times", id, n)
		}
	})
}

func TestJobRepo_SetProgress(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	pendingID := addJob(t, repo, "pending")
	err := repo.SetProgress(ctx, pendingID, model.ProgressChecked)
	require.ErrorIs(t, err, model.ErrJobTerminal, "pending jobs are not writable until claimed")

	runningID := addJob(t, repo, "running")
	// claims pendingID first
	_, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.Equal(t, runningID, claimed.ID)

	require.NoError(t, repo.SetProgress(ctx, runningID, model.ProgressChecked))
	require.NoError(t, repo.SetProgress(ctx, runningID, model.ProgressChecked))
	require.NoError(t, repo.SetProgress(ctx, runningID, model.ProgressGenerated))

	err = repo.SetProgress(ctx, runningID, model.ProgressChecked)
	require.ErrorIs(t, err, model.ErrProgressRegression)

	err = repo.SetProgress(ctx, runningID, 101)
	require.ErrorIs(t, err, model.ErrProgressRegression)

	got, err := repo.GetJob(ctx, runningID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressGenerated, got.Progress)

	err = repo.SetProgress(ctx, "missing", 50)
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestJobRepo_Complete(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()
	id := addJob(t, repo, "svc")
	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)

	clock.AddTime(3 * time.Second)
	result := model.GenerateResponse{
		JobID:   id,
		Files:   []model.GeneratedFile{{Path: "a.ts", Content: "x", Language: "typescript"}},
		GitDiff: "diff",
	}
	done, err := repo.Complete(ctx, id, result)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, done.Status)
	assert.Equal(t, model.ProgressDone, done.Progress)
	require.NotNil(t, done.Result)
	assert.Equal(t, result, *done.Result)
	assert.Empty(t, done.Error)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock.Now(), *done.CompletedAt)

	result.Files[0].Content = "mutated after complete"
	got, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Result.Files[0].Content)
}

func TestJobRepo_Fail(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()
	id := addJob(t, repo, "svc")
	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)

	failed, err := repo.Fail(ctx, id, "boom")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
	assert.Nil(t, failed.Result)
	require.NotNil(t, failed.CompletedAt)
	assert.Equal(t, clock.Now(), *failed.CompletedAt)
	assert.Equal(t, model.ProgressClaimed, failed.Progress)
}

func TestJobRepo_TerminalJobsRejectWrites(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()
	id := addJob(t, repo, "svc")
	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	_, err = repo.Fail(ctx, id, "first failure")
	require.NoError(t, err)
	before, err := repo.GetJob(ctx, id)
	require.NoError(t, err)

	clock.AddTime(time.Minute)

	_, err = repo.Complete(ctx, id, model.GenerateResponse{JobID: id})
	require.ErrorIs(t, err, model.ErrJobTerminal)
	_, err = repo.Fail(ctx, id, "second failure")
	require.ErrorIs(t, err, model.ErrJobTerminal)
	err = repo.SetProgress(ctx, id, model.ProgressDone)
	require.ErrorIs(t, err, model.ErrJobTerminal)

	after, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestJobRepo_CompleteRequiresRunning(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	id := addJob(t, repo, "svc")

	_, err := repo.Complete(ctx, id, model.GenerateResponse{JobID: id})
	require.ErrorIs(t, err, model.ErrJobTerminal)

	_, err = repo.Complete(ctx, "missing", model.GenerateResponse{})
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestJobRepo_DeleteCompletedBefore(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	oldID := addJob(t, repo, "old")
	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	_, err = repo.Complete(ctx, oldID, model.GenerateResponse{JobID: oldID})
	require.NoError(t, err)

	clock.AddTime(2 * time.Hour)

	recentID := addJob(t, repo, "recent")
	_, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	_, err = repo.Fail(ctx, recentID, "boom")
	require.NoError(t, err)

	pendingID := addJob(t, repo, "pending")

	deleted, err := repo.DeleteCompletedBefore(ctx, clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetJob(ctx, oldID)
	require.ErrorIs(t, err, model.ErrJobNotFound)
	_, err = repo.GetJob(ctx, recentID)
	require.NoError(t, err)
	_, err = repo.GetJob(ctx, pendingID)
	require.NoError(t, err)
}

func TestJobRepo_Notifications(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	unsubQueue, queueCh := repo.Subscribe(job.QueueTopic)
	defer unsubQueue()

	id := addJob(t, repo, "svc")
	select {
	case <-queueCh:
	case <-time.After(time.Second):
		t.Fatal("expected queue notification after AddJob")
	}

	unsubJob, jobCh := repo.Subscribe(id)
	defer unsubJob()

	_, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SetProgress(ctx, id, model.ProgressChecked))
	select {
	case <-jobCh:
		t.Fatal("progress updates must not signal waiters")
	default:
	}

	_, err = repo.Complete(ctx, id, model.GenerateResponse{JobID: id})
	require.NoError(t, err)
	select {
	case <-jobCh:
	case <-time.After(time.Second):
		t.Fatal("expected job notification after Complete")
	}
}
