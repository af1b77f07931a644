package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valethq/valet/internal/agent"
	"github.com/valethq/valet/internal/eventbus"
	"github.com/valethq/valet/internal/netprobe"
	"github.com/valethq/valet/internal/task"
	taskrepo "github.com/valethq/valet/internal/task/repositoryimpl"
	"github.com/valethq/valet/pkg/storage"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt, model string) (string, error) {
	return f.Generate(ctx, prompt, model)
}

type fakeRouter struct {
	mu     sync.Mutex
	result string
	panics bool
	calls  []string
	reqCtx agent.RequestContext
}

func (f *fakeRouter) Route(_ context.Context, taskID, _ string, reqCtx agent.RequestContext) string {
	f.mu.Lock()
	f.calls = append(f.calls, taskID)
	f.reqCtx = reqCtx
	f.mu.Unlock()
	if f.panics {
		panic("handler exploded")
	}
	return f.result
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type staticIntents []string

func (s staticIntents) DismissedIntents() []string { return s }

func newTestEngine(t *testing.T, router Router, prober netprobe.Prober, llm *fakeLLM, intents IntentFilter) (*Engine, task.Repository) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := taskrepo.NewYAMLRepository(store)
	if llm == nil {
		llm = &fakeLLM{response: "NO"}
	}
	if intents == nil {
		intents = staticIntents(nil)
	}
	e := New(context.Background(), repo, router, prober, eventbus.New(), llm, intents, "fast-model", "smart-model")
	return e, repo
}

func waitForStatus(t *testing.T, repo task.Repository, id string, want task.Status) *task.Task {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, err := repo.Get(context.Background(), id)
		require.NoError(t, err)
		if got.Status == want {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	got, _ := repo.Get(context.Background(), id)
	t.Fatalf("task %s never reached %s, last status %s", id, want, got.Status)
	return nil
}

func TestSubmitExecutesToCompletion(t *testing.T) {
	router := &fakeRouter{result: "\n\n✅ Done"}
	eng, repo := newTestEngine(t, router, netprobe.Static(true), nil, nil)

	submitted, err := eng.Submit(context.Background(), &task.SubmitRequest{Text: "note this down"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusPlanned, submitted.Status)
	assert.Equal(t, "fast-model", submitted.ModelUsed)

	got := waitForStatus(t, repo, submitted.ID, task.StatusCompleted)
	assert.Contains(t, got.Plan, "✅ Done")
	eng.Wait()
	assert.Equal(t, 1, router.callCount())
}

func TestSubmitOfflineParksTask(t *testing.T) {
	router := &fakeRouter{result: "\n\nnever"}
	// "weather" is a strict live-data keyword, so the task requires
	// connectivity and must park instead of executing.
	eng, repo := newTestEngine(t, router, netprobe.Static(false), nil, nil)

	submitted, err := eng.Submit(context.Background(), &task.SubmitRequest{Text: "what's the weather today"})
	require.NoError(t, err)
	assert.True(t, submitted.RequiresInternet)

	waitForStatus(t, repo, submitted.ID, task.StatusWaitingForInternet)
	eng.Wait()
	assert.Equal(t, 0, router.callCount(), "a parked task must not reach the router")
}

func TestSubmitOfflineButLocalTaskStillRuns(t *testing.T) {
	router := &fakeRouter{result: "\n\nnoted"}
	eng, repo := newTestEngine(t, router, netprobe.Static(false), &fakeLLM{response: "NO"}, nil)

	submitted, err := eng.Submit(context.Background(), &task.SubmitRequest{Text: "note my grocery list"})
	require.NoError(t, err)
	assert.False(t, submitted.RequiresInternet)

	waitForStatus(t, repo, submitted.ID, task.StatusCompleted)
	eng.Wait()
	assert.Equal(t, 1, router.callCount())
}

func TestExecuteIdempotentOnTerminalTask(t *testing.T) {
	router := &fakeRouter{result: "\n\nok"}
	eng, repo := newTestEngine(t, router, netprobe.Static(true), nil, nil)

	now := time.Now()
	require.NoError(t, repo.Put(context.Background(), &task.Task{
		ID:        "01DONE",
		Status:    task.StatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	require.NoError(t, eng.Execute(context.Background(), "01DONE", agent.RequestContext{}))
	assert.Equal(t, 0, router.callCount())
}

func TestExecuteConcurrentSingleRunner(t *testing.T) {
	router := &fakeRouter{result: "\n\nok"}
	eng, repo := newTestEngine(t, router, netprobe.Static(true), nil, nil)

	now := time.Now()
	require.NoError(t, repo.Put(context.Background(), &task.Task{
		ID:        "01RACE",
		Status:    task.StatusWaitingForInternet,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	const runners = 4
	var wg sync.WaitGroup
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eng.Execute(context.Background(), "01RACE", agent.RequestContext{}); err != nil {
				t.Errorf("Execute failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(context.Background(), "01RACE")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Equal(t, 1, router.callCount(), "exactly one runner must win the claim")
}

func TestExecutePanicMarksFailed(t *testing.T) {
	router := &fakeRouter{panics: true}
	eng, repo := newTestEngine(t, router, netprobe.Static(true), nil, nil)

	now := time.Now()
	require.NoError(t, repo.Put(context.Background(), &task.Task{
		ID:        "01BOOM",
		Status:    task.StatusPlanned,
		Plan:      "1. Explode",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	err := eng.Execute(context.Background(), "01BOOM", agent.RequestContext{})
	require.Error(t, err)

	got, getErr := repo.Get(context.Background(), "01BOOM")
	require.NoError(t, getErr)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Plan, "❌ Execution failed:")
}

func TestExecuteMergesDismissedIntents(t *testing.T) {
	router := &fakeRouter{result: "\n\nok"}
	eng, repo := newTestEngine(t, router, netprobe.Static(true), nil, staticIntents{"classroom"})

	now := time.Now()
	require.NoError(t, repo.Put(context.Background(), &task.Task{
		ID:        "01MERGE",
		Status:    task.StatusPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	require.NoError(t, eng.Execute(context.Background(), "01MERGE", agent.RequestContext{
		DismissedIntents: []string{"email", "classroom"},
	}))
	assert.ElementsMatch(t, []string{"email", "classroom"}, router.reqCtx.DismissedIntents)
}

func TestChooseModel(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeRouter{}, netprobe.Static(true), nil, nil)

	assert.Equal(t, "fast-model", eng.chooseModel("remind me at 5"))
	assert.Equal(t, "smart-model", eng.chooseModel("plan my week"))
	assert.Equal(t, "smart-model", eng.chooseModel("do X and after that do Y"))

	long := make([]byte, 121)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, "smart-model", eng.chooseModel(string(long)))
}

func TestAnalyzeInternetRequirement(t *testing.T) {
	t.Run("strict keyword short-circuits", func(t *testing.T) {
		llm := &fakeLLM{err: errors.New("should not be called")}
		eng, _ := newTestEngine(t, &fakeRouter{}, netprobe.Static(true), llm, nil)
		assert.True(t, eng.analyzeInternetRequirement(context.Background(), "latest bitcoin price"))
	})
	t.Run("model yes", func(t *testing.T) {
		eng, _ := newTestEngine(t, &fakeRouter{}, netprobe.Static(true), &fakeLLM{response: "YES"}, nil)
		assert.True(t, eng.analyzeInternetRequirement(context.Background(), "look up the capital of France"))
	})
	t.Run("model no", func(t *testing.T) {
		eng, _ := newTestEngine(t, &fakeRouter{}, netprobe.Static(true), &fakeLLM{response: "NO"}, nil)
		assert.False(t, eng.analyzeInternetRequirement(context.Background(), "note my grocery list"))
	})
	t.Run("model error falls back to heuristic", func(t *testing.T) {
		llm := &fakeLLM{err: errors.New("connection refused")}
		eng, _ := newTestEngine(t, &fakeRouter{}, netprobe.Static(true), llm, nil)
		assert.True(t, eng.analyzeInternetRequirement(context.Background(), "research hiking trails"))
		assert.False(t, eng.analyzeInternetRequirement(context.Background(), "note my grocery list"))
	})
}

func TestCompleteForcesTerminalState(t *testing.T) {
	eng, repo := newTestEngine(t, &fakeRouter{}, netprobe.Static(true), nil, nil)

	now := time.Now()
	require.NoError(t, repo.Put(context.Background(), &task.Task{
		ID:        "01EXT",
		Status:    task.StatusWaitingForInternet,
		Plan:      "1. Wait",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	got, err := eng.Complete(context.Background(), "01EXT", "External result", []task.Source{
		{Title: "Doc", URL: "https://example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Contains(t, got.Plan, "External result")
	require.Len(t, got.Sources, 1)

	stored, err := repo.Get(context.Background(), "01EXT")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Status)
}
