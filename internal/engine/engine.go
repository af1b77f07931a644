// Package engine owns the task lifecycle: planning a submitted request,
// deciding whether it can run offline, executing it through the agent
// registry, and settling it into a terminal state exactly once.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc"

	"github.com/valethq/valet/internal/agent"
	"github.com/valethq/valet/internal/capability"
	"github.com/valethq/valet/internal/eventbus"
	"github.com/valethq/valet/internal/netprobe"
	"github.com/valethq/valet/internal/task"
	"github.com/valethq/valet/pkg/panicerr"
)

// Router dispatches request text to the capability handlers and returns
// the combined user-facing result.
type Router interface {
	Route(ctx context.Context, taskID, text string, reqCtx agent.RequestContext) string
}

// IntentFilter supplies the globally dismissed intent IDs, merged into
// every request's own dismissals at execution time.
type IntentFilter interface {
	DismissedIntents() []string
}

// strictInternetKeywords force requires_internet without consulting the
// model. They cover live-data requests the model tends to misjudge.
var strictInternetKeywords = []string{
	"news", "weather", "stock", "price of", "current event", "latest",
	"bse", "nse", "crypto", "bitcoin",
	"email", "gmail", "inbox", "unread",
}

// fallbackInternetKeywords is the coarse heuristic used when the model
// is unreachable.
var fallbackInternetKeywords = []string{"research", "search", "find", "who", "what", "where"}

// smartModelKeywords route a request to the larger model.
var smartModelKeywords = []string{"plan", "workflow", "steps", "analyze", "after that", "then"}

type Engine struct {
	repo       task.Repository
	router     Router
	prober     netprobe.Prober
	bus        *eventbus.Bus
	llm        capability.LLM
	intents    IntentFilter
	fastModel  string
	smartModel string

	baseCtx context.Context
	wg      conc.WaitGroup
}

func New(baseCtx context.Context, repo task.Repository, router Router, prober netprobe.Prober, bus *eventbus.Bus, llm capability.LLM, intents IntentFilter, fastModel, smartModel string) *Engine {
	return &Engine{
		repo:       repo,
		router:     router,
		prober:     prober,
		bus:        bus,
		llm:        llm,
		intents:    intents,
		fastModel:  fastModel,
		smartModel: smartModel,
		baseCtx:    baseCtx,
	}
}

// Submit plans and persists a new task, then kicks off asynchronous
// execution. The returned task reflects the persisted planned state;
// execution results land later via the repository.
func (e *Engine) Submit(ctx context.Context, req *task.SubmitRequest) (*task.Task, error) {
	model := e.chooseModel(req.Text)
	plan := e.generatePlan(ctx, req.Text, model)
	requiresInternet := e.analyzeInternetRequirement(ctx, req.Text)

	now := time.Now()
	t := &task.Task{
		ID:               ulid.Make().String(),
		OriginalRequest:  req.Text,
		Plan:             plan,
		Status:           task.StatusPlanned,
		RequiresInternet: requiresInternet,
		ModelUsed:        model,
		ExtractedTime:    req.ExtractedTime,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	e.bus.PublishNew(eventbus.EventTaskCreated, t.ID, t.OriginalRequest, map[string]string{
		"model":             model,
		"requires_internet": fmt.Sprintf("%t", requiresInternet),
	})
	slog.InfoContext(ctx, "task submitted",
		"task_id", t.ID, "model", model, "requires_internet", requiresInternet)

	reqCtx := agent.RequestContext{
		ClientTime:       req.ClientTime,
		ExtractedTime:    req.ExtractedTime,
		DismissedIntents: req.DismissedIntents,
	}
	id := t.ID
	e.wg.Go(func() {
		if err := panicerr.SafeContext(func(ctx context.Context) error {
			return e.Execute(ctx, id, reqCtx)
		})(e.baseCtx); err != nil {
			slog.ErrorContext(e.baseCtx, "task execution failed", "task_id", id, "error", err)
		}
	})
	return t, nil
}

// Execute runs a planned or parked task to a settled state. It is safe
// to call concurrently for the same task: a compare-and-set transition
// into executing elects exactly one runner, and everyone else returns
// without side effects.
func (e *Engine) Execute(ctx context.Context, id string, reqCtx agent.RequestContext) error {
	t, err := e.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch t.Status {
	case task.StatusCompleted, task.StatusFailed, task.StatusExecuting:
		return nil
	}

	if t.RequiresInternet && !e.prober.IsOnline(ctx) {
		if t.Status != task.StatusWaitingForInternet {
			if err := e.repo.UpdateStatus(ctx, id, task.StatusWaitingForInternet, ""); err != nil {
				return err
			}
			e.bus.PublishNew(eventbus.EventTaskStatusChanged, id, string(task.StatusWaitingForInternet), nil)
			slog.InfoContext(ctx, "task parked until connectivity returns", "task_id", id)
		}
		return nil
	}

	won, err := e.repo.UpdateStatusCAS(ctx, id, t.Status, task.StatusExecuting)
	if err != nil {
		return err
	}
	if !won {
		slog.InfoContext(ctx, "task already claimed by another runner", "task_id", id)
		return nil
	}
	e.bus.PublishNew(eventbus.EventTaskStatusChanged, id, string(task.StatusExecuting), nil)

	reqCtx.DismissedIntents = mergeIntents(reqCtx.DismissedIntents, e.intents.DismissedIntents())
	if reqCtx.ExtractedTime == "" {
		reqCtx.ExtractedTime = t.ExtractedTime
	}

	result, routeErr := e.route(ctx, id, t.OriginalRequest, reqCtx)
	if routeErr != nil {
		e.markFailed(ctx, id, routeErr)
		return routeErr
	}

	if err := e.repo.UpdateStatus(ctx, id, task.StatusCompleted, result); err != nil {
		return err
	}
	e.bus.PublishNew(eventbus.EventTaskCompleted, id, result, nil)
	slog.InfoContext(ctx, "task completed", "task_id", id)
	return nil
}

// route fans the request out through the registry, converting a handler
// panic into an error so the task can be failed instead of wedged.
func (e *Engine) route(ctx context.Context, id, text string, reqCtx agent.RequestContext) (string, error) {
	var result string
	err := panicerr.Safe(func() error {
		result = e.router.Route(ctx, id, text, reqCtx)
		return nil
	})()
	return result, err
}

// markFailed settles a task that crashed mid-execution. Only an
// executing task can fail; anything else means another writer already
// settled it.
func (e *Engine) markFailed(ctx context.Context, id string, cause error) {
	t, err := e.repo.Get(ctx, id)
	if err != nil || t.Status != task.StatusExecuting {
		return
	}
	appendix := fmt.Sprintf("\n\n❌ Execution failed: %v", cause)
	if err := e.repo.UpdateStatus(ctx, id, task.StatusFailed, appendix); err != nil {
		slog.ErrorContext(ctx, "could not mark task failed", "task_id", id, "error", err)
		return
	}
	e.bus.PublishNew(eventbus.EventTaskFailed, id, cause.Error(), nil)
}

// Complete force-settles a task with an externally produced result,
// regardless of its current state. This is the path used when a richer
// external runner finishes work the local handlers had parked.
func (e *Engine) Complete(ctx context.Context, id, result string, sources []task.Source) (*task.Task, error) {
	t, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if result != "" {
		t.Plan += "\n\n" + result
	}
	if len(sources) > 0 {
		t.Sources = append(t.Sources, sources...)
	}
	t.Status = task.StatusCompleted
	t.UpdatedAt = time.Now()
	if err := e.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	e.bus.PublishNew(eventbus.EventTaskCompleted, id, result, map[string]string{"source": "external"})
	slog.InfoContext(ctx, "task completed externally", "task_id", id)
	return t, nil
}

// Wait blocks until all in-flight executions spawned by Submit finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) chooseModel(text string) string {
	if len(text) > 120 {
		return e.smartModel
	}
	lowered := strings.ToLower(text)
	for _, kw := range smartModelKeywords {
		if strings.Contains(lowered, kw) {
			return e.smartModel
		}
	}
	return e.fastModel
}

func (e *Engine) generatePlan(ctx context.Context, text, model string) string {
	prompt := fmt.Sprintf(`Break this request into 2-4 concise numbered steps: %q

Keep the whole plan under 100 words. Respond with ONLY the steps.`, text)
	plan, err := e.llm.Generate(ctx, prompt, model)
	if err != nil || strings.TrimSpace(plan) == "" {
		slog.WarnContext(ctx, "plan generation failed, using single-step plan", "error", err)
		return "1. Process request: " + text
	}
	return strings.TrimSpace(plan)
}

// analyzeInternetRequirement decides whether the task must wait for
// connectivity. Live-data keywords short-circuit; otherwise the model is
// asked, with a keyword heuristic as the offline fallback.
func (e *Engine) analyzeInternetRequirement(ctx context.Context, text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range strictInternetKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}

	prompt := fmt.Sprintf(`Does this request require live data from the internet (news, prices, web lookups, remote accounts)? %q

Answer with ONLY 'YES' or 'NO'.`, text)
	response, err := e.llm.Generate(ctx, prompt, e.fastModel)
	if err != nil {
		for _, kw := range fallbackInternetKeywords {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToUpper(response), "YES")
}

func mergeIntents(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, intent := range list {
			if _, ok := seen[intent]; ok {
				continue
			}
			seen[intent] = struct{}{}
			merged = append(merged, intent)
		}
	}
	return merged
}
