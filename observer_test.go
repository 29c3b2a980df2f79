package coalesce_test

import (
	"context"
	"sync"
	"testing"

	"github.com/xraph/coalesce"
)

// recordingObserver captures lifecycle notifications for assertions.
type recordingObserver struct {
	mu        sync.Mutex
	enqueued  []coalesce.TaskID
	coalesced []coalesce.TaskID
	completed []coalesce.TaskID
	aborted   []coalesce.TaskID
}

func (o *recordingObserver) TaskEnqueued(_ context.Context, id coalesce.TaskID, _ bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enqueued = append(o.enqueued, id)
}

func (o *recordingObserver) TaskCoalesced(_ context.Context, id coalesce.TaskID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.coalesced = append(o.coalesced, id)
}

func (o *recordingObserver) TaskCompleted(_ context.Context, id coalesce.TaskID, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = append(o.completed, id)
}

func (o *recordingObserver) TaskAborted(_ context.Context, id coalesce.TaskID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aborted = append(o.aborted, id)
}

func TestObserver_LifecycleEvents(t *testing.T) {
	obs := &recordingObserver{}
	m := coalesce.NewManager[string](coalesce.WithObserver(obs))

	h1, err := coalesce.LookupOrEnqueue(m, keyedIntJob{key: "a", value: 1})
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if _, err := coalesce.LookupOrEnqueue(m, keyedIntJob{key: "a", value: 1}); err != nil {
		t.Fatalf("second lookup error: %v", err)
	}

	task := receiveTask(t, m)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("execute error: %v", err)
	}

	h2, err := coalesce.Enqueue(m, intJob{value: 2}, nil)
	if err != nil {
		t.Fatalf("enqueue error: %v", err)
	}
	m.Abort()

	obs.mu.Lock()
	defer obs.mu.Unlock()

	if len(obs.enqueued) != 2 {
		t.Errorf("enqueued events = %d, want 2", len(obs.enqueued))
	}
	if len(obs.coalesced) != 1 || obs.coalesced[0] != h1.ID() {
		t.Errorf("coalesced events = %v, want [%d]", obs.coalesced, h1.ID())
	}
	if len(obs.completed) != 1 || obs.completed[0] != h1.ID() {
		t.Errorf("completed events = %v, want [%d]", obs.completed, h1.ID())
	}
	if len(obs.aborted) != 1 || obs.aborted[0] != h2.ID() {
		t.Errorf("aborted events = %v, want [%d]", obs.aborted, h2.ID())
	}
}
