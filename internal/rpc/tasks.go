package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/huskycat/internal/result"
)

// TaskState is one of the four states a Task passes through.
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskFinished  TaskState = "finished"
	TaskCancelled TaskState = "cancelled"
)

// Task is the async handle surfaced by validate_async, per spec.md §3.
type Task struct {
	ID        string
	State     TaskState
	StartedAt time.Time
	Result    *result.Run

	cancel context.CancelFunc
}

// taskTable is the in-process task table owned by the Dispatcher for the
// lifetime of the process (spec.md §3: "Owned by an in-process task table
// for the lifetime of the process").
type taskTable struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func newTaskTable() *taskTable {
	return &taskTable{tasks: make(map[string]*Task)}
}

// create registers a new queued Task and returns it with the context its
// run should observe for cancellation.
func (t *taskTable) create() (*Task, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{ID: uuid.NewString(), State: TaskQueued, StartedAt: time.Now(), cancel: cancel}

	t.mu.Lock()
	t.tasks[task.ID] = task
	t.mu.Unlock()

	return task, ctx
}

func (t *taskTable) setRunning(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[id]; ok && task.State == TaskQueued {
		task.State = TaskRunning
	}
}

func (t *taskTable) finish(id string, run result.Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[id]; ok && task.State != TaskCancelled {
		task.State = TaskFinished
		r := run
		task.Result = &r
	}
}

func (t *taskTable) get(id string) (*Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, false
	}
	cp := *task
	return &cp, true
}

// cancelTask transitions a queued/running task to cancelled and signals its
// context, returning false if the task is unknown or already terminal.
func (t *taskTable) cancelTask(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok || task.State == TaskFinished || task.State == TaskCancelled {
		return false
	}
	task.State = TaskCancelled
	if task.cancel != nil {
		task.cancel()
	}
	return true
}
