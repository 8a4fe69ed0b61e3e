package session

import (
	"context"
	"fmt"
)

// TaskKind names what a background task does.
type TaskKind int

const (
	TaskQuery TaskKind = iota
	TaskFetch
	TaskConnect
	TaskSave
	TaskEdit
)

func (k TaskKind) String() string {
	switch k {
	case TaskQuery:
		return "query"
	case TaskFetch:
		return "fetch"
	case TaskConnect:
		return "connect"
	case TaskSave:
		return "save"
	case TaskEdit:
		return "edit"
	}
	return fmt.Sprintf("TaskKind(%d)", int(k))
}

// Task is a handle on the pending background task.
type Task struct {
	ID   uint64
	Kind TaskKind
	Ctx  context.Context
}

// Tasks tracks the single pending background task. Dispatch is sequential:
// starting a task cancels the one before it, and a result is only accepted
// from the task that is still pending.
type Tasks struct {
	next    uint64
	pending *Task
	cancel  context.CancelFunc
}

// Start cancels any pending task and begins a new one derived from parent.
func (t *Tasks) Start(parent context.Context, kind TaskKind) Task {
	t.Cancel()
	t.next++
	ctx, cancel := context.WithCancel(parent)
	task := Task{ID: t.next, Kind: kind, Ctx: ctx}
	t.pending, t.cancel = &task, cancel
	return task
}

// Finish accepts the result of task id. It reports false for stale tasks,
// whose results must be discarded.
func (t *Tasks) Finish(id uint64) bool {
	if t.pending == nil || t.pending.ID != id {
		return false
	}
	t.cancel()
	t.pending, t.cancel = nil, nil
	return true
}

// Cancel aborts the pending task, if any. It reports whether one was pending.
func (t *Tasks) Cancel() bool {
	if t.pending == nil {
		return false
	}
	t.cancel()
	t.pending, t.cancel = nil, nil
	return true
}

// Pending returns the pending task, or nil when idle.
func (t *Tasks) Pending() *Task { return t.pending }

// Busy reports whether a task is pending.
func (t *Tasks) Busy() bool { return t.pending != nil }
