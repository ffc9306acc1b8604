package models

import "fmt"

// TaskKind identifies which generation stage a task belongs to.
type TaskKind string

const (
	// TaskOutline is the single outline-generation task.
	TaskOutline TaskKind = "outline"
	// TaskContent generates one slide's text body.
	TaskContent TaskKind = "content"
	// TaskImage generates one slide's illustrative image.
	TaskImage TaskKind = "image"
	// TaskReview runs the review gate on one slide.
	TaskReview TaskKind = "review"
)

// TaskState represents the scheduling state of a task within one run.
type TaskState string

const (
	// TaskQueued indicates the task is waiting for dependencies or capacity.
	TaskQueued TaskState = "queued"
	// TaskRunning indicates the task has been dispatched to a worker.
	TaskRunning TaskState = "running"
	// TaskSucceeded indicates the task completed and its postcondition holds.
	TaskSucceeded TaskState = "succeeded"
	// TaskFailed indicates the task exhausted its attempts or was failed
	// by propagation from a failed dependency.
	TaskFailed TaskState = "failed"
	// TaskCancelled indicates the run was cancelled before dispatch.
	TaskCancelled TaskState = "cancelled"
)

// Task is the ephemeral scheduling unit for one run. Tasks are rebuilt
// from slide statuses on resume and never persisted.
type Task struct {
	// ID uniquely identifies the task within a run, e.g. "image:3".
	ID string `json:"id"`
	// Kind is the generation stage.
	Kind TaskKind `json:"kind"`
	// SlideIndex is the slide this task operates on. Unused for outline.
	SlideIndex int `json:"slide_index"`
	// DependsOn lists task IDs that must succeed before this task runs.
	DependsOn []string `json:"depends_on,omitempty"`
	// Attempt is the current attempt number, starting at 1 on first dispatch.
	Attempt int `json:"attempt"`
	// State is the current scheduling state.
	State TaskState `json:"state"`
}

// TaskID builds the canonical task identifier for a kind and slide index.
func TaskID(kind TaskKind, slideIndex int) string {
	if kind == TaskOutline {
		return string(TaskOutline)
	}
	return fmt.Sprintf("%s:%d", kind, slideIndex)
}

// NewTask creates a queued task for the given stage and slide.
func NewTask(kind TaskKind, slideIndex int, dependsOn ...string) *Task {
	return &Task{
		ID:         TaskID(kind, slideIndex),
		Kind:       kind,
		SlideIndex: slideIndex,
		DependsOn:  dependsOn,
		State:      TaskQueued,
	}
}
