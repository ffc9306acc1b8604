// Package graph provides the dependency graph for generation task scheduling.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"banana-slides/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// TaskGraph is a directed acyclic graph of generation tasks.
// Nodes are tasks, edges are "runs after" relationships.
type TaskGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to the IDs of tasks it depends on.
	edges map[string][]string
	// order records insertion order, used for FIFO readiness.
	order []string
	// completed tracks tasks whose postcondition holds.
	completed map[string]bool
	// failed tracks tasks that permanently failed.
	failed map[string]bool
}

// New creates a new empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		nodes:     make(map[string]*models.Task),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
		failed:    make(map[string]bool),
	}
}

// Build constructs the graph from a slice of tasks. Returns an error if
// a cycle is detected or a dependency references an unknown task.
func (g *TaskGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, task := range tasks {
		if _, dup := g.nodes[task.ID]; dup {
			return fmt.Errorf("duplicate task %s", task.ID)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	// Pre-satisfied tasks (resume) count as completed immediately.
	for _, task := range tasks {
		switch task.State {
		case models.TaskSucceeded:
			g.completed[task.ID] = true
		case models.TaskFailed:
			g.failed[task.ID] = true
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// hasCycleLocked detects back edges with DFS coloring. Caller holds the lock.
func (g *TaskGraph) hasCycleLocked() bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// Ready returns queued tasks whose dependencies have all succeeded, in
// insertion order. Running, completed, failed, and cancelled tasks are
// excluded.
func (g *TaskGraph) Ready() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for _, id := range g.order {
		task := g.nodes[id]
		if task.State != models.TaskQueued {
			continue
		}
		if g.completed[id] || g.failed[id] {
			continue
		}

		satisfied := true
		for _, depID := range g.edges[id] {
			if !g.completed[depID] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, task)
		}
	}
	return ready
}

// MarkRunning transitions a task to the running state.
func (g *TaskGraph) MarkRunning(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if task, ok := g.nodes[taskID]; ok {
		task.State = models.TaskRunning
	}
}

// MarkQueued returns a dispatched task to the queue, e.g. for a retry.
func (g *TaskGraph) MarkQueued(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if task, ok := g.nodes[taskID]; ok {
		task.State = models.TaskQueued
	}
}

// MarkComplete marks a task as succeeded, unblocking its dependents.
func (g *TaskGraph) MarkComplete(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if task, ok := g.nodes[taskID]; ok {
		task.State = models.TaskSucceeded
	}
	g.completed[taskID] = true
	delete(g.failed, taskID)
}

// MarkFailed marks a task as permanently failed and propagates the
// failure to every task that transitively depends on it. An image task
// never runs for a slide whose content task permanently failed.
// Returns the IDs of tasks failed by propagation, not including taskID.
func (g *TaskGraph) MarkFailed(taskID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var propagated []string
	var fail func(id string)
	fail = func(id string) {
		if g.failed[id] {
			return
		}
		g.failed[id] = true
		delete(g.completed, id)
		if task, ok := g.nodes[id]; ok {
			task.State = models.TaskFailed
		}
		for _, depID := range g.dependentsLocked(id) {
			if !g.failed[depID] {
				propagated = append(propagated, depID)
				fail(depID)
			}
		}
	}
	fail(taskID)

	sort.Strings(propagated)
	return propagated
}

// MarkCancelled marks every task that has not succeeded or failed as
// cancelled. Used when a run is cancelled mid-flight.
func (g *TaskGraph) MarkCancelled() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var cancelled []string
	for _, id := range g.order {
		task := g.nodes[id]
		if g.completed[id] || g.failed[id] {
			continue
		}
		task.State = models.TaskCancelled
		cancelled = append(cancelled, id)
	}
	return cancelled
}

// Reset re-queues the given tasks and clears their completion marks.
// Used by the revision loop to send a slide back through content and
// image generation after a reviewer asks for changes.
func (g *TaskGraph) Reset(taskIDs ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range taskIDs {
		task, ok := g.nodes[id]
		if !ok {
			continue
		}
		task.State = models.TaskQueued
		task.Attempt = 0
		delete(g.completed, id)
		delete(g.failed, id)
	}
}

// Done returns true when every task has either succeeded, failed, or
// been cancelled.
func (g *TaskGraph) Done() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, id := range g.order {
		switch g.nodes[id].State {
		case models.TaskSucceeded, models.TaskFailed, models.TaskCancelled:
		default:
			return false
		}
	}
	return true
}

// Task returns the task for a given ID, or nil if not found.
func (g *TaskGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *TaskGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependents returns the IDs of tasks that directly depend on taskID.
func (g *TaskGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(taskID)
}

func (g *TaskGraph) dependentsLocked(taskID string) []string {
	var dependents []string
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}
