package graph

import (
	"math/rand"
	"testing"

	"banana-slides/pkg/models"
)

func slideTasks(index int) []*models.Task {
	content := models.NewTask(models.TaskContent, index)
	image := models.NewTask(models.TaskImage, index, content.ID)
	review := models.NewTask(models.TaskReview, index, content.ID, image.ID)
	return []*models.Task{content, image, review}
}

func TestBuildAndReady(t *testing.T) {
	g := New()
	if err := g.Build(slideTasks(0)); err != nil {
		t.Fatalf("build: %v", err)
	}

	ready := g.Ready()
	if len(ready) != 1 {
		t.Fatalf("expected 1 ready task, got %d", len(ready))
	}
	if ready[0].ID != "content:0" {
		t.Errorf("expected content:0 ready first, got %s", ready[0].ID)
	}
}

func TestBuildUnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{models.NewTask(models.TaskImage, 1, "content:1")})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestBuildCycle(t *testing.T) {
	a := &models.Task{ID: "a", State: models.TaskQueued, DependsOn: []string{"b"}}
	b := &models.Task{ID: "b", State: models.TaskQueued, DependsOn: []string{"a"}}

	g := New()
	if err := g.Build([]*models.Task{a, b}); err != ErrCycleDetected {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestDependencyGating(t *testing.T) {
	g := New()
	if err := g.Build(slideTasks(0)); err != nil {
		t.Fatalf("build: %v", err)
	}

	g.MarkComplete("content:0")
	ready := g.Ready()
	if len(ready) != 1 || ready[0].ID != "image:0" {
		t.Fatalf("expected image:0 ready after content, got %v", ids(ready))
	}

	g.MarkComplete("image:0")
	ready = g.Ready()
	if len(ready) != 1 || ready[0].ID != "review:0" {
		t.Fatalf("expected review:0 ready after image, got %v", ids(ready))
	}
}

// TestNoImageBeforeContent drives an 8-slide graph through randomized
// completion order and checks an image task never becomes ready while
// its content task has not succeeded.
func TestNoImageBeforeContent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		g := New()
		var all []*models.Task
		for i := 0; i < 8; i++ {
			all = append(all, slideTasks(i)...)
		}
		if err := g.Build(all); err != nil {
			t.Fatalf("build: %v", err)
		}

		for !g.Done() {
			ready := g.Ready()
			if len(ready) == 0 {
				t.Fatal("deadlock: nothing ready and graph not done")
			}

			for _, task := range ready {
				if task.Kind == models.TaskImage {
					dep := g.Task(models.TaskID(models.TaskContent, task.SlideIndex))
					if dep.State != models.TaskSucceeded {
						t.Fatalf("image:%d ready with content state %s", task.SlideIndex, dep.State)
					}
				}
			}

			// Complete one ready task at random.
			pick := ready[rng.Intn(len(ready))]
			g.MarkComplete(pick.ID)
		}
	}
}

func TestFailurePropagation(t *testing.T) {
	g := New()
	if err := g.Build(slideTasks(2)); err != nil {
		t.Fatalf("build: %v", err)
	}

	propagated := g.MarkFailed("content:2")
	if len(propagated) != 2 {
		t.Fatalf("expected 2 propagated failures, got %v", propagated)
	}
	if g.Task("image:2").State != models.TaskFailed {
		t.Error("image task should fail when content fails")
	}
	if g.Task("review:2").State != models.TaskFailed {
		t.Error("review task should fail when content fails")
	}
	if len(g.Ready()) != 0 {
		t.Error("no task should be ready after full propagation")
	}
	if !g.Done() {
		t.Error("graph should be done after all tasks failed")
	}
}

func TestFailureDoesNotTouchSiblings(t *testing.T) {
	g := New()
	var all []*models.Task
	all = append(all, slideTasks(0)...)
	all = append(all, slideTasks(1)...)
	if err := g.Build(all); err != nil {
		t.Fatalf("build: %v", err)
	}

	g.MarkFailed("content:0")

	ready := g.Ready()
	if len(ready) != 1 || ready[0].ID != "content:1" {
		t.Fatalf("sibling slide should stay schedulable, got %v", ids(ready))
	}
}

func TestResetForRevision(t *testing.T) {
	g := New()
	if err := g.Build(slideTasks(0)); err != nil {
		t.Fatalf("build: %v", err)
	}

	g.MarkComplete("content:0")
	g.MarkComplete("image:0")
	g.MarkComplete("review:0")
	if !g.Done() {
		t.Fatal("graph should be done")
	}

	g.Reset("content:0", "image:0", "review:0")

	if g.Done() {
		t.Error("graph should not be done after reset")
	}
	ready := g.Ready()
	if len(ready) != 1 || ready[0].ID != "content:0" {
		t.Fatalf("expected content:0 re-queued, got %v", ids(ready))
	}
}

func TestResumePreSatisfied(t *testing.T) {
	content := models.NewTask(models.TaskContent, 0)
	content.State = models.TaskSucceeded
	image := models.NewTask(models.TaskImage, 0, content.ID)
	review := models.NewTask(models.TaskReview, 0, content.ID, image.ID)

	g := New()
	if err := g.Build([]*models.Task{content, image, review}); err != nil {
		t.Fatalf("build: %v", err)
	}

	ready := g.Ready()
	if len(ready) != 1 || ready[0].ID != "image:0" {
		t.Fatalf("resume should skip straight to image, got %v", ids(ready))
	}
}

func TestMarkCancelled(t *testing.T) {
	g := New()
	if err := g.Build(slideTasks(0)); err != nil {
		t.Fatalf("build: %v", err)
	}
	g.MarkComplete("content:0")

	cancelled := g.MarkCancelled()
	if len(cancelled) != 2 {
		t.Fatalf("expected 2 cancelled tasks, got %v", cancelled)
	}
	if !g.Done() {
		t.Error("graph should be done after cancellation")
	}
}

func ids(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}
