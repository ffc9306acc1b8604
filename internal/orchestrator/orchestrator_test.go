package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"banana-slides/internal/ai"
	"banana-slides/internal/review"
	"banana-slides/internal/state"
	"banana-slides/pkg/models"
)

func openTestStore(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// mockOutline returns a fixed three-slide plan.
type mockOutline struct {
	specs []models.SlideSpec
	err   error
	calls atomic.Int32
}

func (m *mockOutline) Generate(_ context.Context, _ *models.Project) ([]models.SlideSpec, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.specs, nil
}

// mockContent generates "body N" per slide, with optional scripted failures.
type mockContent struct {
	mu    sync.Mutex
	calls int
	// failEvery injects a retryable provider error on every Nth call.
	failEvery int
	// failIndex permanently fails a specific slide with a non-retryable error.
	failIndex int
	failErr   error
}

func (m *mockContent) Generate(_ context.Context, _ *models.Project, spec models.SlideSpec, feedback string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failEvery > 0 && m.calls%m.failEvery == 0 {
		return "", &ai.ProviderError{Op: "text.complete", Err: errors.New("rate limited")}
	}
	if m.failErr != nil && spec.Index == m.failIndex {
		return "", m.failErr
	}
	if feedback != "" {
		return fmt.Sprintf("revised body %d: %s", spec.Index, feedback), nil
	}
	return fmt.Sprintf("body %d", spec.Index), nil
}

// mockImage records calls and can fail one slide permanently.
type mockImage struct {
	mu        sync.Mutex
	calls     int
	failIndex int
	failErr   error
	seen      []int
}

func (m *mockImage) Generate(_ context.Context, p *models.Project, spec models.SlideSpec, content, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.seen = append(m.seen, spec.Index)
	if content == "" {
		return "", fmt.Errorf("image generated before content for slide %d", spec.Index)
	}
	if m.failErr != nil && spec.Index == m.failIndex {
		return "", m.failErr
	}
	return fmt.Sprintf("%s/slide-%03d.png", p.ID, spec.Index), nil
}

// mockReviewer scripts verdicts per slide; default is accept.
type mockReviewer struct {
	mu       sync.Mutex
	verdicts map[int][]*review.Verdict
	calls    int
}

func (m *mockReviewer) Review(_ context.Context, _ *models.Project, slide *models.Slide) (*review.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	queue := m.verdicts[slide.Index]
	if len(queue) == 0 {
		return &review.Verdict{Decision: review.DecisionAccept}, nil
	}
	v := queue[0]
	m.verdicts[slide.Index] = queue[1:]
	return v, nil
}

func threeSlideSpecs() []models.SlideSpec {
	return []models.SlideSpec{
		{Index: 0, Title: "Intro", Intent: "set the scene"},
		{Index: 1, Title: "Middle", Intent: "make the case"},
		{Index: 2, Title: "Close", Intent: "call to action"},
	}
}

func fastRetry() RetryPolicy {
	p := DefaultRetryPolicy()
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	return p
}

func newTestProject(t *testing.T, db *state.DB) *models.Project {
	t.Helper()
	p := &models.Project{
		ID:        "prj-test1",
		Prompt:    "a talk about tides",
		Language:  "en",
		Status:    models.ProjectPlanning,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestRunHappyPath(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	content := &mockContent{}
	image := &mockImage{}
	reviewer := &mockReviewer{}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  content,
		Image:    image,
		Reviewer: reviewer,
	}, WithRetryPolicy(fastRetry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Accepted != 3 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary %+v", *summary)
	}
	if p.Status != models.ProjectReady {
		t.Errorf("project status = %s, want ready", p.Status)
	}

	slides, err := db.GetSlides(p.ID)
	if err != nil {
		t.Fatalf("get slides: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	for i, s := range slides {
		if s.Index != i {
			t.Errorf("slide %d stored at index %d", i, s.Index)
		}
		if s.Status != models.SlideAccepted {
			t.Errorf("slide %d status = %s", i, s.Status)
		}
		if s.Content == "" || s.ImagePath == "" {
			t.Errorf("slide %d missing content or image", i)
		}
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	// Every third content call fails with a retryable provider error.
	// With a ceiling of 3 attempts per task, every slide still lands.
	content := &mockContent{failEvery: 3}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  content,
		Image:    &mockImage{},
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 0 {
		t.Fatalf("expected no failed slides, got %d", summary.Failed)
	}
	if summary.Accepted != 3 {
		t.Fatalf("expected 3 accepted, got %d", summary.Accepted)
	}
	if p.Status != models.ProjectReady {
		t.Errorf("project status = %s, want ready", p.Status)
	}
}

func TestRunPermanentImageFailureWithinTolerance(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	image := &mockImage{
		failIndex: 1,
		failErr:   errors.New("content policy"),
	}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  &mockContent{},
		Image:    image,
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()), WithFailureTolerance(1))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Accepted != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", *summary)
	}
	if p.Status != models.ProjectReady {
		t.Errorf("project status = %s, want ready within tolerance", p.Status)
	}
	if p.FailedSlides != 1 {
		t.Errorf("FailedSlides = %d, want 1", p.FailedSlides)
	}

	slides, _ := db.GetSlides(p.ID)
	if slides[1].Status != models.SlideFailed {
		t.Errorf("slide 1 status = %s, want failed", slides[1].Status)
	}
	if slides[1].LastError == "" {
		t.Error("slide 1 missing failure reason")
	}
}

func TestRunFailureBeyondToleranceMarksPartiallyFailed(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	content := &mockContent{
		failIndex: 0,
		failErr:   errors.New("refused"),
	}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  content,
		Image:    &mockImage{},
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected 1 failed slide, got %d", summary.Failed)
	}
	if p.Status != models.ProjectPartiallyFailed {
		t.Errorf("project status = %s, want partially_failed", p.Status)
	}
}

func TestRunNoImageBeforeContent(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	// mockImage errors if called with empty content, which run surfaces
	// as failed slides.
	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  &mockContent{},
		Image:    &mockImage{},
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()), WithContentWorkers(1), WithImageWorkers(3))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 0 {
		t.Fatalf("image dispatched before content: %+v", *summary)
	}
}

func TestRunRevisionLoop(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	content := &mockContent{}
	reviewer := &mockReviewer{verdicts: map[int][]*review.Verdict{
		1: {{Decision: review.DecisionRevise, Feedback: "tighten the argument"}},
	}}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  content,
		Image:    &mockImage{},
		Reviewer: reviewer,
	}, WithRetryPolicy(fastRetry()), WithRevisionCeiling(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Accepted != 3 {
		t.Fatalf("unexpected summary %+v", *summary)
	}

	slides, _ := db.GetSlides(p.ID)
	if slides[1].ReviewCount != 1 {
		t.Errorf("slide 1 review count = %d, want 1", slides[1].ReviewCount)
	}
	// Regenerated body reflects the reviewer feedback.
	if slides[1].Content != "revised body 1: tighten the argument" {
		t.Errorf("slide 1 content = %q", slides[1].Content)
	}
}

func TestRunRevisionCeiling(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	// Slide 0 gets revise verdicts forever; ceiling 2 means the third
	// revise marks it failed.
	reviewer := &mockReviewer{verdicts: map[int][]*review.Verdict{
		0: {
			{Decision: review.DecisionRevise, Feedback: "again"},
			{Decision: review.DecisionRevise, Feedback: "again"},
			{Decision: review.DecisionRevise, Feedback: "again"},
		},
	}}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  &mockContent{},
		Image:    &mockImage{},
		Reviewer: reviewer,
	}, WithRetryPolicy(fastRetry()), WithRevisionCeiling(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 1 || summary.Accepted != 2 {
		t.Fatalf("unexpected summary %+v", *summary)
	}

	slides, _ := db.GetSlides(p.ID)
	if slides[0].Status != models.SlideFailed {
		t.Errorf("slide 0 status = %s, want failed", slides[0].Status)
	}
}

func TestRunRejectFailsSlideImmediately(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	reviewer := &mockReviewer{verdicts: map[int][]*review.Verdict{
		2: {{Decision: review.DecisionReject, Feedback: "cannot serve its intent"}},
	}}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  &mockContent{},
		Image:    &mockImage{},
		Reviewer: reviewer,
	}, WithRetryPolicy(fastRetry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", *summary)
	}
	if reviewer.calls != 3 {
		t.Errorf("reject was retried: %d review calls", reviewer.calls)
	}

	slides, _ := db.GetSlides(p.ID)
	if slides[2].LastError == "" {
		t.Error("rejected slide missing reason")
	}
}

func TestResumeContinuesFromCheckpoint(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	// Simulate a crashed run: outline done, slide 0 fully accepted,
	// slide 1 has content only, slide 2 untouched.
	p.Status = models.ProjectGenerating
	slides := []*models.Slide{
		{ProjectID: p.ID, Index: 0, Title: "Intro", Content: "body 0", ImagePath: "img0", Status: models.SlideAccepted},
		{ProjectID: p.ID, Index: 1, Title: "Middle", Content: "body 1", Status: models.SlideContentReady},
		{ProjectID: p.ID, Index: 2, Title: "Close", Status: models.SlidePending},
	}
	if err := db.CreateSlides(p.ID, slides); err != nil {
		t.Fatalf("seed slides: %v", err)
	}
	if err := db.SaveCheckpoint(p, slides); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	outline := &mockOutline{specs: threeSlideSpecs()}
	content := &mockContent{}
	image := &mockImage{}

	o, err := New(Required{
		Store:    db,
		Outline:  outline,
		Content:  content,
		Image:    image,
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Resume(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if summary.Accepted != 3 {
		t.Fatalf("unexpected summary %+v", *summary)
	}

	// Outline is never regenerated and accepted slides are untouched.
	if got := outline.calls.Load(); got != 0 {
		t.Errorf("outline regenerated %d times on resume", got)
	}
	stored, _ := db.GetSlides(p.ID)
	if stored[0].Content != "body 0" {
		t.Errorf("accepted slide regenerated: %q", stored[0].Content)
	}
	// Slide 1 resumed past content generation straight to its image.
	if stored[1].Content != "body 1" {
		t.Errorf("slide 1 content regenerated: %q", stored[1].Content)
	}
	if stored[1].ImagePath == "" {
		t.Error("slide 1 image not generated on resume")
	}
}

func TestResumeRefusesTerminalProject(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)
	p.Status = models.ProjectReady
	if err := db.UpdateProject(p); err != nil {
		t.Fatalf("update: %v", err)
	}

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  &mockContent{},
		Image:    &mockImage{},
		Reviewer: &mockReviewer{},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := o.Resume(context.Background(), p.ID); err == nil {
		t.Fatal("expected resume of ready project to fail")
	}
}

func TestRunCancellation(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel as soon as the first content call lands.
	content := &blockingContent{started: make(chan struct{}, 8)}
	go func() {
		<-content.started
		cancel()
	}()

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  content,
		Image:    &mockImage{},
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary == nil {
		t.Fatal("expected partial summary on cancellation")
	}
	if summary.Skipped == 0 {
		t.Errorf("expected skipped slides after cancel, got %+v", *summary)
	}

	// The project is still resumable.
	stored, err := db.GetProject(p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if stored.Status.Terminal() {
		t.Errorf("cancelled project status = %s, should stay resumable", stored.Status)
	}
}

// blockingContent signals when a call starts and then waits for ctx.
type blockingContent struct {
	started chan struct{}
}

func (b *blockingContent) Generate(ctx context.Context, _ *models.Project, spec models.SlideSpec, _ string) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return "", ctx.Err()
}

// slowCheckpointStore delays checkpoint commits so a cancellation can
// land while the run loop is mid-commit.
type slowCheckpointStore struct {
	state.Store
	delay time.Duration
}

func (s *slowCheckpointStore) SaveCheckpoint(p *models.Project, slides []*models.Slide) error {
	time.Sleep(s.delay)
	return s.Store.SaveCheckpoint(p, slides)
}

// cancelAfterFirstContent completes its first call, cancels the run,
// and blocks every later call until the context ends.
type cancelAfterFirstContent struct {
	cancel context.CancelFunc
	mu     sync.Mutex
	fired  bool
}

func (c *cancelAfterFirstContent) Generate(ctx context.Context, _ *models.Project, spec models.SlideSpec, _ string) (string, error) {
	c.mu.Lock()
	first := !c.fired
	c.fired = true
	c.mu.Unlock()
	if first {
		c.cancel()
		return fmt.Sprintf("body %d", spec.Index), nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunCancellationDiscardsInFlightResults(t *testing.T) {
	// Results that race the cancellation must be discarded, not applied.
	// The ctx.Err a blocked generator returns is cancellation fallout,
	// not a slide failure; applying it would persist the slide as
	// failed and resume would never regenerate it.
	for i := 0; i < 20; i++ {
		db := openTestStore(t)
		p := newTestProject(t, db)

		ctx, cancel := context.WithCancel(context.Background())
		content := &cancelAfterFirstContent{cancel: cancel}

		o, err := New(Required{
			Store:    &slowCheckpointStore{Store: db, delay: 10 * time.Millisecond},
			Outline:  &mockOutline{specs: threeSlideSpecs()},
			Content:  content,
			Reviewer: &mockReviewer{},
		}, WithRetryPolicy(fastRetry()), WithImages(false))
		if err != nil {
			t.Fatalf("new: %v", err)
		}

		if _, err := o.Run(ctx, p); !errors.Is(err, context.Canceled) {
			t.Fatalf("iteration %d: expected context.Canceled, got %v", i, err)
		}
		cancel()

		slides, err := db.GetSlides(p.ID)
		if err != nil {
			t.Fatalf("iteration %d: get slides: %v", i, err)
		}
		for _, s := range slides {
			if s.Status == models.SlideFailed {
				t.Fatalf("iteration %d: slide %d persisted as failed after cancellation: %s", i, s.Index, s.LastError)
			}
		}
	}
}

func TestRunOutlineFailureIsTerminal(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{err: &ai.GenerationError{Op: "outline", Reason: "no JSON"}},
		Content:  &mockContent{},
		Image:    &mockImage{},
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := o.Run(context.Background(), p); err == nil {
		t.Fatal("expected outline failure to surface")
	}
	if p.Status != models.ProjectPartiallyFailed {
		t.Errorf("project status = %s, want partially_failed", p.Status)
	}
}

func TestRunImagesDisabled(t *testing.T) {
	db := openTestStore(t)
	p := newTestProject(t, db)

	image := &mockImage{}
	o, err := New(Required{
		Store:    db,
		Outline:  &mockOutline{specs: threeSlideSpecs()},
		Content:  &mockContent{},
		Image:    image,
		Reviewer: &mockReviewer{},
	}, WithRetryPolicy(fastRetry()), WithImages(false))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	summary, err := o.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Accepted != 3 {
		t.Fatalf("unexpected summary %+v", *summary)
	}
	if image.calls != 0 {
		t.Errorf("image generator called %d times with images disabled", image.calls)
	}
}

func TestBuildTasksPreSatisfied(t *testing.T) {
	slides := []*models.Slide{
		{Index: 0, Status: models.SlideAccepted},
		{Index: 1, Status: models.SlideContentReady},
		{Index: 2, Status: models.SlidePending},
	}

	tasks := buildTasks(slides, true)

	// Accepted slide contributes nothing; the other two contribute three each.
	if len(tasks) != 6 {
		t.Fatalf("expected 6 tasks, got %d", len(tasks))
	}
	byID := make(map[string]*models.Task)
	for _, task := range tasks {
		byID[task.ID] = task
	}
	if byID["content:1"].State != models.TaskSucceeded {
		t.Error("content:1 should be pre-succeeded")
	}
	if byID["image:1"].State != models.TaskQueued {
		t.Error("image:1 should be queued")
	}
	if byID["content:2"].State != models.TaskQueued {
		t.Error("content:2 should be queued")
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for attempt, min := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		9: time.Second,
	} {
		d := p.delay(attempt)
		if d < min {
			t.Errorf("delay(%d) = %s, want >= %s", attempt, d, min)
		}
		// Jitter adds at most 25%.
		if d > min+min/4 {
			t.Errorf("delay(%d) = %s, want <= %s", attempt, d, min+min/4)
		}
	}
}
