package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"banana-slides/internal/graph"
	"banana-slides/internal/review"
	"banana-slides/pkg/models"
)

// job carries everything a worker needs for one task. Workers never
// read shared slide state; the run loop snapshots inputs at dispatch.
type job struct {
	task     *models.Task
	project  *models.Project
	spec     models.SlideSpec
	feedback string
	// content is the slide body, set for image jobs.
	content string
}

// result is a worker's report back to the run loop.
type result struct {
	task *models.Task
	// requeue marks a retry backoff timer firing, not a worker result.
	requeue  bool
	content  string
	imageRef string
	verdict  *review.Verdict
	err      error
}

// run holds the mutable state of one generation run. Only the loop
// goroutine touches slides, the project, pool counters, and the store.
type run struct {
	o       *Orchestrator
	project *models.Project
	slides  map[int]*models.Slide
	ordered []*models.Slide
	graph   *graph.TaskGraph

	jobsContent chan job
	jobsImage   chan job
	results     chan result
	wg          sync.WaitGroup

	runningContent int
	runningImage   int
	// inflight counts outstanding messages expected on results: one per
	// dispatched task plus one per pending retry timer.
	inflight int
}

func newRun(o *Orchestrator, project *models.Project, slides []*models.Slide) *run {
	byIndex := make(map[int]*models.Slide, len(slides))
	for _, s := range slides {
		byIndex[s.Index] = s
	}
	return &run{
		o:           o,
		project:     project,
		slides:      byIndex,
		ordered:     slides,
		graph:       graph.New(),
		jobsContent: make(chan job, o.contentWorkers),
		jobsImage:   make(chan job, o.imageWorkers),
		results:     make(chan result, 64),
	}
}

// loop schedules ready tasks into the pools and applies results until
// every task is terminal. It is the single writer for slide state.
func (r *run) loop(parent context.Context) (*models.RunSummary, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	tasks := buildTasks(r.ordered, r.o.imagesEnabled)
	if err := r.graph.Build(tasks); err != nil {
		return nil, fmt.Errorf("build task graph: %w", err)
	}
	r.o.logger.Log("[run] project %s: %d tasks over %d slides", r.project.ID, len(tasks), len(r.ordered))

	r.startWorkers(ctx)
	defer r.stopWorkers()

	for {
		if ctx.Err() != nil {
			return r.cancelRun(ctx.Err())
		}

		if r.graph.Done() && r.inflight == 0 {
			return r.finalize()
		}

		if err := r.dispatch(ctx); err != nil {
			cancel()
			r.drain()
			return nil, err
		}

		select {
		case <-ctx.Done():
			return r.cancelRun(ctx.Err())
		case res := <-r.results:
			if err := r.handle(ctx, res); err != nil {
				cancel()
				r.drain()
				return nil, err
			}
		}
	}
}

func (r *run) startWorkers(ctx context.Context) {
	for i := 0; i < r.o.contentWorkers; i++ {
		r.wg.Add(1)
		go r.contentWorker(ctx)
	}
	if r.o.imagesEnabled {
		for i := 0; i < r.o.imageWorkers; i++ {
			r.wg.Add(1)
			go r.imageWorker(ctx)
		}
	}
}

func (r *run) stopWorkers() {
	close(r.jobsContent)
	close(r.jobsImage)
	r.wg.Wait()
}

func (r *run) contentWorker(ctx context.Context) {
	defer r.wg.Done()
	for j := range r.jobsContent {
		text, err := r.o.content.Generate(ctx, j.project, j.spec, j.feedback)
		r.results <- result{task: j.task, content: text, err: err}
	}
}

func (r *run) imageWorker(ctx context.Context) {
	defer r.wg.Done()
	for j := range r.jobsImage {
		ref, err := r.o.image.Generate(ctx, j.project, j.spec, j.content, j.feedback)
		r.results <- result{task: j.task, imageRef: ref, err: err}
	}
}

// dispatch sends every ready task its pool can absorb. Readiness is
// FIFO over graph insertion order, which is slide index order.
func (r *run) dispatch(ctx context.Context) error {
	for _, task := range r.graph.Ready() {
		slide := r.slides[task.SlideIndex]

		switch task.Kind {
		case models.TaskContent:
			if r.runningContent >= r.o.contentWorkers {
				continue
			}
			r.start(task)
			r.runningContent++
			r.jobsContent <- job{task: task, project: r.project, spec: slide.Spec(), feedback: slide.Feedback}

		case models.TaskImage:
			if r.runningImage >= r.o.imageWorkers {
				continue
			}
			r.start(task)
			r.runningImage++
			r.jobsImage <- job{task: task, project: r.project, spec: slide.Spec(), feedback: slide.Feedback, content: slide.Content}

		case models.TaskReview:
			// Review calls are low volume and run unbounded.
			slide.Status = models.SlideUnderReview
			if err := r.checkpoint(); err != nil {
				return err
			}
			r.start(task)
			snapshot := *slide
			r.wg.Add(1)
			go func(t *models.Task, s models.Slide) {
				defer r.wg.Done()
				verdict, err := r.o.reviewer.Review(ctx, r.project, &s)
				r.results <- result{task: t, verdict: verdict, err: err}
			}(task, snapshot)
		}
	}
	return nil
}

// start transitions a task to running and accounts for its result.
func (r *run) start(task *models.Task) {
	task.Attempt++
	r.graph.MarkRunning(task.ID)
	r.inflight++
	r.o.emit(Event{
		Type:       EventTaskStarted,
		TaskID:     task.ID,
		SlideIndex: task.SlideIndex,
		Attempt:    task.Attempt,
	})
	debugLog("[run] dispatched %s (attempt %d)", task.ID, task.Attempt)
}

// handle applies one worker result. Returns an error only for store
// failures, which abort the run without mutating slide statuses.
func (r *run) handle(ctx context.Context, res result) error {
	r.inflight--

	if res.requeue {
		// Backoff elapsed, put the task back in the queue.
		r.graph.MarkQueued(res.task.ID)
		return nil
	}

	// The worker slot is free regardless of outcome.
	switch res.task.Kind {
	case models.TaskContent:
		r.runningContent--
	case models.TaskImage:
		r.runningImage--
	}

	if ctx.Err() != nil {
		// The run is winding down. Results that race the cancellation
		// are discarded, whatever they carry: the slide keeps its last
		// committed state and the task is cancelled with the rest.
		r.graph.MarkQueued(res.task.ID)
		debugLog("[run] discarded %s result after cancellation", res.task.ID)
		return nil
	}

	slide := r.slides[res.task.SlideIndex]

	if res.err != nil {
		if r.o.retry.shouldRetry(res.task, res.err) {
			delay := r.o.retry.delay(res.task.Attempt)
			r.o.logger.Log("[run] %s attempt %d failed (%v), retrying in %s", res.task.ID, res.task.Attempt, res.err, delay)
			r.o.emit(Event{
				Type:       EventTaskRetried,
				TaskID:     res.task.ID,
				SlideIndex: res.task.SlideIndex,
				Attempt:    res.task.Attempt,
				Err:        res.err,
			})
			r.inflight++
			r.wg.Add(1)
			go func(t *models.Task) {
				defer r.wg.Done()
				select {
				case <-ctx.Done():
				case <-time.After(delay):
				}
				r.results <- result{task: t, requeue: true}
			}(res.task)
			return nil
		}
		return r.failSlide(res.task, slide, res.err)
	}

	switch res.task.Kind {
	case models.TaskContent:
		slide.Content = res.content
		slide.Status = models.SlideContentReady
	case models.TaskImage:
		slide.ImagePath = res.imageRef
		slide.Status = models.SlideImageReady
	case models.TaskReview:
		return r.handleVerdict(res.task, slide, res.verdict)
	}

	r.graph.MarkComplete(res.task.ID)
	r.o.emit(Event{Type: EventTaskCompleted, TaskID: res.task.ID, SlideIndex: res.task.SlideIndex})
	return r.checkpoint()
}

// handleVerdict applies a review outcome to the slide.
func (r *run) handleVerdict(task *models.Task, slide *models.Slide, verdict *review.Verdict) error {
	switch verdict.Decision {
	case review.DecisionAccept:
		r.graph.MarkComplete(task.ID)
		slide.Status = models.SlideAccepted
		slide.Feedback = ""
		slide.LastError = ""
		r.o.emit(Event{Type: EventSlideAccepted, TaskID: task.ID, SlideIndex: slide.Index})
		r.o.logger.Log("[run] slide %d accepted", slide.Index)
		return r.checkpoint()

	case review.DecisionRevise:
		slide.ReviewCount++
		if slide.ReviewCount > r.o.revisionCeiling {
			return r.failSlide(task, slide,
				fmt.Errorf("revision ceiling reached after %d cycles: %s", slide.ReviewCount-1, verdict.Feedback))
		}
		slide.Feedback = verdict.Feedback
		slide.Status = models.SlidePending
		ids := []string{models.TaskID(models.TaskContent, slide.Index)}
		if r.o.imagesEnabled {
			ids = append(ids, models.TaskID(models.TaskImage, slide.Index))
		}
		ids = append(ids, task.ID)
		r.graph.Reset(ids...)
		r.o.emit(Event{
			Type:       EventSlideRevised,
			TaskID:     task.ID,
			SlideIndex: slide.Index,
			Message:    verdict.Feedback,
		})
		r.o.logger.Log("[run] slide %d sent back for revision %d: %s", slide.Index, slide.ReviewCount, verdict.Feedback)
		return r.checkpoint()

	case review.DecisionReject:
		return r.failSlide(task, slide, &review.Rejection{SlideIndex: slide.Index, Reason: verdict.Feedback})

	default:
		return r.failSlide(task, slide, fmt.Errorf("unknown review decision %q", verdict.Decision))
	}
}

// failSlide marks a slide permanently failed and fails every dependent
// task. Propagation stays within the slide: its image and review tasks
// never run once content has permanently failed.
func (r *run) failSlide(task *models.Task, slide *models.Slide, cause error) error {
	propagated := r.graph.MarkFailed(task.ID)
	slide.Status = models.SlideFailed
	slide.LastError = cause.Error()

	r.o.emit(Event{Type: EventTaskFailed, TaskID: task.ID, SlideIndex: slide.Index, Err: cause})
	r.o.emit(Event{Type: EventSlideFailed, TaskID: task.ID, SlideIndex: slide.Index, Err: cause})
	r.o.logger.Log("[run] slide %d failed at %s: %v (propagated: %v)", slide.Index, task.ID, cause, propagated)
	return r.checkpoint()
}

// checkpoint commits the project and all slides in one transaction.
func (r *run) checkpoint() error {
	if err := r.o.store.SaveCheckpoint(r.project, r.ordered); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// drain consumes every outstanding result so worker goroutines can
// finish their sends. Results received here are discarded.
func (r *run) drain() {
	for r.inflight > 0 {
		<-r.results
		r.inflight--
	}
}

// cancelRun winds the run down after a context cancellation. Dispatch
// has stopped; in-flight calls finish and their results are discarded,
// so slides keep their last committed state.
func (r *run) cancelRun(cause error) (*models.RunSummary, error) {
	r.o.logger.Log("[run] cancelled: %v", cause)
	r.drain()
	cancelled := r.graph.MarkCancelled()
	r.o.logger.Log("[run] %d tasks cancelled", len(cancelled))

	summary := r.summary()
	if err := r.checkpoint(); err != nil {
		r.o.logger.Log("[run] checkpoint after cancel: %v", err)
	}
	r.o.emit(Event{Type: EventRunDone, SlideIndex: -1, Message: "run cancelled", Err: cause})
	return summary, cause
}

// finalize computes the run summary and the project's terminal status.
func (r *run) finalize() (*models.RunSummary, error) {
	summary := r.summary()

	r.project.FailedSlides = summary.Failed
	if summary.Failed <= r.o.tolerance {
		r.project.Status = models.ProjectReady
	} else {
		r.project.Status = models.ProjectPartiallyFailed
	}
	if err := r.checkpoint(); err != nil {
		return nil, err
	}

	r.o.emit(Event{
		Type:       EventRunDone,
		SlideIndex: -1,
		Message:    fmt.Sprintf("run done: %d accepted, %d failed", summary.Accepted, summary.Failed),
	})
	r.o.logger.Log("[run] project %s done: %+v status=%s", r.project.ID, *summary, r.project.Status)
	return summary, nil
}

// summary tallies slide outcomes. Slides left non-terminal by a
// cancelled run count as skipped.
func (r *run) summary() *models.RunSummary {
	s := &models.RunSummary{}
	for _, slide := range r.ordered {
		switch slide.Status {
		case models.SlideAccepted:
			s.Accepted++
		case models.SlideFailed:
			s.Failed++
		default:
			s.Skipped++
		}
	}
	return s
}
