package orchestrator

import "time"

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventOutlineStarted indicates outline generation has started.
	EventOutlineStarted EventType = "outline_started"
	// EventOutlineCompleted indicates the outline was materialized into slides.
	EventOutlineCompleted EventType = "outline_completed"
	// EventTaskStarted indicates a task was dispatched to a worker.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskRetried indicates a task failed transiently and was re-queued.
	EventTaskRetried EventType = "task_retried"
	// EventTaskFailed indicates a task failed permanently.
	EventTaskFailed EventType = "task_failed"
	// EventSlideAccepted indicates the review gate accepted a slide.
	EventSlideAccepted EventType = "slide_accepted"
	// EventSlideRevised indicates the review gate sent a slide back for rework.
	EventSlideRevised EventType = "slide_revised"
	// EventSlideFailed indicates a slide reached a terminal failure.
	EventSlideFailed EventType = "slide_failed"
	// EventRunDone indicates the run finished.
	EventRunDone EventType = "run_done"
)

// Event is emitted by the orchestrator as a run progresses.
// The CLI consumes these to render progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// SlideIndex is the related slide, when the event concerns one. -1 otherwise.
	SlideIndex int
	// Attempt is the attempt number for dispatch and retry events.
	Attempt int
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit sends an event to the configured channel without blocking.
// A slow or absent consumer never stalls the run loop.
func (o *Orchestrator) emit(ev Event) {
	ev.Timestamp = time.Now()
	if o.events == nil {
		return
	}
	select {
	case o.events <- ev:
	default:
		o.logger.Log("[events] dropped %s event (consumer not keeping up)", ev.Type)
	}
}
