package orchestrator

import (
	"banana-slides/pkg/models"
)

// buildTasks derives the task graph nodes for a run from slide statuses.
// A task whose postcondition already holds is created pre-succeeded, so
// resume picks up exactly where the last checkpoint left off. Slides
// that are already accepted or failed contribute no tasks.
func buildTasks(slides []*models.Slide, imagesEnabled bool) []*models.Task {
	var tasks []*models.Task

	for _, slide := range slides {
		if slide.Status.Done() {
			continue
		}

		contentID := models.TaskID(models.TaskContent, slide.Index)
		content := models.NewTask(models.TaskContent, slide.Index)
		if slide.Status != models.SlidePending {
			content.State = models.TaskSucceeded
		}
		tasks = append(tasks, content)

		reviewDeps := []string{contentID}
		if imagesEnabled {
			imageID := models.TaskID(models.TaskImage, slide.Index)
			image := models.NewTask(models.TaskImage, slide.Index, contentID)
			if slide.Status == models.SlideImageReady || slide.Status == models.SlideUnderReview {
				image.State = models.TaskSucceeded
			}
			tasks = append(tasks, image)
			reviewDeps = append(reviewDeps, imageID)
		}

		// Review is never pre-succeeded: a slide that passed review is
		// accepted and contributes no tasks at all.
		tasks = append(tasks, models.NewTask(models.TaskReview, slide.Index, reviewDeps...))
	}

	return tasks
}
