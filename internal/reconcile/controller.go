// Package reconcile bridges asynchronous job completion events to the gallery
// view. It owns the pending-jobs map, keyed by image id, and is the only
// component that changes an image's processing status.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/database"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
	"image-studio-client/internal/realtime"
)

type Gateway interface {
	Process(ctx context.Context, imageID, prompt string, tags []string) (string, error)
}

type Store interface {
	MarkPending(id string) bool
	MarkProcessingResult(id string, outcome gallery.Outcome) bool
}

type EventSource interface {
	Subscribe(fn func(realtime.Event)) func()
}

// Recorder keeps resolved outcomes. Optional.
type Recorder interface {
	RecordOutcome(outcome database.JobOutcome) error
}

type Controller struct {
	gateway  Gateway
	store    Store
	notices  notify.Publisher
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*models.Job
	waiters map[string][]chan realtime.Event
}

func NewController(gateway Gateway, store Store, notices notify.Publisher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		gateway: gateway,
		store:   store,
		notices: notices,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]*models.Job),
		waiters: make(map[string][]chan realtime.Event),
	}
}

func (c *Controller) SetRecorder(r Recorder) {
	c.recorder = r
}

// Attach routes terminal events from src into HandleEvent.
func (c *Controller) Attach(src EventSource) func() {
	return src.Subscribe(c.HandleEvent)
}

// Submit sends an edit prompt for imageID. The job is tracked from before
// the request goes out, so an event that beats the acknowledgement still
// resolves it. Failures are published as notices and returned.
func (c *Controller) Submit(ctx context.Context, imageID, prompt string, tags []string) (models.Job, error) {
	imageID = strings.TrimSpace(imageID)
	prompt = strings.TrimSpace(prompt)

	if imageID == "" {
		return models.Job{}, c.reject(&apperr.ValidationError{Field: "image_id", Message: "image id is required"})
	}
	if prompt == "" {
		return models.Job{}, c.reject(&apperr.ValidationError{Field: "prompt", Message: "prompt must not be empty"})
	}

	job := &models.Job{
		ImageID:     imageID,
		Prompt:      prompt,
		Tags:        models.DedupTags(tags),
		State:       models.JobAwaitingAck,
		SubmittedAt: c.now(),
	}

	c.mu.Lock()
	if _, busy := c.pending[imageID]; busy {
		c.mu.Unlock()
		return models.Job{}, c.reject(&apperr.ValidationError{Field: "image_id", Message: "this image is already being processed"})
	}
	c.pending[imageID] = job
	c.mu.Unlock()

	c.store.MarkPending(imageID)

	_, err := c.gateway.Process(ctx, imageID, prompt, job.Tags)
	if err != nil {
		c.mu.Lock()
		if c.pending[imageID] == job {
			delete(c.pending, imageID)
		}
		c.mu.Unlock()
		c.store.MarkProcessingResult(imageID, gallery.Outcome{Succeeded: false})
		c.logger.Warn("job submission failed", "image_id", imageID, "err", err)
		return models.Job{}, c.reject(err)
	}

	c.mu.Lock()
	result := *job
	if c.pending[imageID] == job {
		job.State = models.JobQueued
		result = *job
	}
	c.mu.Unlock()

	c.logger.Info("job queued", "image_id", imageID, "state", result.State)
	c.notices.Publish(notify.Notice{Level: notify.LevelInfo, Message: "Image queued for processing", ImageID: imageID})
	return result, nil
}

func (c *Controller) reject(err error) error {
	c.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to submit the image for processing")))
	return err
}

// HandleEvent resolves the pending job an event refers to. Events for ids
// that are not pending are duplicates or belong to another session and are
// dropped.
func (c *Controller) HandleEvent(event realtime.Event) {
	id := event.ImageKey()

	c.mu.Lock()
	job, ok := c.pending[id]
	var waiters []chan realtime.Event
	if ok {
		delete(c.pending, id)
		waiters = c.waiters[id]
		delete(c.waiters, id)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("dropping event for untracked image", "image_id", id)
		return
	}

	outcome := database.JobOutcome{ImageID: id, Prompt: job.Prompt, RecordedAt: c.now().UTC()}

	switch e := event.(type) {
	case realtime.JobSucceeded:
		c.store.MarkProcessingResult(id, gallery.Outcome{Succeeded: true, Result: e.Result})
		c.notices.Publish(notify.Notice{Level: notify.LevelSuccess, Message: "Image processed successfully", ImageID: id})
		outcome.State = models.JobSucceeded
		outcome.Detail = e.Result.AccessURL()
	case realtime.JobFailed:
		c.store.MarkProcessingResult(id, gallery.Outcome{Succeeded: false})
		c.notices.Publish(notify.Notice{Level: notify.LevelError, Message: e.Error, ImageID: id})
		outcome.State = models.JobFailed
		outcome.Detail = e.Error
	default:
		c.logger.Warn("unhandled event type", "image_id", id)
		return
	}

	c.logger.Info("job resolved", "image_id", id, "state", outcome.State)
	if c.recorder != nil {
		if err := c.recorder.RecordOutcome(outcome); err != nil {
			c.logger.Warn("failed to record job outcome", "image_id", id, "err", err)
		}
	}

	for _, ch := range waiters {
		ch <- event
	}
}

// Expect returns a channel that receives the terminal event for imageID.
// Register before Submit so a fast event is not missed.
func (c *Controller) Expect(imageID string) (<-chan realtime.Event, func()) {
	ch := make(chan realtime.Event, 1)

	c.mu.Lock()
	c.waiters[imageID] = append(c.waiters[imageID], ch)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.waiters[imageID]
		for i, w := range list {
			if w == ch {
				c.waiters[imageID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(c.waiters[imageID]) == 0 {
			delete(c.waiters, imageID)
		}
	}
	return ch, cancel
}

func (c *Controller) IsPending(imageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[imageID]
	return ok
}

// Pending returns the outstanding jobs, oldest first.
func (c *Controller) Pending() []models.Job {
	c.mu.Lock()
	jobs := make([]models.Job, 0, len(c.pending))
	for _, job := range c.pending {
		j := *job
		j.Tags = append([]string(nil), job.Tags...)
		jobs = append(jobs, j)
	}
	c.mu.Unlock()

	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].SubmittedAt.Equal(jobs[k].SubmittedAt) {
			return jobs[i].ImageID < jobs[k].ImageID
		}
		return jobs[i].SubmittedAt.Before(jobs[k].SubmittedAt)
	})
	return jobs
}
