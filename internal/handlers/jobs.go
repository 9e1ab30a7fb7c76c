package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"image-studio-client/internal/apperr"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/models"
)

type JobRunner interface {
	Process(ctx context.Context, imageID, prompt string, tags []string) (models.Job, error)
}

// JobsHandler queues edit jobs through the watcher's own reconciliation
// controller, so their completion events are matched in this process.
type JobsHandler struct {
	runner JobRunner
}

func NewJobsHandler(runner JobRunner) *JobsHandler {
	return &JobsHandler{runner: runner}
}

func (h *JobsHandler) SubmitJob(c *gin.Context) {
	var req models.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	job, err := h.runner.Process(c.Request.Context(), req.ImageID, req.Prompt, req.Tags)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case apperr.IsValidation(err):
			status = http.StatusBadRequest
		case errors.Is(err, gallery.ErrReadOnly):
			status = http.StatusForbidden
		case apperr.IsAuth(err):
			status = http.StatusUnauthorized
		}
		c.JSON(status, models.ErrorResponse{
			Error:   "failed to submit job",
			Message: apperr.UserMessage(err, "the image could not be queued for processing"),
		})
		return
	}

	c.JSON(http.StatusAccepted, job)
}
