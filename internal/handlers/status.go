package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/models"
	"image-studio-client/internal/realtime"
)

type ConnectionSource interface {
	State() realtime.State
	LastError() string
}

type JobSource interface {
	Pending() []models.Job
}

type GallerySource interface {
	Snapshot() gallery.Snapshot
}

// StatusHandler exposes the watcher's live state read-only.
type StatusHandler struct {
	stream  ConnectionSource
	jobs    JobSource
	gallery GallerySource
}

func NewStatusHandler(stream ConnectionSource, jobs JobSource, gallery GallerySource) *StatusHandler {
	return &StatusHandler{
		stream:  stream,
		jobs:    jobs,
		gallery: gallery,
	}
}

func (h *StatusHandler) GetStatus(c *gin.Context) {
	snap := h.gallery.Snapshot()

	lastError := h.stream.LastError()
	if lastError == "" {
		lastError = snap.LastError
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		Connection:   string(h.stream.State()),
		PendingJobs:  len(h.jobs.Pending()),
		GalleryTotal: snap.Total,
		GalleryPage:  snap.Page,
		Loading:      snap.Loading,
		LastError:    lastError,
	})
}

func (h *StatusHandler) ListJobs(c *gin.Context) {
	jobs := h.jobs.Pending()
	if jobs == nil {
		jobs = []models.Job{}
	}
	c.JSON(http.StatusOK, models.JobListResponse{Jobs: jobs})
}

func (h *StatusHandler) GetGallery(c *gin.Context) {
	snap := h.gallery.Snapshot()
	items := snap.Items
	if items == nil {
		items = []models.ImageRecord{}
	}
	c.JSON(http.StatusOK, models.GalleryResponse{
		Mode:      snap.Mode.String(),
		Items:     items,
		Total:     snap.Total,
		Page:      snap.Page,
		Limit:     snap.Limit,
		HasMore:   snap.HasMore,
		Loading:   snap.Loading,
		LastError: snap.LastError,
	})
}
