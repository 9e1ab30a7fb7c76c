package services

import (
	"context"
	"fmt"
	"log/slog"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/backend"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
)

type ImageGateway interface {
	Upload(ctx context.Context, projectID string, files []backend.UploadFile) (*models.UploadResponse, error)
	Delete(ctx context.Context, imageID string) (*models.MessageResponse, error)
}

type JobSubmitter interface {
	Submit(ctx context.Context, imageID, prompt string, tags []string) (models.Job, error)
}

// GalleryService runs the upload, delete and process flows against the
// gallery store, publishing a notice for every outcome.
type GalleryService struct {
	images  ImageGateway
	store   *gallery.Store
	jobs    JobSubmitter
	notices notify.Publisher
	logger  *slog.Logger
}

func NewGalleryService(
	images ImageGateway,
	store *gallery.Store,
	jobs JobSubmitter,
	notices notify.Publisher,
	logger *slog.Logger,
) *GalleryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GalleryService{
		images:  images,
		store:   store,
		jobs:    jobs,
		notices: notices,
		logger:  logger,
	}
}

func (s *GalleryService) Store() *gallery.Store {
	return s.store
}

// Upload sends files and merges the stored records into the view. A failed
// refresh after a successful upload is reported as a warning only.
func (s *GalleryService) Upload(ctx context.Context, projectID string, files []backend.UploadFile) ([]models.ImageRecord, error) {
	resp, err := s.images.Upload(ctx, projectID, files)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to upload images")))
		return nil, err
	}

	s.notices.Publish(notify.Success(fmt.Sprintf("Uploaded %d image(s)", len(resp.Data))))

	if err := s.store.AppendUploaded(ctx, resp.Data); err != nil {
		s.logger.Warn("gallery refresh after upload failed", "err", err)
		s.notices.Publish(notify.Warning(apperr.UserMessage(err, "Uploaded, but the gallery could not be refreshed")))
	}
	return resp.Data, nil
}

// Delete removes the image from the view first, then from the backend. An
// image the backend no longer has counts as deleted.
func (s *GalleryService) Delete(ctx context.Context, imageID string) error {
	if _, err := s.store.RemoveByID(imageID); err != nil {
		s.notices.Publish(notify.Error("This gallery is read-only"))
		return err
	}

	_, err := s.images.Delete(ctx, imageID)
	if err != nil && !apperr.IsNotFound(err) {
		s.notices.Publish(notify.Notice{
			Level:   notify.LevelError,
			Message: apperr.UserMessage(err, "Failed to delete image"),
			ImageID: imageID,
		})
		return err
	}
	if err != nil {
		s.logger.Info("image already gone on the backend", "image_id", imageID)
	}

	s.notices.Publish(notify.Notice{Level: notify.LevelSuccess, Message: "Image deleted", ImageID: imageID})
	return nil
}

// Process submits an edit prompt through the reconciliation controller.
func (s *GalleryService) Process(ctx context.Context, imageID, prompt string, tags []string) (models.Job, error) {
	if s.store.Mode() == gallery.ModePublic {
		s.notices.Publish(notify.Error("This gallery is read-only"))
		return models.Job{}, gallery.ErrReadOnly
	}
	return s.jobs.Submit(ctx, imageID, prompt, tags)
}
