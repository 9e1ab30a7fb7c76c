package services

import (
	"context"
	"log/slog"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/backend"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
)

const defaultTagLimit = 50

type TagGateway interface {
	ListTags(ctx context.Context, query backend.TagQuery) (*models.TagListData, error)
	CreateTag(ctx context.Context, name string) (*models.Tag, error)
}

type TagService struct {
	api     TagGateway
	notices notify.Publisher
	logger  *slog.Logger
}

func NewTagService(api TagGateway, notices notify.Publisher, logger *slog.Logger) *TagService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagService{api: api, notices: notices, logger: logger}
}

// List returns one page of tags sorted by name.
func (s *TagService) List(ctx context.Context, page, limit int) (*models.TagListData, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultTagLimit
	}
	data, err := s.api.ListTags(ctx, backend.TagQuery{Page: page, Limit: limit, SortBy: "name", SortOrder: "asc"})
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to load tags")))
		return nil, err
	}
	return data, nil
}

func (s *TagService) Create(ctx context.Context, name string) (*models.Tag, error) {
	tag, err := s.api.CreateTag(ctx, name)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to create tag")))
		return nil, err
	}
	s.notices.Publish(notify.Success("Tag created"))
	return tag, nil
}
