package services

import (
	"context"
	"io"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
)

type ProfileGateway interface {
	GetProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfileWithAvatar(ctx context.Context, req models.UpdateProfileRequest, filename string, avatar io.Reader) (*models.Profile, error)
}

type ProfileService struct {
	api     ProfileGateway
	notices notify.Publisher
}

func NewProfileService(api ProfileGateway, notices notify.Publisher) *ProfileService {
	return &ProfileService{api: api, notices: notices}
}

func (s *ProfileService) Get(ctx context.Context) (*models.Profile, error) {
	profile, err := s.api.GetProfile(ctx)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to load profile")))
		return nil, err
	}
	return profile, nil
}

// Update applies profile fields and, when avatar is non-nil, uploads it
// first.
func (s *ProfileService) Update(ctx context.Context, req models.UpdateProfileRequest, filename string, avatar io.Reader) (*models.Profile, error) {
	profile, err := s.api.UpdateProfileWithAvatar(ctx, req, filename, avatar)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to update profile")))
		return nil, err
	}
	s.notices.Publish(notify.Success("Profile updated"))
	return profile, nil
}
