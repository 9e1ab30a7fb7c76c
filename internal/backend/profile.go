package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/models"
)

func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var result models.ProfileResponse
	_, err := c.do(ctx, request{
		op:     "get profile",
		method: http.MethodGet,
		path:   "/api/users/profile",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.Profile, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}

	var result models.ProfileResponse
	_, err = c.do(ctx, request{
		op:          "update profile",
		method:      http.MethodPatch,
		path:        "/api/users/profile",
		body:        body,
		contentType: "application/json",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.User, nil
}

// UploadAvatar sends the image as the "avatar" form field and returns the URL
// the backend stored it under.
func (c *Client) UploadAvatar(ctx context.Context, filename string, content io.Reader) (string, error) {
	if content == nil {
		return "", &apperr.ValidationError{Field: "avatar", Message: "avatar file is required"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var result models.AvatarUploadResponse
	_, err = c.do(ctx, request{
		op:          "upload avatar",
		method:      http.MethodPost,
		path:        "/api/users/profile/avatar/upload",
		body:        &buf,
		contentType: writer.FormDataContentType(),
	}, &result)
	if err != nil {
		return "", err
	}

	location := result.Location()
	if location == "" {
		return "", &apperr.TransportError{Op: "upload avatar", Message: "the server did not return an avatar URL"}
	}
	return location, nil
}

func (c *Client) UpdateAvatar(ctx context.Context, avatarURL string) (*models.Profile, error) {
	body, err := jsonBody(models.UpdateAvatarRequest{AvatarURL: avatarURL})
	if err != nil {
		return nil, err
	}

	var result models.ProfileResponse
	_, err = c.do(ctx, request{
		op:          "update avatar",
		method:      http.MethodPatch,
		path:        "/api/users/profile/avatar",
		body:        body,
		contentType: "application/json",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.User, nil
}

// UpdateProfileWithAvatar uploads the avatar first (when given), then applies
// the profile fields.
func (c *Client) UpdateProfileWithAvatar(ctx context.Context, req models.UpdateProfileRequest, filename string, avatar io.Reader) (*models.Profile, error) {
	var avatarURL string
	if avatar != nil {
		location, err := c.UploadAvatar(ctx, filename, avatar)
		if err != nil {
			return nil, err
		}
		if _, err := c.UpdateAvatar(ctx, location); err != nil {
			return nil, err
		}
		avatarURL = location
	}

	profile, err := c.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	if avatarURL != "" {
		profile.AvatarURL = avatarURL
		profile.AvatarURLv2 = avatarURL
	}
	return profile, nil
}
