package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/models"
)

// UploadFile is one file for the multipart upload form.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// Upload posts files to /api/images/upload, optionally into a project.
func (c *Client) Upload(ctx context.Context, projectID string, files []UploadFile) (*models.UploadResponse, error) {
	if len(files) == 0 {
		return nil, &apperr.ValidationError{Field: "images", Message: "select at least one image to upload"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if projectID != "" {
		if err := writer.WriteField("project_id", projectID); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}
	for _, f := range files {
		if f.Content == nil {
			return nil, &apperr.ValidationError{Field: "images", Message: fmt.Sprintf("%s has no content", f.Name)}
		}
		part, err := writer.CreateFormFile("images", f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var result models.UploadResponse
	_, err := c.do(ctx, request{
		op:          "upload images",
		method:      http.MethodPost,
		path:        "/api/images/upload",
		body:        &buf,
		contentType: writer.FormDataContentType(),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List fetches one page of the signed-in user's images.
func (c *Client) List(ctx context.Context, filters models.FilterSet) (*models.ImageListData, error) {
	if err := filters.Validate(); err != nil {
		return nil, &apperr.ValidationError{Field: "filters", Message: err.Error()}
	}

	var result models.ImageListResponse
	_, err := c.do(ctx, request{
		op:     "list images",
		method: http.MethodGet,
		path:   "/api/images/list",
		query:  filters.Query(),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// ListPublic fetches the public gallery. No session is required.
func (c *Client) ListPublic(ctx context.Context, filters models.FilterSet) (*models.ImageListData, error) {
	q := url.Values{}
	if filters.Page > 0 {
		q.Set("page", strconv.Itoa(filters.Page))
	}
	if filters.Limit > 0 {
		q.Set("limit", strconv.Itoa(filters.Limit))
	}

	var result models.ImageListResponse
	_, err := c.do(ctx, request{
		op:        "list public images",
		method:    http.MethodGet,
		path:      "/api/images/public",
		query:     q,
		anonymous: true,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (c *Client) Delete(ctx context.Context, imageID string) (*models.MessageResponse, error) {
	if strings.TrimSpace(imageID) == "" {
		return nil, &apperr.ValidationError{Field: "image_id", Message: "image id is required"}
	}

	var result models.MessageResponse
	_, err := c.do(ctx, request{
		op:     "delete image",
		method: http.MethodDelete,
		path:   "/api/images/" + url.PathEscape(imageID),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Process queues an edit prompt for imageID and returns the correlation key
// as soon as the backend acknowledges with 202 Accepted. It never waits for
// the terminal event and never retries.
func (c *Client) Process(ctx context.Context, imageID, prompt string, tags []string) (string, error) {
	imageID = strings.TrimSpace(imageID)
	prompt = strings.TrimSpace(prompt)
	if imageID == "" {
		return "", &apperr.ValidationError{Field: "image_id", Message: "image id is required"}
	}
	if prompt == "" {
		return "", &apperr.ValidationError{Field: "prompt", Message: "prompt must not be empty"}
	}

	body, err := jsonBody(models.ProcessRequest{
		ImageID: imageID,
		Prompt:  prompt,
		Tags:    models.DedupTags(tags),
	})
	if err != nil {
		return "", err
	}

	// The 202 status is the acknowledgement; its body is not read.
	_, err = c.do(ctx, request{
		op:          "process image",
		method:      http.MethodPost,
		path:        "/api/images/process",
		body:        body,
		contentType: "application/json",
		timeout:     c.processTimeout,
		accept:      []int{http.StatusAccepted},
	}, nil)
	if err != nil {
		return "", &apperr.SubmissionError{Message: apperr.UserMessage(err, "the image could not be queued for processing"), Err: err}
	}

	return imageID, nil
}
