package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/models"
)

func (c *Client) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, &apperr.ValidationError{Field: "name", Message: "project name is required"}
	}
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}

	var project models.Project
	_, err = c.do(ctx, request{
		op:          "create project",
		method:      http.MethodPost,
		path:        "/api/projects",
		body:        body,
		contentType: "application/json",
	}, &project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) ListProjects(ctx context.Context, page, limit int) (*models.ProjectListData, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var result models.ProjectListResponse
	_, err := c.do(ctx, request{
		op:     "list projects",
		method: http.MethodGet,
		path:   "/api/projects",
		query:  q,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	_, err := c.do(ctx, request{
		op:     "get project",
		method: http.MethodGet,
		path:   "/api/projects/" + url.PathEscape(projectID),
	}, &project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) UpdateProject(ctx context.Context, projectID string, req models.UpdateProjectRequest) (*models.Project, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, &apperr.ValidationError{Field: "name", Message: "project name must not be empty"}
	}
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}

	var project models.Project
	_, err = c.do(ctx, request{
		op:          "update project",
		method:      http.MethodPut,
		path:        "/api/projects/" + url.PathEscape(projectID),
		body:        body,
		contentType: "application/json",
	}, &project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	_, err := c.do(ctx, request{
		op:     "delete project",
		method: http.MethodDelete,
		path:   "/api/projects/" + url.PathEscape(projectID),
	}, nil)
	return err
}
