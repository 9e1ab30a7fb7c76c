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

type TagQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

func (c *Client) ListTags(ctx context.Context, query TagQuery) (*models.TagListData, error) {
	if query.SortOrder != "" && query.SortOrder != "asc" && query.SortOrder != "desc" {
		return nil, &apperr.ValidationError{Field: "sort_order", Message: "sort order must be asc or desc"}
	}

	q := url.Values{}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.SortBy != "" {
		q.Set("sort_by", query.SortBy)
	}
	if query.SortOrder != "" {
		q.Set("sort_order", query.SortOrder)
	}

	var result models.TagListResponse
	_, err := c.do(ctx, request{
		op:     "list tags",
		method: http.MethodGet,
		path:   "/api/tags",
		query:  q,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (c *Client) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &apperr.ValidationError{Field: "name", Message: "tag name is required"}
	}
	body, err := jsonBody(models.CreateTagRequest{Name: name})
	if err != nil {
		return nil, err
	}

	var result models.CreateTagResponse
	_, err = c.do(ctx, request{
		op:          "create tag",
		method:      http.MethodPost,
		path:        "/api/tags",
		body:        body,
		contentType: "application/json",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}
