package models

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const DefaultPageLimit = 20

var validSortKeys = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"file_name":  true,
	"mime_type":  true,
	"size":       true,
}

// FilterSet is the query that defines a gallery view. Two responses apply to
// the same view only when their FilterSets are Equal.
type FilterSet struct {
	ProjectID   string
	Tags        []string
	CreatedFrom string
	CreatedTo   string
	SortBy      string
	SortOrder   string
	Page        int
	Limit       int
	Public      string
	TTL         int
}

// Normalize fills paging defaults and drops duplicate tags.
func (f FilterSet) Normalize() FilterSet {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	f.Tags = DedupTags(f.Tags)
	f.SortOrder = strings.ToLower(strings.TrimSpace(f.SortOrder))
	return f
}

func (f FilterSet) Validate() error {
	if f.SortBy != "" && !validSortKeys[f.SortBy] {
		return &filterError{field: "sort_by", value: f.SortBy}
	}
	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		return &filterError{field: "sort_order", value: f.SortOrder}
	}
	return nil
}

type filterError struct {
	field string
	value string
}

func (e *filterError) Error() string {
	return "invalid " + e.field + ": " + strconv.Quote(e.value)
}

func (f FilterSet) Equal(other FilterSet) bool {
	a, b := f.Normalize(), other.Normalize()
	return a.ProjectID == b.ProjectID &&
		slices.Equal(a.Tags, b.Tags) &&
		a.CreatedFrom == b.CreatedFrom &&
		a.CreatedTo == b.CreatedTo &&
		a.SortBy == b.SortBy &&
		a.SortOrder == b.SortOrder &&
		a.Page == b.Page &&
		a.Limit == b.Limit &&
		a.Public == b.Public &&
		a.TTL == b.TTL
}

// Query encodes the set for GET /api/images/list. Empty values are omitted
// and tags are comma-joined.
func (f FilterSet) Query() url.Values {
	q := url.Values{}
	if f.ProjectID != "" {
		q.Set("project_id", f.ProjectID)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		q.Set("sort_order", f.SortOrder)
	}
	if f.CreatedFrom != "" {
		q.Set("created_from", f.CreatedFrom)
	}
	if f.CreatedTo != "" {
		q.Set("created_to", f.CreatedTo)
	}
	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}
	if f.Public != "" {
		q.Set("public", f.Public)
	}
	if f.TTL > 0 {
		q.Set("ttl", strconv.Itoa(f.TTL))
	}
	return q
}
