package models

import "time"

type ProcessingStatus string

const (
	StatusStable  ProcessingStatus = "stable"
	StatusPending ProcessingStatus = "pending"
	StatusFailed  ProcessingStatus = "failed"
)

type ImageRecord struct {
	ID               string           `json:"id"`
	FileName         string           `json:"file_name"`
	MimeType         string           `json:"mime_type"`
	Size             int64            `json:"size"`
	OwnerUserID      string           `json:"user_id"`
	ProjectID        *string          `json:"project_id"`
	CreatedAt        time.Time        `json:"created_at"`
	Tags             []string         `json:"tags,omitempty"`
	URL              string           `json:"url"`
	SignedURL        *string          `json:"signed_url,omitempty"`
	StoragePath      string           `json:"storage_path,omitempty"`
	OriginalImageID  string           `json:"original_image_id,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status,omitempty"`
}

// AccessURL prefers the short-lived signed URL when the backend issued one.
func (r ImageRecord) AccessURL() string {
	if r.SignedURL != nil && *r.SignedURL != "" {
		return *r.SignedURL
	}
	return r.URL
}

// Clone returns a copy that shares no slices or pointers with r.
func (r ImageRecord) Clone() ImageRecord {
	out := r
	if r.ProjectID != nil {
		id := *r.ProjectID
		out.ProjectID = &id
	}
	if r.SignedURL != nil {
		u := *r.SignedURL
		out.SignedURL = &u
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return out
}

// DedupTags drops repeated tags while keeping first-seen order.
func DedupTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// GalleryPage is one materialized page of a filtered image listing.
type GalleryPage struct {
	Items []ImageRecord
	Total int
	Page  int
	Limit int
}

// HasMore tolerates a total that shrank or grew between fetches.
func (p GalleryPage) HasMore() bool {
	if p.Limit <= 0 || p.Total <= 0 {
		return false
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	shown := (page-1)*p.Limit + len(p.Items)
	return shown < p.Total
}
