// Package gallery holds the paginated, filtered view of images the client is
// currently showing. It is the single source of truth for that view; every
// mutation goes through a Store method.
package gallery

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"image-studio-client/internal/models"
)

// Mode selects the data source and whether the view can be mutated.
type Mode int

const (
	// ModeLive lists the signed-in user's images and accepts mutations.
	ModeLive Mode = iota
	// ModePublic lists the public gallery without a session and is read-only.
	ModePublic
)

func (m Mode) String() string {
	if m == ModePublic {
		return "public"
	}
	return "live"
}

var ErrReadOnly = errors.New("gallery is read-only")

type Lister interface {
	List(ctx context.Context, filters models.FilterSet) (*models.ImageListData, error)
	ListPublic(ctx context.Context, filters models.FilterSet) (*models.ImageListData, error)
}

// Outcome is the terminal result of a processing job as applied to the view.
type Outcome struct {
	Succeeded bool
	Result    models.ImageRecord
}

type Options struct {
	Mode    Mode
	Filters models.FilterSet
	Logger  *slog.Logger
}

// Snapshot is a copy of the store's state; callers may keep and modify it.
type Snapshot struct {
	Mode      Mode
	Items     []models.ImageRecord
	Total     int
	Page      int
	Limit     int
	Filters   models.FilterSet
	Loading   bool
	LastError string
	HasMore   bool
}

type Store struct {
	lister Lister
	mode   Mode
	logger *slog.Logger

	mu        sync.Mutex
	filters   models.FilterSet
	items     []models.ImageRecord
	total     int
	page      int
	limit     int
	loading   bool
	lastErr   error
	seq       uint64
	isPending func(imageID string) bool
}

func New(lister Lister, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	filters := opts.Filters.Normalize()
	return &Store{
		lister:  lister,
		mode:    opts.Mode,
		logger:  opts.Logger,
		filters: filters,
		page:    filters.Page,
		limit:   filters.Limit,
	}
}

func (s *Store) Mode() Mode { return s.mode }

// SetPendingLookup installs the hook used to mark freshly loaded records
// whose processing job is still outstanding. The hook must not call back
// into the store.
func (s *Store) SetPendingLookup(fn func(imageID string) bool) {
	s.mu.Lock()
	s.isPending = fn
	s.mu.Unlock()
}

// LoadPage replaces the current page with the result for filters. When
// several loads overlap, only the most recently issued one is applied; the
// others are discarded without error.
func (s *Store) LoadPage(ctx context.Context, filters models.FilterSet) error {
	filters = filters.Normalize()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.filters = filters
	s.loading = true
	s.mu.Unlock()

	var data *models.ImageListData
	var err error
	if s.mode == ModePublic {
		data, err = s.lister.ListPublic(ctx, filters)
	} else {
		data, err = s.lister.List(ctx, filters)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.logger.Debug("discarding stale gallery response", "seq", seq, "latest", s.seq)
		return nil
	}
	s.loading = false

	if err != nil {
		s.lastErr = err
		return err
	}
	s.lastErr = nil
	s.applyPage(filters, data)
	return nil
}

func (s *Store) applyPage(filters models.FilterSet, data *models.ImageListData) {
	s.page = filters.Page
	s.limit = filters.Limit
	s.total = 0
	var records []models.ImageRecord
	if data != nil {
		if data.Page > 0 {
			s.page = data.Page
		}
		if data.Limit > 0 {
			s.limit = data.Limit
		}
		s.total = max(data.Total, 0)
		records = data.Data
	}

	items := make([]models.ImageRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		item := r.Clone()
		if s.isPending != nil && s.isPending(item.ID) {
			item.ProcessingStatus = models.StatusPending
		} else if item.ProcessingStatus == "" {
			item.ProcessingStatus = models.StatusStable
		}
		items = append(items, item)
	}
	if s.limit > 0 && len(items) > s.limit {
		items = items[:s.limit]
	}
	s.items = items
}

// UpdateFilters applies fn to a copy of the active filters and loads the
// resulting page. A change to anything but the page number starts over at
// page 1.
func (s *Store) UpdateFilters(ctx context.Context, fn func(*models.FilterSet)) error {
	s.mu.Lock()
	before := s.filters
	before.Tags = append([]string(nil), before.Tags...)
	s.mu.Unlock()

	filters := before
	filters.Tags = append([]string(nil), before.Tags...)
	fn(&filters)
	if filters.Page == before.Page && !filters.Equal(before) {
		filters.Page = 1
	}
	return s.LoadPage(ctx, filters)
}

// Refresh reloads the active filters.
func (s *Store) Refresh(ctx context.Context) error {
	return s.UpdateFilters(ctx, func(*models.FilterSet) {})
}

// NextPage advances to the following page when nothing is loading and the
// backend reported more results. It reports whether a load was issued.
func (s *Store) NextPage(ctx context.Context) (bool, error) {
	s.mu.Lock()
	ok := !s.loading && s.hasMoreLocked()
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, s.UpdateFilters(ctx, func(f *models.FilterSet) { f.Page++ })
}

func (s *Store) hasMoreLocked() bool {
	return models.GalleryPage{Items: s.items, Total: s.total, Page: s.page, Limit: s.limit}.HasMore()
}

// AppendUploaded merges freshly uploaded records into the view, then reloads
// the page so server-side ordering wins.
func (s *Store) AppendUploaded(ctx context.Context, images []models.ImageRecord) error {
	if s.mode == ModePublic {
		return ErrReadOnly
	}

	s.mu.Lock()
	existing := make(map[string]struct{}, len(s.items))
	for _, item := range s.items {
		existing[item.ID] = struct{}{}
	}
	var added []models.ImageRecord
	for _, img := range images {
		if _, ok := existing[img.ID]; ok {
			continue
		}
		existing[img.ID] = struct{}{}
		item := img.Clone()
		if item.ProcessingStatus == "" {
			item.ProcessingStatus = models.StatusStable
		}
		added = append(added, item)
	}
	s.items = append(added, s.items...)
	if s.limit > 0 && len(s.items) > s.limit {
		s.items = s.items[:s.limit]
	}
	s.total += len(added)
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// RemoveByID drops id from the view. It does not roll back if the backend
// delete later fails.
func (s *Store) RemoveByID(id string) (bool, error) {
	if s.mode == ModePublic {
		return false, ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	if s.total > 0 {
		s.total--
	}
	return true, nil
}

// MarkPending flags id as having an outstanding job. Absent ids are ignored.
func (s *Store) MarkPending(id string) bool {
	if s.mode == ModePublic {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.items[idx].ProcessingStatus = models.StatusPending
	return true
}

// MarkProcessingResult updates the record for id in place. A success copies
// the result's content onto the record; a failure only clears the pending
// flag. Absent ids are a silent no-op, and the view never ends up holding
// two records with the same id.
func (s *Store) MarkProcessingResult(id string, outcome Outcome) bool {
	if s.mode == ModePublic {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}

	item := s.items[idx]
	if outcome.Succeeded {
		r := outcome.Result
		if r.URL != "" {
			item.URL = r.URL
			item.SignedURL = nil
		}
		if r.SignedURL != nil && *r.SignedURL != "" {
			signed := *r.SignedURL
			item.SignedURL = &signed
		}
		if r.FileName != "" {
			item.FileName = r.FileName
		}
		if r.MimeType != "" {
			item.MimeType = r.MimeType
		}
		if r.Size > 0 {
			item.Size = r.Size
		}
		if r.StoragePath != "" {
			item.StoragePath = r.StoragePath
		}
		if len(r.Tags) > 0 {
			item.Tags = models.DedupTags(append([]string(nil), r.Tags...))
		}
	}
	item.ProcessingStatus = models.StatusStable
	s.items[idx] = item

	if outcome.Succeeded && outcome.Result.ID != "" && outcome.Result.ID != id {
		if dup := s.indexLocked(outcome.Result.ID); dup >= 0 {
			s.items = append(s.items[:dup], s.items[dup+1:]...)
		}
	}
	return true
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (models.ImageRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return models.ImageRecord{}, false
	}
	return s.items[idx].Clone(), true
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.ImageRecord, len(s.items))
	for i, item := range s.items {
		items[i] = item.Clone()
	}
	filters := s.filters
	filters.Tags = append([]string(nil), s.filters.Tags...)

	snap := Snapshot{
		Mode:    s.mode,
		Items:   items,
		Total:   s.total,
		Page:    s.page,
		Limit:   s.limit,
		Filters: filters,
		Loading: s.loading,
		HasMore: s.hasMoreLocked(),
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
