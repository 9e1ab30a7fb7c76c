package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-studio-client/internal/apperr"
	"image-studio-client/internal/database"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
	"image-studio-client/internal/realtime"
)

type fakeGateway struct {
	mu     sync.Mutex
	calls  []string
	err    error
	before func(imageID string)
}

func (g *fakeGateway) Process(_ context.Context, imageID, prompt string, _ []string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, imageID+":"+prompt)
	before := g.before
	err := g.err
	g.mu.Unlock()
	if before != nil {
		before(imageID)
	}
	if err != nil {
		return "", err
	}
	return imageID, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type staticLister struct {
	images []models.ImageRecord
}

func (l staticLister) List(context.Context, models.FilterSet) (*models.ImageListData, error) {
	return &models.ImageListData{Total: len(l.images), Page: 1, Limit: 20, Data: l.images}, nil
}

func (l staticLister) ListPublic(ctx context.Context, f models.FilterSet) (*models.ImageListData, error) {
	return l.List(ctx, f)
}

type recordingPublisher struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (p *recordingPublisher) Publish(n notify.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
}

func (p *recordingPublisher) byLevel(level notify.Level) []notify.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notify.Notice
	for _, n := range p.notices {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

type fakeSource struct {
	handler func(realtime.Event)
}

func (s *fakeSource) Subscribe(fn func(realtime.Event)) func() {
	s.handler = fn
	return func() { s.handler = nil }
}

func (s *fakeSource) emit(e realtime.Event) {
	if s.handler != nil {
		s.handler(e)
	}
}

type memoryRecorder struct {
	outcomes []database.JobOutcome
}

func (r *memoryRecorder) RecordOutcome(o database.JobOutcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

type fixture struct {
	gateway    *fakeGateway
	store      *gallery.Store
	notices    *recordingPublisher
	source     *fakeSource
	recorder   *memoryRecorder
	controller *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lister := staticLister{images: []models.ImageRecord{
		{ID: "img-1", URL: "https://cdn.test/img-1.png", FileName: "img-1.png"},
		{ID: "img-2", URL: "https://cdn.test/img-2.png", FileName: "img-2.png"},
	}}

	f := &fixture{
		gateway:  &fakeGateway{},
		store:    gallery.New(lister, gallery.Options{Logger: logger}),
		notices:  &recordingPublisher{},
		source:   &fakeSource{},
		recorder: &memoryRecorder{},
	}
	f.controller = NewController(f.gateway, f.store, f.notices, logger)
	f.controller.SetRecorder(f.recorder)
	f.controller.Attach(f.source)
	f.store.SetPendingLookup(f.controller.IsPending)

	require.NoError(t, f.store.LoadPage(context.Background(), models.FilterSet{}))
	return f
}

func (f *fixture) image(t *testing.T, id string) models.ImageRecord {
	t.Helper()
	img, ok := f.store.Get(id)
	require.True(t, ok, "image %s not in store", id)
	return img
}

func TestSubmit_SuccessEventUpdatesImage(t *testing.T) {
	f := newFixture(t)

	job, err := f.controller.Submit(context.Background(), "img-1", "make sky bluer", nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.State)
	assert.Equal(t, models.StatusPending, f.image(t, "img-1").ProcessingStatus)
	assert.True(t, f.controller.IsPending("img-1"))

	f.source.emit(realtime.JobSucceeded{
		ImageID: "img-1",
		Result:  models.ImageRecord{ID: "img-1-v2", URL: "https://cdn.test/img-1-v2.png", OriginalImageID: "img-1"},
	})

	img := f.image(t, "img-1")
	assert.Equal(t, models.StatusStable, img.ProcessingStatus)
	assert.Equal(t, "https://cdn.test/img-1-v2.png", img.AccessURL())
	assert.False(t, f.controller.IsPending("img-1"))
	require.Len(t, f.notices.byLevel(notify.LevelSuccess), 1)
	require.Len(t, f.recorder.outcomes, 1)
	assert.Equal(t, models.JobSucceeded, f.recorder.outcomes[0].State)
	assert.Equal(t, "make sky bluer", f.recorder.outcomes[0].Prompt)
}

func TestSubmit_FailureEventLeavesImageUntouched(t *testing.T) {
	f := newFixture(t)
	before := f.image(t, "img-2")

	_, err := f.controller.Submit(context.Background(), "img-2", "remove the tree", nil)
	require.NoError(t, err)

	f.source.emit(realtime.JobFailed{ImageID: "img-2", Error: "content policy violation"})

	after := f.image(t, "img-2")
	assert.Equal(t, before.URL, after.URL)
	assert.Equal(t, before.FileName, after.FileName)
	assert.Equal(t, models.StatusStable, after.ProcessingStatus)

	errs := f.notices.byLevel(notify.LevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "content policy violation")
	assert.Equal(t, "img-2", errs[0].ImageID)
}

func TestSubmit_EmptyPromptRejectedBeforeNetwork(t *testing.T) {
	f := newFixture(t)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := f.controller.Submit(context.Background(), "img-1", prompt, nil)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	}

	assert.Equal(t, 0, f.gateway.callCount())
	assert.False(t, f.controller.IsPending("img-1"))
	assert.Len(t, f.notices.byLevel(notify.LevelError), 3)
}

func TestSubmit_GatewayFailureClearsPending(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = &apperr.SubmissionError{Message: "queue is full", Err: errors.New("503")}

	_, err := f.controller.Submit(context.Background(), "img-1", "brighten", nil)

	require.Error(t, err)
	assert.True(t, apperr.IsSubmission(err))
	assert.False(t, f.controller.IsPending("img-1"))
	assert.Equal(t, models.StatusStable, f.image(t, "img-1").ProcessingStatus)
	errs := f.notices.byLevel(notify.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "queue is full", errs[0].Message)
}

func TestSubmit_RejectsSecondJobForSameImage(t *testing.T) {
	f := newFixture(t)
	_, err := f.controller.Submit(context.Background(), "img-1", "first", nil)
	require.NoError(t, err)

	_, err = f.controller.Submit(context.Background(), "img-1", "second", nil)

	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 1, f.gateway.callCount())
}

func TestHandleEvent_DuplicateIsNoop(t *testing.T) {
	f := newFixture(t)
	_, err := f.controller.Submit(context.Background(), "img-1", "make sky bluer", nil)
	require.NoError(t, err)

	first := realtime.JobSucceeded{ImageID: "img-1", Result: models.ImageRecord{URL: "https://cdn.test/first.png"}}
	second := realtime.JobFailed{ImageID: "img-1", Error: "late failure"}
	f.source.emit(first)
	f.source.emit(second)
	f.source.emit(first)

	assert.Equal(t, "https://cdn.test/first.png", f.image(t, "img-1").URL)
	assert.Len(t, f.notices.byLevel(notify.LevelSuccess), 1)
	assert.Empty(t, f.notices.byLevel(notify.LevelError))
	assert.Len(t, f.recorder.outcomes, 1)
}

func TestHandleEvent_UntrackedImageDropped(t *testing.T) {
	f := newFixture(t)

	f.source.emit(realtime.JobSucceeded{ImageID: "img-2", Result: models.ImageRecord{URL: "https://cdn.test/other.png"}})

	assert.Equal(t, "https://cdn.test/img-2.png", f.image(t, "img-2").URL)
	assert.Empty(t, f.notices.byLevel(notify.LevelSuccess))
}

func TestHandleEvent_BeforeAcknowledgement(t *testing.T) {
	f := newFixture(t)
	f.gateway.before = func(imageID string) {
		f.source.emit(realtime.JobSucceeded{ImageID: imageID, Result: models.ImageRecord{URL: "https://cdn.test/fast.png"}})
	}

	_, err := f.controller.Submit(context.Background(), "img-1", "quick fix", nil)

	require.NoError(t, err)
	assert.False(t, f.controller.IsPending("img-1"))
	assert.Equal(t, "https://cdn.test/fast.png", f.image(t, "img-1").URL)
	assert.Len(t, f.notices.byLevel(notify.LevelSuccess), 1)
}

func TestHandleEvent_PageNotShowingImage(t *testing.T) {
	f := newFixture(t)
	_, err := f.controller.Submit(context.Background(), "img-9", "enhance", nil)
	require.NoError(t, err)

	f.source.emit(realtime.JobSucceeded{ImageID: "img-9"})

	assert.False(t, f.controller.IsPending("img-9"))
	assert.Len(t, f.store.Snapshot().Items, 2)
	assert.Len(t, f.notices.byLevel(notify.LevelSuccess), 1)
}

func TestRefreshKeepsPendingMarker(t *testing.T) {
	f := newFixture(t)
	_, err := f.controller.Submit(context.Background(), "img-2", "warmer tones", nil)
	require.NoError(t, err)

	require.NoError(t, f.store.Refresh(context.Background()))

	assert.Equal(t, models.StatusPending, f.image(t, "img-2").ProcessingStatus)
}

func TestExpect_ReceivesTerminalEvent(t *testing.T) {
	f := newFixture(t)
	events, cancel := f.controller.Expect("img-1")
	defer cancel()

	_, err := f.controller.Submit(context.Background(), "img-1", "make sky bluer", nil)
	require.NoError(t, err)
	go f.source.emit(realtime.JobFailed{ImageID: "img-1", Error: "timeout upstream"})

	select {
	case e := <-events:
		failed, ok := e.(realtime.JobFailed)
		require.True(t, ok)
		assert.Equal(t, "timeout upstream", failed.Error)
	case <-time.After(time.Second):
		t.Fatal("no terminal event delivered")
	}
}

func TestPendingOrderedBySubmission(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	f.controller.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	_, err := f.controller.Submit(context.Background(), "img-2", "b", []string{"x", "x"})
	require.NoError(t, err)
	_, err = f.controller.Submit(context.Background(), "img-1", "a", nil)
	require.NoError(t, err)

	jobs := f.controller.Pending()
	require.Len(t, jobs, 2)
	assert.Equal(t, "img-2", jobs[0].ImageID)
	assert.Equal(t, []string{"x"}, jobs[0].Tags)
	assert.Equal(t, "img-1", jobs[1].ImageID)
}
