package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-studio-client/internal/backend"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/handlers"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
	"image-studio-client/internal/realtime"
	"image-studio-client/internal/reconcile"
	"image-studio-client/internal/services"
	"image-studio-client/internal/session"
	"image-studio-client/internal/testsupport/fakebackend"
)

type recordedNotices struct {
	mu  sync.Mutex
	all []notify.Notice
}

func (r *recordedNotices) Publish(n notify.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

func (r *recordedNotices) contains(level notify.Level, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.all {
		if n.Level == level && strings.Contains(n.Message, text) {
			return true
		}
	}
	return false
}

type harness struct {
	srv     *fakebackend.Server
	api     *backend.Client
	store   *gallery.Store
	ctrl    *reconcile.Controller
	stream  *realtime.Client
	gallery *services.GalleryService
	notices *recordedNotices
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := fakebackend.New(t)

	sess := session.NewStore(nil, logger)
	require.NoError(t, sess.Set(srv.IssueToken("user-1", time.Hour), &models.User{ID: "user-1"}))

	api := backend.NewClient(srv.URL(), sess, backend.Options{Logger: logger})
	notices := &recordedNotices{}
	store := gallery.New(api, gallery.Options{Mode: gallery.ModeLive, Logger: logger})
	ctrl := reconcile.NewController(api, store, notices, logger)
	store.SetPendingLookup(ctrl.IsPending)

	stream := realtime.NewClient(realtime.Options{
		URL:               srv.SocketURL(),
		ReconnectAttempts: 5,
		ReconnectDelay:    20 * time.Millisecond,
		Logger:            logger,
	})
	t.Cleanup(stream.Disconnect)
	ctrl.Attach(stream)

	return &harness{
		srv:     srv,
		api:     api,
		store:   store,
		ctrl:    ctrl,
		stream:  stream,
		gallery: services.NewGalleryService(api, store, ctrl, notices, logger),
		notices: notices,
	}
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	token := h.srv.IssueToken("user-1", time.Hour)
	require.NoError(t, h.stream.Connect(context.Background(), token))
	require.Eventually(t, func() bool {
		return h.stream.State() == realtime.StateConnected && h.srv.Connections() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUploadRoundTripGrowsTotalByUploadCount(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedImages(3)
	ctx := context.Background()

	require.NoError(t, h.store.LoadPage(ctx, models.FilterSet{Page: 1, Limit: 20}))
	before := h.store.Snapshot().Total
	require.Equal(t, 3, before)

	uploaded, err := h.gallery.Upload(ctx, "", []backend.UploadFile{
		{Name: "one.png", Content: strings.NewReader("1")},
		{Name: "two.png", Content: strings.NewReader("22")},
	})
	require.NoError(t, err)
	require.Len(t, uploaded, 2)

	require.NoError(t, h.store.Refresh(ctx))
	snap := h.store.Snapshot()
	assert.Equal(t, before+2, snap.Total)
	assert.Len(t, snap.Items, 5)
	assert.True(t, h.notices.contains(notify.LevelSuccess, "Uploaded 2 image(s)"))
}

func TestProcessResolvesOverEventStream(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedImages(1)
	ctx := context.Background()
	require.NoError(t, h.store.LoadPage(ctx, models.FilterSet{}))
	h.connect(t)

	imageID := seeded[0].ID
	events, cancel := h.ctrl.Expect(imageID)
	defer cancel()

	job, err := h.gallery.Process(ctx, imageID, "make sky bluer", []string{"sky"})
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.State)

	item, ok := h.store.Get(imageID)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, item.ProcessingStatus)

	// A refresh while the job is outstanding keeps the pending marker.
	require.NoError(t, h.store.Refresh(ctx))
	item, _ = h.store.Get(imageID)
	assert.Equal(t, models.StatusPending, item.ProcessingStatus)

	require.NoError(t, h.srv.EmitProcessed(imageID, models.ImageRecord{
		ID:       "processed-1",
		URL:      "https://cdn.fake/processed/1.png",
		FileName: "processed.png",
		MimeType: "image/png",
	}))

	select {
	case ev := <-events:
		_, ok := ev.(realtime.JobSucceeded)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not resolve")
	}

	item, ok = h.store.Get(imageID)
	require.True(t, ok)
	assert.Equal(t, models.StatusStable, item.ProcessingStatus)
	assert.Equal(t, "https://cdn.fake/processed/1.png", item.URL)
	assert.False(t, h.ctrl.IsPending(imageID))
	assert.True(t, h.notices.contains(notify.LevelSuccess, "Image processed successfully"))
}

func TestProcessingErrorOverEventStream(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedImages(1)
	ctx := context.Background()
	require.NoError(t, h.store.LoadPage(ctx, models.FilterSet{}))
	h.connect(t)

	imageID := seeded[0].ID
	events, cancel := h.ctrl.Expect(imageID)
	defer cancel()

	_, err := h.gallery.Process(ctx, imageID, "remove people", nil)
	require.NoError(t, err)
	require.NoError(t, h.srv.EmitProcessingError(imageID, "Model overloaded"))

	select {
	case ev := <-events:
		_, ok := ev.(realtime.JobFailed)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not resolve")
	}

	item, _ := h.store.Get(imageID)
	assert.Equal(t, models.StatusStable, item.ProcessingStatus)
	assert.True(t, h.notices.contains(notify.LevelError, "Model overloaded"))
}

func TestEventStreamRecoversFromDroppedConnection(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.srv.DropConnections()

	require.Eventually(t, func() bool {
		return h.stream.State() == realtime.StateConnected && h.srv.Connections() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventStreamRejectsForeignToken(t *testing.T) {
	h := newHarness(t)
	other := fakebackend.New(t)

	require.NoError(t, h.stream.Connect(context.Background(), other.IssueToken("user-1", time.Hour)))
	require.Eventually(t, func() bool {
		return h.stream.State() == realtime.StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, h.stream.LastError(), "invalid token")
	assert.Zero(t, h.srv.Connections())
}

func TestStatusAPISubmittedJobResolvesOverEventStream(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.SeedImages(1)
	require.NoError(t, h.store.LoadPage(context.Background(), models.FilterSet{}))
	h.connect(t)

	gin.SetMode(gin.TestMode)
	router := handlers.NewRouter(
		handlers.NewStatusHandler(h.stream, h.ctrl, h.store),
		handlers.NewJobsHandler(h.gallery),
		"",
	)
	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	pendingJobs := func() []models.Job {
		w := serve(http.MethodGet, "/api/v1/jobs", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.JobListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Jobs
	}

	imageID := seeded[0].ID
	w := serve(http.MethodPost, "/api/v1/jobs", `{"image_id":"`+imageID+`","prompt":"make sky bluer","tags":["sky"]}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, h.srv.ProcessRequests(), 1)

	jobs := pendingJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, imageID, jobs[0].ImageID)

	require.NoError(t, h.srv.EmitProcessed(imageID, models.ImageRecord{ID: "processed-1", URL: "https://cdn.fake/processed/1.png"}))

	require.Eventually(t, func() bool {
		item, ok := h.store.Get(imageID)
		return ok && item.ProcessingStatus == models.StatusStable
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, pendingJobs())
	item, _ := h.store.Get(imageID)
	assert.Equal(t, "https://cdn.fake/processed/1.png", item.URL)
}
