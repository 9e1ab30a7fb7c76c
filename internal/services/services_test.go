package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-studio-client/internal/apperr"
	"image-studio-client/internal/backend"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
	"image-studio-client/internal/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noticeLog struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (l *noticeLog) Publish(n notify.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) last() notify.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return notify.Notice{}
	}
	return l.notices[len(l.notices)-1]
}

// fakeImages is both the image gateway and the gallery lister.
type fakeImages struct {
	mu        sync.Mutex
	images    []models.ImageRecord
	deleteErr error
	uploadErr error
}

func (f *fakeImages) List(context.Context, models.FilterSet) (*models.ImageListData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.ImageListData{Total: len(f.images), Page: 1, Limit: 20, Data: append([]models.ImageRecord(nil), f.images...)}, nil
}

func (f *fakeImages) ListPublic(ctx context.Context, filters models.FilterSet) (*models.ImageListData, error) {
	return f.List(ctx, filters)
}

func (f *fakeImages) Upload(_ context.Context, _ string, files []backend.UploadFile) (*models.UploadResponse, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var created []models.ImageRecord
	for _, file := range files {
		created = append(created, models.ImageRecord{ID: "id-" + file.Name, FileName: file.Name})
	}
	f.images = append(created, f.images...)
	return &models.UploadResponse{Success: true, Data: created}, nil
}

func (f *fakeImages) Delete(_ context.Context, imageID string) (*models.MessageResponse, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &models.MessageResponse{Message: "deleted"}, nil
}

type fakeSubmitter struct {
	calls int
}

func (s *fakeSubmitter) Submit(_ context.Context, imageID, prompt string, _ []string) (models.Job, error) {
	s.calls++
	return models.Job{ImageID: imageID, Prompt: prompt, State: models.JobQueued}, nil
}

func newGalleryFixture(t *testing.T, mode gallery.Mode) (*GalleryService, *fakeImages, *noticeLog) {
	t.Helper()
	images := &fakeImages{images: []models.ImageRecord{{ID: "img-1"}, {ID: "img-2"}}}
	store := gallery.New(images, gallery.Options{Mode: mode, Logger: quietLogger()})
	require.NoError(t, store.LoadPage(context.Background(), models.FilterSet{}))
	notices := &noticeLog{}
	return NewGalleryService(images, store, &fakeSubmitter{}, notices, quietLogger()), images, notices
}

func TestGalleryService_UploadGrowsTotal(t *testing.T) {
	svc, _, notices := newGalleryFixture(t, gallery.ModeLive)
	before := svc.Store().Snapshot().Total

	files := []backend.UploadFile{
		{Name: "a.png", Content: strings.NewReader("a")},
		{Name: "b.png", Content: strings.NewReader("b")},
	}
	created, err := svc.Upload(context.Background(), "", files)

	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, before+2, svc.Store().Snapshot().Total)
	assert.Equal(t, notify.LevelSuccess, notices.last().Level)
}

func TestGalleryService_UploadFailureNotifies(t *testing.T) {
	svc, images, notices := newGalleryFixture(t, gallery.ModeLive)
	images.uploadErr = &apperr.TransportError{Op: "upload images", StatusCode: 413, Message: "file too large"}

	_, err := svc.Upload(context.Background(), "", []backend.UploadFile{{Name: "x.png", Content: strings.NewReader("x")}})

	require.Error(t, err)
	assert.Equal(t, "file too large", notices.last().Message)
}

func TestGalleryService_DeleteNotFoundIsSuccess(t *testing.T) {
	svc, images, notices := newGalleryFixture(t, gallery.ModeLive)
	images.deleteErr = &apperr.NotFoundError{Op: "delete image", StatusCode: 404}

	require.NoError(t, svc.Delete(context.Background(), "img-1"))

	_, found := svc.Store().Get("img-1")
	assert.False(t, found)
	assert.Equal(t, notify.LevelSuccess, notices.last().Level)
}

func TestGalleryService_DeleteFailureSurfaces(t *testing.T) {
	svc, images, notices := newGalleryFixture(t, gallery.ModeLive)
	images.deleteErr = &apperr.TransportError{Op: "delete image", StatusCode: 500, Message: "database unavailable"}

	err := svc.Delete(context.Background(), "img-2")

	require.Error(t, err)
	last := notices.last()
	assert.Equal(t, notify.LevelError, last.Level)
	assert.Equal(t, "database unavailable", last.Message)
	assert.Equal(t, "img-2", last.ImageID)
	_, found := svc.Store().Get("img-2")
	assert.False(t, found, "optimistic removal is not rolled back")
}

func TestGalleryService_PublicModeRefusesMutation(t *testing.T) {
	svc, _, _ := newGalleryFixture(t, gallery.ModePublic)

	assert.ErrorIs(t, svc.Delete(context.Background(), "img-1"), gallery.ErrReadOnly)
	_, err := svc.Process(context.Background(), "img-1", "brighten", nil)
	assert.ErrorIs(t, err, gallery.ErrReadOnly)
}

type fakeProjects struct {
	list []models.Project
	err  error
}

func (f *fakeProjects) CreateProject(_ context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Project{ID: "p-new", Name: req.Name}, nil
}

func (f *fakeProjects) ListProjects(context.Context, int, int) (*models.ProjectListData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProjectListData{Total: len(f.list), Data: f.list}, nil
}

func (f *fakeProjects) UpdateProject(_ context.Context, id string, req models.UpdateProjectRequest) (*models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Project{ID: id, Name: *req.Name}, nil
}

func (f *fakeProjects) DeleteProject(context.Context, string) error {
	return f.err
}

func TestProjectService_KeepsLocalListInStep(t *testing.T) {
	api := &fakeProjects{list: []models.Project{{ID: "p1", Name: "Beach"}, {ID: "p2", Name: "City"}}}
	notices := &noticeLog{}
	svc := NewProjectService(api, notices, quietLogger())

	_, err := svc.Refresh(context.Background(), 1, 20)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), models.CreateProjectRequest{Name: "Forest"})
	require.NoError(t, err)
	assert.Equal(t, "p-new", svc.Projects()[0].ID)

	name := "Seaside"
	_, err = svc.Update(context.Background(), "p1", models.UpdateProjectRequest{Name: &name})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "p2"))

	var names []string
	for _, p := range svc.Projects() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Forest", "Seaside"}, names)
	assert.Equal(t, notify.LevelSuccess, notices.last().Level)
}

func TestProjectService_FailureKeepsList(t *testing.T) {
	api := &fakeProjects{list: []models.Project{{ID: "p1"}}}
	notices := &noticeLog{}
	svc := NewProjectService(api, notices, quietLogger())
	_, err := svc.Refresh(context.Background(), 1, 20)
	require.NoError(t, err)

	api.err = errors.New("offline")
	require.Error(t, svc.Delete(context.Background(), "p1"))

	assert.Len(t, svc.Projects(), 1)
	assert.Equal(t, "Failed to delete project", notices.last().Message)
}

type fakeAuth struct {
	loginResp   *models.LoginResponse
	valid       bool
	logoutCalls int
	logoutErr   error
}

func (f *fakeAuth) Register(context.Context, models.RegisterRequest) (*models.MessageResponse, error) {
	return &models.MessageResponse{Message: "registered"}, nil
}

func (f *fakeAuth) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	if f.loginResp == nil {
		return nil, &apperr.AuthError{Message: "invalid credentials"}
	}
	return f.loginResp, nil
}

func (f *fakeAuth) LoginWithGoogle(context.Context, string) (*models.LoginResponse, error) {
	return f.loginResp, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) Validate(context.Context, string) bool {
	return f.valid
}

type fakeStream struct {
	disconnects int
}

func (s *fakeStream) Disconnect() { s.disconnects++ }

func TestAuthService_LoginStartsSession(t *testing.T) {
	api := &fakeAuth{loginResp: &models.LoginResponse{
		User:  models.User{ID: "u1", DisplayName: "Ada"},
		Token: models.AccessToken{AccessToken: "opaque-token"},
	}}
	store := session.NewStore(nil, quietLogger())
	notices := &noticeLog{}
	svc := NewAuthService(api, store, notices, AuthOptions{Logger: quietLogger()})

	user, err := svc.Login(context.Background(), "ada@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)
	assert.Equal(t, "Signed in as Ada", notices.last().Message)
}

func TestAuthService_LoginFailureNotifies(t *testing.T) {
	store := session.NewStore(nil, quietLogger())
	notices := &noticeLog{}
	svc := NewAuthService(&fakeAuth{}, store, notices, AuthOptions{Logger: quietLogger()})

	_, err := svc.Login(context.Background(), "ada@example.com", "wrong")

	assert.True(t, apperr.IsAuth(err))
	assert.Equal(t, "invalid credentials", notices.last().Message)
}

func TestAuthService_GoogleRequiresClientID(t *testing.T) {
	store := session.NewStore(nil, quietLogger())
	svc := NewAuthService(&fakeAuth{}, store, &noticeLog{}, AuthOptions{Logger: quietLogger()})

	_, err := svc.LoginWithGoogle(context.Background(), "credential")

	assert.True(t, apperr.IsValidation(err))
}

func TestAuthService_LogoutClearsEvenWhenBackendFails(t *testing.T) {
	api := &fakeAuth{logoutErr: errors.New("network down")}
	store := session.NewStore(nil, quietLogger())
	require.NoError(t, store.Set("opaque-token", &models.User{ID: "u1"}))
	stream := &fakeStream{}
	svc := NewAuthService(api, store, &noticeLog{}, AuthOptions{Stream: stream, Logger: quietLogger()})

	require.NoError(t, svc.Logout(context.Background()))

	assert.Equal(t, 1, api.logoutCalls)
	assert.Equal(t, 1, stream.disconnects)
	_, err := store.Token()
	assert.True(t, apperr.IsAuth(err))
	assert.Nil(t, store.User())
}

func TestAuthService_RestoreRejectsInvalidSession(t *testing.T) {
	store := session.NewStore(nil, quietLogger())
	require.NoError(t, store.Set("opaque-token", &models.User{ID: "u1"}))
	notices := &noticeLog{}
	svc := NewAuthService(&fakeAuth{valid: false}, store, notices, AuthOptions{Logger: quietLogger()})

	_, ok, err := svc.Restore(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, notify.LevelWarning, notices.last().Level)
	_, err = store.Token()
	assert.Error(t, err)
}

func TestAuthService_RestoreKeepsValidSession(t *testing.T) {
	store := session.NewStore(nil, quietLogger())
	require.NoError(t, store.Set("opaque-token", &models.User{ID: "u1"}))
	svc := NewAuthService(&fakeAuth{valid: true}, store, &noticeLog{}, AuthOptions{Logger: quietLogger()})

	user, ok, err := svc.Restore(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}
