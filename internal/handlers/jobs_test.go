package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-studio-client/internal/apperr"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/handlers"
	"image-studio-client/internal/models"
	"image-studio-client/internal/realtime"
)

type stubRunner struct {
	err   error
	calls []models.ProcessRequest
}

func (r *stubRunner) Process(_ context.Context, imageID, prompt string, tags []string) (models.Job, error) {
	r.calls = append(r.calls, models.ProcessRequest{ImageID: imageID, Prompt: prompt, Tags: tags})
	if r.err != nil {
		return models.Job{}, r.err
	}
	return models.Job{
		ImageID:     imageID,
		Prompt:      prompt,
		Tags:        tags,
		State:       models.JobQueued,
		SubmittedAt: time.Unix(1700000000, 0).UTC(),
	}, nil
}

func newJobsRouter(runner *stubRunner, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	status := handlers.NewStatusHandler(stubStream{state: realtime.StateConnected}, stubJobs{}, stubGallery{})
	return handlers.NewRouter(status, handlers.NewJobsHandler(runner), token)
}

func post(router *gin.Engine, path, body, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitJob(t *testing.T) {
	runner := &stubRunner{}
	w := post(newJobsRouter(runner, ""), "/api/v1/jobs", `{"image_id":"img-1","prompt":"make sky bluer","tags":["sky"]}`, "")
	require.Equal(t, http.StatusAccepted, w.Code)

	var job models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, "img-1", job.ImageID)
	assert.Equal(t, models.JobQueued, job.State)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "make sky bluer", runner.calls[0].Prompt)
	assert.Equal(t, []string{"sky"}, runner.calls[0].Tags)
}

func TestSubmitJob_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		calls  int
	}{
		{name: "bad body", body: `{"image_id":`, status: http.StatusBadRequest},
		{name: "validation", body: `{"image_id":"img-1","prompt":" "}`, err: &apperr.ValidationError{Field: "prompt", Message: "prompt must not be empty"}, status: http.StatusBadRequest, calls: 1},
		{name: "read only", body: `{"image_id":"img-1","prompt":"x"}`, err: gallery.ErrReadOnly, status: http.StatusForbidden, calls: 1},
		{name: "session", body: `{"image_id":"img-1","prompt":"x"}`, err: &apperr.AuthError{Message: "not logged in"}, status: http.StatusUnauthorized, calls: 1},
		{name: "backend refused", body: `{"image_id":"img-1","prompt":"x"}`, err: &apperr.SubmissionError{Message: "processing queue unavailable"}, status: http.StatusBadGateway, calls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{err: tt.err}
			w := post(newJobsRouter(runner, ""), "/api/v1/jobs", tt.body, "")

			assert.Equal(t, tt.status, w.Code)
			assert.Len(t, runner.calls, tt.calls)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestSubmitJob_RequiresToken(t *testing.T) {
	runner := &stubRunner{}
	router := newJobsRouter(runner, "local-secret")

	assert.Equal(t, http.StatusUnauthorized, post(router, "/api/v1/jobs", `{"image_id":"img-1","prompt":"x"}`, "").Code)
	assert.Empty(t, runner.calls)
	assert.Equal(t, http.StatusAccepted, post(router, "/api/v1/jobs", `{"image_id":"img-1","prompt":"x"}`, "local-secret").Code)
}
