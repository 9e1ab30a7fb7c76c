package main

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-studio-client/internal/testsupport/fakebackend"
)

type cliTestEnv struct {
	srv        *fakebackend.Server
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	srv := fakebackend.New(t)
	u, err := url.Parse(srv.URL())
	require.NoError(t, err)

	configPath := filepath.Join(base, "client.toml")
	contents := fmt.Sprintf(`api_url = "http://%s"
api_port = "%s"
state_dir = %q
log_level = "error"
reconnect_delay = "20ms"
`, u.Hostname(), u.Port(), filepath.Join(base, "state"))
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0o600))

	// Keep stray environment from overriding the file.
	for _, key := range []string{"CONFIG_FILE", "API_URL", "API_PORT", "STATE_DIR", "SESSION_DATABASE_URL", "GOOGLE_CLIENT_ID"} {
		t.Setenv(key, "")
	}

	return &cliTestEnv{srv: srv, configPath: configPath, baseDir: base}
}

// run executes one CLI invocation with a fresh command tree, the way a new
// process would.
func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) login(t *testing.T) {
	t.Helper()
	_, stderr, err := e.run(t, "login", "--email", "tester@example.com", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Signed in as tester")
}

func TestLoginPersistsSession(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	stdout, _, err := env.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tester@example.com")
	assert.Contains(t, stdout, "user-1")
}

func TestWhoamiWithoutSession(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not logged in")
}

func TestLogoutClearsSession(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, stderr, err := env.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Signed out")

	stdout, _, err := env.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not logged in")
}

func TestImagesUploadThenList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	path := filepath.Join(env.baseDir, "beach.png")
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0o600))

	stdout, stderr, err := env.run(t, "images", "upload", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "beach.png")
	assert.Contains(t, stderr, "Uploaded 1 image(s)")

	stdout, _, err = env.run(t, "images", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "beach.png")
	assert.Contains(t, stdout, "1 of 1 image(s)")
}

func TestImagesListRequiresLogin(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "images", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestPublicListNeedsNoLogin(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SeedPublic(2)

	stdout, _, err := env.run(t, "images", "list", "--public")
	require.NoError(t, err)
	assert.Contains(t, stdout, "public-1.jpg")
	assert.Contains(t, stdout, "2 of 2 image(s)")
}

func TestProcessRejectsEmptyPrompt(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, _, err := env.run(t, "images", "process", "img-1", "--prompt", "   ")
	require.Error(t, err)
	assert.Empty(t, env.srv.ProcessRequests())
}

func TestProcessQueuesJob(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)
	seeded := env.srv.SeedImages(1)

	stdout, _, err := env.run(t, "images", "process", seeded[0].ID, "--prompt", "make sky bluer", "--tag", "sky")
	require.NoError(t, err)
	assert.Contains(t, stdout, "queued")

	reqs := env.srv.ProcessRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "make sky bluer", reqs[0].Prompt)
}

func TestProjectsCreateAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, stderr, err := env.run(t, "projects", "create", "--name", "Summer")
	require.NoError(t, err)
	assert.NotEmpty(t, stderr)

	stdout, _, err := env.run(t, "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Summer")
}

func TestTagsCreateAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, _, err := env.run(t, "tags", "create", "sunset")
	require.NoError(t, err)

	stdout, _, err := env.run(t, "tags", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sunset")
}

func TestProfileShow(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	stdout, _, err := env.run(t, "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tester@example.com")
}
