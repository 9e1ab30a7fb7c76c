// Package fakebackend is an in-memory stand-in for the image backend: the
// REST endpoints the client calls plus the socket.io event stream. Tests use
// it to exercise gateways, the event-stream client and the controller over
// real HTTP and websocket connections.
package fakebackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"image-studio-client/internal/models"
)

const userIDKey = "user_id"

type account struct {
	user     models.User
	password string
}

type Server struct {
	httpServer *httptest.Server
	secret     []byte
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	accounts map[string]account
	images   []models.ImageRecord
	public   []models.ImageRecord
	projects []models.Project
	tags     []models.Tag
	profile  models.Profile
	sockets  map[*socket]struct{}
	process  []models.ProcessRequest
	revoked  map[string]bool
	status   int

	handshakes []string
}

type socket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *socket) send(data string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:   []byte("fake-backend-secret-" + uuid.NewString()),
		accounts: make(map[string]account),
		sockets:  make(map[*socket]struct{}),
		revoked:  make(map[string]bool),
		status:   http.StatusAccepted,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.profile = models.Profile{ID: "user-1", Name: "Test User", DisplayName: "tester", Email: "tester@example.com"}
	s.accounts["tester@example.com"] = account{
		user:     models.User{ID: "user-1", Name: "Test User", DisplayName: "tester", Email: "tester@example.com"},
		password: "password123",
	}

	s.httpServer = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Close() {
	s.DropConnections()
	s.httpServer.Close()
}

func (s *Server) URL() string {
	return s.httpServer.URL
}

// SocketURL is the origin the event-stream client connects to.
func (s *Server) SocketURL() string {
	return s.httpServer.URL
}

// IssueToken signs a session token for userID.
func (s *Server) IssueToken(userID string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *Server) verify(token string) (string, error) {
	s.mu.Lock()
	revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return "", errors.New("token revoked")
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// SeedImages adds n images owned by user-1, newest first.
func (s *Server) SeedImages(n int) []models.ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var created []models.ImageRecord
	for i := 0; i < n; i++ {
		img := s.newImageLocked(fmt.Sprintf("seed-%d.png", len(s.images)+1), "image/png", 1024)
		created = append(created, img)
	}
	return created
}

// SeedPublic adds n images to the public gallery.
func (s *Server) SeedPublic(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		id := uuid.NewString()
		s.public = append(s.public, models.ImageRecord{
			ID:        id,
			FileName:  fmt.Sprintf("public-%d.jpg", i+1),
			MimeType:  "image/jpeg",
			URL:       "https://cdn.fake/public/" + id + ".jpg",
			CreatedAt: time.Now().UTC(),
		})
	}
}

func (s *Server) newImageLocked(name, mime string, size int64) models.ImageRecord {
	id := uuid.NewString()
	img := models.ImageRecord{
		ID:          id,
		FileName:    name,
		MimeType:    mime,
		Size:        size,
		OwnerUserID: "user-1",
		CreatedAt:   time.Now().UTC(),
		URL:         "https://cdn.fake/images/" + id,
		StoragePath: "user-1/" + id,
	}
	s.images = append([]models.ImageRecord{img}, s.images...)
	return img
}

// SetProcessStatus changes the status POST /api/images/process replies with.
func (s *Server) SetProcessStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *Server) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// ProcessRequests returns the accepted process submissions in order.
func (s *Server) ProcessRequests() []models.ProcessRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ProcessRequest(nil), s.process...)
}

// Handshakes lists the token of every accepted socket connect, in order.
func (s *Server) Handshakes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.handshakes...)
}

// EndSessions sends a namespace disconnect to every socket, as a server that
// kicks its clients would.
func (s *Server) EndSessions() error {
	return s.broadcast("41")
}

func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sockets)
}

// DropConnections closes every socket without a disconnect packet, as a
// network failure would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	sockets := make([]*socket, 0, len(s.sockets))
	for sock := range s.sockets {
		sockets = append(sockets, sock)
	}
	s.sockets = make(map[*socket]struct{})
	s.mu.Unlock()

	for _, sock := range sockets {
		sock.conn.Close()
	}
}

// EmitProcessed sends image:processed to every connected client.
func (s *Server) EmitProcessed(originalID string, result models.ImageRecord) error {
	result.OriginalImageID = originalID
	return s.emit("image:processed", gin.H{
		"success":   true,
		"data":      result,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// EmitProcessingError sends image:processing_error to every connected client.
func (s *Server) EmitProcessingError(imageID, message string) error {
	return s.emit("image:processing_error", gin.H{
		"success":   false,
		"error":     gin.H{"image_id": imageID, "error": message},
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// EmitRaw sends a pre-encoded frame, for malformed-input tests.
func (s *Server) EmitRaw(frame string) error {
	return s.broadcast(frame)
}

func (s *Server) emit(event string, payload any) error {
	data, err := json.Marshal([]any{event, payload})
	if err != nil {
		return err
	}
	return s.broadcast("42" + string(data))
}

func (s *Server) broadcast(frame string) error {
	s.mu.Lock()
	sockets := make([]*socket, 0, len(s.sockets))
	for sock := range s.sockets {
		sockets = append(sockets, sock)
	}
	s.mu.Unlock()

	if len(sockets) == 0 {
		return errors.New("no connected clients")
	}
	var errs []error
	for _, sock := range sockets {
		if err := sock.send(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) router() *gin.Engine {
	r := gin.New()

	r.GET("/socket.io/", s.handleSocket)

	auth := r.Group("/api/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.POST("/google/token", s.handleGoogle)
	auth.POST("/validate", s.handleValidate)
	auth.POST("/logout", s.requireAuth, s.handleLogout)

	r.GET("/api/images/public", s.handlePublicImages)

	api := r.Group("/api", s.requireAuth)
	api.POST("/images/upload", s.handleUpload)
	api.GET("/images/list", s.handleListImages)
	api.DELETE("/images/:id", s.handleDeleteImage)
	api.POST("/images/process", s.handleProcess)

	api.POST("/projects", s.handleCreateProject)
	api.GET("/projects", s.handleListProjects)
	api.GET("/projects/:id", s.handleGetProject)
	api.PUT("/projects/:id", s.handleUpdateProject)
	api.DELETE("/projects/:id", s.handleDeleteProject)

	api.GET("/tags", s.handleListTags)
	api.POST("/tags", s.handleCreateTag)

	api.GET("/users/profile", s.handleGetProfile)
	api.PATCH("/users/profile", s.handleUpdateProfile)
	api.POST("/users/profile/avatar/upload", s.handleAvatarUpload)
	api.PATCH("/users/profile/avatar", s.handleUpdateAvatar)

	return r
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "missing authorization header"})
		return
	}
	userID, err := s.verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired token"})
		return
	}
	c.Set(userIDKey, userID)
	c.Set("token", token)
	c.Next()
}

func (s *Server) handleSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	sock := &socket{conn: conn}
	defer conn.Close()

	sid := uuid.NewString()
	if err := sock.send(`0{"sid":"` + sid + `","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`); err != nil {
		return
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	payload, ok := strings.CutPrefix(string(data), "40")
	if !ok {
		return
	}
	var auth struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal([]byte(payload), &auth)
	if _, err := s.verify(auth.Token); err != nil {
		_ = sock.send(`44{"message":"invalid token","data":{"code":"unauthorized"}}`)
		return
	}

	// Registered before the ack so an emit right after Connect reaches it.
	s.mu.Lock()
	s.handshakes = append(s.handshakes, auth.Token)
	s.sockets[sock] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sockets, sock)
		s.mu.Unlock()
	}()

	if err := sock.send(`40{"sid":"` + uuid.NewString() + `"}`); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(data) == "41" {
			return
		}
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		c.JSON(http.StatusConflict, models.ErrorResponse{Message: "email already registered"})
		return
	}
	s.accounts[req.Email] = account{
		user:     models.User{ID: uuid.NewString(), Name: req.Name, DisplayName: req.DisplayName, Email: req.Email, Phone: req.Phone},
		password: req.Password,
	}
	c.JSON(http.StatusCreated, models.MessageResponse{Success: true, Message: "User registered successfully"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid email or password"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Status:  "success",
		Message: "Login successful",
		User:    acct.user,
		Token:   models.AccessToken{AccessToken: s.IssueToken(acct.user.ID, time.Hour)},
	})
}

func (s *Server) handleGoogle(c *gin.Context) {
	var req models.GoogleTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Credential == "" || req.Provider != "google" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid google credential"})
		return
	}
	user := models.User{ID: "google-user", Email: "google@example.com", DisplayName: "Google User", Provider: "google"}
	c.JSON(http.StatusOK, models.GoogleLoginResponse{User: user, AccessToken: s.IssueToken(user.ID, time.Hour)})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req models.ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.verify(req.Token); err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.mu.Lock()
	s.revoked[c.GetString("token")] = true
	s.mu.Unlock()
	c.JSON(http.StatusOK, models.MessageResponse{Success: true, Message: "Logged out"})
}

func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid multipart form"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no images provided"})
		return
	}
	var projectID *string
	if ids := form.Value["project_id"]; len(ids) > 0 && ids[0] != "" {
		id := ids[0]
		projectID = &id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var created []models.ImageRecord
	for _, fh := range files {
		mime := fh.Header.Get("Content-Type")
		if mime == "" {
			mime = "application/octet-stream"
		}
		img := s.newImageLocked(fh.Filename, mime, fh.Size)
		img.ProjectID = projectID
		s.images[0] = img
		created = append(created, img)
	}
	c.JSON(http.StatusCreated, models.UploadResponse{Success: true, Message: "Images uploaded successfully", Data: created})
}

func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+limit, len(items))
	return append([]T(nil), items[start:end]...)
}

func (s *Server) handleListImages(c *gin.Context) {
	page, limit := pageParams(c, models.DefaultPageLimit)
	projectID := c.Query("project_id")
	var tags []string
	if raw := c.Query("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	s.mu.Lock()
	var matched []models.ImageRecord
	for _, img := range s.images {
		if projectID != "" && (img.ProjectID == nil || *img.ProjectID != projectID) {
			continue
		}
		if !hasAllTags(img.Tags, tags) {
			continue
		}
		matched = append(matched, img)
	}
	s.mu.Unlock()

	if c.Query("sort_order") == "asc" {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	}

	c.JSON(http.StatusOK, models.ImageListResponse{
		Status: "success",
		Data: models.ImageListData{
			Total: len(matched),
			Page:  page,
			Limit: limit,
			Data:  paginate(matched, page, limit),
		},
	})
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Server) handlePublicImages(c *gin.Context) {
	page, limit := pageParams(c, models.DefaultPageLimit)
	s.mu.Lock()
	items := append([]models.ImageRecord(nil), s.public...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, models.ImageListResponse{
		Status: "success",
		Data:   models.ImageListData{Total: len(items), Page: page, Limit: limit, Data: paginate(items, page, limit)},
	})
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, img := range s.images {
		if img.ID == id {
			s.images = append(s.images[:i], s.images[i+1:]...)
			c.JSON(http.StatusOK, models.MessageResponse{Message: "Image deleted successfully"})
			return
		}
	}
	c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Image not found"})
}

func (s *Server) handleProcess(c *gin.Context) {
	var req models.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "image_id and prompt are required"})
		return
	}

	s.mu.Lock()
	status := s.status
	if status == http.StatusAccepted {
		s.process = append(s.process, req)
	}
	s.mu.Unlock()

	if status != http.StatusAccepted {
		c.JSON(status, models.ErrorResponse{Message: "processing queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, models.ProcessAcceptedResponse{Status: "queued", Message: "Image queued for processing", ImageID: req.ImageID})
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "name is required"})
		return
	}
	now := time.Now().UTC()
	project := models.Project{ID: uuid.NewString(), Name: req.Name, Description: req.Description, UserID: c.GetString(userIDKey), CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	s.projects = append([]models.Project{project}, s.projects...)
	s.mu.Unlock()
	c.JSON(http.StatusCreated, project)
}

func (s *Server) handleListProjects(c *gin.Context) {
	page, limit := pageParams(c, 20)
	s.mu.Lock()
	items := append([]models.Project(nil), s.projects...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, models.ProjectListResponse{Data: models.ProjectListData{
		Total: len(items), Page: page, Limit: limit, Data: paginate(items, page, limit),
	}})
}

func (s *Server) findProjectLocked(id string) int {
	for i, p := range s.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleGetProject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.findProjectLocked(c.Param("id"))
	if idx < 0 {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Project not found"})
		return
	}
	c.JSON(http.StatusOK, s.projects[idx])
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.findProjectLocked(c.Param("id"))
	if idx < 0 {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Project not found"})
		return
	}
	if req.Name != nil {
		s.projects[idx].Name = *req.Name
	}
	if req.Description != nil {
		s.projects[idx].Description = req.Description
	}
	s.projects[idx].UpdatedAt = time.Now().UTC()
	c.JSON(http.StatusOK, s.projects[idx])
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.findProjectLocked(c.Param("id"))
	if idx < 0 {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Project not found"})
		return
	}
	s.projects = append(s.projects[:idx], s.projects[idx+1:]...)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListTags(c *gin.Context) {
	page, limit := pageParams(c, 50)
	s.mu.Lock()
	items := append([]models.Tag(nil), s.tags...)
	s.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	pages := (len(items) + limit - 1) / limit
	c.JSON(http.StatusOK, models.TagListResponse{
		Success: true,
		Status:  "success",
		Data: models.TagListData{
			Tags:       paginate(items, page, limit),
			Pagination: models.Pagination{Page: page, Limit: limit, Total: len(items), Pages: pages},
		},
	})
}

func (s *Server) handleCreateTag(c *gin.Context) {
	var req models.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "name is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if t.Name == req.Name {
			c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Tag already exists"})
			return
		}
	}
	tag := models.Tag{ID: uuid.NewString(), Name: req.Name}
	s.tags = append(s.tags, tag)
	c.JSON(http.StatusCreated, models.CreateTagResponse{Status: "success", Message: "Tag created", Data: tag})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, models.ProfileResponse{User: s.profile})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Name != nil {
		s.profile.Name = *req.Name
	}
	if req.DisplayName != nil {
		s.profile.DisplayName = *req.DisplayName
	}
	if req.Email != nil {
		s.profile.Email = *req.Email
	}
	if req.Phone != nil {
		s.profile.Phone = *req.Phone
	}
	s.profile.UpdatedAt = time.Now().UTC()
	c.JSON(http.StatusOK, models.ProfileResponse{User: s.profile})
}

func (s *Server) handleAvatarUpload(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "avatar file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unreadable avatar"})
		return
	}
	defer f.Close()
	if _, err := io.Copy(io.Discard, f); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unreadable avatar"})
		return
	}
	c.JSON(http.StatusOK, models.AvatarUploadResponse{PublicURL: "https://cdn.fake/avatars/" + fh.Filename})
}

func (s *Server) handleUpdateAvatar(c *gin.Context) {
	var req models.UpdateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AvatarURL == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "avatarUrl is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.AvatarURLv2 = req.AvatarURL
	c.JSON(http.StatusOK, models.ProfileResponse{User: s.profile})
}
