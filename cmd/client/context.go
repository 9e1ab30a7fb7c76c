package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"image-studio-client/internal/backend"
	"image-studio-client/internal/config"
	"image-studio-client/internal/database"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/logging"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
	"image-studio-client/internal/realtime"
	"image-studio-client/internal/reconcile"
	"image-studio-client/internal/services"
	"image-studio-client/internal/session"
)

// app is everything a command needs, built once per process.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.DB
	session *session.Store
	history *database.HistoryRepository
	api     *backend.Client
	bus     *notify.Bus
	stream  *realtime.Client

	auth     *services.AuthService
	projects *services.ProjectService
	tags     *services.TagService
	profile  *services.ProfileService
}

type commandContext struct {
	appOnce sync.Once
	app     *app
	appErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureApp() (*app, error) {
	c.appOnce.Do(func() {
		c.app, c.appErr = buildApp()
	})
	return c.app, c.appErr
}

func (c *commandContext) close() {
	if c.app == nil {
		return
	}
	c.app.stream.Disconnect()
	if err := c.app.db.Close(); err != nil {
		c.app.logger.Warn("failed to close session database", "err", err)
	}
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.Open(cfg.SessionDSN())
	if err != nil {
		return nil, err
	}
	if err := database.NewMigrator(db, logger).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	store := session.NewStore(database.NewSessionRepository(db), logger.With("component", "session"))
	if err := store.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	api := backend.NewClient(cfg.BackendURL(), store, backend.Options{
		RequestTimeout: cfg.RequestTimeout,
		ProcessTimeout: cfg.ProcessTimeout,
		Logger:         logger.With("component", "backend"),
	})
	bus := notify.NewBus(logger.With("component", "notify"))
	stream := realtime.NewClient(realtime.Options{
		URL:               cfg.SocketURL(),
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
		Logger:            logger.With("component", "realtime"),
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		session: store,
		history: database.NewHistoryRepository(db),
		api:     api,
		bus:     bus,
		stream:  stream,
		auth: services.NewAuthService(api, store, bus, services.AuthOptions{
			GoogleClientID: cfg.GoogleClientID,
			Stream:         stream,
			Logger:         logger,
		}),
		projects: services.NewProjectService(api, bus, logger),
		tags:     services.NewTagService(api, bus, logger),
		profile:  services.NewProfileService(api, bus),
	}, nil
}

// withApp runs fn with notices rendered to w, then releases the app.
func (c *commandContext) withApp(w io.Writer, fn func(*app) error) error {
	a, err := c.ensureApp()
	if err != nil {
		return err
	}
	defer c.close()
	stop := a.printNotices(w)
	defer stop()
	return fn(a)
}

// gallerySet is a gallery view plus the controller that reconciles it.
type gallerySet struct {
	store   *gallery.Store
	jobs    *reconcile.Controller
	service *services.GalleryService
}

func (a *app) newGallery(mode gallery.Mode, filters models.FilterSet) *gallerySet {
	logger := a.logger.With("component", "gallery")
	store := gallery.New(a.api, gallery.Options{Mode: mode, Filters: filters, Logger: logger})
	jobs := reconcile.NewController(a.api, store, a.bus, a.logger.With("component", "reconcile"))
	jobs.SetRecorder(a.history)
	store.SetPendingLookup(jobs.IsPending)
	return &gallerySet{
		store:   store,
		jobs:    jobs,
		service: services.NewGalleryService(a.api, store, jobs, a.bus, logger),
	}
}

// printNotices renders bus notices to w. The returned func stops rendering
// after draining what was already published.
func (a *app) printNotices(w io.Writer) func() {
	ch, cancel := a.bus.Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := range ch {
			fmt.Fprintln(w, formatNotice(n))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func formatNotice(n notify.Notice) string {
	var prefix string
	switch n.Level {
	case notify.LevelSuccess:
		prefix = "✓"
	case notify.LevelError:
		prefix = "✗"
	case notify.LevelWarning:
		prefix = "!"
	default:
		prefix = "·"
	}
	return prefix + " " + n.Message
}
