package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"image-studio-client/internal/gallery"
	"image-studio-client/internal/handlers"
	"image-studio-client/internal/models"
	"image-studio-client/internal/session"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var statusAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay connected to the event stream and serve the local status API",
		Long: `Watch keeps the event stream open for the signed-in session, keeps one
gallery page in sync with processing results and prints every notice until
interrupted. The local status API (health, status, jobs, gallery) is served
on STATUS_ADDR; set STATUS_API_TOKEN to require a bearer token.

Jobs must be queued through the watcher to be tracked to completion:
  POST /api/v1/jobs {"image_id":"...","prompt":"...","tags":["..."]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				return runWatch(cmd, a, projectID, statusAddr)
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Keep this project's gallery in view")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Override STATUS_ADDR (empty string keeps the configured value)")
	return cmd
}

func runWatch(cmd *cobra.Command, a *app, projectID, statusAddr string) error {
	runCtx := cmd.Context()
	logger := a.logger.With("component", "watch")

	lock, err := session.AcquireWatchLock(a.cfg.StateDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release watch lock", "err", err)
		}
	}()

	user, ok, err := a.auth.Restore(runCtx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("not logged in: run `image-studio login` first")
	}
	token, err := a.session.Token()
	if err != nil {
		return err
	}

	set := a.newGallery(gallery.ModeLive, models.FilterSet{ProjectID: projectID})
	unsubscribe := set.jobs.Attach(a.stream)
	defer unsubscribe()

	if err := set.store.LoadPage(runCtx, models.FilterSet{ProjectID: projectID}); err != nil {
		logger.Warn("initial gallery load failed", "err", err)
	}

	states, stopStates := a.stream.WatchState()
	defer stopStates()
	go func() {
		for s := range states {
			fmt.Fprintf(cmd.ErrOrStderr(), "· event stream %s\n", s)
		}
	}()

	if err := a.stream.Connect(runCtx, token); err != nil {
		return err
	}

	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if statusAddr == "" {
		statusAddr = a.cfg.StatusAddr
	}
	router := handlers.NewRouter(
		handlers.NewStatusHandler(a.stream, set.jobs, set.store),
		handlers.NewJobsHandler(set.service),
		a.cfg.StatusAPIToken,
	)
	server := &http.Server{
		Addr:              statusAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	name := a.session.Subject()
	if user != nil && user.DisplayName != "" {
		name = user.DisplayName
	} else if user != nil && user.Email != "" {
		name = user.Email
	}
	logger.Info("watching", "user", name, "status_addr", statusAddr)
	fmt.Fprintf(cmd.OutOrStdout(), "Watching as %s; status API on http://%s (Ctrl+C to stop)\n", name, statusAddr)

	select {
	case <-runCtx.Done():
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("status API failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status API shutdown failed", "err", err)
	}
	a.stream.Disconnect()
	return nil
}
