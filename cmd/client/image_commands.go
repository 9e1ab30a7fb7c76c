package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"image-studio-client/internal/backend"
	"image-studio-client/internal/gallery"
	"image-studio-client/internal/models"
	"image-studio-client/internal/realtime"
)

func newImagesCommand(ctx *commandContext) *cobra.Command {
	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "Browse, upload and edit images",
	}

	imagesCmd.AddCommand(newImagesListCommand(ctx))
	imagesCmd.AddCommand(newImagesUploadCommand(ctx))
	imagesCmd.AddCommand(newImagesDeleteCommand(ctx))
	imagesCmd.AddCommand(newImagesProcessCommand(ctx))
	imagesCmd.AddCommand(newImagesHistoryCommand(ctx))

	return imagesCmd
}

var imageColumns = []column{
	textColumn("ID"),
	textColumn("File"),
	textColumn("Type"),
	sizeColumn("Size"),
	{title: "Status", cell: func(v any) string {
		if s := formatCell(v); s != "-" {
			return s
		}
		return string(models.StatusStable)
	}},
	textColumn("Created"),
}

func imageRows(items []models.ImageRecord) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, img := range items {
		rows = append(rows, table.Row{img.ID, img.FileName, img.MimeType, img.Size, string(img.ProcessingStatus), img.CreatedAt})
	}
	return rows
}

func printImages(cmd *cobra.Command, items []models.ImageRecord) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No images")
		return
	}
	fmt.Fprint(out, renderTable(imageColumns, imageRows(items)))
}

func newImagesListCommand(ctx *commandContext) *cobra.Command {
	var filters models.FilterSet
	var public bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of images",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := gallery.ModeLive
			if public {
				mode = gallery.ModePublic
			}
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				set := a.newGallery(mode, filters)
				if err := set.store.LoadPage(cmd.Context(), filters); err != nil {
					return err
				}
				snap := set.store.Snapshot()
				printImages(cmd, snap.Items)

				footer := fmt.Sprintf("Page %d · %d of %d image(s)", snap.Page, len(snap.Items), snap.Total)
				if snap.HasMore {
					footer += " · more with --page " + strconv.Itoa(snap.Page+1)
				}
				fmt.Fprintln(cmd.OutOrStdout(), footer)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filters.ProjectID, "project", "", "Only images in this project")
	cmd.Flags().StringSliceVar(&filters.Tags, "tag", nil, "Only images carrying every given tag")
	cmd.Flags().StringVar(&filters.CreatedFrom, "from", "", "Created on or after (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&filters.CreatedTo, "to", "", "Created on or before (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&filters.SortBy, "sort-by", "", "Sort key: created_at, updated_at, file_name, mime_type, size")
	cmd.Flags().StringVar(&filters.SortOrder, "sort-order", "", "Sort order: asc or desc")
	cmd.Flags().IntVar(&filters.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&filters.Limit, "limit", models.DefaultPageLimit, "Images per page")
	cmd.Flags().IntVar(&filters.TTL, "ttl", 0, "Signed URL lifetime in seconds")
	cmd.Flags().BoolVar(&public, "public", false, "Browse the public gallery (no login required)")
	return cmd
}

func newImagesUploadCommand(ctx *commandContext) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload one or more images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]backend.UploadFile, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				defer f.Close()
				files = append(files, backend.UploadFile{Name: filepath.Base(path), Content: f})
			}

			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				set := a.newGallery(gallery.ModeLive, models.FilterSet{ProjectID: projectID})
				uploaded, err := set.service.Upload(cmd.Context(), projectID, files)
				if err != nil {
					return err
				}
				printImages(cmd, uploaded)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Upload into this project")
	return cmd
}

func newImagesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <image-id>",
		Short: "Delete an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				set := a.newGallery(gallery.ModeLive, models.FilterSet{})
				return set.service.Delete(cmd.Context(), args[0])
			})
		},
	}
}

func newImagesProcessCommand(ctx *commandContext) *cobra.Command {
	var prompt string
	var tags []string
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "process <image-id>",
		Short: "Queue an edit prompt for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID := args[0]
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				set := a.newGallery(gallery.ModeLive, models.FilterSet{})

				var events <-chan realtime.Event
				if wait {
					token, err := a.session.Token()
					if err != nil {
						return err
					}
					if err := a.stream.Connect(cmd.Context(), token); err != nil {
						return err
					}
					if a.stream.State() != realtime.StateConnected {
						return fmt.Errorf("event stream unavailable: %s", orDash(a.stream.LastError()))
					}
					unsubscribe := set.jobs.Attach(a.stream)
					defer unsubscribe()
					ch, cancel := set.jobs.Expect(imageID)
					defer cancel()
					events = ch
				}

				job, err := set.service.Process(cmd.Context(), imageID, prompt, tags)
				if err != nil {
					return err
				}
				if !wait {
					fmt.Fprintf(cmd.OutOrStdout(), "Job for %s is %s\n", job.ImageID, job.State)
					return nil
				}

				timer := time.NewTimer(timeout)
				defer timer.Stop()
				select {
				case ev := <-events:
					return printOutcome(cmd, ev)
				case <-timer.C:
					return fmt.Errorf("no result for %s after %s; the job is still queued", imageID, timeout)
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			})
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Edit instruction")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach to the result (repeatable)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the processing result")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long --wait waits")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func printOutcome(cmd *cobra.Command, ev realtime.Event) error {
	switch e := ev.(type) {
	case realtime.JobSucceeded:
		fmt.Fprintf(cmd.OutOrStdout(), "Processed %s: %s\n", e.ImageID, e.Result.AccessURL())
		return nil
	case realtime.JobFailed:
		return errors.New(e.Error)
	default:
		return fmt.Errorf("unexpected event for %s", ev.ImageKey())
	}
}

func newImagesHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently resolved processing jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				outcomes, err := a.history.ListOutcomes(limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(outcomes) == 0 {
					fmt.Fprintln(out, "No processing history")
					return nil
				}
				rows := make([]table.Row, 0, len(outcomes))
				for _, o := range outcomes {
					rows = append(rows, table.Row{o.ImageID, string(o.State), o.Prompt, o.Detail, o.RecordedAt})
				}
				columns := []column{textColumn("Image"), textColumn("State"), textColumn("Prompt"), textColumn("Detail"), textColumn("When")}
				fmt.Fprint(out, renderTable(columns, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries")
	return cmd
}
