package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "List and create tags",
	}

	tagsCmd.AddCommand(newTagsListCommand(ctx))
	tagsCmd.AddCommand(newTagsCreateCommand(ctx))

	return tagsCmd
}

func newTagsListCommand(ctx *commandContext) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tags by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				data, err := a.tags.List(cmd.Context(), page, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(data.Tags) == 0 {
					fmt.Fprintln(out, "No tags")
					return nil
				}
				rows := make([]table.Row, 0, len(data.Tags))
				for _, t := range data.Tags {
					rows = append(rows, table.Row{t.Name, t.ID})
				}
				fmt.Fprint(out, renderTable([]column{textColumn("Name"), textColumn("ID")}, rows))
				fmt.Fprintf(out, "Page %d of %d · %d tag(s)\n", data.Pagination.Page, max(data.Pagination.Pages, 1), data.Pagination.Total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 50, "Tags per page")
	return cmd
}

func newTagsCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				_, err := a.tags.Create(cmd.Context(), args[0])
				return err
			})
		},
	}
}
