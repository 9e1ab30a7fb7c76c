package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"image-studio-client/internal/models"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	projectsCmd.AddCommand(newProjectsListCommand(ctx))
	projectsCmd.AddCommand(newProjectsCreateCommand(ctx))
	projectsCmd.AddCommand(newProjectsUpdateCommand(ctx))
	projectsCmd.AddCommand(newProjectsDeleteCommand(ctx))

	return projectsCmd
}

var projectColumns = []column{textColumn("ID"), textColumn("Name"), textColumn("Description"), textColumn("Updated")}

func projectRows(projects []models.Project) []table.Row {
	rows := make([]table.Row, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, table.Row{p.ID, p.Name, p.Description, p.UpdatedAt})
	}
	return rows
}

func printProjects(cmd *cobra.Command, projects []models.Project) {
	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects")
		return
	}
	fmt.Fprint(out, renderTable(projectColumns, projectRows(projects)))
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				projects, err := a.projects.Refresh(cmd.Context(), page, limit)
				if err != nil {
					return err
				}
				printProjects(cmd, projects)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Projects per page")
	return cmd
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.CreateProjectRequest{Name: name}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				project, err := a.projects.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				printProjects(cmd, []models.Project{*project})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectsUpdateCommand(ctx *commandContext) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Rename a project or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.UpdateProjectRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if req.Name == nil && req.Description == nil {
				return fmt.Errorf("nothing to update: pass --name or --description")
			}
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				project, err := a.projects.Update(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				printProjects(cmd, []models.Project{*project})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New project name")
	cmd.Flags().StringVar(&description, "description", "", "New project description")
	return cmd
}

func newProjectsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				return a.projects.Delete(cmd.Context(), args[0])
			})
		},
	}
}
