package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/models"
	"image-studio-client/internal/notify"
)

type ProjectGateway interface {
	CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error)
	ListProjects(ctx context.Context, page, limit int) (*models.ProjectListData, error)
	UpdateProject(ctx context.Context, projectID string, req models.UpdateProjectRequest) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// ProjectService keeps a local list of the user's projects in step with the
// backend.
type ProjectService struct {
	api     ProjectGateway
	notices notify.Publisher
	logger  *slog.Logger

	mu       sync.Mutex
	projects []models.Project
}

func NewProjectService(api ProjectGateway, notices notify.Publisher, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{api: api, notices: notices, logger: logger}
}

func (s *ProjectService) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.projects)
}

func (s *ProjectService) Refresh(ctx context.Context, page, limit int) ([]models.Project, error) {
	data, err := s.api.ListProjects(ctx, page, limit)
	if err != nil {
		s.logger.Warn("failed to load projects", "err", err)
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to load projects")))
		return nil, err
	}

	s.mu.Lock()
	s.projects = slices.Clone(data.Data)
	s.mu.Unlock()
	return s.Projects(), nil
}

// Create adds the new project at the front of the list.
func (s *ProjectService) Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	project, err := s.api.CreateProject(ctx, req)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to create project")))
		return nil, err
	}

	s.mu.Lock()
	s.projects = append([]models.Project{*project}, s.projects...)
	s.mu.Unlock()

	s.notices.Publish(notify.Success("Project created"))
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, projectID string, req models.UpdateProjectRequest) (*models.Project, error) {
	project, err := s.api.UpdateProject(ctx, projectID, req)
	if err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to update project")))
		return nil, err
	}

	s.mu.Lock()
	for i := range s.projects {
		if s.projects[i].ID == projectID {
			s.projects[i] = *project
		}
	}
	s.mu.Unlock()

	s.notices.Publish(notify.Success("Project updated"))
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	if err := s.api.DeleteProject(ctx, projectID); err != nil {
		s.notices.Publish(notify.Error(apperr.UserMessage(err, "Failed to delete project")))
		return err
	}

	s.mu.Lock()
	s.projects = slices.DeleteFunc(s.projects, func(p models.Project) bool { return p.ID == projectID })
	s.mu.Unlock()

	s.notices.Publish(notify.Success("Project deleted"))
	return nil
}
