package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/storage"
)

// Project operations
func (s *DefaultService) CreateProject(ctx context.Context, req models.CreateProjectRequest, image *storage.Upload) (*models.ProjectResponse, error) {
	startDate, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return nil, err
	}
	deadline, err := parseDate("deadline", req.Deadline)
	if err != nil {
		return nil, err
	}
	divisions, err := parseDivisions(req.Divisions)
	if err != nil {
		return nil, err
	}

	client, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("error getting client: %w", err)
	}
	if client == nil {
		return nil, notFound("Client")
	}

	project := &models.Project{
		Name:              strings.TrimSpace(req.Name),
		Location:          strings.TrimSpace(req.Location),
		Cost:              strings.TrimSpace(req.Cost),
		StartDate:         startDate,
		Deadline:          deadline,
		LandArea:          strings.TrimSpace(req.LandArea),
		ConstructionType:  strings.TrimSpace(req.ConstructionType),
		Divisions:         divisions,
		ClientID:          client.ID,
		Status:            models.StatusOngoing,
		ProgressUpdateIDs: []string{},
		MaterialIDs:       []string{},
		LaborIDs:          []string{},
	}

	if image != nil {
		obj, err := s.media.Save(ctx, storage.FolderProjects, *image)
		if err != nil {
			return nil, mediaError("error uploading project image", err)
		}
		project.ImageURL = obj.URL
	}

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("error creating project: %w", err)
	}

	if err := s.addProjectToClient(ctx, client.ID, project.ID); err != nil {
		return nil, err
	}

	return &models.ProjectResponse{
		Message: "Project created successfully",
		Project: project,
	}, nil
}

func (s *DefaultService) addProjectToClient(ctx context.Context, clientID, projectID string) error {
	unlock := s.lockUser(clientID)
	defer unlock()

	client, err := s.repo.GetUserByID(ctx, clientID)
	if err != nil {
		return fmt.Errorf("error getting client: %w", err)
	}
	if client == nil {
		return notFound("Client")
	}

	client.ProjectIDs = appendUnique(client.ProjectIDs, projectID)
	if err := s.repo.UpdateUser(ctx, client); err != nil {
		return fmt.Errorf("error updating client projects: %w", err)
	}
	return nil
}

// removeProjectFromClient pulls projectID from the client's list; a missing
// client is not an error
func (s *DefaultService) removeProjectFromClient(ctx context.Context, clientID, projectID string) error {
	unlock := s.lockUser(clientID)
	defer unlock()

	client, err := s.repo.GetUserByID(ctx, clientID)
	if err != nil {
		return fmt.Errorf("error getting client: %w", err)
	}
	if client == nil {
		return nil
	}

	client.ProjectIDs = removeID(client.ProjectIDs, projectID)
	if err := s.repo.UpdateUser(ctx, client); err != nil {
		return fmt.Errorf("error updating client projects: %w", err)
	}
	return nil
}

func (s *DefaultService) ListProjects(ctx context.Context) ([]models.ProjectListItem, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}

	clients := make(map[string]*models.ClientSummary)
	items := make([]models.ProjectListItem, 0, len(projects))
	for _, project := range projects {
		summary, seen := clients[project.ClientID]
		if !seen {
			client, err := s.repo.GetUserByID(ctx, project.ClientID)
			if err != nil {
				return nil, fmt.Errorf("error getting client: %w", err)
			}
			if client != nil {
				cs := clientSummary(client)
				summary = &cs
			}
			clients[project.ClientID] = summary
		}
		items = append(items, models.ProjectListItem{Project: project, Client: summary})
	}
	return items, nil
}

func (s *DefaultService) GetProject(ctx context.Context, requester Requester, projectID string) (*models.ProjectDetailResponse, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProject(requester, project); err != nil {
		return nil, err
	}

	detail := models.ProjectDetail{Project: *project}
	client, err := s.repo.GetUserByID(ctx, project.ClientID)
	if err != nil {
		return nil, fmt.Errorf("error getting client: %w", err)
	}
	if client != nil {
		detail.User = clientSummary(client)
	}

	return &models.ProjectDetailResponse{Project: detail}, nil
}

func (s *DefaultService) UpdateProject(ctx context.Context, projectID string, req models.UpdateProjectRequest, image *storage.Upload) (*models.ProjectResponse, error) {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	setIfPresent := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	setIfPresent(&project.Name, req.Name)
	setIfPresent(&project.Location, req.Location)
	setIfPresent(&project.Cost, req.Cost)
	setIfPresent(&project.LandArea, req.LandArea)
	setIfPresent(&project.ConstructionType, req.ConstructionType)

	if req.StartDate != "" {
		if project.StartDate, err = parseDate("startDate", req.StartDate); err != nil {
			return nil, err
		}
	}
	if req.Deadline != "" {
		if project.Deadline, err = parseDate("deadline", req.Deadline); err != nil {
			return nil, err
		}
	}
	if req.Divisions != "" {
		if project.Divisions, err = parseDivisions(req.Divisions); err != nil {
			return nil, err
		}
	}

	previousClientID := project.ClientID
	if email := normalizeEmail(req.Email); email != "" {
		client, err := s.repo.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("error getting client: %w", err)
		}
		if client == nil {
			return nil, notFound("Client")
		}
		project.ClientID = client.ID
	}

	if image != nil {
		if project.ImageURL != "" {
			if err := s.media.Delete(ctx, project.ImageURL, models.MediaImage); err != nil {
				s.logger.Warn("project %s: old image %s not deleted: %v", project.ID, project.ImageURL, err)
			}
		}
		obj, err := s.media.Save(ctx, storage.FolderProjects, *image)
		if err != nil {
			return nil, mediaError("error uploading project image", err)
		}
		project.ImageURL = obj.URL
	}

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("error updating project: %w", err)
	}

	if project.ClientID != previousClientID {
		if err := s.removeProjectFromClient(ctx, previousClientID, project.ID); err != nil {
			return nil, err
		}
		if err := s.addProjectToClient(ctx, project.ClientID, project.ID); err != nil {
			return nil, err
		}
	}

	return &models.ProjectResponse{
		Message: "Project updated successfully",
		Project: project,
	}, nil
}

func (s *DefaultService) ChangeStatus(ctx context.Context, projectID string, status models.ProjectStatus) (*models.ProjectResponse, error) {
	if !status.Valid() {
		return nil, validationError("Invalid status: must be %q or %q", models.StatusOngoing, models.StatusFinished)
	}

	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	project.Status = status
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("error updating project status: %w", err)
	}

	return &models.ProjectResponse{
		Message: "Project status updated successfully",
		Project: project,
	}, nil
}

// DeleteProject removes the project with everything it owns. Media objects
// go first and are best effort; each database step after that must succeed
// before the next one runs.
func (s *DefaultService) DeleteProject(ctx context.Context, projectID string) error {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	updates, err := s.repo.ListProgressByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("error listing progress updates: %w", err)
	}

	if project.ImageURL != "" {
		if err := s.media.Delete(ctx, project.ImageURL, models.MediaImage); err != nil {
			s.logger.Warn("delete project %s: compensation needed for image %s: %v", projectID, project.ImageURL, err)
		}
	}
	for _, update := range updates {
		s.deleteMedia(ctx, update.Media, "delete project "+projectID)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"labor records", func() error { return s.repo.DeleteLaborByProject(ctx, projectID) }},
		{"materials", func() error { return s.repo.DeleteMaterialsByProject(ctx, projectID) }},
		{"progress updates", func() error { return s.repo.DeleteProgressByProject(ctx, projectID) }},
		{"project", func() error { return s.repo.DeleteProject(ctx, projectID) }},
		{"client reference", func() error { return s.removeProjectFromClient(ctx, project.ClientID, projectID) }},
	}

	var done []string
	for _, step := range steps {
		if err := step.run(); err != nil {
			s.logger.Error("delete project %s: step %q failed after removing [%s]: %v",
				projectID, step.name, strings.Join(done, ", "), err)
			return fmt.Errorf("error deleting %s: %w", step.name, err)
		}
		done = append(done, step.name)
	}

	return nil
}

func (s *DefaultService) GetMetrics(ctx context.Context) (*models.MetricsResponse, error) {
	ongoing, err := s.repo.CountProjects(ctx, models.StatusOngoing)
	if err != nil {
		return nil, fmt.Errorf("error counting projects: %w", err)
	}
	completed, err := s.repo.CountProjects(ctx, models.StatusFinished)
	if err != nil {
		return nil, fmt.Errorf("error counting projects: %w", err)
	}
	total, err := s.repo.CountProjects(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("error counting projects: %w", err)
	}

	return &models.MetricsResponse{
		OngoingProjects:   ongoing,
		CompletedProjects: completed,
		TotalProjects:     total,
	}, nil
}

func (s *DefaultService) ListClientProjects(ctx context.Context, requester Requester, clientID string) (*models.ClientProjectsResponse, error) {
	if clientID == "" {
		clientID = requester.ID
	}
	if !requester.IsAdmin() && requester.ID != clientID {
		return nil, forbidden("Access denied: you can only list your own projects")
	}

	projects, err := s.repo.ListProjectsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("error listing client projects: %w", err)
	}

	resp := &models.ClientProjectsResponse{Projects: make([]models.ClientProject, 0, len(projects))}
	for _, project := range projects {
		count, err := s.countUnviewed(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		resp.Projects = append(resp.Projects, models.ClientProject{Project: project, UnviewedCount: count})
		resp.TotalUnviewed += count
	}
	return resp, nil
}
