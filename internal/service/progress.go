package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/rongwang/buildtrue-server/internal/repository"
	"github.com/rongwang/buildtrue-server/internal/storage"
	"golang.org/x/sync/errgroup"
)

// uploadMedia stores every upload concurrently. Either all succeed or the
// objects that did get stored are removed again and the first error returned.
func (s *DefaultService) uploadMedia(ctx context.Context, uploads []storage.Upload) ([]models.Media, error) {
	if len(uploads) > s.maxFiles {
		return nil, validationError("at most %d media files may be attached", s.maxFiles)
	}

	stored := make([]*storage.Object, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	for i := range uploads {
		i := i
		g.Go(func() error {
			obj, err := s.media.Save(gctx, storage.FolderProgress, uploads[i])
			if err != nil {
				return err
			}
			stored[i] = obj
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, obj := range stored {
			if obj == nil {
				continue
			}
			if derr := s.media.Delete(context.WithoutCancel(ctx), obj.URL, obj.Kind); derr != nil {
				s.logger.Warn("orphaned media %s after failed upload: %v", obj.URL, derr)
			}
		}
		return nil, mediaError("error uploading media", err)
	}

	media := make([]models.Media, 0, len(stored))
	for _, obj := range stored {
		media = append(media, models.Media{URL: obj.URL, Type: obj.Kind})
	}
	return media, nil
}

// deleteMedia removes stored objects, logging the ones that could not be removed
func (s *DefaultService) deleteMedia(ctx context.Context, media []models.Media, scope string) {
	for _, m := range media {
		if err := s.media.Delete(ctx, m.URL, m.Type); err != nil {
			s.logger.Warn("%s: compensation needed for media %s: %v", scope, m.URL, err)
		}
	}
}

func validateProgressFields(req models.ProgressRequest) error {
	if strings.TrimSpace(req.Division) == "" || strings.TrimSpace(req.Description) == "" || req.Progress == nil {
		return validationError("division, progress and description are required")
	}
	if *req.Progress < 0 || *req.Progress > 100 {
		return validationError("progress must be between 0 and 100")
	}
	return nil
}

// loadClient returns the project's client, requiring an email to notify
func (s *DefaultService) loadClient(ctx context.Context, project *models.Project) (*models.User, error) {
	client, err := s.repo.GetUserByID(ctx, project.ClientID)
	if err != nil {
		return nil, fmt.Errorf("error getting client: %w", err)
	}
	if client == nil || client.Email == "" {
		return nil, notFound("Client email")
	}
	return client, nil
}

func (s *DefaultService) CreateProgress(ctx context.Context, projectID string, req models.ProgressRequest, uploads []storage.Upload) (*models.ProgressResponse, error) {
	if err := validateProgressFields(req); err != nil {
		return nil, err
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	client, err := s.loadClient(ctx, project)
	if err != nil {
		return nil, err
	}

	media, err := s.uploadMedia(ctx, uploads)
	if err != nil {
		return nil, err
	}

	progress := &models.Progress{
		ProjectID:   projectID,
		Division:    strings.TrimSpace(req.Division),
		Progress:    *req.Progress,
		Media:       media,
		Description: strings.TrimSpace(req.Description),
		DateUpdated: s.now(),
		Messages:    []models.Message{},
	}
	if err := s.repo.CreateProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("error creating progress update: %w", err)
	}

	if err := s.attachProgress(ctx, projectID, progress.ID); err != nil {
		return nil, err
	}

	if err := s.sendProgressEmail(ctx, project, client, progress); err != nil {
		return nil, err
	}

	s.publishUnviewed(ctx, client.ID)

	return &models.ProgressResponse{
		Message:  "Progress update created successfully",
		Progress: progress,
	}, nil
}

func (s *DefaultService) attachProgress(ctx context.Context, projectID, progressID string) error {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	project.ProgressUpdateIDs = appendUnique(project.ProgressUpdateIDs, progressID)
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return fmt.Errorf("error updating project progress list: %w", err)
	}
	return nil
}

func (s *DefaultService) sendProgressEmail(ctx context.Context, project *models.Project, client *models.User, progress *models.Progress) error {
	msg, err := notify.ProgressUpdateEmail(notify.ProgressUpdate{
		ClientName:  client.Name,
		ClientEmail: client.Email,
		ProjectName: project.Name,
		Division:    progress.Division,
		Progress:    progress.Progress,
		Description: progress.Description,
		TeamName:    s.teamName,
	})
	if err != nil {
		return fmt.Errorf("error rendering notification: %w", err)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("progress %s: notification to %s failed: %v", progress.ID, client.Email, err)
		return fmt.Errorf("error sending notification: %w", err)
	}
	s.logger.Info("progress %s: notification sent to %s", progress.ID, client.Email)
	return nil
}

// loadProgress returns the entry only when it belongs to projectID
// saveProgress writes the entry back, reporting NotFound when it was deleted
// in the meantime
func (s *DefaultService) saveProgress(ctx context.Context, progress *models.Progress) error {
	err := s.repo.UpdateProgress(ctx, progress)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Progress update")
	}
	return err
}

func (s *DefaultService) loadProgress(ctx context.Context, projectID, progressID string) (*models.Progress, error) {
	progress, err := s.repo.GetProgress(ctx, progressID)
	if err != nil {
		return nil, fmt.Errorf("error getting progress update: %w", err)
	}
	if progress == nil || (projectID != "" && progress.ProjectID != projectID) {
		return nil, notFound("Progress update")
	}
	return progress, nil
}

func (s *DefaultService) GetProgress(ctx context.Context, requester Requester, progressID string) (*models.ProgressResponse, error) {
	progress, err := s.loadProgress(ctx, "", progressID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, progress.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProject(requester, project); err != nil {
		return nil, err
	}
	return &models.ProgressResponse{Progress: progress}, nil
}

func (s *DefaultService) UpdateProgress(ctx context.Context, projectID, progressID string, req models.ProgressRequest, uploads []storage.Upload) (*models.ProgressResponse, error) {
	if _, err := s.loadProject(ctx, projectID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("progress:" + progressID)
	defer unlock()

	progress, err := s.loadProgress(ctx, projectID, progressID)
	if err != nil {
		return nil, err
	}

	if req.Progress != nil {
		if *req.Progress < 0 || *req.Progress > 100 {
			return nil, validationError("progress must be between 0 and 100")
		}
		progress.Progress = *req.Progress
	}
	if v := strings.TrimSpace(req.Division); v != "" {
		progress.Division = v
	}
	if v := strings.TrimSpace(req.Description); v != "" {
		progress.Description = v
	}

	if len(uploads) > 0 {
		if len(uploads) > s.maxFiles {
			return nil, validationError("at most %d media files may be attached", s.maxFiles)
		}
		s.deleteMedia(ctx, progress.Media, "update progress "+progressID)
		media, err := s.uploadMedia(ctx, uploads)
		if err != nil {
			return nil, err
		}
		progress.Media = media
	}
	progress.DateUpdated = s.now()

	if err := s.saveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("error updating progress update: %w", err)
	}

	return &models.ProgressResponse{
		Message:  "Progress update updated successfully",
		Progress: progress,
	}, nil
}

func (s *DefaultService) DeleteProgress(ctx context.Context, projectID, progressID string) error {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	unlockProgress := s.locks.Lock("progress:" + progressID)
	defer unlockProgress()

	progress, err := s.loadProgress(ctx, projectID, progressID)
	if err != nil {
		return err
	}

	s.deleteMedia(ctx, progress.Media, "delete progress "+progressID)

	if err := s.repo.DeleteProgress(ctx, progressID); err != nil {
		return fmt.Errorf("error deleting progress update: %w", err)
	}

	project.ProgressUpdateIDs = removeID(project.ProgressUpdateIDs, progressID)
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return fmt.Errorf("error updating project progress list: %w", err)
	}

	s.publishUnviewed(ctx, project.ClientID)
	return nil
}

func (s *DefaultService) AddMessage(ctx context.Context, requester Requester, progressID string, req models.MessageRequest) (*models.ProgressResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, validationError("text is required")
	}

	unlock := s.locks.Lock("progress:" + progressID)
	defer unlock()

	progress, err := s.loadProgress(ctx, "", progressID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, progress.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProject(requester, project); err != nil {
		return nil, err
	}

	progress.Messages = append(progress.Messages, models.Message{
		SenderID:  requester.ID,
		Sender:    models.MessageSender{Role: requester.Role},
		Text:      text,
		Timestamp: s.now(),
	})
	if err := s.saveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("error adding message: %w", err)
	}

	return &models.ProgressResponse{
		Message:  "Message added successfully",
		Progress: progress,
	}, nil
}

// MarkViewed flips viewed once, on the first open by a client. Later calls
// and calls by admins leave the entry as it is.
func (s *DefaultService) MarkViewed(ctx context.Context, requester Requester, progressID string) (*models.ProgressResponse, error) {
	unlock := s.locks.Lock("progress:" + progressID)
	defer unlock()

	progress, err := s.loadProgress(ctx, "", progressID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, progress.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProject(requester, project); err != nil {
		return nil, err
	}

	if requester.Role == models.RoleClient && !progress.Viewed {
		progress.Viewed = true
		if err := s.saveProgress(ctx, progress); err != nil {
			return nil, fmt.Errorf("error marking progress viewed: %w", err)
		}
		s.publishUnviewed(ctx, project.ClientID)
	}

	return &models.ProgressResponse{
		Message:  "Progress marked as viewed",
		Progress: progress,
	}, nil
}

func (s *DefaultService) ListProgress(ctx context.Context, requester Requester, projectID string) (*models.ProgressListResponse, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProject(requester, project); err != nil {
		return nil, err
	}

	updates, err := s.repo.ListProgressByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("error listing progress updates: %w", err)
	}

	resp := &models.ProgressListResponse{ProgressUpdates: updates}
	if requester.Role == models.RoleClient {
		for _, u := range updates {
			if !u.Viewed {
				resp.UnviewedCount++
			}
		}
	}
	return resp, nil
}

func (s *DefaultService) countUnviewed(ctx context.Context, projectID string) (int, error) {
	updates, err := s.repo.ListProgressByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("error listing progress updates: %w", err)
	}
	count := 0
	for _, u := range updates {
		if !u.Viewed {
			count++
		}
	}
	return count, nil
}

// UnviewedSummary reports the unviewed progress entries of a client across
// all of their projects
func (s *DefaultService) UnviewedSummary(ctx context.Context, requester Requester, clientID string) (*models.UnviewedSummary, error) {
	projects, err := s.ListClientProjects(ctx, requester, clientID)
	if err != nil {
		return nil, err
	}

	summary := &models.UnviewedSummary{
		TotalUnviewed: projects.TotalUnviewed,
		Projects:      make([]models.ProjectUnviewed, 0, len(projects.Projects)),
		GeneratedAt:   s.now(),
	}
	for _, p := range projects.Projects {
		summary.Projects = append(summary.Projects, models.ProjectUnviewed{
			ProjectID:     p.ID,
			UnviewedCount: p.UnviewedCount,
		})
	}
	return summary, nil
}

// publishUnviewed pushes the client's current badge state. Failures are logged
// and never fail the calling operation.
func (s *DefaultService) publishUnviewed(ctx context.Context, clientID string) {
	if s.broadcaster == nil || clientID == "" {
		return
	}
	summary, err := s.UnviewedSummary(ctx, Requester{ID: clientID, Role: models.RoleClient}, clientID)
	if err != nil {
		s.logger.Warn("unviewed summary for %s: %v", clientID, err)
		return
	}
	if err := s.broadcaster.PublishUnviewed(clientID, *summary); err != nil {
		s.logger.Warn("publish unviewed summary to %s: %v", clientID, err)
	}
}

func (s *DefaultService) NotifyProgress(ctx context.Context, projectID, progressID string) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	progress, err := s.loadProgress(ctx, projectID, progressID)
	if err != nil {
		return err
	}
	client, err := s.loadClient(ctx, project)
	if err != nil {
		return err
	}
	return s.sendProgressEmail(ctx, project, client, progress)
}
