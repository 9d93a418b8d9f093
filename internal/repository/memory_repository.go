package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/buildtrue-server/internal/models"
)

// MemoryRepository keeps every collection in process memory. It is used by
// the test suites and by DB_DRIVER=memory for local development. Values are
// copied on the way in and out so callers never share state with the store.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]models.User
	projects  map[string]models.Project
	labor     map[string]models.LaborRecord
	materials map[string]models.Material
	progress  map[string]models.Progress
	leads     map[string]models.Lead
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]models.User),
		projects:  make(map[string]models.Project),
		labor:     make(map[string]models.LaborRecord),
		materials: make(map[string]models.Material),
		progress:  make(map[string]models.Progress),
		leads:     make(map[string]models.Lead),
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneUser(u models.User) models.User {
	u.ProjectIDs = cloneStrings(u.ProjectIDs)
	return u
}

func cloneProject(p models.Project) models.Project {
	p.Divisions = cloneStrings(p.Divisions)
	p.ProgressUpdateIDs = cloneStrings(p.ProgressUpdateIDs)
	p.MaterialIDs = cloneStrings(p.MaterialIDs)
	p.LaborIDs = cloneStrings(p.LaborIDs)
	return p
}

func cloneMaterial(m models.Material) models.Material {
	if m.UsageInfo != nil {
		m.UsageInfo = append([]models.MaterialUsage{}, m.UsageInfo...)
	}
	if m.PurchaseInfo != nil {
		m.PurchaseInfo = append([]models.MaterialPurchase{}, m.PurchaseInfo...)
	}
	return m
}

func cloneProgress(p models.Progress) models.Progress {
	if p.Media != nil {
		p.Media = append([]models.Media{}, p.Media...)
	}
	if p.Messages != nil {
		p.Messages = append([]models.Message{}, p.Messages...)
	}
	return p
}

// User repository methods
func (r *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			u := cloneUser(user)
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u := cloneUser(user)
	return &u, nil
}

func (r *MemoryRepository) UpdateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return nil
	}
	for id, existing := range r.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = cloneUser(*user)
	return nil
}

// Project repository methods
func (r *MemoryRepository) CreateProject(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	r.projects[project.ID] = cloneProject(*project)
	return nil
}

func (r *MemoryRepository) GetProject(_ context.Context, id string) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	p := cloneProject(project)
	return &p, nil
}

func (r *MemoryRepository) ListProjects(_ context.Context) ([]models.Project, error) {
	return r.filterProjects(func(models.Project) bool { return true }), nil
}

func (r *MemoryRepository) ListProjectsByClient(_ context.Context, clientID string) ([]models.Project, error) {
	return r.filterProjects(func(p models.Project) bool { return p.ClientID == clientID }), nil
}

func (r *MemoryRepository) filterProjects(keep func(models.Project) bool) []models.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := []models.Project{}
	for _, p := range r.projects {
		if keep(p) {
			projects = append(projects, cloneProject(p))
		}
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects
}

func (r *MemoryRepository) UpdateProject(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.ID]; !ok {
		return nil
	}
	project.UpdatedAt = time.Now().UTC()
	r.projects[project.ID] = cloneProject(*project)
	return nil
}

func (r *MemoryRepository) DeleteProject(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.projects, id)
	return nil
}

func (r *MemoryRepository) CountProjects(_ context.Context, status models.ProjectStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, p := range r.projects {
		if status == "" || p.Status == status {
			count++
		}
	}
	return count, nil
}

// Labor repository methods
func (r *MemoryRepository) CreateLabor(_ context.Context, labor *models.LaborRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if labor.ID == "" {
		labor.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	labor.CreatedAt = now
	labor.UpdatedAt = now

	r.labor[labor.ID] = *labor
	return nil
}

func (r *MemoryRepository) GetLabor(_ context.Context, id string) (*models.LaborRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labor, ok := r.labor[id]
	if !ok {
		return nil, nil
	}
	return &labor, nil
}

func (r *MemoryRepository) ListLaborByProject(_ context.Context, projectID string) ([]models.LaborRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []models.LaborRecord{}
	for _, l := range r.labor {
		if l.ProjectID == projectID {
			records = append(records, l)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (r *MemoryRepository) UpdateLabor(_ context.Context, labor *models.LaborRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.labor[labor.ID]; !ok {
		return nil
	}
	labor.UpdatedAt = time.Now().UTC()
	r.labor[labor.ID] = *labor
	return nil
}

func (r *MemoryRepository) DeleteLabor(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.labor, id)
	return nil
}

func (r *MemoryRepository) DeleteLaborByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, l := range r.labor {
		if l.ProjectID == projectID {
			delete(r.labor, id)
		}
	}
	return nil
}

// Material repository methods
func (r *MemoryRepository) SaveMaterial(_ context.Context, material *models.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if material.ID == "" {
		material.ID = uuid.New().String()
	}
	for id, existing := range r.materials {
		if id != material.ID && existing.ProjectID == material.ProjectID && existing.Name == material.Name {
			return ErrDuplicate
		}
	}

	now := time.Now().UTC()
	if material.CreatedAt.IsZero() {
		material.CreatedAt = now
	}
	material.UpdatedAt = now

	r.materials[material.ID] = cloneMaterial(*material)
	return nil
}

func (r *MemoryRepository) GetMaterialByName(_ context.Context, projectID, name string) (*models.Material, error) {
	return r.findMaterial(func(m models.Material) bool {
		return m.ProjectID == projectID && m.Name == name
	}), nil
}

func (r *MemoryRepository) GetMaterialByUsageID(_ context.Context, projectID, usageID string) (*models.Material, error) {
	return r.findMaterial(func(m models.Material) bool {
		if m.ProjectID != projectID {
			return false
		}
		for _, u := range m.UsageInfo {
			if u.ID == usageID {
				return true
			}
		}
		return false
	}), nil
}

func (r *MemoryRepository) GetMaterialByPurchaseID(_ context.Context, projectID, purchaseID string) (*models.Material, error) {
	return r.findMaterial(func(m models.Material) bool {
		if m.ProjectID != projectID {
			return false
		}
		for _, p := range m.PurchaseInfo {
			if p.ID == purchaseID {
				return true
			}
		}
		return false
	}), nil
}

func (r *MemoryRepository) findMaterial(match func(models.Material) bool) *models.Material {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.materials {
		if match(m) {
			found := cloneMaterial(m)
			return &found
		}
	}
	return nil
}

func (r *MemoryRepository) ListMaterialsByProject(_ context.Context, projectID string) ([]models.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	materials := []models.Material{}
	for _, m := range r.materials {
		if m.ProjectID == projectID {
			materials = append(materials, cloneMaterial(m))
		}
	}
	sort.SliceStable(materials, func(i, j int) bool {
		return materials[i].CreatedAt.After(materials[j].CreatedAt)
	})
	return materials, nil
}

func (r *MemoryRepository) DeleteMaterialsByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.materials {
		if m.ProjectID == projectID {
			delete(r.materials, id)
		}
	}
	return nil
}

// Progress repository methods
func (r *MemoryRepository) CreateProgress(_ context.Context, progress *models.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if progress.ID == "" {
		progress.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	progress.CreatedAt = now
	progress.UpdatedAt = now
	if progress.DateUpdated.IsZero() {
		progress.DateUpdated = now
	}

	r.progress[progress.ID] = cloneProgress(*progress)
	return nil
}

func (r *MemoryRepository) GetProgress(_ context.Context, id string) (*models.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	progress, ok := r.progress[id]
	if !ok {
		return nil, nil
	}
	p := cloneProgress(progress)
	return &p, nil
}

func (r *MemoryRepository) ListProgressByProject(_ context.Context, projectID string) ([]models.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	updates := []models.Progress{}
	for _, p := range r.progress {
		if p.ProjectID == projectID {
			updates = append(updates, cloneProgress(p))
		}
	}
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].DateUpdated.After(updates[j].DateUpdated)
	})
	return updates, nil
}

func (r *MemoryRepository) UpdateProgress(_ context.Context, progress *models.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.progress[progress.ID]; !ok {
		return ErrNotFound
	}
	progress.UpdatedAt = time.Now().UTC()
	r.progress[progress.ID] = cloneProgress(*progress)
	return nil
}

func (r *MemoryRepository) DeleteProgress(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.progress, id)
	return nil
}

func (r *MemoryRepository) DeleteProgressByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.progress {
		if p.ProjectID == projectID {
			delete(r.progress, id)
		}
	}
	return nil
}

// Lead repository methods
func (r *MemoryRepository) CreateLead(_ context.Context, lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	r.leads[lead.ID] = *lead
	return nil
}

func (r *MemoryRepository) GetLead(_ context.Context, id string) (*models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, nil
	}
	return &lead, nil
}

func (r *MemoryRepository) ListLeads(_ context.Context) ([]models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	leads := []models.Lead{}
	for _, l := range r.leads {
		leads = append(leads, l)
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
	return leads, nil
}

func (r *MemoryRepository) UpdateLead(_ context.Context, lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[lead.ID]; ok {
		r.leads[lead.ID] = *lead
	}
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
