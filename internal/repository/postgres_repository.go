package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rongwang/buildtrue-server/internal/models"
)

// PostgresRepository implements the Repository interface using PostgreSQL.
// Embedded sub-records are stored as JSONB and id lists as TEXT[].
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

const uniqueViolation = "23505"

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// Row types bridge array and JSONB columns to the domain models

type userRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Email      string         `db:"email"`
	Password   string         `db:"password"`
	Phone      string         `db:"phone"`
	Role       string         `db:"role"`
	ProjectIDs pq.StringArray `db:"project_ids"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (u userRow) toModel() *models.User {
	return &models.User{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Password:   u.Password,
		Phone:      u.Phone,
		Role:       models.Role(u.Role),
		ProjectIDs: []string(u.ProjectIDs),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type projectRow struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	Location          string         `db:"location"`
	Cost              string         `db:"cost"`
	StartDate         time.Time      `db:"start_date"`
	Deadline          time.Time      `db:"deadline"`
	LandArea          string         `db:"land_area"`
	ConstructionType  string         `db:"construction_type"`
	Divisions         pq.StringArray `db:"divisions"`
	ClientID          string         `db:"client_id"`
	ImageURL          string         `db:"image_url"`
	Status            string         `db:"status"`
	ProgressUpdateIDs pq.StringArray `db:"progress_update_ids"`
	MaterialIDs       pq.StringArray `db:"material_ids"`
	LaborIDs          pq.StringArray `db:"labor_ids"`
	TotalLaborCost    float64        `db:"total_labor_cost"`
	TotalMaterialCost float64        `db:"total_material_cost"`
	GrandProjectCost  float64        `db:"grand_project_cost"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (p projectRow) toModel() models.Project {
	return models.Project{
		ID:                p.ID,
		Name:              p.Name,
		Location:          p.Location,
		Cost:              p.Cost,
		StartDate:         p.StartDate,
		Deadline:          p.Deadline,
		LandArea:          p.LandArea,
		ConstructionType:  p.ConstructionType,
		Divisions:         []string(p.Divisions),
		ClientID:          p.ClientID,
		ImageURL:          p.ImageURL,
		Status:            models.ProjectStatus(p.Status),
		ProgressUpdateIDs: []string(p.ProgressUpdateIDs),
		MaterialIDs:       []string(p.MaterialIDs),
		LaborIDs:          []string(p.LaborIDs),
		TotalLaborCost:    p.TotalLaborCost,
		TotalMaterialCost: p.TotalMaterialCost,
		GrandProjectCost:  p.GrandProjectCost,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type materialRow struct {
	ID           string    `db:"id"`
	ProjectID    string    `db:"project_id"`
	Name         string    `db:"name"`
	UsageInfo    []byte    `db:"usage_info"`
	PurchaseInfo []byte    `db:"purchase_info"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (m materialRow) toModel() (models.Material, error) {
	material := models.Material{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if err := json.Unmarshal(m.UsageInfo, &material.UsageInfo); err != nil {
		return material, fmt.Errorf("decode usage_info: %w", err)
	}
	if err := json.Unmarshal(m.PurchaseInfo, &material.PurchaseInfo); err != nil {
		return material, fmt.Errorf("decode purchase_info: %w", err)
	}
	return material, nil
}

type progressRow struct {
	ID          string    `db:"id"`
	ProjectID   string    `db:"project_id"`
	Division    string    `db:"division"`
	Progress    int       `db:"progress"`
	Media       []byte    `db:"media"`
	Description string    `db:"description"`
	DateUpdated time.Time `db:"date_updated"`
	Messages    []byte    `db:"messages"`
	Viewed      bool      `db:"viewed"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (p progressRow) toModel() (models.Progress, error) {
	progress := models.Progress{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		Division:    p.Division,
		Progress:    p.Progress,
		Description: p.Description,
		DateUpdated: p.DateUpdated,
		Viewed:      p.Viewed,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if err := json.Unmarshal(p.Media, &progress.Media); err != nil {
		return progress, fmt.Errorf("decode media: %w", err)
	}
	if err := json.Unmarshal(p.Messages, &progress.Messages); err != nil {
		return progress, fmt.Errorf("decode messages: %w", err)
	}
	return progress, nil
}

// jsonColumn encodes v for a JSONB parameter. lib/pq sends []byte as bytea,
// so the encoded document is passed as text.
func jsonColumn(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func stringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password, phone, role, project_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.Password, user.Phone, string(user.Role),
		stringArray(user.ProjectIDs), user.CreatedAt, user.UpdatedAt)

	return mapPQError(err)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT * FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return row.toModel(), nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3, password = $4, phone = $5, role = $6,
			project_ids = $7, updated_at = $8
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.Password, user.Phone, string(user.Role),
		stringArray(user.ProjectIDs), user.UpdatedAt)

	return mapPQError(err)
}

// Project repository methods
func (r *PostgresRepository) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, location, cost, start_date, deadline, land_area,
			construction_type, divisions, client_id, image_url, status, progress_update_ids,
			material_ids, labor_ids, total_labor_cost, total_material_cost, grand_project_cost,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, project.ID, project.Name, project.Location, project.Cost, project.StartDate, project.Deadline,
		project.LandArea, project.ConstructionType, stringArray(project.Divisions), project.ClientID,
		project.ImageURL, string(project.Status), stringArray(project.ProgressUpdateIDs),
		stringArray(project.MaterialIDs), stringArray(project.LaborIDs), project.TotalLaborCost,
		project.TotalMaterialCost, project.GrandProjectCost, project.CreatedAt, project.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var row projectRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM projects WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Project not found
		}
		return nil, err
	}

	project := row.toModel()
	return &project, nil
}

func (r *PostgresRepository) ListProjects(ctx context.Context) ([]models.Project, error) {
	return r.selectProjects(ctx, `SELECT * FROM projects ORDER BY created_at DESC`)
}

func (r *PostgresRepository) ListProjectsByClient(ctx context.Context, clientID string) ([]models.Project, error) {
	return r.selectProjects(ctx, `SELECT * FROM projects WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
}

func (r *PostgresRepository) selectProjects(ctx context.Context, query string, args ...interface{}) ([]models.Project, error) {
	var rows []projectRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.toModel())
	}
	return projects, nil
}

func (r *PostgresRepository) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = $2, location = $3, cost = $4, start_date = $5, deadline = $6,
			land_area = $7, construction_type = $8, divisions = $9, client_id = $10, image_url = $11,
			status = $12, progress_update_ids = $13, material_ids = $14, labor_ids = $15,
			total_labor_cost = $16, total_material_cost = $17, grand_project_cost = $18, updated_at = $19
		WHERE id = $1
	`, project.ID, project.Name, project.Location, project.Cost, project.StartDate, project.Deadline,
		project.LandArea, project.ConstructionType, stringArray(project.Divisions), project.ClientID,
		project.ImageURL, string(project.Status), stringArray(project.ProgressUpdateIDs),
		stringArray(project.MaterialIDs), stringArray(project.LaborIDs), project.TotalLaborCost,
		project.TotalMaterialCost, project.GrandProjectCost, project.UpdatedAt)

	return err
}

func (r *PostgresRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) CountProjects(ctx context.Context, status models.ProjectStatus) (int64, error) {
	var count int64
	var err error
	if status == "" {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM projects`)
	} else {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM projects WHERE status = $1`, string(status))
	}
	return count, err
}

// Labor repository methods
func (r *PostgresRepository) CreateLabor(ctx context.Context, labor *models.LaborRecord) error {
	if labor.ID == "" {
		labor.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	labor.CreatedAt = now
	labor.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO labor_records (id, project_id, labor_type, number_of_workers, date, rate,
			description, total_wage, created_at, updated_at)
		VALUES (:id, :project_id, :labor_type, :number_of_workers, :date, :rate,
			:description, :total_wage, :created_at, :updated_at)
	`, labor)

	return err
}

func (r *PostgresRepository) GetLabor(ctx context.Context, id string) (*models.LaborRecord, error) {
	var labor models.LaborRecord
	err := r.db.GetContext(ctx, &labor, `SELECT * FROM labor_records WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Labor record not found
		}
		return nil, err
	}

	return &labor, nil
}

func (r *PostgresRepository) ListLaborByProject(ctx context.Context, projectID string) ([]models.LaborRecord, error) {
	records := []models.LaborRecord{}
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM labor_records WHERE project_id = $1 ORDER BY date DESC, created_at DESC`, projectID)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *PostgresRepository) UpdateLabor(ctx context.Context, labor *models.LaborRecord) error {
	labor.UpdatedAt = time.Now().UTC()

	_, err := r.db.NamedExecContext(ctx, `
		UPDATE labor_records SET labor_type = :labor_type, number_of_workers = :number_of_workers,
			date = :date, rate = :rate, description = :description, total_wage = :total_wage,
			updated_at = :updated_at
		WHERE id = :id
	`, labor)

	return err
}

func (r *PostgresRepository) DeleteLabor(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM labor_records WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) DeleteLaborByProject(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM labor_records WHERE project_id = $1`, projectID)
	return err
}

// Material repository methods
func (r *PostgresRepository) SaveMaterial(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if material.CreatedAt.IsZero() {
		material.CreatedAt = now
	}
	material.UpdatedAt = now

	usage, err := jsonColumn(material.UsageInfo)
	if err != nil {
		return fmt.Errorf("encode usage_info: %w", err)
	}
	purchases, err := jsonColumn(material.PurchaseInfo)
	if err != nil {
		return fmt.Errorf("encode purchase_info: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO materials (id, project_id, name, usage_info, purchase_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			usage_info = EXCLUDED.usage_info,
			purchase_info = EXCLUDED.purchase_info,
			updated_at = EXCLUDED.updated_at
	`, material.ID, material.ProjectID, material.Name, usage, purchases, material.CreatedAt, material.UpdatedAt)

	return mapPQError(err)
}

func (r *PostgresRepository) GetMaterialByName(ctx context.Context, projectID, name string) (*models.Material, error) {
	return r.getMaterial(ctx, `SELECT * FROM materials WHERE project_id = $1 AND name = $2`, projectID, name)
}

func (r *PostgresRepository) GetMaterialByUsageID(ctx context.Context, projectID, usageID string) (*models.Material, error) {
	probe, err := json.Marshal([]map[string]string{{"id": usageID}})
	if err != nil {
		return nil, err
	}
	return r.getMaterial(ctx,
		`SELECT * FROM materials WHERE project_id = $1 AND usage_info @> $2::jsonb`, projectID, string(probe))
}

func (r *PostgresRepository) GetMaterialByPurchaseID(ctx context.Context, projectID, purchaseID string) (*models.Material, error) {
	probe, err := json.Marshal([]map[string]string{{"id": purchaseID}})
	if err != nil {
		return nil, err
	}
	return r.getMaterial(ctx,
		`SELECT * FROM materials WHERE project_id = $1 AND purchase_info @> $2::jsonb`, projectID, string(probe))
}

func (r *PostgresRepository) getMaterial(ctx context.Context, query string, args ...interface{}) (*models.Material, error) {
	var row materialRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Material not found
		}
		return nil, err
	}

	material, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *PostgresRepository) ListMaterialsByProject(ctx context.Context, projectID string) ([]models.Material, error) {
	var rows []materialRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM materials WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, err
	}

	materials := make([]models.Material, 0, len(rows))
	for _, row := range rows {
		material, err := row.toModel()
		if err != nil {
			return nil, err
		}
		materials = append(materials, material)
	}
	return materials, nil
}

func (r *PostgresRepository) DeleteMaterialsByProject(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM materials WHERE project_id = $1`, projectID)
	return err
}

// Progress repository methods
func (r *PostgresRepository) CreateProgress(ctx context.Context, progress *models.Progress) error {
	if progress.ID == "" {
		progress.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	progress.CreatedAt = now
	progress.UpdatedAt = now
	if progress.DateUpdated.IsZero() {
		progress.DateUpdated = now
	}

	media, messages, err := encodeProgress(progress)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO progress_updates (id, project_id, division, progress, media, description,
			date_updated, messages, viewed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, progress.ID, progress.ProjectID, progress.Division, progress.Progress, media, progress.Description,
		progress.DateUpdated, messages, progress.Viewed, progress.CreatedAt, progress.UpdatedAt)

	return err
}

func encodeProgress(progress *models.Progress) (string, string, error) {
	media, err := jsonColumn(progress.Media)
	if err != nil {
		return "", "", fmt.Errorf("encode media: %w", err)
	}
	messages, err := jsonColumn(progress.Messages)
	if err != nil {
		return "", "", fmt.Errorf("encode messages: %w", err)
	}
	return media, messages, nil
}

func (r *PostgresRepository) GetProgress(ctx context.Context, id string) (*models.Progress, error) {
	var row progressRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM progress_updates WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Progress not found
		}
		return nil, err
	}

	progress, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *PostgresRepository) ListProgressByProject(ctx context.Context, projectID string) ([]models.Progress, error) {
	var rows []progressRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM progress_updates WHERE project_id = $1 ORDER BY date_updated DESC`, projectID)
	if err != nil {
		return nil, err
	}

	updates := make([]models.Progress, 0, len(rows))
	for _, row := range rows {
		progress, err := row.toModel()
		if err != nil {
			return nil, err
		}
		updates = append(updates, progress)
	}
	return updates, nil
}

func (r *PostgresRepository) UpdateProgress(ctx context.Context, progress *models.Progress) error {
	progress.UpdatedAt = time.Now().UTC()

	media, messages, err := encodeProgress(progress)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE progress_updates SET division = $2, progress = $3, media = $4, description = $5,
			date_updated = $6, messages = $7, viewed = $8, updated_at = $9
		WHERE id = $1
	`, progress.ID, progress.Division, progress.Progress, media, progress.Description,
		progress.DateUpdated, messages, progress.Viewed, progress.UpdatedAt)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteProgress(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM progress_updates WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) DeleteProgressByProject(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM progress_updates WHERE project_id = $1`, projectID)
	return err
}

// Lead repository methods
func (r *PostgresRepository) CreateLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO client_requests (id, name, email, phone_no, project_type, message, verified, created_at)
		VALUES (:id, :name, :email, :phone_no, :project_type, :message, :verified, :created_at)
	`, lead)

	return err
}

func (r *PostgresRepository) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.GetContext(ctx, &lead, `SELECT * FROM client_requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Lead not found
		}
		return nil, err
	}

	return &lead, nil
}

func (r *PostgresRepository) ListLeads(ctx context.Context) ([]models.Lead, error) {
	leads := []models.Lead{}
	if err := r.db.SelectContext(ctx, &leads, `SELECT * FROM client_requests ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *PostgresRepository) UpdateLead(ctx context.Context, lead *models.Lead) error {
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE client_requests SET name = :name, email = :email, phone_no = :phone_no,
			project_type = :project_type, message = :message, verified = :verified
		WHERE id = :id
	`, lead)

	return err
}

var _ Repository = (*PostgresRepository)(nil)
