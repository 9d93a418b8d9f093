package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/buildtrue-server/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names match the original document store layout
const (
	usersCollection     = "users"
	projectsCollection  = "projects"
	laborCollection     = "labors"
	materialsCollection = "materials"
	progressCollection  = "progresses"
	leadsCollection     = "clientrequests"
)

// MongoRepository implements the Repository interface on top of MongoDB.
// Documents use string UUIDs as _id so identifiers are portable between drivers.
type MongoRepository struct {
	db *mongo.Database
}

// NewMongoRepository creates a repository backed by db
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db}
}

// EnsureIndexes creates the unique and lookup indexes the repository relies on
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		laborCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		materialsCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "usage_info.id", Value: 1}}},
			{Keys: bson.D{{Key: "purchase_info.id", Value: 1}}},
		},
		progressCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "date_updated", Value: -1}}},
		},
	}

	for name, specs := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func mapMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// findOne decodes the first document matching filter into out. It reports
// false when nothing matched.
func (r *MongoRepository) findOne(ctx context.Context, collection string, filter interface{}, out interface{}) (bool, error) {
	err := r.db.Collection(collection).FindOne(ctx, filter).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *MongoRepository) replace(ctx context.Context, collection, id string, doc interface{}) error {
	_, err := r.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	return mapMongoError(err)
}

func newestFirst(field string) *options.FindOptionsBuilder {
	return options.Find().SetSort(bson.D{{Key: field, Value: -1}})
}

// User repository methods
func (r *MongoRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.ProjectIDs == nil {
		user.ProjectIDs = []string{}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.Collection(usersCollection).InsertOne(ctx, user)
	return mapMongoError(err)
}

func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	found, err := r.findOne(ctx, usersCollection, bson.M{"email": email}, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *MongoRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := r.findOne(ctx, usersCollection, bson.M{"_id": id}, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *MongoRepository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	return r.replace(ctx, usersCollection, user.ID, user)
}

// Project repository methods
func (r *MongoRepository) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := r.db.Collection(projectsCollection).InsertOne(ctx, project)
	return err
}

func (r *MongoRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	found, err := r.findOne(ctx, projectsCollection, bson.M{"_id": id}, &project)
	if err != nil || !found {
		return nil, err
	}
	return &project, nil
}

func (r *MongoRepository) ListProjects(ctx context.Context) ([]models.Project, error) {
	return r.findProjects(ctx, bson.M{})
}

func (r *MongoRepository) ListProjectsByClient(ctx context.Context, clientID string) ([]models.Project, error) {
	return r.findProjects(ctx, bson.M{"client_id": clientID})
}

func (r *MongoRepository) findProjects(ctx context.Context, filter bson.M) ([]models.Project, error) {
	cursor, err := r.db.Collection(projectsCollection).Find(ctx, filter, newestFirst("created_at"))
	if err != nil {
		return nil, err
	}

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *MongoRepository) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	return r.replace(ctx, projectsCollection, project.ID, project)
}

func (r *MongoRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.Collection(projectsCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) CountProjects(ctx context.Context, status models.ProjectStatus) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.db.Collection(projectsCollection).CountDocuments(ctx, filter)
}

// Labor repository methods
func (r *MongoRepository) CreateLabor(ctx context.Context, labor *models.LaborRecord) error {
	if labor.ID == "" {
		labor.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	labor.CreatedAt = now
	labor.UpdatedAt = now

	_, err := r.db.Collection(laborCollection).InsertOne(ctx, labor)
	return err
}

func (r *MongoRepository) GetLabor(ctx context.Context, id string) (*models.LaborRecord, error) {
	var labor models.LaborRecord
	found, err := r.findOne(ctx, laborCollection, bson.M{"_id": id}, &labor)
	if err != nil || !found {
		return nil, err
	}
	return &labor, nil
}

func (r *MongoRepository) ListLaborByProject(ctx context.Context, projectID string) ([]models.LaborRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := r.db.Collection(laborCollection).Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}

	records := []models.LaborRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *MongoRepository) UpdateLabor(ctx context.Context, labor *models.LaborRecord) error {
	labor.UpdatedAt = time.Now().UTC()
	return r.replace(ctx, laborCollection, labor.ID, labor)
}

func (r *MongoRepository) DeleteLabor(ctx context.Context, id string) error {
	_, err := r.db.Collection(laborCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) DeleteLaborByProject(ctx context.Context, projectID string) error {
	_, err := r.db.Collection(laborCollection).DeleteMany(ctx, bson.M{"project_id": projectID})
	return err
}

// Material repository methods
func (r *MongoRepository) SaveMaterial(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.New().String()
	}
	if material.UsageInfo == nil {
		material.UsageInfo = []models.MaterialUsage{}
	}
	if material.PurchaseInfo == nil {
		material.PurchaseInfo = []models.MaterialPurchase{}
	}

	now := time.Now().UTC()
	if material.CreatedAt.IsZero() {
		material.CreatedAt = now
	}
	material.UpdatedAt = now

	_, err := r.db.Collection(materialsCollection).ReplaceOne(ctx,
		bson.M{"_id": material.ID}, material, options.Replace().SetUpsert(true))
	return mapMongoError(err)
}

func (r *MongoRepository) GetMaterialByName(ctx context.Context, projectID, name string) (*models.Material, error) {
	return r.findMaterial(ctx, bson.M{"project_id": projectID, "name": name})
}

func (r *MongoRepository) GetMaterialByUsageID(ctx context.Context, projectID, usageID string) (*models.Material, error) {
	return r.findMaterial(ctx, bson.M{"project_id": projectID, "usage_info.id": usageID})
}

func (r *MongoRepository) GetMaterialByPurchaseID(ctx context.Context, projectID, purchaseID string) (*models.Material, error) {
	return r.findMaterial(ctx, bson.M{"project_id": projectID, "purchase_info.id": purchaseID})
}

func (r *MongoRepository) findMaterial(ctx context.Context, filter bson.M) (*models.Material, error) {
	var material models.Material
	found, err := r.findOne(ctx, materialsCollection, filter, &material)
	if err != nil || !found {
		return nil, err
	}
	return &material, nil
}

func (r *MongoRepository) ListMaterialsByProject(ctx context.Context, projectID string) ([]models.Material, error) {
	cursor, err := r.db.Collection(materialsCollection).Find(ctx, bson.M{"project_id": projectID}, newestFirst("created_at"))
	if err != nil {
		return nil, err
	}

	materials := []models.Material{}
	if err := cursor.All(ctx, &materials); err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *MongoRepository) DeleteMaterialsByProject(ctx context.Context, projectID string) error {
	_, err := r.db.Collection(materialsCollection).DeleteMany(ctx, bson.M{"project_id": projectID})
	return err
}

// Progress repository methods
func (r *MongoRepository) CreateProgress(ctx context.Context, progress *models.Progress) error {
	if progress.ID == "" {
		progress.ID = uuid.New().String()
	}
	if progress.Media == nil {
		progress.Media = []models.Media{}
	}
	if progress.Messages == nil {
		progress.Messages = []models.Message{}
	}

	now := time.Now().UTC()
	progress.CreatedAt = now
	progress.UpdatedAt = now
	if progress.DateUpdated.IsZero() {
		progress.DateUpdated = now
	}

	_, err := r.db.Collection(progressCollection).InsertOne(ctx, progress)
	return err
}

func (r *MongoRepository) GetProgress(ctx context.Context, id string) (*models.Progress, error) {
	var progress models.Progress
	found, err := r.findOne(ctx, progressCollection, bson.M{"_id": id}, &progress)
	if err != nil || !found {
		return nil, err
	}
	return &progress, nil
}

func (r *MongoRepository) ListProgressByProject(ctx context.Context, projectID string) ([]models.Progress, error) {
	cursor, err := r.db.Collection(progressCollection).Find(ctx, bson.M{"project_id": projectID}, newestFirst("date_updated"))
	if err != nil {
		return nil, err
	}

	updates := []models.Progress{}
	if err := cursor.All(ctx, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (r *MongoRepository) UpdateProgress(ctx context.Context, progress *models.Progress) error {
	progress.UpdatedAt = time.Now().UTC()
	result, err := r.db.Collection(progressCollection).ReplaceOne(ctx, bson.M{"_id": progress.ID}, progress)
	if err != nil {
		return mapMongoError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteProgress(ctx context.Context, id string) error {
	_, err := r.db.Collection(progressCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) DeleteProgressByProject(ctx context.Context, projectID string) error {
	_, err := r.db.Collection(progressCollection).DeleteMany(ctx, bson.M{"project_id": projectID})
	return err
}

// Lead repository methods
func (r *MongoRepository) CreateLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Collection(leadsCollection).InsertOne(ctx, lead)
	return err
}

func (r *MongoRepository) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	found, err := r.findOne(ctx, leadsCollection, bson.M{"_id": id}, &lead)
	if err != nil || !found {
		return nil, err
	}
	return &lead, nil
}

func (r *MongoRepository) ListLeads(ctx context.Context) ([]models.Lead, error) {
	cursor, err := r.db.Collection(leadsCollection).Find(ctx, bson.M{}, newestFirst("created_at"))
	if err != nil {
		return nil, err
	}

	leads := []models.Lead{}
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *MongoRepository) UpdateLead(ctx context.Context, lead *models.Lead) error {
	return r.replace(ctx, leadsCollection, lead.ID, lead)
}

var _ Repository = (*MongoRepository)(nil)
