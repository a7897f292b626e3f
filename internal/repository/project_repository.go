package repository

import (
	"context"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"gorm.io/gorm"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	List(ctx context.Context, query *ListQuery) ([]models.Project, int64, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) FindByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Client").First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit("Client").Create(project).Error
}

var projectSortColumns = map[string]bool{"name": true, "created_at": true}

func (r *projectRepository) List(ctx context.Context, query *ListQuery) ([]models.Project, int64, error) {
	var projects []models.Project
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Project{})

	if query.Search != "" {
		db = db.Where("LOWER(name) LIKE LOWER(?)", likePattern(query.Search))
	}
	if query.Filters["client_id"] != "" {
		db = db.Where("client_id = ?", query.Filters["client_id"])
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(db, query, projectSortColumns, "created_at DESC").
		Preload("Client").
		Find(&projects).Error
	return projects, total, err
}
