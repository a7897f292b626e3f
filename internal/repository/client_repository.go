package repository

import (
	"context"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"gorm.io/gorm"
)

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	SetActive(ctx context.Context, id uint, active bool) error
	List(ctx context.Context, query *ListQuery) ([]models.Client, int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) FindByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// SetActive flips the soft activation flag; clients are never deleted
func (r *clientRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var clientSortColumns = map[string]bool{"company_name": true, "city": true, "created_at": true}

func (r *clientRepository) List(ctx context.Context, query *ListQuery) ([]models.Client, int64, error) {
	var clients []models.Client
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Client{})

	if query.Search != "" {
		search := likePattern(query.Search)
		db = db.Where("LOWER(company_name) LIKE LOWER(?) OR LOWER(contact_person) LIKE LOWER(?) OR mobile_number LIKE ?",
			search, search, search)
	}
	switch query.Filters["active"] {
	case "true":
		db = db.Where("is_active = ?", true)
	case "false":
		db = db.Where("is_active = ?", false)
	}
	if query.Filters["city"] != "" {
		db = db.Where("city = ?", query.Filters["city"])
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(db, query, clientSortColumns, "company_name").Find(&clients).Error
	return clients, total, err
}
