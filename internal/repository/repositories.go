package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert hits a unique constraint
var ErrDuplicateKey = errors.New("duplicate key")

// Repositories holds all repository instances
type Repositories struct {
	db *gorm.DB

	User         UserRepository
	RefreshToken RefreshTokenRepository
	Client       ClientRepository
	Project      ProjectRepository
	Invoice      InvoiceRepository
	Payment      PaymentRepository
	Audit        AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         NewUserRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
		Client:       NewClientRepository(db),
		Project:      NewProjectRepository(db),
		Invoice:      NewInvoiceRepository(db),
		Payment:      NewPaymentRepository(db),
		Audit:        NewAuditRepository(db),
	}
}

// Transaction runs fn with repositories bound to one database transaction.
// Returning an error from fn, or ctx expiring, rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Ping verifies the database is reachable
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// paginate applies ordering and offset/limit. Only whitelisted columns are
// accepted for ordering; anything else falls back to def.
func paginate(db *gorm.DB, q *ListQuery, sortable map[string]bool, def string) *gorm.DB {
	order := def
	if q.SortBy != "" && sortable[q.SortBy] {
		order = q.SortBy
		if q.SortDir == "desc" {
			order += " DESC"
		}
	}
	db = db.Order(order)

	if q.PerPage > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * q.PerPage).Limit(q.PerPage)
	}
	return db
}

func likePattern(s string) string {
	return "%" + s + "%"
}
