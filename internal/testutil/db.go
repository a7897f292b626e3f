// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/database"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
)

// NewDB returns a migrated SQLite database backed by a file in t.TempDir().
// Transactions begin IMMEDIATE so concurrent writers serialize on the
// database lock the same way row locks serialize them on PostgreSQL.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL&_foreign_keys=on", path)

	db, err := gorm.Open(sqlite.Open(dsn), database.Config(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// CreateUser inserts a user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	u := &models.User{Email: email, EncryptedPassword: "x", FullName: email, Role: role, Status: models.StatusActive}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateClient inserts an active client.
func CreateClient(t *testing.T, db *gorm.DB, name string) *models.Client {
	t.Helper()
	c := &models.Client{CompanyName: name, ContactPerson: "Ana", City: "Colombo", IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

// InvoiceFixture describes an invoice inserted by CreateInvoice.
type InvoiceFixture struct {
	Number  string
	Total   string
	Paid    string
	Status  string
	DueDate time.Time
}

// CreateInvoice inserts an invoice for client with consistent derived fields.
func CreateInvoice(t *testing.T, db *gorm.DB, client *models.Client, f InvoiceFixture) *models.Invoice {
	t.Helper()
	if f.Paid == "" {
		f.Paid = "0"
	}
	if f.Status == "" {
		f.Status = models.InvoiceStatusSent
	}
	if f.DueDate.IsZero() {
		f.DueDate = models.CivilDate(time.Now()).AddDate(0, 0, 30)
	}
	total := decimal.RequireFromString(f.Total)
	paid := decimal.RequireFromString(f.Paid)

	inv := &models.Invoice{
		GUID:          uuid.NewString(),
		ClientID:      client.ID,
		InvoiceNumber: f.Number,
		InvoiceDate:   models.CivilDate(time.Now()).AddDate(0, 0, -30),
		DueDate:       f.DueDate,
		TotalAmount:   total,
		PaidAmount:    paid,
		BalanceAmount: total.Sub(paid),
		Status:        f.Status,
		CreatedBy:     1,
	}
	require.NoError(t, db.Omit("Client", "Project", "Payments").Create(inv).Error)
	return inv
}
