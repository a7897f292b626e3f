package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/config"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/testutil"
)

// testEnv wires every service against a throwaway database. Audit entries
// are written inline because no worker is attached.
type testEnv struct {
	db     *gorm.DB
	repos  *repository.Repositories
	svc    *Services
	client *models.Client

	admin  context.Context
	staff  context.Context
	viewer context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1, ReconcileBatchSize: 2}

	env := &testEnv{
		db:     db,
		repos:  repos,
		svc:    NewServices(repos, nil, cfg),
		client: testutil.CreateClient(t, db, "Acme"),
	}
	env.admin = actorContext(testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin))
	env.staff = actorContext(testutil.CreateUser(t, db, "staff@example.com", models.RoleStaff))
	env.viewer = actorContext(testutil.CreateUser(t, db, "viewer@example.com", models.RoleViewer))
	return env
}

func actorContext(u *models.User) context.Context {
	return models.ContextWithActor(context.Background(), models.Actor{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	})
}

func (e *testEnv) invoice(t *testing.T, f testutil.InvoiceFixture) *models.Invoice {
	t.Helper()
	return testutil.CreateInvoice(t, e.db, e.client, f)
}

// reload reads the invoice row straight from the database
func (e *testEnv) reload(t *testing.T, id uint) *models.Invoice {
	t.Helper()
	var inv models.Invoice
	require.NoError(t, e.db.First(&inv, id).Error)
	return &inv
}

func (e *testEnv) paymentCount(t *testing.T, invoiceID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Payment{}).Where("invoice_id = ?", invoiceID).Count(&n).Error)
	return n
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func pay(value string) RecordPaymentInput {
	return RecordPaymentInput{Amount: amount(value), Method: models.PaymentMethodBankTransfer}
}

func today() time.Time {
	return models.CivilDate(time.Now())
}
