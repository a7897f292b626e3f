package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/middleware"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// Handlers holds all handler instances
type Handlers struct {
	Health  *HealthHandler
	Auth    *AuthHandler
	User    *UserHandler
	Client  *ClientHandler
	Project *ProjectHandler
	Invoice *InvoiceHandler
	Payment *PaymentHandler
	Audit   *AuditHandler
	Job     *JobHandler

	accounts middleware.AccountLoader
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(svcs),
		Auth:    NewAuthHandler(svcs.Auth, svcs.User),
		User:    NewUserHandler(svcs.User),
		Client:  NewClientHandler(svcs.Client),
		Project: NewProjectHandler(svcs.Project),
		Invoice: NewInvoiceHandler(svcs.Invoice, svcs.Ledger, svcs.Reconciliation, svcs.Statement),
		Payment: NewPaymentHandler(svcs.Invoice, svcs.Ledger, svcs.Statement),
		Audit:   NewAuditHandler(svcs.Audit),
		Job:     NewJobHandler(svcs.Job),

		accounts: svcs.User,
	}
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// @Summary Health Check
// @Description Checks that the API is running and the database answers
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.FromContext(ctx).Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "invoice-ledger",
		"version":  "1.0.0",
		"database": "up",
	})
}

// ListResponse is the envelope of list endpoints
type ListResponse[T any] struct {
	Data       []T             `json:"data"`
	Pagination models.ListMeta `json:"pagination"`
}

func respondList[T any](c *gin.Context, items []T, query *repository.ListQuery, total int64) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, ListResponse[T]{Data: items, Pagination: models.NewListMeta(query.Page, query.PerPage, total)})
}

// listQuery reads the common paging parameters plus the named filters
func listQuery(c *gin.Context, filters ...string) *repository.ListQuery {
	query := repository.NewListQuery()
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		query.Page = page
	}
	if perPage, err := strconv.Atoi(c.Query("per_page")); err == nil && perPage > 0 {
		if perPage > 100 {
			perPage = 100
		}
		query.PerPage = perPage
	}
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_dir")
	for _, f := range filters {
		if v := c.Query(f); v != "" {
			query.Filters[f] = v
		}
	}
	return query
}

// idParam parses a positive numeric path parameter. A malformed id cannot
// match a row, so it is reported with the resource's not-found error.
func idParam(c *gin.Context, name string, notFound *services.Error) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, notFound)
		return 0, false
	}
	return uint(id), true
}
