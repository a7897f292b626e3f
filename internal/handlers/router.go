package handlers

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/config"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/middleware"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

// NewRouter builds the HTTP API. Permissions are enforced by the services;
// the role checks on /users and /audits only short-circuit early.
func NewRouter(h *Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(cfg.AuthRateLimit, time.Minute))
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret, h.accounts))
		{
			protected.GET("/auth/me", h.Auth.Me)

			users := protected.Group("/users")
			users.Use(middleware.RequirePermission(services.PermUsersManage))
			{
				users.GET("", h.User.Index)
				users.POST("", h.User.Create)
			}

			// Write routes check permissions before any lookup or body parsing
			canWriteClients := middleware.RequirePermission(services.PermClientsWrite)
			canWriteInvoices := middleware.RequirePermission(services.PermInvoicesWrite)

			protected.GET("/clients", h.Client.Index)
			protected.POST("/clients", canWriteClients, h.Client.Create)
			protected.GET("/clients/:client_id", h.Client.Show)
			protected.PUT("/clients/:client_id/deactivate", canWriteClients, h.Client.Deactivate)

			protected.GET("/projects", h.Project.Index)
			protected.POST("/projects", canWriteClients, h.Project.Create)
			protected.GET("/projects/:project_id", h.Project.Show)

			invoices := protected.Group("/invoices")
			{
				invoices.GET("", h.Invoice.Index)
				invoices.POST("", canWriteInvoices, h.Invoice.Create)
				invoices.GET("/:invoice_id", h.Invoice.Show)
				invoices.PUT("/:invoice_id", canWriteInvoices, h.Invoice.Update)
				invoices.POST("/:invoice_id/send", canWriteInvoices, h.Invoice.Send)
				invoices.POST("/:invoice_id/cancel", middleware.RequirePermission(services.PermCancelInvoice), h.Invoice.Cancel)
				invoices.POST("/:invoice_id/recompute", middleware.RequirePermission(services.PermRecomputeInvoice), h.Invoice.Recompute)
				invoices.GET("/:invoice_id/reconcile", h.Invoice.Reconcile)
				invoices.GET("/:invoice_id/statement", h.Invoice.Statement)
				invoices.GET("/:invoice_id/payments", h.Invoice.Payments)
				invoices.POST("/:invoice_id/payments", middleware.RequirePermission(services.PermRecordPayment), h.Payment.Create)
				invoices.GET("/:invoice_id/balance", h.Payment.Balance)
			}

			protected.DELETE("/payments/:payment_id", middleware.RequirePermission(services.PermDeletePayment), h.Payment.Delete)
			protected.GET("/payments/:payment_id/receipt", h.Payment.Receipt)

			audits := protected.Group("/audits")
			audits.Use(middleware.RequirePermission(services.PermAuditsRead))
			audits.GET("", h.Audit.Index)

			jobs := protected.Group("/jobs")
			jobs.Use(middleware.RequirePermission(services.PermJobsManage))
			{
				jobs.GET("/status", h.Job.Status)
				jobs.POST("/reconcile", h.Job.Reconcile)
			}
		}
	}

	return router
}
