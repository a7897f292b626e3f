package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Counters of the background worker that writes audit entries and runs reconciliation sweeps
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} jobs.WorkerStats
// @Failure 403 {object} ErrorResponse
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status, err := h.jobService.GetStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Reconcile starts a reconciliation sweep outside the schedule
// @Summary Run reconciliation sweep
// @Description Checks every invoice against its payments and reports drift. Never writes to invoices.
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.SweepSummary
// @Success 202 {object} map[string]string
// @Failure 403 {object} ErrorResponse
// @Router /jobs/reconcile [post]
func (h *JobHandler) Reconcile(c *gin.Context) {
	summary, err := h.jobService.TriggerReconciliation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if summary == nil {
		c.JSON(http.StatusAccepted, gin.H{"message": "reconciliation queued"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
