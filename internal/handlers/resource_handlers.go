package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

// ClientHandler serves client records
type ClientHandler struct {
	clientService *services.ClientService
}

func NewClientHandler(clientService *services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// @Summary List Clients
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by company or contact"
// @Param active query string false "true or false"
// @Param city query string false "Filter by city"
// @Success 200 {object} ListResponse[models.ClientResponse]
// @Security BearerAuth
// @Router /clients [get]
func (h *ClientHandler) Index(c *gin.Context) {
	query := listQuery(c, "active", "city")
	clients, total, err := h.clientService.ListClients(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.ClientResponse, 0, len(clients))
	for i := range clients {
		responses = append(responses, clients[i].ToResponse())
	}
	respondList(c, responses, query, total)
}

// @Summary Get Client
// @Tags Clients
// @Produce json
// @Param client_id path int true "Client ID"
// @Success 200 {object} models.ClientResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /clients/{client_id} [get]
func (h *ClientHandler) Show(c *gin.Context) {
	id, ok := idParam(c, "client_id", services.ErrClientNotFound)
	if !ok {
		return
	}
	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client.ToResponse())
}

// @Summary Create Client
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body services.CreateClientInput true "Client"
// @Success 201 {object} models.ClientResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var in services.CreateClientInput
	if err := BindNestedOrFlat(c, "client", &in); err != nil {
		respondError(c, bindError(err))
		return
	}
	client, err := h.clientService.CreateClient(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client.ToResponse())
}

// @Summary Deactivate Client
// @Description New invoices cannot be issued to an inactive client. Existing invoices are untouched.
// @Tags Clients
// @Produce json
// @Param client_id path int true "Client ID"
// @Success 200 {object} models.ClientResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /clients/{client_id}/deactivate [put]
func (h *ClientHandler) Deactivate(c *gin.Context) {
	id, ok := idParam(c, "client_id", services.ErrClientNotFound)
	if !ok {
		return
	}
	client, err := h.clientService.DeactivateClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client.ToResponse())
}

// ProjectHandler serves client projects
type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// @Summary List Projects
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search term"
// @Param client_id query int false "Filter by client"
// @Success 200 {object} ListResponse[models.ProjectResponse]
// @Security BearerAuth
// @Router /projects [get]
func (h *ProjectHandler) Index(c *gin.Context) {
	query := listQuery(c, "client_id")
	projects, total, err := h.projectService.ListProjects(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.ProjectResponse, 0, len(projects))
	for i := range projects {
		responses = append(responses, projects[i].ToResponse())
	}
	respondList(c, responses, query, total)
}

// @Summary Get Project
// @Tags Projects
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.ProjectResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects/{project_id} [get]
func (h *ProjectHandler) Show(c *gin.Context) {
	id, ok := idParam(c, "project_id", services.ErrProjectNotFound)
	if !ok {
		return
	}
	project, err := h.projectService.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project.ToResponse())
}

// @Summary Create Project
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body services.CreateProjectInput true "Project"
// @Success 201 {object} models.ProjectResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var in services.CreateProjectInput
	if err := BindNestedOrFlat(c, "project", &in); err != nil {
		respondError(c, bindError(err))
		return
	}
	project, err := h.projectService.CreateProject(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project.ToResponse())
}

// AuditHandler serves the audit trail
type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Tags Audits
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param entity query string false "Invoice, Payment, Client, Project or User"
// @Param entity_id query int false "Entity ID"
// @Param action query string false "Audit action"
// @Param user_id query int false "Acting user"
// @Success 200 {object} ListResponse[models.AuditLog]
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := listQuery(c, "entity", "entity_id", "action", "user_id")
	logs, total, err := h.auditService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, logs, query, total)
}
