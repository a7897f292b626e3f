package services

import (
	"context"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
)

// Permission names an operation guarded by the access gate
type Permission string

const (
	PermInvoicesRead     Permission = "invoices.read"
	PermPaymentsRead     Permission = "payments.read"
	PermInvoicesWrite    Permission = "invoices.write"
	PermRecordPayment    Permission = "payments.record"
	PermClientsWrite     Permission = "clients.write"
	PermDeletePayment    Permission = "payments.delete"
	PermCancelInvoice    Permission = "invoices.cancel"
	PermRecomputeInvoice Permission = "invoices.recompute"
	PermAuditsRead       Permission = "audits.read"
	PermUsersManage      Permission = "users.manage"
	PermJobsManage       Permission = "jobs.manage"
)

var (
	allRoles   = []string{models.RoleAdmin, models.RoleStaff, models.RoleViewer}
	staffRoles = []string{models.RoleAdmin, models.RoleStaff}
	adminRoles = []string{models.RoleAdmin}
)

var permissionRoles = map[Permission][]string{
	PermInvoicesRead:     allRoles,
	PermPaymentsRead:     allRoles,
	PermInvoicesWrite:    staffRoles,
	PermRecordPayment:    staffRoles,
	PermClientsWrite:     staffRoles,
	PermDeletePayment:    adminRoles,
	PermCancelInvoice:    adminRoles,
	PermRecomputeInvoice: adminRoles,
	PermAuditsRead:       adminRoles,
	PermUsersManage:      adminRoles,
	PermJobsManage:       adminRoles,
}

// RolesFor returns the roles granted perm. Routers use it so route-level
// role checks and service-level checks share one table.
func RolesFor(perm Permission) []string {
	return permissionRoles[perm]
}

// AccessGate checks the request-scoped actor against the permission table
type AccessGate struct {
	permissions map[Permission][]string
}

// NewAccessGate creates an access gate with the default permission table
func NewAccessGate() *AccessGate {
	return &AccessGate{permissions: permissionRoles}
}

// Authorize returns the actor from ctx when it holds perm.
// No actor yields ErrUnauthorized; a role without perm yields ErrForbidden.
func (g *AccessGate) Authorize(ctx context.Context, perm Permission) (models.Actor, error) {
	actor, ok := models.ActorFromContext(ctx)
	if !ok {
		return models.Actor{}, ErrUnauthorized
	}
	for _, role := range g.permissions[perm] {
		if role == actor.Role {
			return actor, nil
		}
	}
	return models.Actor{}, withMessage(ErrForbidden, "role %q may not perform %s", actor.Role, perm)
}
