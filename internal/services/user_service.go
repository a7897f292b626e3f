package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
)

// UserService handles staff accounts
type UserService struct {
	repo     repository.UserRepository
	gate     *AccessGate
	auditSvc *AuditService
}

func NewUserService(repo repository.UserRepository, gate *AccessGate, auditSvc *AuditService) *UserService {
	return &UserService{
		repo:     repo,
		gate:     gate,
		auditSvc: auditSvc,
	}
}

// CreateUserInput is the payload for a new staff account
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=150"`
	Role     string `json:"role" validate:"required,role"`
}

// Current returns the authenticated user
func (s *UserService) Current(ctx context.Context) (*models.User, error) {
	actor, ok := models.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(ErrUserNotFound, "find user", err)
	}
	return user, nil
}

// Account loads a user by id without an access check. Authentication uses
// it to see the account's current role and status.
func (s *UserService) Account(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(ErrUserNotFound, "find user", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, query *repository.ListQuery) ([]models.User, int64, error) {
	if _, err := s.gate.Authorize(ctx, PermUsersManage); err != nil {
		return nil, 0, err
	}
	users, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, storageError("list users", err)
	}
	return users, total, nil
}

// Create adds a staff account on behalf of an admin
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if _, err := s.gate.Authorize(ctx, PermUsersManage); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.auditSvc.Record(ctx, models.AuditActionCreate, models.AuditEntityUser, user.ID,
		fmt.Sprintf("user %s created with role %s", user.Email, user.Role))
	return user, nil
}

// Bootstrap creates an account without an authenticated actor. It is only
// reachable from the command line, to seed the first admin.
func (s *UserService) Bootstrap(ctx context.Context, in CreateUserInput) (*models.User, error) {
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:             in.Email,
		EncryptedPassword: hashedPassword,
		FullName:          strings.TrimSpace(in.FullName),
		Role:              in.Role,
		Status:            models.StatusActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, storageError("create user", err)
	}
	return user, nil
}
