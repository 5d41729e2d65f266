package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/models"
	"go.uber.org/zap"
)

// Action is a mutating operation that requires the admin role
type Action string

const (
	ActionUpdateComplaint Action = "complaint.update"
	ActionVerifyCleanup   Action = "complaint.verify_cleanup"
	ActionRunEscalation   Action = "escalation.run"
	ActionListUsers       Action = "user.list"
	ActionManageRoles     Action = "role.manage"
)

// Authorizer is the single capability check run at the top of every admin operation
type Authorizer interface {
	Authorize(ctx context.Context, callerID string, action Action) error
}

// UserService owns user profiles and the role table, and authorizes admin actions
type UserService struct {
	store  UserStore
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(store UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Authorize succeeds only when callerID holds the admin role. Every action
// currently requires admin.
func (s *UserService) Authorize(ctx context.Context, callerID string, action Action) error {
	if callerID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	role, err := s.RoleOf(ctx, callerID)
	if err != nil {
		return apperr.Internal("failed to check role", err)
	}
	if role != models.RoleAdmin {
		s.logger.Warn("Admin action denied", zap.String("caller", callerID), zap.String("action", string(action)))
		return apperr.Forbidden(fmt.Sprintf("Admin role required for %s", action))
	}
	return nil
}

// RoleOf returns the caller's role, or an empty role when none is assigned
func (s *UserService) RoleOf(ctx context.Context, userID string) (models.Role, error) {
	role, err := s.store.GetRole(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role.Role, nil
}

// RegisterInput is the profile reported by the identity provider at sign-in
type RegisterInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Register upserts the caller's profile and gives first-time users the user role
func (s *UserService) Register(ctx context.Context, userID string, in RegisterInput) (*models.User, models.Role, error) {
	if userID == "" {
		return nil, "", apperr.Unauthorized("Authentication required")
	}

	now := s.now()
	user := &models.User{
		UID:       userID,
		LastLogin: &now,
		CreatedAt: now,
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = &email
	}
	if name := strings.TrimSpace(in.DisplayName); name != "" {
		user.DisplayName = &name
	}

	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, "", apperr.Internal("failed to save user", err)
	}

	created, err := s.store.CreateRoleIfAbsent(ctx, &models.UserRole{
		UserID:    userID,
		Role:      models.RoleUser,
		CreatedAt: now,
	})
	if err != nil {
		return nil, "", apperr.Internal("failed to assign default role", err)
	}
	if created {
		s.logger.Info("New user registered", zap.String("user_id", userID))
	}

	role, err := s.RoleOf(ctx, userID)
	if err != nil {
		return nil, "", apperr.Internal("failed to read role", err)
	}
	return user, role, nil
}

// UserWithRole is a profile joined with its role for the admin user list
type UserWithRole struct {
	models.User
	Role models.Role `json:"role"`
}

func (s *UserService) ListUsers(ctx context.Context, callerID string) ([]UserWithRole, error) {
	if err := s.Authorize(ctx, callerID, ActionListUsers); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list roles", err)
	}

	byUser := make(map[string]models.Role, len(roles))
	for _, r := range roles {
		byUser[r.UserID] = r.Role
	}

	out := make([]UserWithRole, 0, len(users))
	for _, u := range users {
		out = append(out, UserWithRole{User: u, Role: byUser[u.UID]})
	}
	return out, nil
}

func (s *UserService) AssignRole(ctx context.Context, callerID, userID string, role models.Role) error {
	if err := s.Authorize(ctx, callerID, ActionManageRoles); err != nil {
		return err
	}
	if userID == "" {
		return apperr.Validation("userId", "User id is required")
	}
	if !role.Valid() {
		return apperr.Validation("role", "Role must be admin or user")
	}
	if callerID == userID && role != models.RoleAdmin {
		return apperr.BadRequest("You cannot remove your own admin role")
	}

	if err := s.store.SetRole(ctx, userID, role); err != nil {
		return apperr.Internal("failed to assign role", err)
	}
	s.logger.Info("Role assigned", zap.String("by", callerID), zap.String("user_id", userID), zap.String("role", string(role)))
	return nil
}

func (s *UserService) RemoveRole(ctx context.Context, callerID, userID string) error {
	if err := s.Authorize(ctx, callerID, ActionManageRoles); err != nil {
		return err
	}
	if callerID == userID {
		return apperr.BadRequest("You cannot remove your own admin role")
	}

	if err := s.store.DeleteRole(ctx, userID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return apperr.Internal("failed to remove role", err)
	}
	s.logger.Info("Role removed", zap.String("by", callerID), zap.String("user_id", userID))
	return nil
}
