// Package permission authorizes callers of the access mediator against the
// casbin role matrix.
package permission

import (
	"context"
	"fmt"
	"slices"

	"github.com/cipherboy/candlepin/internal/domain/permission"
	vo "github.com/cipherboy/candlepin/internal/domain/permission/value_objects"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// Caller identifies who is calling. OwnerKey scopes non-admin callers to a
// single owner; it is ignored for admins.
type Caller struct {
	Subject  string
	OwnerKey string
}

func (c Caller) String() string {
	if c.OwnerKey == "" {
		return c.Subject
	}
	return c.Subject + "@" + c.OwnerKey
}

type Service struct {
	enforcer permission.PermissionEnforcer
	logger   logger.Interface
}

func NewService(enforcer permission.PermissionEnforcer, logger logger.Interface) *Service {
	return &Service{
		enforcer: enforcer,
		logger:   logger,
	}
}

func (s *Service) CheckPermission(_ context.Context, subject string, resource vo.Resource, action vo.Action) (bool, error) {
	return s.enforcer.Enforce(subject, resource, action)
}

// Authorize returns a ForbiddenError unless caller may perform action on
// resource.
func (s *Service) Authorize(ctx context.Context, caller Caller, resource vo.Resource, action vo.Action) error {
	if caller.Subject == "" {
		return apperrors.NewForbiddenError("caller is required")
	}
	allowed, err := s.CheckPermission(ctx, caller.Subject, resource, action)
	if err != nil {
		return apperrors.NewInternalError("permission check failed", err.Error())
	}
	if !allowed {
		s.logger.Warnw("permission denied",
			"caller", caller.String(),
			"resource", resource,
			"action", action,
		)
		return apperrors.NewForbiddenError("permission denied",
			fmt.Sprintf("%s may not %s %s", caller.Subject, action, resource))
	}
	return nil
}

// AuthorizeOwner is Authorize plus owner scoping: a non-admin caller may only
// act on its own owner's data.
func (s *Service) AuthorizeOwner(ctx context.Context, caller Caller, resource vo.Resource, action vo.Action, ownerKey string) error {
	if err := s.Authorize(ctx, caller, resource, action); err != nil {
		return err
	}
	admin, err := s.IsAdmin(ctx, caller.Subject)
	if err != nil {
		return err
	}
	if admin || caller.OwnerKey == ownerKey {
		return nil
	}
	s.logger.Warnw("owner scope denied",
		"caller", caller.String(),
		"owner_key", ownerKey,
		"resource", resource,
	)
	return apperrors.NewForbiddenError("permission denied", "caller is scoped to another owner")
}

// IsAdmin reports whether subject is, or holds, the admin role.
func (s *Service) IsAdmin(_ context.Context, subject string) (bool, error) {
	if subject == vo.RoleAdmin.String() {
		return true, nil
	}
	roles, err := s.enforcer.GetRolesForUser(subject)
	if err != nil {
		return false, apperrors.NewInternalError("failed to get roles", err.Error())
	}
	return slices.Contains(roles, vo.RoleAdmin.String()), nil
}

func (s *Service) GrantRole(_ context.Context, subject, role string) error {
	r, err := vo.NewRole(role)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if subject == "" {
		return apperrors.NewValidationError("subject is required")
	}
	if err := s.enforcer.AddRoleForUser(subject, r); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	s.logger.Infow("role granted", "subject", subject, "role", r)
	return nil
}

func (s *Service) RevokeRole(_ context.Context, subject, role string) error {
	r, err := vo.NewRole(role)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if err := s.enforcer.DeleteRoleForUser(subject, r); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	s.logger.Infow("role revoked", "subject", subject, "role", r)
	return nil
}

func (s *Service) GetRoles(_ context.Context, subject string) ([]string, error) {
	return s.enforcer.GetRolesForUser(subject)
}
