// Package permission defines role-based access to pools, subscriptions and
// certificates.
package permission

import (
	vo "github.com/cipherboy/candlepin/internal/domain/permission/value_objects"
)

type PermissionEnforcer interface {
	Enforce(subject string, resource vo.Resource, action vo.Action) (bool, error)
	AddRoleForUser(subject string, role vo.Role) error
	DeleteRoleForUser(subject string, role vo.Role) error
	GetRolesForUser(subject string) ([]string, error)
	LoadPolicy() error
}

// Policy grants a role an action on a resource.
type Policy struct {
	Role     vo.Role
	Resource vo.Resource
	Action   vo.Action
}

// DefaultPolicies is the built-in role matrix.
func DefaultPolicies() []Policy {
	var policies []Policy
	grant := func(role vo.Role, resource vo.Resource, actions ...vo.Action) {
		for _, a := range actions {
			policies = append(policies, Policy{Role: role, Resource: resource, Action: a})
		}
	}

	all := []vo.Action{vo.ActionCreate, vo.ActionRead, vo.ActionUpdate, vo.ActionDelete, vo.ActionIssue, vo.ActionRevoke}
	for _, r := range []vo.Resource{vo.ResourceSubscription, vo.ResourcePool, vo.ResourceEntitlement, vo.ResourceCertificate} {
		grant(vo.RoleAdmin, r, all...)
	}

	grant(vo.RoleOwner, vo.ResourceSubscription, vo.ActionCreate, vo.ActionRead)
	grant(vo.RoleOwner, vo.ResourcePool, vo.ActionRead, vo.ActionUpdate, vo.ActionDelete)
	grant(vo.RoleOwner, vo.ResourceEntitlement, vo.ActionIssue, vo.ActionRead, vo.ActionRevoke)
	grant(vo.RoleOwner, vo.ResourceCertificate, vo.ActionRead)

	grant(vo.RoleConsumer, vo.ResourcePool, vo.ActionRead)
	grant(vo.RoleConsumer, vo.ResourceEntitlement, vo.ActionIssue, vo.ActionRead)
	grant(vo.RoleConsumer, vo.ResourceCertificate, vo.ActionRead)

	return policies
}
