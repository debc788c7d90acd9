package rbac

import (
	"errors"
	"fmt"
	"sort"
)

// Action names follow the object.action convention. Grouping by object is
// documentation only; enforcement never special-cases an action by name.
const (
	ObjectOrganization = "organization"
	ObjectMember       = "member"
	ObjectInvitation   = "invitation"
	ObjectProject      = "project"
	ObjectTask         = "task"
	ObjectView         = "view"
)

const (
	ActionOrganizationView   = "organization.view"
	ActionOrganizationUpdate = "organization.update"
	ActionOrganizationDelete = "organization.delete"

	ActionMemberView       = "member.view"
	ActionMemberInvite     = "member.invite"
	ActionMemberChangeRole = "member.change_role"
	ActionMemberSetStatus  = "member.set_status"
	ActionMemberRemove     = "member.remove"

	ActionInvitationRevoke = "invitation.revoke"

	ActionProjectView   = "project.view"
	ActionProjectCreate = "project.create"
	ActionProjectUpdate = "project.update"
	ActionProjectDelete = "project.delete"

	ActionTaskView         = "task.view"
	ActionTaskCreate       = "task.create"
	ActionTaskUpdate       = "task.update"
	ActionTaskDelete       = "task.delete"
	ActionTaskUpdateStatus = "task.update_status"

	ActionViewManage = "view.manage"
)

var ErrUnknownAction = errors.New("unknown_action")

// Catalog maps each protected action to the minimum role required to perform
// it. It is built once at startup and never mutated afterwards; handlers
// receive it by injection.
type Catalog struct {
	required map[string]Role
}

// NewCatalog builds the default permission catalog. Registering the same
// action twice is a programming error and panics at construction, so an
// ambiguous entry can never reach an enforcement point.
func NewCatalog() *Catalog {
	c := &Catalog{required: make(map[string]Role)}

	c.register(ActionOrganizationView, RoleMember)
	c.register(ActionOrganizationUpdate, RoleAdmin)
	c.register(ActionOrganizationDelete, RoleAdmin)

	c.register(ActionMemberView, RoleMember)
	c.register(ActionMemberInvite, RoleManager)
	c.register(ActionMemberChangeRole, RoleAdmin)
	c.register(ActionMemberSetStatus, RoleAdmin)
	c.register(ActionMemberRemove, RoleAdmin)

	c.register(ActionInvitationRevoke, RoleManager)

	c.register(ActionProjectView, RoleMember)
	c.register(ActionProjectCreate, RoleManager)
	c.register(ActionProjectUpdate, RoleManager)
	c.register(ActionProjectDelete, RoleManager)

	c.register(ActionTaskView, RoleMember)
	c.register(ActionTaskCreate, RoleManager)
	c.register(ActionTaskUpdate, RoleManager)
	c.register(ActionTaskDelete, RoleManager)
	// Members may move their own work along the board. Ownership scoping is
	// the task service's concern; this catalog covers the role dimension only.
	c.register(ActionTaskUpdateStatus, RoleMember)

	c.register(ActionViewManage, RoleManager)

	return c
}

func (c *Catalog) register(action string, required Role) {
	if !required.Valid() {
		panic(fmt.Sprintf("rbac: action %q registered with invalid role %q", action, required))
	}
	if _, exists := c.required[action]; exists {
		panic(fmt.Sprintf("rbac: action %q registered twice", action))
	}
	c.required[action] = required
}

// RequiredRole resolves the minimum role for an action. Unregistered actions
// fail closed with ErrUnknownAction.
func (c *Catalog) RequiredRole(action string) (Role, error) {
	role, ok := c.required[action]
	if !ok {
		return "", ErrUnknownAction
	}
	return role, nil
}

// Actions returns the registered action names, sorted.
func (c *Catalog) Actions() []string {
	actions := make([]string, 0, len(c.required))
	for action := range c.required {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}
