// Package rbac implements the admin panel's permission model: flat
// {resource, actions} grants, merged from a user's direct grants and their
// roles. There is no inheritance hierarchy — merging is plain set union.
package rbac

import "strings"

// Permission grants a list of actions on one resource.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// Merge unions direct grants with role grants. Resources keep the order of
// first appearance (direct before role); actions are de-duplicated within
// each resource, also in first-seen order. Inputs are never mutated.
func Merge(direct, role []Permission) []Permission {
	var order []string
	actions := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	add := func(perms []Permission) {
		for _, p := range perms {
			if seen[p.Resource] == nil {
				order = append(order, p.Resource)
				seen[p.Resource] = make(map[string]bool)
			}
			for _, a := range p.Actions {
				if !seen[p.Resource][a] {
					seen[p.Resource][a] = true
					actions[p.Resource] = append(actions[p.Resource], a)
				}
			}
		}
	}
	add(direct)
	add(role)

	merged := make([]Permission, 0, len(order))
	for _, resource := range order {
		merged = append(merged, Permission{Resource: resource, Actions: actions[resource]})
	}
	return merged
}

// Allowed reports whether the permission set grants action on resource.
// The wildcard "*" matches any resource or action.
func Allowed(perms []Permission, resource, action string) bool {
	for _, p := range perms {
		if p.Resource != resource && p.Resource != "*" {
			continue
		}
		for _, a := range p.Actions {
			if a == action || a == "*" {
				return true
			}
		}
	}
	return false
}

// Registry resolves role names to their permission grants.
type Registry struct {
	roles map[string][]Permission
}

// NewRegistry creates a Registry from a role→permissions table.
func NewRegistry(roles map[string][]Permission) *Registry {
	if roles == nil {
		roles = make(map[string][]Permission)
	}
	return &Registry{roles: roles}
}

// DefaultRegistry returns the built-in roles used when no role table is
// configured.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string][]Permission{
		"admin": {
			{Resource: "*", Actions: []string{"*"}},
		},
		"editor": {
			{Resource: "fields", Actions: []string{"read"}},
			{Resource: "forms", Actions: []string{"read", "create", "update"}},
			{Resource: "profiles", Actions: []string{"read", "update"}},
			{Resource: "documents", Actions: []string{"read", "create"}},
		},
		"viewer": {
			{Resource: "fields", Actions: []string{"read"}},
			{Resource: "forms", Actions: []string{"read"}},
			{Resource: "profiles", Actions: []string{"read"}},
			{Resource: "documents", Actions: []string{"read"}},
		},
	})
}

// Resolve merges the grants of all named roles with the user's direct
// grants. Unknown role names contribute nothing.
func (r *Registry) Resolve(direct []Permission, roleNames []string) []Permission {
	merged := Merge(direct, nil)
	for _, name := range roleNames {
		merged = Merge(merged, r.roles[strings.TrimSpace(name)])
	}
	return merged
}
