package session

import (
	"sort"
	"strings"
)

// Role is a canonical permission label
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleFinanceManager Role = "FINANCE_MANAGER"
	RoleManager        Role = "MANAGER"
	RoleEmployee       Role = "EMPLOYEE"
)

// roleSpellings maps every accepted backend spelling to its role. The backend
// emits both prefixed (ROLE_X) and bare (X) forms.
var roleSpellings = map[string]Role{
	"ROLE_ADMIN":           RoleAdmin,
	"ADMIN":                RoleAdmin,
	"ROLE_FINANCE_MANAGER": RoleFinanceManager,
	"FINANCE_MANAGER":      RoleFinanceManager,
	"ROLE_MANAGER":         RoleManager,
	"MANAGER":              RoleManager,
	"ROLE_EMPLOYEE":        RoleEmployee,
	"EMPLOYEE":             RoleEmployee,
}

// spellingsByLength lists the spellings longest first so that
// ROLE_FINANCE_MANAGER resolves before its MANAGER suffix does.
var spellingsByLength = func() []string {
	out := make([]string, 0, len(roleSpellings))
	for s := range roleSpellings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// ParseRole maps a raw role string to a single canonical role, the longest
// spelling it equals or contains
func ParseRole(raw string) (Role, bool) {
	roles := ParseRoles(raw)
	if len(roles) == 0 {
		return "", false
	}
	return roles[0], true
}

// ParseRoles maps a raw role string to every canonical role it names. A
// spelling counts when it equals or is contained in the value; text already
// matched by a longer spelling is not matched again, so ROLE_FINANCE_MANAGER
// does not also read as MANAGER while ROLE_MANAGER_ADMIN reads as both.
func ParseRoles(raw string) []Role {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if role, ok := roleSpellings[raw]; ok {
		return []Role{role}
	}

	var roles []Role
	seen := map[Role]bool{}
	rest := raw
	for _, spelling := range spellingsByLength {
		if !strings.Contains(rest, spelling) {
			continue
		}
		rest = strings.ReplaceAll(rest, spelling, "\x00")
		if role := roleSpellings[spelling]; !seen[role] {
			seen[role] = true
			roles = append(roles, role)
		}
	}
	return roles
}

// RoleSet is a set of canonical roles
type RoleSet map[Role]struct{}

// NewRoleSet maps raw role strings into canonical roles, skipping unknown ones
func NewRoleSet(raw []string) RoleSet {
	set := RoleSet{}
	for _, r := range raw {
		for _, role := range ParseRoles(r) {
			set[role] = struct{}{}
		}
	}
	return set
}

// Has reports whether any of roles is in the set
func (s RoleSet) Has(roles ...Role) bool {
	for _, r := range roles {
		if _, ok := s[r]; ok {
			return true
		}
	}
	return false
}

// Sorted returns the roles in a stable order
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// splitRoles normalizes a role claim: a comma-separated string or a list of
// strings. Anything else yields no roles.
func splitRoles(claim any) []string {
	var parts []string
	switch v := claim.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	default:
		return nil
	}

	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
