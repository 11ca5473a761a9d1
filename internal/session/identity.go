package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Identity is the in-memory projection of a session token
type Identity struct {
	Username  string
	ID        int64
	HasID     bool
	RawRoles  []string
	Roles     RoleSet
	ExpiresAt time.Time
}

// CanApprove reports whether the identity may act on approvals
func (i *Identity) CanApprove() bool {
	return i != nil && i.Roles.Has(RoleAdmin, RoleManager, RoleFinanceManager)
}

// IsAdmin reports whether the identity holds the admin role
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Roles.Has(RoleAdmin)
}

// DecodeStatus classifies a decode attempt
type DecodeStatus int

const (
	// Absent means there was no token
	Absent DecodeStatus = iota
	// Valid means the payload decoded into an identity
	Valid
	// Malformed means a token was present but its payload could not be read
	Malformed
)

func (s DecodeStatus) String() string {
	switch s {
	case Valid:
		return "valid"
	case Malformed:
		return "malformed"
	default:
		return "absent"
	}
}

// DecodeResult is the outcome of Decode. Identity is set only when Valid;
// Err only when Malformed.
type DecodeResult struct {
	Status   DecodeStatus
	Identity *Identity
	Err      error
}

// Decode reads the token payload without verifying its signature or expiry.
// The backend remains the authority on both.
func Decode(token string) DecodeResult {
	if token == "" {
		return DecodeResult{Status: Absent}
	}

	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return DecodeResult{Status: Malformed, Err: err}
	}

	identity := &Identity{
		Username:  parsed.Subject(),
		ExpiresAt: parsed.Expiration(),
	}

	identity.ID, identity.HasID = numericClaim(parsed, "id")
	if !identity.HasID {
		identity.ID, identity.HasID = numericClaim(parsed, "userId")
	}

	identity.RawRoles = roleClaim(parsed)
	identity.Roles = NewRoleSet(identity.RawRoles)

	return DecodeResult{Status: Valid, Identity: identity}
}

// roleClaim reads "roles", falling back to "authorities" when roles is
// missing or empty
func roleClaim(token jwt.Token) []string {
	if v, ok := token.Get("roles"); ok {
		if roles := splitRoles(v); len(roles) > 0 {
			return roles
		}
	}
	if v, ok := token.Get("authorities"); ok {
		return splitRoles(v)
	}
	return []string{}
}

func numericClaim(token jwt.Token, name string) (int64, bool) {
	v, ok := token.Get(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
