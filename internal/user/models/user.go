package models

import "time"

// Role is the closed set of user roles. String values are stored verbatim in
// the users table and embedded in access token claims.
type Role string

const (
	RoleRoot         Role = "ROOT"
	RoleGestaoDados  Role = "GESTAO_DADOS"
	RoleVisualizacao Role = "VISUALIZACAO"
)

// Tier is the ordered permission level derived from a role.
// TierViewer < TierManager < TierAdmin.
type Tier int

const (
	TierViewer Tier = iota
	TierManager
	TierAdmin
)

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleRoot, RoleGestaoDados, RoleVisualizacao:
		return true
	}
	return false
}

// Tier maps a role onto the ordered permission ladder. Unknown roles map to
// the lowest tier so a corrupted claim can never widen access.
func (r Role) Tier() Tier {
	switch r {
	case RoleRoot:
		return TierAdmin
	case RoleGestaoDados:
		return TierManager
	default:
		return TierViewer
	}
}

// AtLeast reports whether the role satisfies the required tier. ROOT is a
// superset of every lower tier, not a disjoint role.
func (r Role) AtLeast(required Tier) bool {
	return r.Tier() >= required
}

// User is the primary identity record. Deactivation is a soft delete: the row
// stays so historical audit entries keep a valid actor reference.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}
