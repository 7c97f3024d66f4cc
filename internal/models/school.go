package models

import "time"

// School is the tenant root. Every scoped entity carries its id as school_id.
type School struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	IsPublic    bool      `json:"is_public"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
}

// MembershipRole enumerates per-school roles.
type MembershipRole string

const (
	RoleOwner      MembershipRole = "OWNER"
	RoleAdmin      MembershipRole = "ADMIN"
	RoleInstructor MembershipRole = "INSTRUCTOR"
	RoleTeacher    MembershipRole = "TEACHER"
	RoleTA         MembershipRole = "TA"
	RoleRav        MembershipRole = "RAV"
	RoleRabbi      MembershipRole = "RABBI"
	RoleModerator  MembershipRole = "MODERATOR"
	RoleStudent    MembershipRole = "STUDENT"
)

// RoleSuperAdmin is the platform operator role. It lives on User.Role only
// and is never assigned through a school membership: a school's OWNER or
// ADMIN administers that school, not the platform.
const RoleSuperAdmin MembershipRole = "SUPERADMIN"

// staffRoles is the closed set of roles exempt from content gating.
var staffRoles = map[MembershipRole]struct{}{
	RoleOwner:      {},
	RoleAdmin:      {},
	RoleInstructor: {},
	RoleTeacher:    {},
	RoleTA:         {},
	RoleRav:        {},
	RoleRabbi:      {},
	RoleModerator:  {},
}

// superAdminRoles is the fixed set passing the global-admin predicate. Only
// the platform role qualifies: per-school roles never escape their tenant.
var superAdminRoles = map[MembershipRole]struct{}{
	RoleSuperAdmin: {},
}

// IsStaff reports whether the role bypasses entitlement gating.
func (r MembershipRole) IsStaff() bool {
	_, ok := staffRoles[r]
	return ok
}

// IsSuperAdmin reports whether the role belongs to the fixed superadmin set.
func (r MembershipRole) IsSuperAdmin() bool {
	_, ok := superAdminRoles[r]
	return ok
}

// Membership links a user email to a school with a role. Unique per
// (school, user).
type Membership struct {
	ID          string         `json:"id"`
	SchoolID    string         `json:"school_id"`
	UserEmail   string         `json:"user_email"`
	Role        MembershipRole `json:"role"`
	CreatedDate time.Time      `json:"created_date"`
	UpdatedDate time.Time      `json:"updated_date"`
}
