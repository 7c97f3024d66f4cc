package models

import (
	"fmt"
	"strings"
	"time"
)

// EntitlementType enumerates the kinds of grants the issuer produces.
type EntitlementType string

const (
	EntitlementCourse          EntitlementType = "COURSE"
	EntitlementAllCourses      EntitlementType = "ALL_COURSES"
	EntitlementCopyLicense     EntitlementType = "COPY_LICENSE"
	EntitlementDownloadLicense EntitlementType = "DOWNLOAD_LICENSE"
)

// ParseEntitlementType converts a stored string into the closed enum.
func ParseEntitlementType(raw string) (EntitlementType, error) {
	switch EntitlementType(strings.ToUpper(strings.TrimSpace(raw))) {
	case EntitlementCourse:
		return EntitlementCourse, nil
	case EntitlementAllCourses:
		return EntitlementAllCourses, nil
	case EntitlementCopyLicense:
		return EntitlementCopyLicense, nil
	case EntitlementDownloadLicense:
		return EntitlementDownloadLicense, nil
	}
	return "", fmt.Errorf("unknown entitlement type %q", raw)
}

// EntitlementStatus is the lifecycle state of a grant. Grants are never
// physically deleted; they are revoked or expire by time window.
type EntitlementStatus string

const (
	EntitlementActive  EntitlementStatus = "active"
	EntitlementRevoked EntitlementStatus = "revoked"
)

// EntitlementSource records what produced a grant.
type EntitlementSource string

const (
	SourcePurchase EntitlementSource = "PURCHASE"
	SourceWebhook  EntitlementSource = "WEBHOOK"
	SourceManual   EntitlementSource = "MANUAL"
)

// Entitlement is a school-scoped, time-bounded grant of access.
type Entitlement struct {
	ID          string            `json:"id"`
	SchoolID    string            `json:"school_id"`
	UserEmail   string            `json:"user_email"`
	Type        EntitlementType   `json:"type"`
	CourseID    string            `json:"course_id,omitempty"`
	StartsAt    *time.Time        `json:"starts_at"`
	EndsAt      *time.Time        `json:"ends_at"`
	Status      EntitlementStatus `json:"status"`
	Source      EntitlementSource `json:"source"`
	SourceID    string            `json:"source_id"`
	CreatedDate time.Time         `json:"created_date"`
	UpdatedDate time.Time         `json:"updated_date"`
}

// IsActive is the single source of truth for "is this grant in effect right
// now": not revoked, started (or no start), and not yet ended (end exclusive).
func (e Entitlement) IsActive(now time.Time) bool {
	if e.Status == EntitlementRevoked {
		return false
	}
	if e.StartsAt != nil && e.StartsAt.After(now) {
		return false
	}
	if e.EndsAt != nil && !e.EndsAt.After(now) {
		return false
	}
	return true
}

// GrantedAt returns the moment the grant took effect, preferring starts_at and
// falling back to the record creation time. Used to compute drip enrollment
// dates.
func (e Entitlement) GrantedAt() time.Time {
	if e.StartsAt != nil {
		return *e.StartsAt
	}
	return e.CreatedDate
}

// Normalize canonicalises the stored type against the closed enum. An
// unknown value is an explicit decode error, never a silently-false
// comparison.
func (e *Entitlement) Normalize() error {
	t, err := ParseEntitlementType(string(e.Type))
	if err != nil {
		return err
	}
	e.Type = t
	return nil
}
