package models

import "time"

// AccessLevel is the resolved visibility of a content item for a caller.
type AccessLevel string

const (
	AccessFull       AccessLevel = "FULL"
	AccessPreview    AccessLevel = "PREVIEW"
	AccessLocked     AccessLevel = "LOCKED"
	AccessDripLocked AccessLevel = "DRIP_LOCKED"
)

// AccessDecision is the engine's verdict for one content item. UnlockAt is
// set only for DRIP_LOCKED.
type AccessDecision struct {
	Level           AccessLevel `json:"level"`
	HasCourseAccess bool        `json:"has_course_access"`
	UnlockAt        *time.Time  `json:"unlock_at,omitempty"`
}

// AuditLog is an append-only record of privileged actions. Write-only from the
// access-control core's perspective.
type AuditLog struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id,omitempty"`
	UserEmail   string    `json:"user_email,omitempty"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource"`
	ResourceID  string    `json:"resource_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

// Audit actions recorded by the core.
const (
	AuditActionLogin         = "LOGIN"
	AuditActionAdminRead     = "ADMIN_READ"
	AuditActionIssuance      = "ENTITLEMENT_ISSUED"
	AuditActionRedemption    = "COUPON_REDEEMED"
	AuditActionPolicyUpdated = "POLICY_UPDATED"
)
