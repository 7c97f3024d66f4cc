package models

import (
	"fmt"
	"strings"
	"time"
)

// OfferType enumerates the sellable shapes.
type OfferType string

const (
	OfferCourseType   OfferType = "COURSE"
	OfferBundle       OfferType = "BUNDLE"
	OfferSubscription OfferType = "SUBSCRIPTION"
	OfferAddon        OfferType = "ADDON"
)

// ParseOfferType converts a stored string into the closed enum.
func ParseOfferType(raw string) (OfferType, error) {
	switch OfferType(strings.ToUpper(strings.TrimSpace(raw))) {
	case OfferCourseType:
		return OfferCourseType, nil
	case OfferBundle:
		return OfferBundle, nil
	case OfferSubscription:
		return OfferSubscription, nil
	case OfferAddon:
		return OfferAddon, nil
	}
	return "", fmt.Errorf("unknown offer type %q", raw)
}

// AccessScope states which courses an offer unlocks.
type AccessScope string

const (
	ScopeSelectedCourses AccessScope = "SELECTED_COURSES"
	ScopeAllCourses      AccessScope = "ALL_COURSES"
)

// ParseAccessScope converts a stored string into the closed enum. An empty
// string resolves to SELECTED_COURSES, the original default.
func ParseAccessScope(raw string) (AccessScope, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return ScopeSelectedCourses, nil
	}
	switch AccessScope(trimmed) {
	case ScopeSelectedCourses:
		return ScopeSelectedCourses, nil
	case ScopeAllCourses:
		return ScopeAllCourses, nil
	}
	return "", fmt.Errorf("unknown access scope %q", raw)
}

// Offer is a school-scoped sellable unit.
type Offer struct {
	ID          string      `json:"id"`
	SchoolID    string      `json:"school_id"`
	Name        string      `json:"name"`
	OfferType   OfferType   `json:"offer_type"`
	AccessScope AccessScope `json:"access_scope"`
	PriceCents  int64       `json:"price_cents"`
	Active      bool        `json:"active"`
	CreatedDate time.Time   `json:"created_date"`
	UpdatedDate time.Time   `json:"updated_date"`
}

// Normalize canonicalises the stored enums against their closed sets.
func (o *Offer) Normalize() error {
	ot, err := ParseOfferType(string(o.OfferType))
	if err != nil {
		return err
	}
	o.OfferType = ot

	scope, err := ParseAccessScope(string(o.AccessScope))
	if err != nil {
		return err
	}
	o.AccessScope = scope
	return nil
}

// LicenseType resolves the license an ADDON offer grants: a copy license when
// the offer name mentions copying, otherwise a download license.
func (o Offer) LicenseType() EntitlementType {
	if strings.Contains(strings.ToLower(o.Name), "copy") {
		return EntitlementCopyLicense
	}
	return EntitlementDownloadLicense
}

// OfferCourse materialises which courses a bundle/selected-courses offer
// unlocks.
type OfferCourse struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id"`
	OfferID     string    `json:"offer_id"`
	CourseID    string    `json:"course_id"`
	CreatedDate time.Time `json:"created_date"`
}
