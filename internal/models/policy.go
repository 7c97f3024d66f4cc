package models

import (
	"fmt"
	"strings"
	"time"
)

// AddonMode controls whether copy/download capabilities are sold separately,
// bundled with access, or unavailable.
type AddonMode string

const (
	AddonDisallow           AddonMode = "DISALLOW"
	AddonIncludedWithAccess AddonMode = "INCLUDED_WITH_ACCESS"
	AddonAddon              AddonMode = "ADDON"
)

// ParseAddonMode converts a stored string into the closed enum.
func ParseAddonMode(raw string) (AddonMode, error) {
	switch AddonMode(strings.ToUpper(strings.TrimSpace(raw))) {
	case AddonDisallow:
		return AddonDisallow, nil
	case AddonIncludedWithAccess:
		return AddonIncludedWithAccess, nil
	case AddonAddon:
		return AddonAddon, nil
	}
	return "", fmt.Errorf("unknown addon mode %q", raw)
}

// ContentProtectionPolicy is the per-school singleton controlling previews and
// copy/download behaviour.
type ContentProtectionPolicy struct {
	ID                string    `json:"id"`
	SchoolID          string    `json:"school_id"`
	AllowPreviews     bool      `json:"allow_previews"`
	MaxPreviewSeconds int       `json:"max_preview_seconds"`
	MaxPreviewChars   int       `json:"max_preview_chars"`
	CopyMode          AddonMode `json:"copy_mode"`
	DownloadMode      AddonMode `json:"download_mode"`
	CreatedDate       time.Time `json:"created_date"`
	UpdatedDate       time.Time `json:"updated_date"`
}

// Normalize canonicalises the stored addon modes. Rows written before a mode
// existed carry an empty string, which resolves to DISALLOW; anything else
// outside the closed set is a decode error.
func (p *ContentProtectionPolicy) Normalize() error {
	for _, mode := range []*AddonMode{&p.CopyMode, &p.DownloadMode} {
		if *mode == "" {
			*mode = AddonDisallow
			continue
		}
		m, err := ParseAddonMode(string(*mode))
		if err != nil {
			return err
		}
		*mode = m
	}
	return nil
}

// DefaultProtectionPolicy is the hard-coded fallback used when a school has no
// policy row: previews allowed, 90 seconds / 1500 characters, no copy or
// download add-ons.
func DefaultProtectionPolicy(schoolID string) ContentProtectionPolicy {
	return ContentProtectionPolicy{
		SchoolID:          schoolID,
		AllowPreviews:     true,
		MaxPreviewSeconds: 90,
		MaxPreviewChars:   1500,
		CopyMode:          AddonDisallow,
		DownloadMode:      AddonDisallow,
	}
}
