package service

import (
	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
)

// bodyFields are the payload fields that carry protected content. Everything
// else is metadata and stays visible so catalog UIs can render locked rows.
var bodyFields = []string{
	"content",
	"content_json",
	"content_text",
	"text",
	"body",
	"video_url",
	"audio_url",
}

// previewEllipsis marks a truncated preview body.
const previewEllipsis = "..."

// SanitizeRecord applies a resolved access level to a raw content payload
// before it leaves the system boundary. FULL passes through, PREVIEW
// truncates body strings, LOCKED and DRIP_LOCKED null them out.
func SanitizeRecord(rec store.Record, level models.AccessLevel, policy models.ContentProtectionPolicy, requestedChars int) store.Record {
	if rec == nil {
		return nil
	}
	switch level {
	case models.AccessFull:
		return rec
	case models.AccessPreview:
		out := copyRecord(rec)
		limit := previewLimit(policy, requestedChars)
		for _, field := range bodyFields {
			if val, ok := out[field].(string); ok {
				out[field] = truncate(val, limit)
			}
		}
		return out
	default:
		out := copyRecord(rec)
		for _, field := range bodyFields {
			if _, ok := out[field]; ok {
				out[field] = nil
			}
		}
		return out
	}
}

// previewLimit caps the requested preview length at the policy ceiling. The
// policy always wins: a caller cannot request more characters than the school
// allows.
func previewLimit(policy models.ContentProtectionPolicy, requestedChars int) int {
	limit := policy.MaxPreviewChars
	if limit <= 0 {
		limit = models.DefaultProtectionPolicy("").MaxPreviewChars
	}
	if requestedChars > 0 && requestedChars < limit {
		limit = requestedChars
	}
	return limit
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + previewEllipsis
}

// forcedFields are always included by the projection helper regardless of the
// requested field list.
var forcedFields = []string{store.FieldID, store.FieldSchoolID, store.FieldUserEmail}

// ProjectFields restricts a record to an explicit allow-list for public and
// anonymous endpoints, force-including identity and tenancy keys. Body fields
// that survive projection are truncated to the policy ceiling independently of
// SanitizeRecord.
func ProjectFields(rec store.Record, allow []string, policy models.ContentProtectionPolicy) store.Record {
	if rec == nil {
		return nil
	}
	out := make(store.Record, len(allow)+len(forcedFields))
	for _, field := range allow {
		if val, ok := rec[field]; ok {
			out[field] = val
		}
	}
	for _, field := range forcedFields {
		if val, ok := rec[field]; ok {
			out[field] = val
		}
	}
	limit := previewLimit(policy, 0)
	for _, field := range bodyFields {
		if val, ok := out[field].(string); ok {
			out[field] = truncate(val, limit)
		}
	}
	return out
}

func copyRecord(rec store.Record) store.Record {
	out := make(store.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
