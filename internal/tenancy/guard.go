// Package tenancy centralises tenant isolation: one canonical rule table
// classifying every entity type, one guard that scopes every read and write
// against it. Both the HTTP boundary and internal services go through this
// package, so the scoping rules cannot drift between layers.
package tenancy

import (
	"strings"

	"go.uber.org/zap"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

// Principal identifies the caller of a guarded operation.
type Principal struct {
	UserID         string
	Email          string
	Role           models.MembershipRole
	ActiveSchoolID string
}

// Known reports whether the caller identity has been established. During cold
// start (before login completes) it is legitimately unknown.
func (p Principal) Known() bool {
	return p.UserID != "" || p.Email != ""
}

// Classification of an entity type in the rule table.
type Classification int

const (
	// ScopedTenant rows carry school_id and are invisible across tenants.
	ScopedTenant Classification = iota
	// ScopedGlobal rows (schools themselves, users) have no tenant axis.
	ScopedGlobal
	// ScopedSelf rows are tenant-scoped but may be read across tenants by
	// their own user before a school is selected (bootstrap lookups).
	ScopedSelf
)

// ruleTable is the single canonical classification of entity types. Types not
// listed default to ScopedTenant: an unknown entity never leaks across
// tenants.
var ruleTable = map[string]Classification{
	models.EntitySchool:           ScopedGlobal,
	models.EntityUser:             ScopedGlobal,
	models.EntityMembership:       ScopedSelf,
	models.EntityUserPreference:   ScopedSelf,
	models.EntityProtectionPolicy: ScopedTenant,
	models.EntityCourse:           ScopedTenant,
	models.EntityLesson:           ScopedTenant,
	models.EntityQuiz:             ScopedTenant,
	models.EntityQuizQuestion:     ScopedTenant,
	models.EntityEntitlement:      ScopedTenant,
	models.EntityOffer:            ScopedTenant,
	models.EntityOfferCourse:      ScopedTenant,
	models.EntityCoupon:           ScopedTenant,
	models.EntityCouponRedemption: ScopedTenant,
	models.EntityTransaction:      ScopedTenant,
	models.EntityAuditLog:         ScopedTenant,
}

// Classify returns the rule-table entry for an entity type, defaulting to
// tenant-scoped.
func Classify(entityType string) Classification {
	if c, ok := ruleTable[entityType]; ok {
		return c
	}
	return ScopedTenant
}

// Config carries the global-admin predicate inputs.
type Config struct {
	DevUserID         string
	AdminEmails       []string
	AdminRoleOverride string
	LogSize           int
}

// MetricsRecorder receives one call per guard intervention.
type MetricsRecorder interface {
	GuardIntervention(kind string)
}

// Guard applies the rule table to reads and writes.
type Guard struct {
	cfg         Config
	adminEmails map[string]struct{}
	log         *diagnosticLog
	logger      *zap.Logger
	metrics     MetricsRecorder
}

// NewGuard constructs a Guard. logger and metrics may be nil.
func NewGuard(cfg Config, logger *zap.Logger, metrics MetricsRecorder) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	emails := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		emails[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &Guard{
		cfg:         cfg,
		adminEmails: emails,
		log:         newDiagnosticLog(cfg.LogSize),
		logger:      logger,
		metrics:     metrics,
	}
}

// IsGlobalAdmin evaluates the global-admin predicate: the designated dev/test
// identity, a fixed superadmin role set, an email allow-list, or a configured
// role override.
func (g *Guard) IsGlobalAdmin(p Principal) bool {
	if g.cfg.DevUserID != "" && p.UserID == g.cfg.DevUserID {
		return true
	}
	if p.Role.IsSuperAdmin() {
		return true
	}
	if _, ok := g.adminEmails[strings.ToLower(p.Email)]; ok && p.Email != "" {
		return true
	}
	if g.cfg.AdminRoleOverride != "" && strings.EqualFold(string(p.Role), g.cfg.AdminRoleOverride) {
		return true
	}
	return false
}

// ReadDecision is the outcome of scoping a read. When Allowed is false the
// caller must return an empty result set rather than an error, so catalog UIs
// stay resilient.
type ReadDecision struct {
	Allowed bool
	Filter  store.Record
	Reason  string
}

// ScopeRead produces filters safe to execute for the caller, coercing or
// blocking per the rule table. It never returns an error: blocked reads read
// as empty.
func (g *Guard) ScopeRead(entityType string, filter store.Record, p Principal) ReadDecision {
	if filter == nil {
		filter = store.Record{}
	}
	switch Classify(entityType) {
	case ScopedGlobal:
		return ReadDecision{Allowed: true, Filter: filter}
	case ScopedSelf:
		if d, ok := g.selfScopedRead(entityType, filter, p); ok {
			return d
		}
	}
	return g.tenantScopedRead(entityType, filter, p)
}

// selfScopedRead allows cross-tenant bootstrap lookups ("my memberships")
// when the filter targets the caller's own email, or the identity is not yet
// known.
func (g *Guard) selfScopedRead(entityType string, filter store.Record, p Principal) (ReadDecision, bool) {
	email, _ := filter[store.FieldUserEmail].(string)
	if email == "" {
		return ReadDecision{}, false
	}
	if !p.Known() || strings.EqualFold(email, p.Email) {
		return ReadDecision{Allowed: true, Filter: filter}, true
	}
	// Asking for someone else's rows falls through to tenant scoping.
	return ReadDecision{}, false
}

func (g *Guard) tenantScopedRead(entityType string, filter store.Record, p Principal) ReadDecision {
	explicit, isPlain := filter[store.FieldSchoolID].(string)
	_, present := filter[store.FieldSchoolID]

	switch {
	case present && isPlain && explicit != "":
		if explicit == p.ActiveSchoolID || g.IsGlobalAdmin(p) {
			return ReadDecision{Allowed: true, Filter: filter}
		}
		if p.ActiveSchoolID == "" {
			g.intervene(kindBlockedRead, entityType, "foreign school filter with no active school")
			return ReadDecision{Reason: "no active school to scope read"}
		}
		coerced := cloneFilter(filter)
		coerced[store.FieldSchoolID] = p.ActiveSchoolID
		g.intervene(kindCoercedRead, entityType, "foreign school filter overridden to active school")
		return ReadDecision{Allowed: true, Filter: coerced}

	case present && !isPlain:
		// Operator maps ($in, $ne) on the tenant key are never trusted.
		if g.IsGlobalAdmin(p) {
			return ReadDecision{Allowed: true, Filter: filter}
		}
		if p.ActiveSchoolID == "" {
			g.intervene(kindBlockedRead, entityType, "operator filter on school id with no active school")
			return ReadDecision{Reason: "no active school to scope read"}
		}
		coerced := cloneFilter(filter)
		coerced[store.FieldSchoolID] = p.ActiveSchoolID
		g.intervene(kindCoercedRead, entityType, "operator filter on school id overridden")
		return ReadDecision{Allowed: true, Filter: coerced}

	default:
		if p.ActiveSchoolID != "" {
			scoped := cloneFilter(filter)
			scoped[store.FieldSchoolID] = p.ActiveSchoolID
			return ReadDecision{Allowed: true, Filter: scoped}
		}
		g.intervene(kindBlockedRead, entityType, "no school id available for read")
		return ReadDecision{Reason: "no school id available"}
	}
}

// ScopeWrite injects the active school into a create payload when absent.
// Writes with no resolvable tenant fail hard: silently dropping scope on a
// write is worse than rejecting it.
func (g *Guard) ScopeWrite(entityType string, payload store.Record, p Principal) (store.Record, error) {
	if Classify(entityType) == ScopedGlobal {
		return payload, nil
	}
	if payload == nil {
		payload = store.Record{}
	}
	explicit, _ := payload[store.FieldSchoolID].(string)

	switch {
	case explicit != "" && p.ActiveSchoolID != "" && explicit != p.ActiveSchoolID && !g.IsGlobalAdmin(p):
		coerced := cloneFilter(payload)
		coerced[store.FieldSchoolID] = p.ActiveSchoolID
		g.intervene(kindCoercedWrite, entityType, "foreign school id on create overridden")
		return coerced, nil
	case explicit != "":
		return payload, nil
	case p.ActiveSchoolID != "":
		scoped := cloneFilter(payload)
		scoped[store.FieldSchoolID] = p.ActiveSchoolID
		return scoped, nil
	default:
		g.intervene(kindBlockedWrite, entityType, "create with no school scope")
		return nil, appErrors.Clone(appErrors.ErrScopeRequired, "cannot create "+entityType+" without a school scope")
	}
}

// AuthorizeAdmin re-checks the global-admin predicate at call time for the
// explicit escape-hatch operations.
func (g *Guard) AuthorizeAdmin(p Principal) error {
	if g.IsGlobalAdmin(p) {
		return nil
	}
	g.intervene(kindBlockedAdmin, "", "global escape hatch denied")
	return appErrors.Clone(appErrors.ErrForbidden, "global administrator access required")
}

// Interventions returns a snapshot of recent guard interventions.
func (g *Guard) Interventions() []Intervention {
	return g.log.snapshot()
}

func (g *Guard) intervene(kind, entityType, detail string) {
	g.log.record(kind, entityType, detail)
	g.logger.Warn("tenancy guard intervention",
		zap.String("kind", kind),
		zap.String("entity_type", entityType),
		zap.String("detail", detail),
	)
	if g.metrics != nil {
		g.metrics.GuardIntervention(kind)
	}
}

func cloneFilter(filter store.Record) store.Record {
	out := make(store.Record, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	return out
}
