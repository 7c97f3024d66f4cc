package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

type policyRepository interface {
	FindBySchool(ctx context.Context, p tenancy.Principal, schoolID string) (*models.ContentProtectionPolicy, error)
}

type policyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PolicyDefaults overrides the built-in fallback policy from configuration.
// Zero values keep the hard-coded defaults.
type PolicyDefaults struct {
	DisablePreviews   bool
	MaxPreviewSeconds int
	MaxPreviewChars   int
}

// PolicyService resolves a school's content protection policy with a
// configurable fallback and an optional Redis cache.
type PolicyService struct {
	repo     policyRepository
	cache    policyCache
	defaults PolicyDefaults
	cacheTTL time.Duration
	enabled  bool
	logger   *zap.Logger
}

// NewPolicyService constructs the resolver. cache may be nil.
func NewPolicyService(repo policyRepository, cache policyCache, defaults PolicyDefaults, cacheTTL time.Duration, cacheEnabled bool, logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PolicyService{repo: repo, cache: cache, defaults: defaults, cacheTTL: cacheTTL, enabled: cacheEnabled && cache != nil, logger: logger}
}

// fallback is the policy used when a school has no row, tuned by the content
// configuration.
func (s *PolicyService) fallback(schoolID string) models.ContentProtectionPolicy {
	policy := models.DefaultProtectionPolicy(schoolID)
	if s.defaults.DisablePreviews {
		policy.AllowPreviews = false
	}
	if s.defaults.MaxPreviewSeconds > 0 {
		policy.MaxPreviewSeconds = s.defaults.MaxPreviewSeconds
	}
	if s.defaults.MaxPreviewChars > 0 {
		policy.MaxPreviewChars = s.defaults.MaxPreviewChars
	}
	return policy
}

func policyCacheKey(schoolID string) string {
	return fmt.Sprintf("policy:%s", schoolID)
}

// Resolve returns the school's policy, or the fixed default when no row
// exists. Read failures degrade to the default: the core prefers
// under-delivering content over failing a read path.
func (s *PolicyService) Resolve(ctx context.Context, p tenancy.Principal, schoolID string) models.ContentProtectionPolicy {
	if schoolID == "" {
		return s.fallback(schoolID)
	}

	if s.enabled {
		var cached models.ContentProtectionPolicy
		if err := s.cache.Get(ctx, policyCacheKey(schoolID), &cached); err == nil {
			return cached
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("policy cache get failed", zap.String("school_id", schoolID), zap.Error(err))
		}
	}

	policy, err := s.repo.FindBySchool(ctx, p, schoolID)
	if err != nil {
		s.logger.Warn("policy lookup failed, using default", zap.String("school_id", schoolID), zap.Error(err))
		return s.fallback(schoolID)
	}
	resolved := s.fallback(schoolID)
	if policy != nil {
		resolved = *policy
	}

	if s.enabled {
		if err := s.cache.Set(ctx, policyCacheKey(schoolID), resolved, s.cacheTTL); err != nil {
			s.logger.Warn("policy cache set failed", zap.String("school_id", schoolID), zap.Error(err))
		}
	}
	return resolved
}

// Invalidate drops the cached policy after an admin edit.
func (s *PolicyService) Invalidate(ctx context.Context, schoolID string) {
	if !s.enabled {
		return
	}
	if err := s.cache.Delete(ctx, policyCacheKey(schoolID)); err != nil {
		s.logger.Warn("policy cache invalidate failed", zap.String("school_id", schoolID), zap.Error(err))
	}
}
