package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, p tenancy.Principal, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, p tenancy.Principal, id string, ts time.Time) error
}

type authMembershipResolver interface {
	Resolve(ctx context.Context, p tenancy.Principal, schoolID, email string) *models.Membership
}

// AuthConfig defines token issuance settings.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService authenticates users and mints the access tokens the tenancy
// layer builds principals from.
type AuthService struct {
	users       authUserRepository
	memberships authMembershipResolver
	audit       auditWriter
	validator   *validator.Validate
	logger      *zap.Logger
	config      AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, memberships authMembershipResolver, audit auditWriter, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:       users,
		memberships: memberships,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// Login authenticates credentials and returns a signed token. A school_id in
// the request selects the active school for the session; it must match one of
// the user's memberships.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, appErrors.ErrInvalidPayload.Status, "invalid login payload")
	}

	// Users are global entities; the login principal is the claimed identity.
	principal := tenancy.Principal{Email: req.Email}

	user, err := s.users.FindByEmail(ctx, principal, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user == nil || !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	// Platform superadmins keep their platform role and may operate in any
	// school; everyone else takes the role their membership assigns.
	role := user.Role
	if req.SchoolID != "" && !user.Role.IsSuperAdmin() {
		membership := s.memberships.Resolve(ctx, principal, req.SchoolID, user.Email)
		if membership == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no membership in the selected school")
		}
		role = membership.Role
	}

	now := time.Now().UTC()
	token, err := s.generateAccessToken(user, role, req.SchoolID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.users.UpdateLastLogin(ctx, principal, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, principal, &models.AuditLog{
			SchoolID:   req.SchoolID,
			UserEmail:  user.Email,
			Action:     models.AuditActionLogin,
			Resource:   "auth",
			ResourceID: user.ID,
			IPAddress:  req.IP,
			UserAgent:  req.UserAgent,
		}); err != nil {
			s.logger.Warn("failed to record login audit log", zap.Error(err))
		}
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Expiration.Seconds()),
		IssuedAt:    now,
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     role,
		},
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAuthRequired.Code, appErrors.ErrAuthRequired.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrAuthRequired, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User, role models.MembershipRole, schoolID string, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           role,
		ActiveSchoolID: schoolID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}
