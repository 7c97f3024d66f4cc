package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

type stubUserRepo struct {
	user       *models.User
	findErr    error
	lastLogins []string
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, p tenancy.Principal, email string) (*models.User, error) {
	return r.user, r.findErr
}

func (r *stubUserRepo) UpdateLastLogin(ctx context.Context, p tenancy.Principal, id string, ts time.Time) error {
	r.lastLogins = append(r.lastLogins, id)
	return nil
}

type stubMembershipResolver struct {
	membership *models.Membership
}

func (r *stubMembershipResolver) Resolve(ctx context.Context, p tenancy.Principal, schoolID, email string) *models.Membership {
	return r.membership
}

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "breslov-academy"}
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "student@example.com",
		PasswordHash: string(hash),
		FullName:     "Nachman Student",
		Role:         models.RoleStudent,
		Active:       true,
	}
}

func TestLoginSuccess(t *testing.T) {
	users := &stubUserRepo{user: activeUser(t, "s0d-s0d")}
	svc := NewAuthService(users, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "s0d-s0d"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "student@example.com", resp.User.Email)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.Equal(t, []string{"u1"}, users.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "student@example.com", claims.Email)
	assert.Empty(t, claims.ActiveSchoolID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(&stubUserRepo{user: activeUser(t, "right")}, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "wrong"})
	assert.Error(t, err)
}

func TestLoginUnknownOrInactiveUser(t *testing.T) {
	// Unknown user: repo returns nil without error.
	svc := NewAuthService(&stubUserRepo{}, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.Error(t, err)

	inactive := activeUser(t, "pw")
	inactive.Active = false
	svc = NewAuthService(&stubUserRepo{user: inactive}, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw"})
	assert.Error(t, err)
}

func TestLoginInvalidPayload(t *testing.T) {
	svc := NewAuthService(&stubUserRepo{}, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com"})
	assert.Error(t, err)
}

func TestLoginSchoolSelectionTakesMembershipRole(t *testing.T) {
	users := &stubUserRepo{user: activeUser(t, "pw")}
	memberships := &stubMembershipResolver{membership: &models.Membership{
		SchoolID:  "s1",
		UserEmail: "student@example.com",
		Role:      models.RoleTeacher,
	}}
	svc := NewAuthService(users, memberships, nil, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw", SchoolID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.ActiveSchoolID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestLoginSchoolWithoutMembershipDenied(t *testing.T) {
	svc := NewAuthService(&stubUserRepo{user: activeUser(t, "pw")}, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw", SchoolID: "s1"})
	assert.Error(t, err)
}

func TestLoginSuperAdminKeepsPlatformRole(t *testing.T) {
	operator := activeUser(t, "pw")
	operator.Role = models.RoleSuperAdmin
	// No membership anywhere: the platform role alone opens the school.
	svc := NewAuthService(&stubUserRepo{user: operator}, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw", SchoolID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "s2", claims.ActiveSchoolID)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
}

func TestLoginSchoolOwnerRoleStaysTenantScoped(t *testing.T) {
	users := &stubUserRepo{user: activeUser(t, "pw")}
	memberships := &stubMembershipResolver{membership: &models.Membership{
		SchoolID:  "s1",
		UserEmail: "student@example.com",
		Role:      models.RoleOwner,
	}}
	svc := NewAuthService(users, memberships, nil, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw", SchoolID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, resp.User.Role)
	assert.False(t, resp.User.Role.IsSuperAdmin())
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(&stubUserRepo{user: activeUser(t, "pw")}, &stubMembershipResolver{}, nil, nil, nil, testAuthConfig())
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	assert.Error(t, err)

	// Token signed with a different secret.
	other := NewAuthService(&stubUserRepo{user: activeUser(t, "pw")}, &stubMembershipResolver{}, nil, nil, nil,
		AuthConfig{Secret: "other-secret", Expiration: time.Hour})
	foreign, err := other.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign.AccessToken)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Expiration = -time.Hour
	svc := NewAuthService(&stubUserRepo{user: activeUser(t, "pw")}, &stubMembershipResolver{}, nil, nil, nil, cfg)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}
