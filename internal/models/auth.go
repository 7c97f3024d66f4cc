package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is a global (non-tenant) identity.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	FullName     string         `json:"full_name"`
	Role         MembershipRole `json:"role"`
	Active       bool           `json:"active"`
	LastLogin    *time.Time     `json:"last_login,omitempty"`
	CreatedDate  time.Time      `json:"created_date"`
	UpdatedDate  time.Time      `json:"updated_date"`
}

// JWTClaims carries the caller identity plus the school selected at login.
type JWTClaims struct {
	UserID         string         `json:"uid"`
	Email          string         `json:"email"`
	Role           MembershipRole `json:"role"`
	ActiveSchoolID string         `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest is the credentials payload.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	SchoolID  string `json:"school_id"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// UserInfo is the public projection of a user.
type UserInfo struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	FullName string         `json:"full_name"`
	Role     MembershipRole `json:"role"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}
