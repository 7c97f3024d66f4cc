package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

// userRecord carries the password hash which the public User model never
// serialises.
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

// UserRepository reads global user identities.
type UserRepository struct {
	store *tenancy.GuardedStore
}

// NewUserRepository constructs the repository.
func NewUserRepository(gs *tenancy.GuardedStore) *UserRepository {
	return &UserRepository{store: gs}
}

// FindByEmail returns a user by email, or nil when absent.
func (r *UserRepository) FindByEmail(ctx context.Context, p tenancy.Principal, email string) (*models.User, error) {
	records, err := r.store.List(ctx, p, models.EntityUser, store.Query{
		Filter: store.Record{"email": email},
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	var rec userRecord
	if err := decodeRecord(records[0], &rec); err != nil {
		return nil, err
	}
	user := rec.User
	user.PasswordHash = rec.PasswordHash
	return &user, nil
}

// UpdateLastLogin stamps the login time. Failures are non-fatal for login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, p tenancy.Principal, id string, ts time.Time) error {
	_, err := r.store.Update(ctx, p, models.EntityUser, id, store.Record{
		"last_login": ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
