package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"tripchat/tools/errs"
)

// User is the identity attached to an authenticated connection,
// hydrated with profile display fields for message sender snapshots.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type Users struct {
	pool *pgxpool.Pool
}

func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

// FindByID loads a user plus profile. Returns errs.ErrNotFound when
// the id resolves to nothing (e.g. a token for a deleted account).
func (u *Users) FindByID(ctx context.Context, id string) (*User, error) {
	const q = `
		SELECT u.id, u.email, u.username,
		       COALESCE(p.display_name, u.username),
		       COALESCE(p.avatar_url, '')
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`

	var out User
	err := u.pool.QueryRow(ctx, q, id).Scan(
		&out.ID, &out.Email, &out.Username, &out.DisplayName, &out.AvatarURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound.WithDetail("user " + id)
	}
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	return &out, nil
}
