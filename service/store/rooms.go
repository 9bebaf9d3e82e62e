package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"tripchat/tools/errs"
)

// Rooms reads trip-group membership. Membership itself is mutated by
// the CRUD backend's join/leave endpoints, never by the gateway.
type Rooms struct {
	pool *pgxpool.Pool
}

func NewRooms(pool *pgxpool.Pool) *Rooms {
	return &Rooms{pool: pool}
}

// Exists reports whether the room is known at all.
func (r *Rooms) Exists(ctx context.Context, roomID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, roomID).Scan(&ok); err != nil {
		return false, errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	return ok, nil
}

// IsMember reports whether the user belongs to the room.
func (r *Rooms) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, roomID, userID).Scan(&ok); err != nil {
		return false, errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	return ok, nil
}
