package auth

import (
	"context"

	"tripchat/service/chat"
	"tripchat/service/store"
	"tripchat/tools/errs"
	"tripchat/tools/security"
)

// Verifier turns an opaque JWT into a hydrated user identity: HMAC
// signature check first, then a user lookup so tokens for deleted
// accounts die at the door.
type Verifier struct {
	opts  security.Options
	users *store.Users
}

func NewVerifier(secret []byte, alg string, users *store.Users) *Verifier {
	opts := security.DefaultOptions(secret)
	if alg != "" {
		opts.Alg = alg
	}
	return &Verifier{opts: opts, users: users}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*chat.Identity, error) {
	sub, err := security.Verify(v.opts, token)
	if err != nil {
		return nil, errs.ErrAuthFailed.WithDetail(err.Error())
	}
	u, err := v.users.FindByID(ctx, sub)
	if err != nil {
		if errs.ErrNotFound.Is(err) {
			return nil, errs.ErrAuthFailed.WithDetail("user not found")
		}
		return nil, err
	}
	return &chat.Identity{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}, nil
}
