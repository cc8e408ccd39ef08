package auth

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Principal identifies the user on whose behalf store operations run. The
// core never manages credentials itself, it only forwards what the provider
// hands out.
type Principal struct {
	UserID string
}

// Provider is the external auth collaborator. Principal returns
// ErrNotAuthenticated when no user is signed in; AccessToken may return an
// empty token for backends that do not require one.
type Provider interface {
	Principal(ctx context.Context) (Principal, error)
	AccessToken(ctx context.Context) (string, error)
}

// StaticProvider serves a fixed principal and token. Used by the CLI and by
// tests.
type StaticProvider struct {
	UserID string
	Token  string
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(userID string, token string) *StaticProvider {
	return &StaticProvider{UserID: userID, Token: token}
}

func (p *StaticProvider) Principal(ctx context.Context) (Principal, error) {
	if p == nil || p.UserID == "" {
		return Principal{}, ErrNotAuthenticated
	}
	return Principal{UserID: p.UserID}, nil
}

func (p *StaticProvider) AccessToken(ctx context.Context) (string, error) {
	if p == nil {
		return "", ErrNotAuthenticated
	}
	return p.Token, nil
}
