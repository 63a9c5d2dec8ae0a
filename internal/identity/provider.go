// Package identity resolves the owner id every record is scoped to.
package identity

import (
	"context"

	"caixa/internal/core"
)

// Provider yields the current owner id, or core.ErrNotAuthenticated
// when no owner is available.
type Provider interface {
	CurrentOwner(ctx context.Context) (string, error)
}

// Static always returns the same owner id. Used by the single-user
// binaries and by tests.
type Static struct {
	Owner string
}

func NewStatic(owner string) Static {
	return Static{Owner: owner}
}

func (s Static) CurrentOwner(ctx context.Context) (string, error) {
	if s.Owner == "" {
		return "", core.ErrNotAuthenticated
	}
	return s.Owner, nil
}

type ctxKey struct{}

// WithOwner stores an owner id on the context.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// FromContext resolves the owner from the context, for callers that
// authenticate per request rather than per process.
type FromContext struct{}

func (FromContext) CurrentOwner(ctx context.Context) (string, error) {
	owner, ok := ctx.Value(ctxKey{}).(string)
	if !ok || owner == "" {
		return "", core.ErrNotAuthenticated
	}
	return owner, nil
}
