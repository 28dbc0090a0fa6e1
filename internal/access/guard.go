// Package access decides whether a caller may act on resources owned by another account.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Forbidden Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "forbidden"
}

// UserFinder resolves account records by id.
type UserFinder interface {
	FindUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Guard applies the self-or-privileged rule.
type Guard struct {
	users UserFinder
}

func NewGuard(users UserFinder) *Guard {
	return &Guard{users: users}
}

// Authorize returns Allowed when the caller is privileged or owns ownerID.
// An unknown owner is Forbidden. Directory failures are returned as errors.
func (g *Guard) Authorize(ctx context.Context, caller model.Identity, ownerID uuid.UUID) (Decision, error) {
	if caller.IsPrivileged() {
		return Allowed, nil
	}
	if caller.ID == uuid.Nil && caller.Email == "" {
		return Forbidden, nil
	}
	owner, err := g.users.FindUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Forbidden, nil
		}
		return Forbidden, fmt.Errorf("failed to resolve owner %s: %w", ownerID, err)
	}
	return decide(caller, owner), nil
}

func decide(caller model.Identity, owner *model.User) Decision {
	if caller.IsPrivileged() || owner.ID == caller.ID {
		return Allowed
	}
	if caller.Email != "" && strings.EqualFold(owner.Email, caller.Email) {
		return Allowed
	}
	return Forbidden
}

// Require is Authorize that turns a Forbidden decision into ErrForbidden.
func (g *Guard) Require(ctx context.Context, caller model.Identity, ownerID uuid.UUID) error {
	decision, err := g.Authorize(ctx, caller, ownerID)
	if err != nil {
		return err
	}
	if decision != Allowed {
		return fmt.Errorf("caller %s may not access resources of %s: %w", caller.ID, ownerID, apperrors.ErrForbidden)
	}
	return nil
}

// RequireExisting resolves ownerID first and then applies Require's rule.
// An unknown owner is ErrUserNotFound for every caller.
func (g *Guard) RequireExisting(ctx context.Context, caller model.Identity, ownerID uuid.UUID) error {
	owner, err := g.users.FindUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to resolve owner %s: %w", ownerID, err)
	}
	if decide(caller, owner) != Allowed {
		return fmt.Errorf("caller %s may not access resources of %s: %w", caller.ID, ownerID, apperrors.ErrForbidden)
	}
	return nil
}

// RequirePrivileged guards operations reserved to privileged callers.
func RequirePrivileged(caller model.Identity) error {
	if !caller.IsPrivileged() {
		return fmt.Errorf("caller %s is not privileged: %w", caller.ID, apperrors.ErrForbidden)
	}
	return nil
}
