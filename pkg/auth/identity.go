package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var ErrNoIdentity = errors.New("no caller identity")

type identityKey struct{}

// WithIdentity stores the resolved caller in ctx.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by one of the middlewares.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok
}

// IdentityFromToken maps verified claims to an Identity: sub is the user id, email is
// copied as is, and the caller is privileged when realm_access.roles holds adminRole.
func IdentityFromToken(token jwt.Token, adminRole string) (model.Identity, error) {
	subject, ok := token.Subject()
	if !ok {
		return model.Identity{}, fmt.Errorf("no claim `sub`: %w", ErrNoIdentity)
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return model.Identity{}, fmt.Errorf("claim `sub` is not a uuid: %w", ErrNoIdentity)
	}
	var email string
	_ = token.Get("email", &email)

	identity := model.Identity{ID: id, Email: email, Role: model.RoleStandard}
	if slices.Contains(realmRoles(token), adminRole) {
		identity.Role = model.RolePrivileged
	}
	return identity, nil
}

func realmRoles(token jwt.Token) []string {
	var access map[string]any
	if err := token.Get("realm_access", &access); err != nil {
		return nil
	}
	raw, _ := access["roles"].([]any)
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// ParseRole maps a gateway role header to a Role. Anything but the admin role is standard.
func ParseRole(value, adminRole string) model.Role {
	if adminRole != "" && strings.EqualFold(strings.TrimSpace(value), adminRole) {
		return model.RolePrivileged
	}
	return model.RoleStandard
}
