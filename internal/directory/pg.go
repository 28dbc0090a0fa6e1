package directory

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PgDirectory reads users from the users table.
type PgDirectory struct {
	q *db.Queries
}

func NewPgDirectory(dbtx db.DBTX) *PgDirectory {
	return &PgDirectory{q: db.New(dbtx)}
}

func (d *PgDirectory) FindUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := d.q.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	return &model.User{ID: u.ID, Email: u.Email}, nil
}

// Put inserts the user or updates its email.
func (d *PgDirectory) Put(ctx context.Context, user model.User) error {
	if _, err := d.q.UpsertUser(ctx, db.UpsertUserParams{ID: user.ID, Email: user.Email}); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}
