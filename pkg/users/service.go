package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/nestlogapp/nestlog/pkg/errcodes"
	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles local user records for externally-authenticated callers.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// RegisterOptions contains options for registering a user.
type RegisterOptions struct {
	Identity    string
	DisplayName string
}

// Register creates the local user record for an external identity. It is
// idempotent: registering an identity that already has a record returns the
// existing record with the display name refreshed.
func (s *Service) Register(ctx context.Context, opts RegisterOptions) (*models.User, error) {
	existing, err := s.ResolveByIdentity(ctx, opts.Identity)
	if err == nil {
		if opts.DisplayName != "" && opts.DisplayName != existing.DisplayName {
			existing.DisplayName = opts.DisplayName
			existing.UpdatedAt = time.Now().UTC()
			_, err = s.db.NewUpdate().
				Model(existing).
				Column("display_name", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return nil, errors.WithStack(err)
			}
		}
		return existing, nil
	}

	now := time.Now().UTC()
	user := &models.User{
		CreatedAt:   now,
		UpdatedAt:   now,
		Identity:    opts.Identity,
		DisplayName: opts.DisplayName,
	}

	_, err = s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}

// ResolveByIdentity looks up the local user for an external subject. The
// sync endpoints treat a missing record as a request-level 404.
func (s *Service) ResolveByIdentity(ctx context.Context, identity string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("identity = ?", identity).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// Retrieve gets a user by ID.
func (s *Service) Retrieve(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, errcodes.NotFound("User")
	}
	return user, nil
}
