package babies

import (
	"context"
	"database/sql"
	"time"

	"github.com/nestlogapp/nestlog/pkg/errcodes"
	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles babies and caregiver access grants. Its access helpers
// are the single source of authorization truth for the sync endpoints.
type Service struct {
	db *bun.DB
}

// NewService creates a new babies service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateOptions contains options for creating a baby.
type CreateOptions struct {
	Name      string
	Birthdate string
}

// Create creates a baby and makes the creator its owner.
func (s *Service) Create(ctx context.Context, user *models.User, opts CreateOptions) (*models.Baby, error) {
	now := time.Now().UTC()
	baby := &models.Baby{
		CreatedAt:   now,
		UpdatedAt:   now,
		Name:        opts.Name,
		Birthdate:   opts.Birthdate,
		CreatedByID: user.ID,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(baby).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		caregiver := &models.BabyCaregiver{
			CreatedAt: now,
			BabyID:    baby.ID,
			UserID:    user.ID,
			Role:      models.RoleOwner,
		}
		_, err = tx.NewInsert().Model(caregiver).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return s.Retrieve(ctx, baby.ID)
}

// Retrieve gets a baby by ID with its caregivers loaded.
func (s *Service) Retrieve(ctx context.Context, id int64) (*models.Baby, error) {
	baby := &models.Baby{}
	err := s.db.NewSelect().
		Model(baby).
		Relation("Caregivers").
		Relation("Caregivers.User").
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, errcodes.NotFound("Baby")
	}
	return baby, nil
}

// List returns the babies the user has any access to, ordered by id.
func (s *Service) List(ctx context.Context, userID int64) ([]*models.Baby, error) {
	babies := []*models.Baby{}
	err := s.db.NewSelect().
		Model(&babies).
		Relation("Caregivers").
		Join("JOIN baby_caregivers AS access ON access.baby_id = b.id").
		Where("access.user_id = ?", userID).
		Order("b.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return babies, nil
}

// GrantAccess gives a user a caregiver role on a baby, replacing any
// existing grant. Only owners may grant access; that check is the
// handler's responsibility.
func (s *Service) GrantAccess(ctx context.Context, babyID, userID int64, role string) (*models.BabyCaregiver, error) {
	caregiver := &models.BabyCaregiver{
		CreatedAt: time.Now().UTC(),
		BabyID:    babyID,
		UserID:    userID,
		Role:      role,
	}

	_, err := s.db.NewInsert().
		Model(caregiver).
		On("CONFLICT (baby_id, user_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return caregiver, nil
}

// RevokeAccess removes a user's caregiver grant on a baby.
func (s *Service) RevokeAccess(ctx context.Context, babyID, userID int64) error {
	_, err := s.db.NewDelete().
		Model((*models.BabyCaregiver)(nil)).
		Where("baby_id = ?", babyID).
		Where("user_id = ?", userID).
		Exec(ctx)
	return errors.WithStack(err)
}

// AccessLevel returns the user's role on a baby, or "" when the user has no
// access.
func (s *Service) AccessLevel(ctx context.Context, userID, babyID int64) (string, error) {
	caregiver := &models.BabyCaregiver{}
	err := s.db.NewSelect().
		Model(caregiver).
		Column("role").
		Where("baby_id = ?", babyID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.WithStack(err)
	}
	return caregiver.Role, nil
}

// EditableBabyIDs returns the set of baby ids the user may push mutations
// for (owner or editor role). Computed once per push request.
func (s *Service) EditableBabyIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	return s.babyIDSet(ctx, userID, true)
}

// AccessibleBabyIDs returns the set of baby ids the user may pull (any
// role).
func (s *Service) AccessibleBabyIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	return s.babyIDSet(ctx, userID, false)
}

func (s *Service) babyIDSet(ctx context.Context, userID int64, editableOnly bool) (map[int64]struct{}, error) {
	var ids []int64
	query := s.db.NewSelect().
		Model((*models.BabyCaregiver)(nil)).
		Column("baby_id").
		Where("user_id = ?", userID)
	if editableOnly {
		query = query.Where("role IN (?, ?)", models.RoleOwner, models.RoleEditor)
	}
	err := query.Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
