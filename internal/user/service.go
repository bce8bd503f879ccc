package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/work-permit/internal"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
)

// RepositoryAPI is the credential store. Both the postgres and mongo
// backends implement it; not-found and duplicate-email conditions are
// reported with the userDatamodel sentinels.
type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, u *userDatamodel.User) error
	DeleteByRole(ctx context.Context, id, role string) error
	CountByRole(ctx context.Context, role string) (int64, error)
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*userDatamodel.User, error)
	ListUsers(ctx context.Context, withLocation bool) ([]*userDatamodel.User, error)
	SetLocationSharing(ctx context.Context, id string, enabled bool) error
	UpdateLastLocation(ctx context.Context, id string, loc userDatamodel.Location) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListUsers returns accounts with the user role, most recently located first
// when withLocation is set.
func (s *Service) ListUsers(ctx context.Context, withLocation bool) ([]*User, error) {
	rows, err := s.repo.ListUsers(ctx, withLocation)
	if err != nil {
		s.logger.Error("failed to list users", "error", err, "with_location", withLocation)
		return nil, internal.NewInternalError("Server error", err)
	}
	s.logger.Info("listed users", "count", len(rows), "with_location", withLocation)
	return FromDataModelSlice(rows), nil
}

func (s *Service) GetProfile(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userDatamodel.ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		s.logger.Error("failed to load profile", "error", err, "user_id", id)
		return nil, internal.NewInternalError("Server error", err)
	}
	return FromDataModel(u), nil
}
