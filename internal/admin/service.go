package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/transport"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
)

// RepositoryAPI is the admin-management view of the credential store.
type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, u *userDatamodel.User) error
	DeleteByRole(ctx context.Context, id, roleName string) error
	CountByRole(ctx context.Context, roleName string) (int64, error)
	ListByRole(ctx context.Context, roleName string, limit, offset int) ([]*userDatamodel.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type Service struct {
	repo   RepositoryAPI
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, hasher PasswordHasher, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Service{repo: repo, hasher: hasher, logger: lg}
}

func (s *Service) CreateAdmin(ctx context.Context, actor internal.Identity, dto CreateAdminDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := user.NormalizeEmail(dto.Email)
	taken, err := s.repo.EmailTaken(ctx, email, "")
	if err != nil {
		s.logger.Error("CreateAdmin: email lookup failed", "error", err)
		return nil, internal.NewInternalError("Server error", err)
	}
	if taken {
		return nil, internal.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("Server error", err)
	}

	u := user.NewUser(dto.Name, email, hash, role.Admin)
	if err := s.repo.Create(ctx, user.ToDataModel(u)); err != nil {
		if errors.Is(err, userDatamodel.ErrDuplicateEmail) {
			return nil, internal.ErrEmailTaken
		}
		s.logger.Error("CreateAdmin: repository error", "error", err)
		return nil, internal.NewInternalError("Server error", err)
	}

	s.logger.Info("admin created", "admin_id", u.ID, "created_by", actor.ID)
	return u, nil
}

func (s *Service) ListAdmins(ctx context.Context, page, limit int) ([]*user.User, int64, error) {
	if limit <= 0 {
		limit = transport.DefaultLimit
	}
	rows, err := s.repo.ListByRole(ctx, role.Admin.String(), limit, transport.Offset(page, limit))
	if err != nil {
		s.logger.Error("ListAdmins: repository error", "error", err)
		return nil, 0, internal.NewInternalError("Server error", err)
	}

	total, err := s.repo.CountByRole(ctx, role.Admin.String())
	if err != nil {
		s.logger.Error("ListAdmins: count error", "error", err)
		return nil, 0, internal.NewInternalError("Server error", err)
	}
	return user.FromDataModelSlice(rows), total, nil
}

func (s *Service) GetAdmin(ctx context.Context, id string) (*user.User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userDatamodel.ErrNotFound) {
			return nil, internal.ErrAdminNotFound
		}
		s.logger.Error("GetAdmin: repository error", "error", err, "admin_id", id)
		return nil, internal.NewInternalError("Server error", err)
	}

	u := user.FromDataModel(row)
	if !u.IsAdmin() {
		return nil, internal.ErrAdminNotFound
	}
	return u, nil
}

func (s *Service) UpdateAdmin(ctx context.Context, id string, dto UpdateAdminDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	email := user.NormalizeEmail(dto.Email)
	taken, err := s.repo.EmailTaken(ctx, email, id)
	if err != nil {
		s.logger.Error("UpdateAdmin: email lookup failed", "error", err, "admin_id", id)
		return nil, internal.NewInternalError("Server error", err)
	}
	if taken {
		return nil, internal.ErrEmailInUse
	}

	u.Name = strings.TrimSpace(dto.Name)
	u.Email = email
	if dto.Password != "" {
		hash, err := s.hasher.Hash(dto.Password)
		if err != nil {
			return nil, internal.NewInternalError("Server error", err)
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user.ToDataModel(u)); err != nil {
		switch {
		case errors.Is(err, userDatamodel.ErrDuplicateEmail):
			return nil, internal.ErrEmailInUse
		case errors.Is(err, userDatamodel.ErrNotFound):
			return nil, internal.ErrAdminNotFound
		default:
			s.logger.Error("UpdateAdmin: repository error", "error", err, "admin_id", id)
			return nil, internal.NewInternalError("Server error", err)
		}
	}

	s.logger.Info("admin updated", "admin_id", id, "password_changed", dto.Password != "")
	return u, nil
}

// DeleteAdmin checks self-deletion first, then the last-admin guard.
func (s *Service) DeleteAdmin(ctx context.Context, actor internal.Identity, id string) error {
	if actor.ID == id {
		return internal.ErrSelfDelete
	}

	// Count-then-delete is not atomic: two concurrent deletes of the last
	// two admins can both pass this check.
	count, err := s.repo.CountByRole(ctx, role.Admin.String())
	if err != nil {
		s.logger.Error("DeleteAdmin: count error", "error", err)
		return internal.NewInternalError("Server error", err)
	}
	if count <= 1 {
		return internal.ErrLastAdmin
	}

	if err := s.repo.DeleteByRole(ctx, id, role.Admin.String()); err != nil {
		if errors.Is(err, userDatamodel.ErrNotFound) {
			return internal.ErrAdminNotFound
		}
		s.logger.Error("DeleteAdmin: repository error", "error", err, "admin_id", id)
		return internal.NewInternalError("Server error", err)
	}

	s.logger.Info("admin deleted", "admin_id", id, "deleted_by", actor.ID)
	return nil
}
