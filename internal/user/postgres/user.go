package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/work-permit/internal/core/common/storage"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if storage.IsUniqueViolation(err) {
		return userDatamodel.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userDatamodel.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*userDatamodel.User, error) {
	users := make([]*userDatamodel.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", user.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userDatamodel.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("email = ?", user.NormalizeEmail(email))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	u.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"name":          u.Name,
			"email":         u.Email,
			"password_hash": u.PasswordHash,
			"updated_at":    u.UpdatedAt,
		})
	if storage.IsUniqueViolation(res.Error) {
		return userDatamodel.ErrDuplicateEmail
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return userDatamodel.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteByRole(ctx context.Context, id, roleName string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND role = ?", id, roleName).Delete(&userDatamodel.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return userDatamodel.ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, roleName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("role = ?", roleName).Count(&count).Error
	return count, err
}

func (r *UserRepository) ListByRole(ctx context.Context, roleName string, limit, offset int) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("role = ?", roleName).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) ListUsers(ctx context.Context, withLocation bool) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	q := r.db.WithContext(ctx).Where("role = ?", role.User.String())
	if withLocation {
		q = q.Where("last_location_at IS NOT NULL")
	}
	err := q.Order("last_location_at DESC NULLS LAST").Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepository) SetLocationSharing(ctx context.Context, id string, enabled bool) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_location_sharing_enabled": enabled,
			"updated_at":                  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return userDatamodel.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLastLocation(ctx context.Context, id string, loc userDatamodel.Location) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_latitude":    loc.Latitude,
			"last_longitude":   loc.Longitude,
			"last_address":     loc.Address,
			"last_location_at": loc.UpdatedAt,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return userDatamodel.ErrNotFound
	}
	return nil
}
