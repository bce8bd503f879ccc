package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/work-permit/internal/core/common/storage"
	permitDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/permit"
	"github.com/frahmantamala/work-permit/internal/permit"
	"gorm.io/gorm"
)

type PermitRepository struct {
	db *gorm.DB
}

func NewPermitRepository(db *gorm.DB) permit.RepositoryAPI {
	return &PermitRepository{db: db}
}

func (r *PermitRepository) Create(ctx context.Context, p *permitDatamodel.Permit) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if storage.IsUniqueViolation(err) {
		return permitDatamodel.ErrDuplicateWPNumber
	}
	return err
}

func (r *PermitRepository) GetByID(ctx context.Context, id string) (*permitDatamodel.Permit, error) {
	var p permitDatamodel.Permit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, permitDatamodel.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PermitRepository) ExistsByWPNumber(ctx context.Context, wpNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&permitDatamodel.Permit{}).
		Where("wp_number = ?", wpNumber).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *PermitRepository) scoped(ctx context.Context, filter permitDatamodel.Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&permitDatamodel.Permit{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

func (r *PermitRepository) List(ctx context.Context, filter permitDatamodel.Filter, limit, offset int) ([]*permitDatamodel.Permit, error) {
	permits := make([]*permitDatamodel.Permit, 0, limit)
	err := r.scoped(ctx, filter).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&permits).Error
	return permits, err
}

func (r *PermitRepository) Count(ctx context.Context, filter permitDatamodel.Filter) (int64, error) {
	var count int64
	err := r.scoped(ctx, filter).Count(&count).Error
	return count, err
}

func (r *PermitRepository) Update(ctx context.Context, p *permitDatamodel.Permit, expectedStatus string) error {
	res := r.db.WithContext(ctx).Model(&permitDatamodel.Permit{}).
		Where("id = ? AND status = ?", p.ID, expectedStatus).
		Updates(map[string]interface{}{
			"status":         p.Status,
			"admin_comments": p.AdminComments,
			"approved_by":    p.ApprovedBy,
			"approved_at":    p.ApprovedAt,
			"updated_at":     p.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return permitDatamodel.ErrStaleStatus
}

func (r *PermitRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&permitDatamodel.Permit{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return permitDatamodel.ErrNotFound
	}
	return nil
}
