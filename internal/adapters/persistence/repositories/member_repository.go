package repositories

import (
	"context"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Create creates a new member
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return conn(ctx, r.db).Create(member).Error
}

// GetByID gets a member by ID
func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := conn(ctx, r.db).Where("id = ?", id).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByIDs gets members by a set of IDs
func (r *memberRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Member, error) {
	var members []*models.Member
	if len(ids) == 0 {
		return members, nil
	}
	err := conn(ctx, r.db).Where("id IN ?", ids).Find(&members).Error
	return members, err
}

// GetByUsername gets a member by username
func (r *memberRepository) GetByUsername(ctx context.Context, username string) (*models.Member, error) {
	var member models.Member
	err := conn(ctx, r.db).Where("username = ?", username).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// List lists members with pagination
func (r *memberRepository) List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	var members []*models.Member
	var total int64

	if err := conn(ctx, r.db).Model(&models.Member{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := conn(ctx, r.db).Order("id").Offset(offset).Limit(limit).Find(&members).Error; err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

// ListAdminIDs returns the IDs of all active admins
func (r *memberRepository) ListAdminIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := conn(ctx, r.db).Model(&models.Member{}).
		Where("role = ? AND is_active = ?", domain.RoleAdmin, true).
		Pluck("id", &ids).Error
	return ids, err
}

// ExistsByUsername checks if username exists
func (r *memberRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Member{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *memberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Member{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// AddSavings increments the savings total in a single UPDATE
func (r *memberRepository) AddSavings(ctx context.Context, id uint, amount decimal.Decimal) error {
	res := conn(ctx, r.db).Model(&models.Member{}).
		Where("id = ?", id).
		Update("savings", gorm.Expr("savings + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateRole sets the application role of a member
func (r *memberRepository) UpdateRole(ctx context.Context, id uint, role domain.Role) (int64, error) {
	res := conn(ctx, r.db).Model(&models.Member{}).Where("id = ?", id).Update("role", role)
	return res.RowsAffected, res.Error
}

// UpdatePassword replaces the stored password hash
func (r *memberRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return conn(ctx, r.db).Model(&models.Member{}).Where("id = ?", id).Update("password", hash).Error
}
