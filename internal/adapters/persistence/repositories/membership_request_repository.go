package repositories

import (
	"context"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"

	"gorm.io/gorm"
)

// membershipRequestRepository implements MembershipRequestRepository interface
type membershipRequestRepository struct {
	db *gorm.DB
}

// NewMembershipRequestRepository creates a new membership request repository
func NewMembershipRequestRepository(db *gorm.DB) MembershipRequestRepository {
	return &membershipRequestRepository{db: db}
}

// Create creates a new request
func (r *membershipRequestRepository) Create(ctx context.Context, req *models.MembershipRequest) error {
	return conn(ctx, r.db).Create(req).Error
}

// HasPending checks for a pending request for the (group, member) pair
func (r *membershipRequestRepository) HasPending(ctx context.Context, groupID, memberID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&models.MembershipRequest{}).
		Where("group_id = ? AND member_id = ? AND status = ?", groupID, memberID, domain.MembershipPending).
		Count(&count).Error
	return count > 0, err
}

// Resolve moves the pending request for the pair to status. The WHERE on
// pending makes the first concurrent decision win; later ones affect 0 rows.
func (r *membershipRequestRepository) Resolve(ctx context.Context, groupID, memberID uint, status domain.MembershipStatus, decidedBy uint, at time.Time) (int64, error) {
	res := conn(ctx, r.db).
		Model(&models.MembershipRequest{}).
		Where("group_id = ? AND member_id = ? AND status = ?", groupID, memberID, domain.MembershipPending).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": at,
		})
	return res.RowsAffected, res.Error
}

// ListPending lists pending requests of a group, oldest first
func (r *membershipRequestRepository) ListPending(ctx context.Context, groupID uint) ([]*models.MembershipRequest, error) {
	var reqs []*models.MembershipRequest
	err := conn(ctx, r.db).
		Preload("Member").
		Where("group_id = ? AND status = ?", groupID, domain.MembershipPending).
		Order("created_at").
		Find(&reqs).Error
	return reqs, err
}
