package repositories

import (
	"context"

	"sacco-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// groupRepository implements GroupRepository interface
type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Create creates a new group
func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	return conn(ctx, r.db).Create(group).Error
}

// GetByID gets a group by ID
func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := conn(ctx, r.db).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByIDForUpdate gets a group by ID and locks its row
func (r *groupRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := forUpdate(conn(ctx, r.db)).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// List lists groups with pagination
func (r *groupRepository) List(ctx context.Context, offset, limit int) ([]*models.Group, int64, error) {
	var groups []*models.Group
	var total int64

	if err := conn(ctx, r.db).Model(&models.Group{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := conn(ctx, r.db).
		Order("name").
		Offset(offset).
		Limit(limit).
		Find(&groups).Error

	return groups, total, err
}

// ReassignAdmin moves group admin from one member to another only if
// fromAdminID is still the admin. Returns rows affected.
func (r *groupRepository) ReassignAdmin(ctx context.Context, groupID, fromAdminID, toAdminID uint) (int64, error) {
	res := conn(ctx, r.db).
		Model(&models.Group{}).
		Where("id = ? AND admin_id = ?", groupID, fromAdminID).
		Update("admin_id", toAdminID)
	return res.RowsAffected, res.Error
}

// AddMember inserts a roster row. Reports false when the member was already on the roster.
func (r *groupRepository) AddMember(ctx context.Context, groupID, memberID uint) (bool, error) {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.GroupMember{GroupID: groupID, MemberID: memberID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsMember checks roster membership
func (r *groupRepository) IsMember(ctx context.Context, groupID, memberID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		Count(&count).Error
	return count > 0, err
}

// ListMembers lists the roster with member details
func (r *groupRepository) ListMembers(ctx context.Context, groupID uint) ([]*models.GroupMember, error) {
	var rows []*models.GroupMember
	err := conn(ctx, r.db).
		Preload("Member").
		Where("group_id = ?", groupID).
		Order("joined_at").
		Find(&rows).Error
	return rows, err
}

// MemberIDs returns the member IDs on a roster
func (r *groupRepository) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := conn(ctx, r.db).
		Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("member_id", &ids).Error
	return ids, err
}
