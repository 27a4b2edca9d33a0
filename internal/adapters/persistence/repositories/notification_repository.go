package repositories

import (
	"context"
	"errors"

	"sacco-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// notificationRepository implements NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return conn(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) ListByMember(ctx context.Context, memberID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	var items []*models.Notification
	var total int64

	query := conn(ctx, r.db).Model(&models.Notification{}).Where("member_id = ?", memberID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&models.Notification{}).
		Where("member_id = ? AND is_read = ?", memberID, false).
		Count(&count).Error
	return count, err
}

// MarkRead is scoped by member so one member cannot touch another's rows.
// Returns 0 when no such notification belongs to the member.
func (r *notificationRepository) MarkRead(ctx context.Context, id, memberID uint) (int64, error) {
	var n models.Notification
	err := conn(ctx, r.db).Where("id = ? AND member_id = ?", id, memberID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if n.IsRead {
		return 1, nil
	}

	err = conn(ctx, r.db).
		Model(&models.Notification{}).
		Where("id = ?", n.ID).
		Update("is_read", true).Error
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, memberID uint) (int64, error) {
	res := conn(ctx, r.db).
		Model(&models.Notification{}).
		Where("member_id = ? AND is_read = ?", memberID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
