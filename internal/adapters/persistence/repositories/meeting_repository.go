package repositories

import (
	"context"
	"time"

	"sacco-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// meetingRepository implements MeetingRepository interface
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(ctx context.Context, m *models.Meeting) error {
	return conn(ctx, r.db).Create(m).Error
}

// ListByGroup lists meetings of a group scheduled at or after from, soonest first
func (r *meetingRepository) ListByGroup(ctx context.Context, groupID uint, from time.Time) ([]*models.Meeting, error) {
	var meetings []*models.Meeting
	err := conn(ctx, r.db).
		Where("group_id = ? AND scheduled_at >= ?", groupID, from).
		Order("scheduled_at").
		Find(&meetings).Error
	return meetings, err
}

// ListBetween lists meetings of all groups in [from, to)
func (r *meetingRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Meeting, error) {
	var meetings []*models.Meeting
	err := conn(ctx, r.db).
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Order("group_id, scheduled_at").
		Find(&meetings).Error
	return meetings, err
}
