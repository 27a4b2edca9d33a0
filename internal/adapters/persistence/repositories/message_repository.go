package repositories

import (
	"context"

	"sacco-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new chat message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *models.Message) error {
	return conn(ctx, r.db).Create(m).Error
}

// ListByGroup returns the latest limit messages in chronological order
func (r *messageRepository) ListByGroup(ctx context.Context, groupID uint, limit int) ([]*models.Message, error) {
	var msgs []*models.Message
	err := conn(ctx, r.db).
		Preload("Member").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
