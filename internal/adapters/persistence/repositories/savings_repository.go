package repositories

import (
	"context"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"

	"gorm.io/gorm"
)

// savingsRepository implements SavingsRepository interface
type savingsRepository struct {
	db *gorm.DB
}

// NewSavingsRepository creates a new savings repository
func NewSavingsRepository(db *gorm.DB) SavingsRepository {
	return &savingsRepository{db: db}
}

// Create creates a new deposit record
func (r *savingsRepository) Create(ctx context.Context, deposit *models.SavingsDeposit) error {
	return conn(ctx, r.db).Create(deposit).Error
}

// GetByTransactionRefForUpdate finds a deposit by gateway reference and locks it
func (r *savingsRepository) GetByTransactionRefForUpdate(ctx context.Context, ref string) (*models.SavingsDeposit, error) {
	var deposit models.SavingsDeposit
	err := forUpdate(conn(ctx, r.db)).
		Where("transaction_ref = ?", ref).
		First(&deposit).Error
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

// SetTransactionRef stores the gateway reference on a deposit
func (r *savingsRepository) SetTransactionRef(ctx context.Context, id uint, ref string) error {
	return conn(ctx, r.db).
		Model(&models.SavingsDeposit{}).
		Where("id = ?", id).
		Update("transaction_ref", ref).Error
}

// Transition moves a deposit from one payment status to another. Returns
// 0 rows when the deposit is no longer in the from status.
func (r *savingsRepository) Transition(ctx context.Context, id uint, from, to domain.PaymentStatus, reason string, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"payment_status": to,
	}
	if to == domain.PaymentCompleted {
		updates["completed_at"] = at
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	res := conn(ctx, r.db).
		Model(&models.SavingsDeposit{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ListByMember lists deposits of a member, newest first
func (r *savingsRepository) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsDeposit, int64, error) {
	var deposits []*models.SavingsDeposit
	var total int64

	query := conn(ctx, r.db).Model(&models.SavingsDeposit{}).Where("member_id = ?", memberID).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&deposits).Error

	return deposits, total, err
}

// ListStalePending lists deposits still pending that were created before the cutoff
func (r *savingsRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*models.SavingsDeposit, error) {
	var deposits []*models.SavingsDeposit
	err := conn(ctx, r.db).
		Where("payment_status = ? AND created_at < ?", domain.PaymentPending, before).
		Order("created_at").
		Limit(limit).
		Find(&deposits).Error
	return deposits, err
}
