package repositories

import (
	"context"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"

	"gorm.io/gorm"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan
func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return conn(ctx, r.db).Create(loan).Error
}

// GetByID gets a loan by ID
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := conn(ctx, r.db).First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetByIDForUpdate gets a loan and locks its row until the transaction ends
func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := forUpdate(conn(ctx, r.db)).First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListByMember lists loans of a borrower, newest first
func (r *loanRepository) ListByMember(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := conn(ctx, r.db).
		Where("member_id = ?", memberID).
		Order("requested_at DESC").
		Find(&loans).Error
	return loans, err
}

// ListByStatus lists loans with pagination. An empty status lists all.
func (r *loanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := conn(ctx, r.db).Model(&models.Loan{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("requested_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// Decide moves a pending loan to approved or rejected. Only a row still
// pending is touched, so concurrent decisions cannot both succeed.
func (r *loanRepository) Decide(ctx context.Context, id uint, to domain.LoanStatus, adminID uint, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"admin_id":   adminID,
		"decided_at": at,
	}
	if to == domain.LoanApproved {
		updates["approved_at"] = at
	}

	res := conn(ctx, r.db).
		Model(&models.Loan{}).
		Where("id = ? AND status = ?", id, domain.LoanPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// UpdateRepayment persists total_paid, status and paid_at
func (r *loanRepository) UpdateRepayment(ctx context.Context, loan *models.Loan) error {
	return conn(ctx, r.db).
		Model(&models.Loan{}).
		Where("id = ?", loan.ID).
		Updates(map[string]interface{}{
			"total_paid": loan.TotalPaid,
			"status":     loan.Status,
			"paid_at":    loan.PaidAt,
		}).Error
}

// CreatePayment records a loan payment
func (r *loanRepository) CreatePayment(ctx context.Context, payment *models.LoanPayment) error {
	return conn(ctx, r.db).Create(payment).Error
}

// GetPaymentByReference finds a payment by its external reference
func (r *loanRepository) GetPaymentByReference(ctx context.Context, reference string) (*models.LoanPayment, error) {
	var payment models.LoanPayment
	if err := conn(ctx, r.db).Where("reference = ?", reference).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPayments lists payments of a loan, oldest first
func (r *loanRepository) ListPayments(ctx context.Context, loanID uint) ([]*models.LoanPayment, error) {
	var payments []*models.LoanPayment
	err := conn(ctx, r.db).
		Where("loan_id = ?", loanID).
		Order("created_at, id").
		Find(&payments).Error
	return payments, err
}
