package services

import (
	"context"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardService builds read-only overviews from aggregate queries
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	// Member Statistics
	TotalMembers int64 `json:"total_members"`
	TotalAdmins  int64 `json:"total_admins"`
	TotalGroups  int64 `json:"total_groups"`

	// Loan Statistics
	PendingLoans     int64           `json:"pending_loans"`
	ApprovedLoans    int64           `json:"approved_loans"`
	RejectedLoans    int64           `json:"rejected_loans"`
	PaidLoans        int64           `json:"paid_loans"`
	DisbursedAmount  decimal.Decimal `json:"disbursed_amount"`
	RepaidAmount     decimal.Decimal `json:"repaid_amount"`
	OutstandingCount int64           `json:"outstanding_count"`

	// Savings Statistics
	TotalSavings       decimal.Decimal `json:"total_savings"`
	PendingDeposits    int64           `json:"pending_deposits"`
	DepositsThisMonth  int64           `json:"deposits_this_month"`
	AmountThisMonth    decimal.Decimal `json:"amount_this_month"`
	FailedDepositsWeek int64           `json:"failed_deposits_week"`

	// Recent Activity
	RecentLoans []*models.LoanResponse `json:"recent_loans"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context, actor domain.Actor) (*AdminDashboardData, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}

	db := s.db.WithContext(ctx)
	data := &AdminDashboardData{}
	q := &queryBatch{}

	// Member counts
	q.run(db.Model(&models.Member{}).Count(&data.TotalMembers))
	q.run(db.Model(&models.Member{}).Where("role = ?", domain.RoleAdmin).Count(&data.TotalAdmins))
	q.run(db.Model(&models.Group{}).Count(&data.TotalGroups))

	// Loan counts by status
	q.run(db.Model(&models.Loan{}).Where("status = ?", domain.LoanPending).Count(&data.PendingLoans))
	q.run(db.Model(&models.Loan{}).Where("status = ?", domain.LoanApproved).Count(&data.ApprovedLoans))
	q.run(db.Model(&models.Loan{}).Where("status = ?", domain.LoanRejected).Count(&data.RejectedLoans))
	q.run(db.Model(&models.Loan{}).Where("status = ?", domain.LoanPaid).Count(&data.PaidLoans))
	data.OutstandingCount = data.ApprovedLoans

	// Money lent and returned
	q.sum(db.Model(&models.Loan{}).
		Where("status IN ?", []domain.LoanStatus{domain.LoanApproved, domain.LoanPaid}),
		"amount", &data.DisbursedAmount)
	q.sum(db.Model(&models.Loan{}), "total_paid", &data.RepaidAmount)

	// Savings
	q.sum(db.Model(&models.Member{}), "savings", &data.TotalSavings)
	q.run(db.Model(&models.SavingsDeposit{}).
		Where("payment_status = ?", domain.PaymentPending).
		Count(&data.PendingDeposits))

	now := domain.Clock()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	q.run(db.Model(&models.SavingsDeposit{}).
		Where("payment_status = ? AND completed_at >= ?", domain.PaymentCompleted, startOfMonth).
		Count(&data.DepositsThisMonth))
	q.sum(db.Model(&models.SavingsDeposit{}).
		Where("payment_status = ? AND completed_at >= ?", domain.PaymentCompleted, startOfMonth),
		"amount", &data.AmountThisMonth)
	q.run(db.Model(&models.SavingsDeposit{}).
		Where("payment_status = ? AND created_at >= ?", domain.PaymentFailed, now.AddDate(0, 0, -7)).
		Count(&data.FailedDepositsWeek))

	// Recent loans
	var recent []*models.Loan
	q.run(db.Order("requested_at DESC").Limit(5).Find(&recent))
	data.RecentLoans = make([]*models.LoanResponse, len(recent))
	for i, l := range recent {
		data.RecentLoans[i] = l.ToResponse()
	}

	if q.err != nil {
		return nil, domain.Persistence(q.err)
	}
	return data, nil
}

// ============================================================
// Member Dashboard
// ============================================================

// MemberDashboardData represents a member's overview
type MemberDashboardData struct {
	Savings             decimal.Decimal        `json:"savings"`
	Earnings            decimal.Decimal        `json:"earnings"`
	Groups              int64                  `json:"groups"`
	ActiveLoans         []*models.LoanResponse `json:"active_loans"`
	OutstandingBalance  decimal.Decimal        `json:"outstanding_balance"`
	PendingLoans        int64                  `json:"pending_loans"`
	UnreadNotifications int64                  `json:"unread_notifications"`
	UpcomingMeetings    []*models.Meeting      `json:"upcoming_meetings"`
}

// GetMemberDashboard returns the caller's overview
func (s *DashboardService) GetMemberDashboard(ctx context.Context, memberID uint) (*MemberDashboardData, error) {
	db := s.db.WithContext(ctx)

	var member models.Member
	if err := db.First(&member, memberID).Error; err != nil {
		return nil, storeErr(err, domain.ErrMemberNotFound)
	}

	data := &MemberDashboardData{
		Savings:            member.Savings,
		Earnings:           member.Earnings,
		OutstandingBalance: decimal.Zero,
	}
	q := &queryBatch{}

	q.run(db.Model(&models.GroupMember{}).Where("member_id = ?", memberID).Count(&data.Groups))
	q.run(db.Model(&models.Loan{}).
		Where("member_id = ? AND status = ?", memberID, domain.LoanPending).
		Count(&data.PendingLoans))
	q.run(db.Model(&models.Notification{}).
		Where("member_id = ? AND is_read = ?", memberID, false).
		Count(&data.UnreadNotifications))

	var active []*models.Loan
	q.run(db.Where("member_id = ? AND status = ?", memberID, domain.LoanApproved).
		Order("approved_at").
		Find(&active))
	data.ActiveLoans = make([]*models.LoanResponse, len(active))
	for i, l := range active {
		data.ActiveLoans[i] = l.ToResponse()
		data.OutstandingBalance = data.OutstandingBalance.Add(l.Balance())
	}

	q.run(db.Where("group_id IN (?) AND scheduled_at >= ?",
		db.Model(&models.GroupMember{}).Select("group_id").Where("member_id = ?", memberID),
		domain.Clock()).
		Order("scheduled_at").
		Limit(5).
		Find(&data.UpcomingMeetings))

	if q.err != nil {
		return nil, domain.Persistence(q.err)
	}
	return data, nil
}

// queryBatch keeps the first error of a sequence of queries
type queryBatch struct {
	err error
}

func (q *queryBatch) run(tx *gorm.DB) {
	if q.err == nil && tx.Error != nil {
		q.err = tx.Error
	}
}

// sum scans COALESCE(SUM(column), 0) of the scoped query into out
func (q *queryBatch) sum(tx *gorm.DB, column string, out *decimal.Decimal) {
	var row struct {
		Total decimal.Decimal
	}
	q.run(tx.Select("COALESCE(SUM(" + column + "), 0) AS total").Scan(&row))
	*out = row.Total
}
