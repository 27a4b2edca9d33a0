package models

import (
	"time"

	"sacco-hub/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Members & Auth
// ============================================================

// Member represents members table. Savings and Earnings are running totals
// kept in step with deposits by the savings workflow.
type Member struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Username  string          `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string          `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Phone     string          `gorm:"size:20" json:"phone"`
	Password  string          `gorm:"size:255;not null" json:"-"`
	Role      domain.Role     `gorm:"size:20;not null;default:'member'" json:"role"`
	Savings   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"savings"`
	Earnings  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"earnings"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Member) TableName() string {
	return "members"
}

// MemberResponse DTO
type MemberResponse struct {
	ID        uint            `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone,omitempty"`
	Role      domain.Role     `json:"role"`
	Savings   decimal.Decimal `json:"savings"`
	Earnings  decimal.Decimal `json:"earnings"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Phone:     m.Phone,
		Role:      m.Role,
		Savings:   m.Savings,
		Earnings:  m.Earnings,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MemberID  uint       `gorm:"index;not null" json:"member_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Groups & Membership
// ============================================================

// Group represents groups table
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	AdminID     uint      `gorm:"index;not null" json:"admin_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Group) TableName() string {
	return "sacco_groups"
}

// GroupMember is one roster row. The composite key forbids duplicate membership.
type GroupMember struct {
	GroupID  uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	MemberID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"member_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
	Member   *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

// MembershipRequest represents membership_requests table.
// Resolved requests keep their row with status admitted or rejected.
type MembershipRequest struct {
	ID        uint                    `gorm:"primaryKey" json:"id"`
	GroupID   uint                    `gorm:"index:idx_request_pair;not null" json:"group_id"`
	MemberID  uint                    `gorm:"index:idx_request_pair;not null" json:"member_id"`
	Status    domain.MembershipStatus `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	DecidedBy *uint                   `json:"decided_by,omitempty"`
	DecidedAt *time.Time              `json:"decided_at,omitempty"`
	CreatedAt time.Time               `gorm:"autoCreateTime" json:"created_at"`
	Member    *Member                 `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (MembershipRequest) TableName() string {
	return "membership_requests"
}

// ============================================================
// Loans
// ============================================================

// Loan represents loans table. InterestRate is a percentage (5 means 5%).
type Loan struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	MemberID        uint              `gorm:"index;not null" json:"member_id"`
	AdminID         *uint             `json:"admin_id,omitempty"`
	GroupID         *uint             `gorm:"index" json:"group_id,omitempty"`
	Amount          decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	InterestRate    decimal.Decimal   `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	RepaymentPeriod int               `gorm:"not null" json:"repayment_period"`
	Purpose         string            `gorm:"type:text" json:"purpose"`
	Status          domain.LoanStatus `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	TotalRepayment  decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"total_repayment"`
	TotalPaid       decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"total_paid"`
	RequestedAt     time.Time         `gorm:"not null" json:"requested_at"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	DecidedAt       *time.Time        `json:"decided_at,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string {
	return "loans"
}

// TotalDue is principal plus interest
func (l *Loan) TotalDue() decimal.Decimal {
	return domain.CalculateTotalDue(l.Amount, l.InterestRate)
}

// IsFullyPaid reports whether the loan has reached its payoff threshold
func (l *Loan) IsFullyPaid() bool {
	return domain.IsFullyPaid(l.TotalPaid, l.TotalDue())
}

// Balance is what remains to be repaid, never negative
func (l *Loan) Balance() decimal.Decimal {
	b := l.TotalDue().Sub(l.TotalPaid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// LoanResponse DTO
type LoanResponse struct {
	*Loan
	Balance decimal.Decimal `json:"balance"`
}

func (l *Loan) ToResponse() *LoanResponse {
	return &LoanResponse{Loan: l, Balance: l.Balance()}
}

// LoanPayment represents loan_payments table. Reference is unique so the
// same external payment can never be counted twice.
type LoanPayment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	LoanID     uint            `gorm:"index;not null" json:"loan_id"`
	RecordedBy uint            `gorm:"not null" json:"recorded_by"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Reference  string          `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LoanPayment) TableName() string {
	return "loan_payments"
}

// ============================================================
// Savings
// ============================================================

// SavingsDeposit represents savings_deposits table
type SavingsDeposit struct {
	ID             uint                 `gorm:"primaryKey" json:"id"`
	MemberID       uint                 `gorm:"index;not null" json:"member_id"`
	Amount         decimal.Decimal      `gorm:"type:decimal(15,2);not null" json:"amount"`
	Phone          string               `gorm:"size:20" json:"phone"`
	IdempotencyKey string               `gorm:"uniqueIndex;size:64;not null" json:"-"`
	TransactionRef *string              `gorm:"uniqueIndex;size:100" json:"-"`
	PaymentStatus  domain.PaymentStatus `gorm:"size:20;index;not null;default:'pending'" json:"payment_status"`
	FailureReason  string               `gorm:"size:255" json:"failure_reason,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CreatedAt      time.Time            `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SavingsDeposit) TableName() string {
	return "savings_deposits"
}

// ============================================================
// Notifications, Meetings, Chat
// ============================================================

// Notification represents notifications table
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"index;not null" json:"member_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Meeting represents meetings table
type Meeting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GroupID     uint      `gorm:"index;not null" json:"group_id"`
	Title       string    `gorm:"size:120;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ScheduledAt time.Time `gorm:"index;not null" json:"scheduled_at"`
	CreatedBy   uint      `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Meeting) TableName() string {
	return "meetings"
}

// Message represents group chat messages table
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"index;not null" json:"group_id"`
	MemberID  uint      `gorm:"index;not null" json:"member_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	Member    *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&RefreshToken{},
		&Group{},
		&GroupMember{},
		&MembershipRequest{},
		&Loan{},
		&LoanPayment{},
		&SavingsDeposit{},
		&Notification{},
		&Meeting{},
		&Message{},
	)
}
