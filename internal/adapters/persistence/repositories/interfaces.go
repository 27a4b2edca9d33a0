package repositories

import (
	"context"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"

	"github.com/shopspring/decimal"
)

// MemberRepository defines member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Member, error)
	GetByUsername(ctx context.Context, username string) (*models.Member, error)
	List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error)
	ListAdminIDs(ctx context.Context) ([]uint, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	AddSavings(ctx context.Context, id uint, amount decimal.Decimal) error
	UpdateRole(ctx context.Context, id uint, role domain.Role) (int64, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByMemberID(ctx context.Context, memberID uint) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// GroupRepository defines group and roster access
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Group, error)
	List(ctx context.Context, offset, limit int) ([]*models.Group, int64, error)
	ReassignAdmin(ctx context.Context, groupID, fromAdminID, toAdminID uint) (int64, error)
	AddMember(ctx context.Context, groupID, memberID uint) (bool, error)
	IsMember(ctx context.Context, groupID, memberID uint) (bool, error)
	ListMembers(ctx context.Context, groupID uint) ([]*models.GroupMember, error)
	MemberIDs(ctx context.Context, groupID uint) ([]uint, error)
}

// MembershipRequestRepository defines membership request access
type MembershipRequestRepository interface {
	Create(ctx context.Context, req *models.MembershipRequest) error
	HasPending(ctx context.Context, groupID, memberID uint) (bool, error)
	Resolve(ctx context.Context, groupID, memberID uint, status domain.MembershipStatus, decidedBy uint, at time.Time) (int64, error)
	ListPending(ctx context.Context, groupID uint) ([]*models.MembershipRequest, error)
}

// LoanRepository defines loan and loan payment access
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error)
	ListByMember(ctx context.Context, memberID uint) ([]*models.Loan, error)
	ListByStatus(ctx context.Context, status domain.LoanStatus, offset, limit int) ([]*models.Loan, int64, error)
	Decide(ctx context.Context, id uint, to domain.LoanStatus, adminID uint, at time.Time) (int64, error)
	UpdateRepayment(ctx context.Context, loan *models.Loan) error
	CreatePayment(ctx context.Context, payment *models.LoanPayment) error
	GetPaymentByReference(ctx context.Context, reference string) (*models.LoanPayment, error)
	ListPayments(ctx context.Context, loanID uint) ([]*models.LoanPayment, error)
}

// SavingsRepository defines savings deposit access
type SavingsRepository interface {
	Create(ctx context.Context, deposit *models.SavingsDeposit) error
	GetByTransactionRefForUpdate(ctx context.Context, ref string) (*models.SavingsDeposit, error)
	SetTransactionRef(ctx context.Context, id uint, ref string) error
	Transition(ctx context.Context, id uint, from, to domain.PaymentStatus, reason string, at time.Time) (int64, error)
	ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsDeposit, int64, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*models.SavingsDeposit, error)
}

// NotificationRepository defines notification access
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByMember(ctx context.Context, memberID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, memberID uint) (int64, error)
	MarkRead(ctx context.Context, id, memberID uint) (int64, error)
	MarkAllRead(ctx context.Context, memberID uint) (int64, error)
}

// MeetingRepository defines meeting access
type MeetingRepository interface {
	Create(ctx context.Context, m *models.Meeting) error
	ListByGroup(ctx context.Context, groupID uint, from time.Time) ([]*models.Meeting, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.Meeting, error)
}

// MessageRepository defines group chat message access
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ListByGroup(ctx context.Context, groupID uint, limit int) ([]*models.Message, error)
}
