package services

import (
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/config"

	"gorm.io/gorm"
)

// Services bundles the application services sharing one database and hub
type Services struct {
	Hub          *EventHub
	Auth         *AuthService
	User         *UserService
	Membership   *MembershipService
	Loan         *LoanService
	Savings      *SavingsService
	Notification *NotificationService
	Meeting      *MeetingService
	Chat         *ChatService
	Dashboard    *DashboardService
}

// New wires repositories and services. mailer may be nil.
func New(db *gorm.DB, cfg *config.Config, gateway PaymentGateway, mailer Mailer) *Services {
	tx := repositories.NewTransactor(db)

	memberRepo := repositories.NewMemberRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	groupRepo := repositories.NewGroupRepository(db)
	requestRepo := repositories.NewMembershipRequestRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	savingsRepo := repositories.NewSavingsRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	meetingRepo := repositories.NewMeetingRepository(db)
	messageRepo := repositories.NewMessageRepository(db)

	hub := NewEventHub()
	notifier := NewNotificationService(notificationRepo, memberRepo, hub, mailer)
	membership := NewMembershipService(tx, groupRepo, requestRepo, memberRepo, notifier)

	return &Services{
		Hub:          hub,
		Auth:         NewAuthService(memberRepo, refreshTokenRepo, cfg),
		User:         NewUserService(memberRepo, notifier),
		Membership:   membership,
		Loan:         NewLoanService(tx, loanRepo, memberRepo, groupRepo, notifier, cfg),
		Savings:      NewSavingsService(tx, savingsRepo, memberRepo, gateway, notifier, cfg),
		Notification: notifier,
		Meeting:      NewMeetingService(tx, meetingRepo, groupRepo, membership, notifier),
		Chat:         NewChatService(messageRepo, memberRepo, membership, hub, cfg.Sacco.ChatHistoryLimit),
		Dashboard:    NewDashboardService(db),
	}
}

// Cron builds the maintenance scheduler over these services
func (s *Services) Cron() *CronService {
	return NewCronService(s.Savings, s.Meeting, s.Auth)
}
