package services

import (
	"bytes"
	"context"
	"sync"
	"text/template"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"

	"github.com/google/uuid"
)

const emailSubject = "SACCO notification"

var emailTemplate = template.Must(template.New("email").Parse(`Hello {{.Username}},

{{.Message}}

Sent {{.SentAt}}
`))

// NotificationService persists member notifications and delivers them
// over the event hub and email once the triggering transaction commits.
type NotificationService struct {
	notificationRepo repositories.NotificationRepository
	memberRepo       repositories.MemberRepository
	hub              *EventHub
	mailer           Mailer
	wg               sync.WaitGroup
}

// NewNotificationService creates a new notification service. hub and mailer may be nil.
func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	memberRepo repositories.MemberRepository,
	hub *EventHub,
	mailer Mailer,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		memberRepo:       memberRepo,
		hub:              hub,
		mailer:           mailer,
	}
}

// Notify stores a notification for a member. When ctx carries a transaction
// the row commits or rolls back with it.
func (s *NotificationService) Notify(ctx context.Context, memberID uint, text string) (*models.Notification, error) {
	n := &models.Notification{
		MemberID: memberID,
		Message:  text,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, domain.Persistence(err)
	}
	return n, nil
}

// Deliver pushes committed notifications to open streams and emails a copy
// in the background. Failures are logged and never retried.
func (s *NotificationService) Deliver(notes ...*models.Notification) {
	if len(notes) == 0 {
		return
	}

	if s.hub != nil {
		for _, n := range notes {
			s.hub.SendToMember(n.MemberID, Event{Name: "notification", Data: n})
		}
	}

	if s.mailer == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.sendEmails(ctx, notes)
	}()
}

// Subscribe opens the member's personal notification stream. Returns nil
// when no hub is configured.
func (s *NotificationService) Subscribe(memberID uint) *Subscriber {
	if s.hub == nil {
		return nil
	}
	sub := &Subscriber{
		ID:       "notify-" + uuid.NewString(),
		MemberID: memberID,
		Channel:  make(chan Event, 50),
	}
	s.hub.Register(sub)
	return sub
}

// Unsubscribe closes a notification stream
func (s *NotificationService) Unsubscribe(id string) {
	if s.hub != nil {
		s.hub.Unregister(id)
	}
}

func (s *NotificationService) sendEmails(ctx context.Context, notes []*models.Notification) {
	ids := make([]uint, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.MemberID)
	}

	members, err := s.memberRepo.GetByIDs(ctx, ids)
	if err != nil {
		logger.L().Errorw("❌ Notification email lookup failed", "error", err)
		return
	}
	byID := make(map[uint]*models.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	for _, n := range notes {
		m, ok := byID[n.MemberID]
		if !ok || m.Email == "" {
			continue
		}

		var body bytes.Buffer
		err := emailTemplate.Execute(&body, map[string]string{
			"Username": m.Username,
			"Message":  n.Message,
			"SentAt":   n.CreatedAt.Format("2006-01-02 15:04"),
		})
		if err != nil {
			logger.L().Errorw("❌ Notification email render failed", "notification", n.ID, "error", err)
			continue
		}

		if err := s.mailer.Send(ctx, m.Email, emailSubject, body.String()); err != nil {
			logger.L().Warnw("⚠️ Notification email not sent", "notification", n.ID, "member", m.ID, "error", err)
		}
	}
}

// Wait blocks until background email delivery has finished
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// List lists a member's notifications, newest first
func (s *NotificationService) List(ctx context.Context, memberID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	items, total, err := s.notificationRepo.ListByMember(ctx, memberID, unreadOnly, offset, limit)
	if err != nil {
		return nil, 0, domain.Persistence(err)
	}
	return items, total, nil
}

// CountUnread counts a member's unread notifications
func (s *NotificationService) CountUnread(ctx context.Context, memberID uint) (int64, error) {
	n, err := s.notificationRepo.CountUnread(ctx, memberID)
	if err != nil {
		return 0, domain.Persistence(err)
	}
	return n, nil
}

// MarkRead flags one notification of the member as read
func (s *NotificationService) MarkRead(ctx context.Context, memberID, notificationID uint) error {
	rows, err := s.notificationRepo.MarkRead(ctx, notificationID, memberID)
	if err != nil {
		return domain.Persistence(err)
	}
	if rows == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the member as read
func (s *NotificationService) MarkAllRead(ctx context.Context, memberID uint) (int64, error) {
	rows, err := s.notificationRepo.MarkAllRead(ctx, memberID)
	if err != nil {
		return 0, domain.Persistence(err)
	}
	return rows, nil
}

// outbox collects notifications written inside a transaction so they are
// delivered only after it commits
type outbox struct {
	svc   *NotificationService
	notes []*models.Notification
}

func (s *NotificationService) newOutbox() *outbox {
	return &outbox{svc: s}
}

func (o *outbox) notify(ctx context.Context, memberID uint, text string) error {
	n, err := o.svc.Notify(ctx, memberID, text)
	if err != nil {
		return err
	}
	o.notes = append(o.notes, n)
	return nil
}

func (o *outbox) flush() {
	o.svc.Deliver(o.notes...)
	o.notes = nil
}
