package services

import (
	"context"
	"strings"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"
)

const (
	meetingDateLayout = "2006-01-02"
	meetingTimeLayout = "15:04"
)

// MeetingService schedules group meetings and reminds rosters about them
type MeetingService struct {
	tx          repositories.Transactor
	meetingRepo repositories.MeetingRepository
	groupRepo   repositories.GroupRepository
	membership  *MembershipService
	notifier    *NotificationService
}

// NewMeetingService creates a new meeting service
func NewMeetingService(
	tx repositories.Transactor,
	meetingRepo repositories.MeetingRepository,
	groupRepo repositories.GroupRepository,
	membership *MembershipService,
	notifier *NotificationService,
) *MeetingService {
	return &MeetingService{
		tx:          tx,
		meetingRepo: meetingRepo,
		groupRepo:   groupRepo,
		membership:  membership,
		notifier:    notifier,
	}
}

// ScheduleMeetingInput represents a meeting to schedule. Date is YYYY-MM-DD, Time is HH:MM.
type ScheduleMeetingInput struct {
	Title       string
	Description string
	Date        string
	Time        string
}

// ScheduleMeeting creates a meeting and notifies every roster member
func (s *MeetingService) ScheduleMeeting(ctx context.Context, groupID uint, actor domain.Actor, input ScheduleMeetingInput) (*models.Meeting, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.Invalid("meeting title is required")
	}

	at, err := time.ParseInLocation(meetingDateLayout+" "+meetingTimeLayout, input.Date+" "+input.Time, time.Local)
	if err != nil {
		return nil, domain.Invalid("meeting date must be YYYY-MM-DD and time HH:MM")
	}
	if !at.After(domain.Clock()) {
		return nil, domain.Invalid("meeting must be scheduled in the future")
	}

	meeting := &models.Meeting{
		GroupID:     groupID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		ScheduledAt: at,
		CreatedBy:   actor.MemberID,
	}

	box := s.notifier.newOutbox()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		group, err := s.membership.RequireMember(ctx, groupID, actor.MemberID)
		if err != nil {
			return err
		}

		if err := s.meetingRepo.Create(ctx, meeting); err != nil {
			return domain.Persistence(err)
		}

		ids, err := s.groupRepo.MemberIDs(ctx, groupID)
		if err != nil {
			return domain.Persistence(err)
		}
		text := meetingScheduledText(title, group.Name, input.Date, input.Time)
		for _, id := range ids {
			if err := box.notify(ctx, id, text); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	box.flush()
	logger.L().Infow("✅ Meeting scheduled", "meeting", meeting.ID, "group", groupID, "at", at)
	return meeting, nil
}

// ListMeetings lists the group's meetings from today on, for roster members
func (s *MeetingService) ListMeetings(ctx context.Context, groupID uint, actor domain.Actor) ([]*models.Meeting, error) {
	if _, err := s.membership.RequireMember(ctx, groupID, actor.MemberID); err != nil {
		return nil, err
	}

	now := domain.Clock()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	meetings, err := s.meetingRepo.ListByGroup(ctx, groupID, today)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return meetings, nil
}

// SendReminders notifies rosters about meetings scheduled for the day after now.
// Returns the number of notifications written.
func (s *MeetingService) SendReminders(ctx context.Context, now time.Time) (int, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 1)

	meetings, err := s.meetingRepo.ListBetween(ctx, start, end)
	if err != nil {
		return 0, domain.Persistence(err)
	}

	sent := 0
	groups := make(map[uint]*models.Group)
	for _, m := range meetings {
		group, ok := groups[m.GroupID]
		if !ok {
			group, err = s.groupRepo.GetByID(ctx, m.GroupID)
			if err != nil {
				logger.L().Errorw("❌ Reminder group lookup failed", "meeting", m.ID, "error", err)
				continue
			}
			groups[m.GroupID] = group
		}

		ids, err := s.groupRepo.MemberIDs(ctx, m.GroupID)
		if err != nil {
			logger.L().Errorw("❌ Reminder roster lookup failed", "meeting", m.ID, "error", err)
			continue
		}

		box := s.notifier.newOutbox()
		text := meetingReminderText(m.Title, group.Name, m.ScheduledAt.Format(meetingTimeLayout))
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			for _, id := range ids {
				if err := box.notify(ctx, id, text); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			logger.L().Errorw("❌ Reminder notify failed", "meeting", m.ID, "error", err)
			continue
		}
		box.flush()
		sent += len(ids)
	}

	return sent, nil
}
