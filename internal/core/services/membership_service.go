package services

import (
	"context"
	"errors"
	"strings"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"

	"gorm.io/gorm"
)

// MembershipService governs groups, their rosters and membership requests
type MembershipService struct {
	tx          repositories.Transactor
	groupRepo   repositories.GroupRepository
	requestRepo repositories.MembershipRequestRepository
	memberRepo  repositories.MemberRepository
	notifier    *NotificationService
}

// NewMembershipService creates a new membership service
func NewMembershipService(
	tx repositories.Transactor,
	groupRepo repositories.GroupRepository,
	requestRepo repositories.MembershipRequestRepository,
	memberRepo repositories.MemberRepository,
	notifier *NotificationService,
) *MembershipService {
	return &MembershipService{
		tx:          tx,
		groupRepo:   groupRepo,
		requestRepo: requestRepo,
		memberRepo:  memberRepo,
		notifier:    notifier,
	}
}

// CreateGroupInput represents group creation input
type CreateGroupInput struct {
	Name        string
	Description string
}

// CreateGroup creates a group owned by the actor, who becomes its first member
func (s *MembershipService) CreateGroup(ctx context.Context, actor domain.Actor, input CreateGroupInput) (*models.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.Invalid("group name is required")
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		AdminID:     actor.MemberID,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.groupRepo.Create(ctx, group); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrGroupNameTaken
			}
			return domain.Persistence(err)
		}
		if _, err := s.groupRepo.AddMember(ctx, group.ID, actor.MemberID); err != nil {
			return domain.Persistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Infow("✅ Group created", "group", group.ID, "admin", actor.MemberID)
	return group, nil
}

// GetGroup gets a group by ID
func (s *MembershipService) GetGroup(ctx context.Context, groupID uint) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, storeErr(err, domain.ErrGroupNotFound)
	}
	return group, nil
}

// ListGroups lists groups with pagination
func (s *MembershipService) ListGroups(ctx context.Context, offset, limit int) ([]*models.Group, int64, error) {
	groups, total, err := s.groupRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, domain.Persistence(err)
	}
	return groups, total, nil
}

// ListRoster lists the members of a group
func (s *MembershipService) ListRoster(ctx context.Context, groupID uint) ([]*models.GroupMember, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return rows, nil
}

// IsMember reports whether memberID is on the group's roster
func (s *MembershipService) IsMember(ctx context.Context, groupID, memberID uint) (bool, error) {
	ok, err := s.groupRepo.IsMember(ctx, groupID, memberID)
	if err != nil {
		return false, domain.Persistence(err)
	}
	return ok, nil
}

// RequireMember fails with ErrNotAMember unless memberID is on the roster
func (s *MembershipService) RequireMember(ctx context.Context, groupID, memberID uint) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ok, err := s.IsMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotAMember
	}
	return group, nil
}

// RequestMembership creates a pending request for memberID to join groupID
func (s *MembershipService) RequestMembership(ctx context.Context, memberID, groupID uint) (*models.MembershipRequest, error) {
	box := s.notifier.newOutbox()
	req := &models.MembershipRequest{
		GroupID:  groupID,
		MemberID: memberID,
		Status:   domain.MembershipPending,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// the group row lock serializes concurrent requests for the same group
		group, err := s.groupRepo.GetByIDForUpdate(ctx, groupID)
		if err != nil {
			return storeErr(err, domain.ErrGroupNotFound)
		}

		member, err := s.memberRepo.GetByID(ctx, memberID)
		if err != nil {
			return storeErr(err, domain.ErrMemberNotFound)
		}

		isMember, err := s.groupRepo.IsMember(ctx, groupID, memberID)
		if err != nil {
			return domain.Persistence(err)
		}
		if isMember {
			return domain.ErrAlreadyMember
		}

		pending, err := s.requestRepo.HasPending(ctx, groupID, memberID)
		if err != nil {
			return domain.Persistence(err)
		}
		if pending {
			return domain.ErrDuplicateRequest
		}

		if err := s.requestRepo.Create(ctx, req); err != nil {
			return domain.Persistence(err)
		}

		return box.notify(ctx, group.AdminID, membershipRequestedText(member.Username, group.Name))
	})
	if err != nil {
		return nil, err
	}

	box.flush()
	logger.L().Infow("✅ Membership requested", "group", groupID, "member", memberID)
	return req, nil
}

// ListPendingRequests lists pending requests. Only the group admin may see them.
func (s *MembershipService) ListPendingRequests(ctx context.Context, groupID, actingAdminID uint) ([]*models.MembershipRequest, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.AdminID != actingAdminID {
		return nil, domain.ErrNotGroupAdmin
	}

	reqs, err := s.requestRepo.ListPending(ctx, groupID)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return reqs, nil
}

// DecideMembership admits or rejects the pending request of memberID.
// Roster change, request resolution and the notification commit together.
func (s *MembershipService) DecideMembership(ctx context.Context, groupID, memberID uint, decision domain.MembershipDecision, actingAdminID uint) (domain.MembershipStatus, error) {
	status, err := decision.Resolved()
	if err != nil {
		return "", err
	}

	box := s.notifier.newOutbox()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		group, err := s.groupRepo.GetByIDForUpdate(ctx, groupID)
		if err != nil {
			return storeErr(err, domain.ErrGroupNotFound)
		}
		if group.AdminID != actingAdminID {
			return domain.ErrNotGroupAdmin
		}

		rows, err := s.requestRepo.Resolve(ctx, groupID, memberID, status, actingAdminID, domain.Clock())
		if err != nil {
			return domain.Persistence(err)
		}
		if rows == 0 {
			return domain.ErrRequestNotFound
		}

		if status == domain.MembershipAdmitted {
			if _, err := s.groupRepo.AddMember(ctx, groupID, memberID); err != nil {
				return domain.Persistence(err)
			}
		}

		return box.notify(ctx, memberID, membershipDecisionText(group.Name, string(status)))
	})
	if err != nil {
		return "", err
	}

	box.flush()
	logger.L().Infow("✅ Membership decided", "group", groupID, "member", memberID, "status", status)
	return status, nil
}

// PromoteAdmin hands the group admin role to a current roster member
func (s *MembershipService) PromoteAdmin(ctx context.Context, groupID, candidateID, actingAdminID uint) (*models.Group, error) {
	box := s.notifier.newOutbox()
	var group *models.Group

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		group, err = s.groupRepo.GetByIDForUpdate(ctx, groupID)
		if err != nil {
			return storeErr(err, domain.ErrGroupNotFound)
		}
		if group.AdminID != actingAdminID {
			return domain.ErrNotGroupAdmin
		}

		onRoster, err := s.groupRepo.IsMember(ctx, groupID, candidateID)
		if err != nil {
			return domain.Persistence(err)
		}
		if !onRoster {
			return domain.ErrNotAMember
		}
		if candidateID == actingAdminID {
			return nil
		}

		rows, err := s.groupRepo.ReassignAdmin(ctx, groupID, actingAdminID, candidateID)
		if err != nil {
			return domain.Persistence(err)
		}
		if rows == 0 {
			return domain.ErrNotGroupAdmin
		}
		group.AdminID = candidateID

		return box.notify(ctx, candidateID, promotedText(group.Name))
	})
	if err != nil {
		return nil, err
	}

	box.flush()
	logger.L().Infow("✅ Group admin reassigned", "group", groupID, "admin", group.AdminID)
	return group, nil
}
