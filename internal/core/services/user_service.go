package services

import (
	"context"
	"errors"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"
	"sacco-hub/internal/pkg/password"
)

// User service errors
var (
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
)

// UserService handles member account management
type UserService struct {
	memberRepo repositories.MemberRepository
	notifier   *NotificationService
}

// NewUserService creates a new user service
func NewUserService(memberRepo repositories.MemberRepository, notifier *NotificationService) *UserService {
	return &UserService{
		memberRepo: memberRepo,
		notifier:   notifier,
	}
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ListMembersOutput represents a page of members
type ListMembersOutput struct {
	Members []*models.MemberResponse `json:"members"`
	Total   int64                    `json:"total"`
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, memberID uint) (*models.MemberResponse, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, storeErr(err, domain.ErrMemberNotFound)
	}
	return member.ToResponse(), nil
}

// ListMembers lists all members, admins only
func (s *UserService) ListMembers(ctx context.Context, actor domain.Actor, offset, limit int) (*ListMembersOutput, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}

	members, total, err := s.memberRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, domain.Persistence(err)
	}

	out := &ListMembersOutput{
		Members: make([]*models.MemberResponse, len(members)),
		Total:   total,
	}
	for i, m := range members {
		out.Members[i] = m.ToResponse()
	}
	return out, nil
}

// SetRole changes another member's application role
func (s *UserService) SetRole(ctx context.Context, actor domain.Actor, memberID uint, role domain.Role) (*models.MemberResponse, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	if role != domain.RoleMember && role != domain.RoleAdmin {
		return nil, domain.Invalid("role must be %q or %q", domain.RoleMember, domain.RoleAdmin)
	}
	if memberID == actor.MemberID {
		return nil, ErrCannotChangeOwnRole
	}

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, storeErr(err, domain.ErrMemberNotFound)
	}
	if member.Role == role {
		return member.ToResponse(), nil
	}

	if _, err := s.memberRepo.UpdateRole(ctx, memberID, role); err != nil {
		return nil, domain.Persistence(err)
	}
	member.Role = role

	if role == domain.RoleAdmin {
		if n, err := s.notifier.Notify(ctx, memberID, "You have been granted administrator rights."); err == nil {
			s.notifier.Deliver(n)
		}
	}

	logger.L().Infow("✅ Member role changed", "member", memberID, "role", role, "by", actor.MemberID)
	return member.ToResponse(), nil
}

// ChangePassword changes the member's own password
func (s *UserService) ChangePassword(ctx context.Context, memberID uint, input *ChangePasswordInput) error {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return storeErr(err, domain.ErrMemberNotFound)
	}

	if !password.Verify(input.OldPassword, member.Password) {
		return ErrOldPasswordWrong
	}
	if err := password.Check(input.NewPassword, member.Username); err != nil {
		return domain.Invalid("new %v", err)
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.memberRepo.UpdatePassword(ctx, memberID, hashed); err != nil {
		return domain.Persistence(err)
	}

	logger.L().Infow("✅ Password changed", "member", memberID)
	return nil
}
