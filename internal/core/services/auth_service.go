package services

import (
	"context"
	"errors"
	"strings"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/config"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/jwt"
	"sacco-hub/internal/pkg/logger"
	"sacco-hub/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("username or email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUserInactive       = errors.New("user account is inactive")
)

// AuthService handles authentication business logic
type AuthService struct {
	memberRepo       repositories.MemberRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	cfg              *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	memberRepo repositories.MemberRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		memberRepo:       memberRepo,
		refreshTokenRepo: refreshTokenRepo,
		cfg:              cfg,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=9,max=20"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Member       *models.MemberResponse `json:"member"`
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
}

// Register creates a member account with the member role
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := password.Check(input.Password, username); err != nil {
		return nil, domain.Invalid("%v", err)
	}

	exists, err := s.memberRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	exists, err = s.memberRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		Username: username,
		Email:    email,
		Phone:    strings.TrimSpace(input.Phone),
		Password: hashedPassword,
		Role:     domain.RoleMember,
		IsActive: true,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, domain.Persistence(err)
	}

	resp, err := s.issue(ctx, member)
	if err != nil {
		return nil, err
	}

	logger.L().Infow("✅ Member registered", "username", member.Username, "member", member.ID)
	return resp, nil
}

// Login authenticates a member
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	member, err := s.memberRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, domain.Persistence(err)
	}

	if !member.IsActive {
		return nil, ErrUserInactive
	}

	if !password.Verify(input.Password, member.Password) {
		return nil, ErrInvalidCredentials
	}
	if password.NeedsRehash(member.Password) {
		s.rehash(ctx, member.ID, input.Password)
	}

	resp, err := s.issue(ctx, member)
	if err != nil {
		return nil, err
	}

	logger.L().Infow("✅ Member logged in", "username", member.Username)
	return resp, nil
}

// rehash upgrades a stored hash to the current cost. Failure only delays
// the upgrade to the next login.
func (s *AuthService) rehash(ctx context.Context, memberID uint, plain string) {
	hashed, err := password.Hash(plain)
	if err == nil {
		err = s.memberRepo.UpdatePassword(ctx, memberID, hashed)
	}
	if err != nil {
		logger.L().Warnw("⚠️ Password rehash failed", "member", memberID, "error", err)
	}
}

// RefreshToken rotates a refresh token and issues a new pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, domain.Persistence(err)
	}

	if storedToken.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if storedToken.IsExpired() {
		return nil, ErrTokenExpired
	}
	if storedToken.MemberID != claims.MemberID {
		return nil, ErrInvalidToken
	}

	member, err := s.memberRepo.GetByID(ctx, claims.MemberID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !member.IsActive {
		return nil, ErrUserInactive
	}

	// rotation: the presented token is single use
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		return nil, domain.Persistence(err)
	}

	resp, err := s.issue(ctx, member)
	if err != nil {
		return nil, err
	}

	logger.L().Infow("✅ Token refreshed", "username", member.Username)
	return resp, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken)); err != nil {
		return domain.Persistence(err)
	}

	logger.L().Info("✅ Member logged out")
	return nil
}

// LogoutAll revokes all refresh tokens for a member
func (s *AuthService) LogoutAll(ctx context.Context, memberID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByMemberID(ctx, memberID); err != nil {
		return domain.Persistence(err)
	}

	logger.L().Infow("✅ All sessions revoked", "member", memberID)
	return nil
}

// PurgeExpiredTokens deletes refresh tokens past their expiry
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, domain.Persistence(err)
	}
	return n, nil
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret)
}

func (s *AuthService) issue(ctx context.Context, member *models.Member) (*AuthResponse, error) {
	tokens, err := s.generateTokens(member)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshToken(ctx, member.ID, tokens.RefreshToken); err != nil {
		return nil, domain.Persistence(err)
	}
	return &AuthResponse{
		Member:       member.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(member *models.Member) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		member.ID,
		member.Username,
		string(member.Role),
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		member.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// storeRefreshToken stores a refresh token hash in the database
func (s *AuthService) storeRefreshToken(ctx context.Context, memberID uint, refreshToken string) error {
	token := &models.RefreshToken{
		MemberID:  memberID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	return s.refreshTokenRepo.Create(ctx, token)
}
