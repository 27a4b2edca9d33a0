package config

import (
	"errors"
	"fmt"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"
	"sacco-hub/internal/pkg/password"

	"gorm.io/gorm"
)

// devAdminPassword is only used in dev mode when SEED_ADMIN_PASSWORD is unset
const devAdminPassword = "admin123456"

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	logger.L().Info("🌱 Running database seeders...")

	if err := s.seedAdmin(); err != nil {
		logger.L().Warnw("⚠️ Admin seeder skipped", "error", err)
	}

	logger.L().Info("✅ Database seeding completed")
	return nil
}

// seedAdmin creates the first admin account when none exists
func (s *Seeder) seedAdmin() error {
	var count int64
	if err := s.db.Model(&models.Member{}).Where("role = ?", domain.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plain := s.cfg.Seed.AdminPassword
	if plain == "" {
		if s.cfg.IsProd() {
			return errors.New("SEED_ADMIN_PASSWORD is required in prod")
		}
		plain = devAdminPassword
	}

	if err := password.Check(plain, s.cfg.Seed.AdminUsername); err != nil {
		return fmt.Errorf("SEED_ADMIN_PASSWORD: %w", err)
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}

	admin := &models.Member{
		Username: s.cfg.Seed.AdminUsername,
		Email:    s.cfg.Seed.AdminEmail,
		Password: hashed,
		Role:     domain.RoleAdmin,
		IsActive: true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	logger.L().Infow("✅ Admin user created", "username", admin.Username)
	return nil
}
