package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/yunusmujadidi/purchase-order/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedSuperAdmin creates the initial SUPERADMIN account when ADMIN_PASSWORD is set
// and no user with that username exists yet.
func SeedSuperAdmin(db *gorm.DB, cfg *Config) error {
	if cfg.AdminPassword == "" {
		log.Println("ADMIN_PASSWORD not set, skipping superadmin seed")
		return nil
	}

	var existing models.User
	err := db.Unscoped().Where("username = ?", cfg.AdminUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up superadmin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash superadmin password: %w", err)
	}

	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUsername + "@internal.local"
	}

	admin := models.User{
		Username:     cfg.AdminUsername,
		Email:        email,
		Name:         "Super Admin",
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create superadmin: %w", err)
	}

	log.Printf("Seeded superadmin account %q", admin.Username)
	return nil
}
