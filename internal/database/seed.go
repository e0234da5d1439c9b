package database

import (
	"fmt"
	"log"

	"go-sales-crm/internal/config"
	"go-sales-crm/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultStatuses are the quote statuses every installation needs.
var DefaultStatuses = []models.QuoteStatus{
	{Code: models.StatusDraft, Name: "Draft"},
	{Code: models.StatusSent, Name: "Sent"},
	{Code: models.StatusAccepted, Name: "Accepted"},
	{Code: models.StatusRejected, Name: "Rejected"},
	{Code: models.StatusExpired, Name: "Expired"},
}

// Seed is idempotent: running it twice leaves one row per status.
func Seed(db *gorm.DB, cfg config.Config) error {
	if err := SeedStatuses(db); err != nil {
		return err
	}
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := seedAdmin(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return err
		}
	}
	return nil
}

func SeedStatuses(db *gorm.DB) error {
	for _, s := range DefaultStatuses {
		status := s
		if err := db.Where(models.QuoteStatus{Code: status.Code}).
			Attrs(models.QuoteStatus{Name: status.Name}).
			FirstOrCreate(&status).Error; err != nil {
			return fmt.Errorf("seed status %s: %w", status.Code, err)
		}
	}
	return nil
}

func seedAdmin(db *gorm.DB, username, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user := models.User{Username: username, PasswordHash: string(hash), Role: models.RoleAdmin}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("👤 Admin user %q created", username)
	return nil
}
