package database

import (
	"log"
	"strings"

	"github.com/microcred/microcred-api/internal/config"
	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	dsn := cfg.DatabasePath
	if !strings.Contains(dsn, "?") {
		// enforce the declared FK actions (CASCADE / SET NULL)
		dsn += "?_fk=1"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	if err := SeedRoles(db); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}

	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPass != "" {
		if err := SeedAdmin(db, cfg.SeedAdminEmail, cfg.SeedAdminPass); err != nil {
			log.Fatalf("Failed to seed admin user: %v", err)
		}
	}

	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Award{},
		&models.Achievement{},
		&models.Icon{},
		&models.APIKey{},
	)
}

// SeedRoles inserts the closed role set; safe to run on every start.
func SeedRoles(db *gorm.DB) error {
	for _, name := range models.AllRoles {
		role := models.Role{Name: name}
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates a bootstrap admin account if the email is not taken.
func SeedAdmin(db *gorm.DB, email, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	user := models.User{Email: email}
	if err := user.SetPassword(password); err != nil {
		return err
	}

	var admin models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&admin).Error; err != nil {
		return err
	}
	user.Roles = []models.Role{admin}

	return db.Create(&user).Error
}
