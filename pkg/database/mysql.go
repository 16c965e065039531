package database

import (
	"fmt"
	"log"

	"webreplay/backend/internal/config"
	"webreplay/backend/internal/models"
	"webreplay/backend/pkg/auth"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDatabase(cfg *config.Config) error {
	var err error

	dsn := cfg.GetDSN()

	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connected successfully")

	return AutoMigrate()
}

func AutoMigrate() error {
	err := DB.AutoMigrate(
		&models.User{},
		&models.AutomationRecord{},
	)

	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database migration completed")

	return SeedDefaultData()
}

// SeedDefaultData creates the admin account on first boot so the API is
// usable before any registration happens.
func SeedDefaultData() error {
	var admin models.User
	err := DB.Where("username = ?", "admin").First(&admin).Error
	if err == gorm.ErrRecordNotFound {
		hashed, hashErr := auth.HashPassword("admin123")
		if hashErr != nil {
			return fmt.Errorf("failed to hash admin password: %w", hashErr)
		}
		admin = models.User{
			Username: "admin",
			Email:    "admin@webreplay.local",
			Password: hashed,
			Status:   1,
		}
		if err := DB.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		log.Println("Default admin user created")
	} else if err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}

	log.Println("Default data seeded successfully")
	return nil
}
