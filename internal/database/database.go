package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/models"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema. Split out so tests can run it
// against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Parcel{},
		&models.StatusLog{},
	)
}
