package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/models"
)

type Repositories struct {
	EmailRecordRepository interfaces.EmailRecordRepository
	AccessUserRepository  interfaces.AccessUserRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailRecordRepository: NewEmailRecordRepository(db),
		AccessUserRepository:  NewAccessUserRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.EmailRecord{},
		&models.AccessUser{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
