package postgres

import (
	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	err = db.AutoMigrate(
		&domain.User{},
		&domain.Account{},
		&domain.Session{},
		&domain.ApiClient{},
		&domain.Plan{},
		&domain.Subscription{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:         NewUserRepository(db),
		Account:      NewAccountRepository(db),
		Session:      NewSessionRepository(db),
		ApiClient:    NewApiClientRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
