package postgres

import (
	"context"

	"github.com/campushq/campus-api/internal/domain"
	"gorm.io/gorm"
)

type apiClientRepository struct {
	db *gorm.DB
}

func NewApiClientRepository(db *gorm.DB) *apiClientRepository {
	return &apiClientRepository{db: db}
}

func (r *apiClientRepository) GetByClientID(ctx context.Context, clientID string) (*domain.ApiClient, error) {
	var client domain.ApiClient
	err := r.db.WithContext(ctx).First(&client, "client_id = ?", clientID).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *apiClientRepository) Create(ctx context.Context, client *domain.ApiClient) error {
	return r.db.WithContext(ctx).Create(client).Error
}
