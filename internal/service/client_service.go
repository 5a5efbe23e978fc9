package service

import (
	"context"
	"errors"

	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// dummyHash is compared against when the client id (or user email) is
// unknown, so a miss costs the same as a secret mismatch.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("campus-api.timing.pad"), bcrypt.DefaultCost)

// ClientService gates every auth flow on first-party API client credentials.
type ClientService struct {
	clients repository.ApiClientRepository
}

func NewClientService(clients repository.ApiClientRepository) *ClientService {
	return &ClientService{clients: clients}
}

// Authenticate returns the client when the id resolves, the secret matches
// and the client is active. All failure modes collapse into
// ErrInvalidClient so callers cannot enumerate client ids.
func (s *ClientService) Authenticate(ctx context.Context, clientID, clientSecret string) (*domain.ApiClient, error) {
	if clientID == "" || clientSecret == "" {
		return nil, domain.ErrInvalidClient
	}

	client, err := s.clients.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(clientSecret))
			return nil, domain.ErrInvalidClient
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(clientSecret)); err != nil {
		return nil, domain.ErrInvalidClient
	}
	if !client.Active {
		return nil, domain.ErrInvalidClient
	}

	return client, nil
}
