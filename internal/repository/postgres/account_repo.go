package postgres

import (
	"context"

	"github.com/campushq/campus-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) GetByProviderSubject(ctx context.Context, provider, subject string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).
		First(&account, "provider = ? AND provider_account_id = ?", provider, subject).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := r.db.WithContext(ctx).Find(&accounts, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// LinkNewUser creates a federated-only user and its identity link atomically.
// A failure on either insert rolls back both, so no link can point at a user
// that was never committed.
func (r *accountRepository) LinkNewUser(ctx context.Context, user *domain.User, account *domain.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		account.UserID = user.ID
		return tx.Create(account).Error
	})
}
