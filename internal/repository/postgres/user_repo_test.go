package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/repository/postgres"
	"github.com/campushq/campus-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		wantErr bool
	}{
		{
			name: "successful creation",
			user: &domain.User{
				ID:           uuid.New(),
				Email:        "create@example.com",
				PasswordHash: "hashedpassword",
				FirstName:    "First",
				LastName:     "Last",
				Active:       true,
			},
			wantErr: false,
		},
		{
			name: "duplicate email",
			user: &domain.User{
				ID:           uuid.New(),
				Email:        "create@example.com", // Same as above
				PasswordHash: "hashedpassword2",
				Active:       true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithEmail("lookup@example.com").Build(t, testDB.DB)

	// Lookup normalizes case and whitespace.
	got, err := repo.GetByEmail(ctx, "  LOOKUP@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_SoftDeleteHidesUser(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithEmail("gone@example.com").Build(t, testDB.DB)

	require.NoError(t, testDB.DB.Delete(&domain.User{}, "id = ?", user.ID).Error)

	_, err := repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetByEmail(ctx, "gone@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The row survives the delete; only normal lookups stop seeing it.
	var count int64
	require.NoError(t, testDB.DB.Unscoped().Model(&domain.User{}).Where("id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUserRepository_MarkEmailVerified(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithEmail("verifyme@example.com").Build(t, testDB.DB)
	require.False(t, user.EmailVerified)

	now := time.Now()
	require.NoError(t, repo.MarkEmailVerified(ctx, user.ID, now))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	require.NotNil(t, got.EmailVerifiedAt)
	assert.WithinDuration(t, now, *got.EmailVerifiedAt, time.Second)
}

func TestUserRepository_TouchLastLogin(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	require.Nil(t, user.LastLoginAt)

	now := time.Now()
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, now))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.WithinDuration(t, now, *got.LastLoginAt, time.Second)
}
