package postgres_test

import (
	"context"
	"testing"

	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/repository/postgres"
	"github.com/campushq/campus-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAccountRepository_ProviderSubjectUnique(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewAccountRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	other, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	require.NoError(t, repo.Create(ctx, &domain.Account{
		UserID:            user.ID,
		Provider:          "google",
		ProviderAccountID: "subject-1",
		Type:              "oauth",
	}))

	// At most one user per external identity.
	err := repo.Create(ctx, &domain.Account{
		UserID:            other.ID,
		Provider:          "google",
		ProviderAccountID: "subject-1",
		Type:              "oauth",
	})
	assert.Error(t, err)

	// Same subject under a different provider is a different identity.
	assert.NoError(t, repo.Create(ctx, &domain.Account{
		UserID:            other.ID,
		Provider:          "github",
		ProviderAccountID: "subject-1",
		Type:              "oauth",
	}))

	got, err := repo.GetByProviderSubject(ctx, "google", "subject-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	_, err = repo.GetByProviderSubject(ctx, "google", "no-such-subject")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountRepository_LinkNewUser(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewAccountRepository(testDB.DB)
	ctx := context.Background()

	user := &domain.User{
		ID:            uuid.New(),
		Email:         "linked@example.com",
		Active:        true,
		EmailVerified: true,
	}
	account := &domain.Account{
		ID:                uuid.New(),
		Provider:          "google",
		ProviderAccountID: "subject-new",
		Type:              "oauth",
	}

	require.NoError(t, repo.LinkNewUser(ctx, user, account))
	assert.Equal(t, user.ID, account.UserID)

	links, err := repo.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "subject-new", links[0].ProviderAccountID)
}

func TestAccountRepository_LinkNewUser_RollsBack(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewAccountRepository(testDB.DB)
	ctx := context.Background()

	existing, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	require.NoError(t, repo.Create(ctx, &domain.Account{
		UserID:            existing.ID,
		Provider:          "google",
		ProviderAccountID: "subject-taken",
		Type:              "oauth",
	}))

	// The link insert collides, so the user insert must roll back with it.
	user := &domain.User{
		ID:     uuid.New(),
		Email:  "rollback@example.com",
		Active: true,
	}
	err := repo.LinkNewUser(ctx, user, &domain.Account{
		Provider:          "google",
		ProviderAccountID: "subject-taken",
		Type:              "oauth",
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, testDB.DB.Model(&domain.User{}).Where("email = ?", "rollback@example.com").Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
