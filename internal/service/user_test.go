package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/mocks"
)

const testPassword = "correct-horse-battery"

func newUserFixture(t *testing.T) (*mocks.MockProfileRepository, *UserService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockProfileRepository(ctrl)
	return repo, NewUserService(UserServiceOptions{
		Profiles:   repo,
		BcryptCost: bcrypt.MinCost,
		Logger:     quietLogger(),
	})
}

func hashedProfile(t *testing.T, id string, role model.ProfileRole) *model.Profile {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	hash := string(h)
	return &model.Profile{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  "Pat Morgan",
		Role:         role,
		Active:       true,
		Confirmed:    true,
		PasswordHash: &hash,
	}
}

func TestUserService_Create(t *testing.T) {
	repo, svc := newUserFixture(t)
	req := &model.CreateProfileRequest{Email: " Pat@Example.com ", Password: testPassword}

	_, err := svc.Create(context.Background(), testUser, req)
	require.True(t, apperrors.IsForbidden(err))

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p core.CreateProfileParams) (*model.Profile, error) {
			assert.Equal(t, "pat@example.com", p.Email)
			assert.Equal(t, "pat@example.com", p.DisplayName)
			assert.Equal(t, model.ProfileRoleUser, p.Role)
			assert.True(t, p.Confirmed)
			require.NotNil(t, p.PasswordHash)
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(*p.PasswordHash), []byte(testPassword)))
			return &model.Profile{ID: "u-1", Email: p.Email, Role: p.Role}, nil
		})

	p, err := svc.Create(context.Background(), testAdmin, req)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)
}

func TestUserService_Create_WeakPassword(t *testing.T) {
	_, svc := newUserFixture(t)
	_, err := svc.Create(context.Background(), testAdmin, &model.CreateProfileRequest{Email: "a@example.com", Password: "short"})
	require.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "password", apperrors.GetField(err))
}

func TestUserService_Delete(t *testing.T) {
	t.Run("refuses self delete", func(t *testing.T) {
		_, svc := newUserFixture(t)
		err := svc.Delete(context.Background(), testAdmin, testAdmin.ID)
		require.True(t, apperrors.IsForbidden(err))
	})

	t.Run("refuses last admin", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		repo.EXPECT().GetByID(gomock.Any(), "u-2").Return(hashedProfile(t, "u-2", model.ProfileRoleAdmin), nil)
		repo.EXPECT().CountAdmins(gomock.Any()).Return(1, nil)

		err := svc.Delete(context.Background(), testAdmin, "u-2")
		require.True(t, apperrors.IsConflict(err))
	})

	t.Run("deletes user", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		repo.EXPECT().GetByID(gomock.Any(), "u-3").Return(hashedProfile(t, "u-3", model.ProfileRoleUser), nil)
		repo.EXPECT().Delete(gomock.Any(), "u-3").Return(true, nil)

		require.NoError(t, svc.Delete(context.Background(), testAdmin, "u-3"))
	})
}

func TestUserService_PromoteDemote(t *testing.T) {
	repo, svc := newUserFixture(t)

	user := hashedProfile(t, "u-4", model.ProfileRoleUser)
	promoted := *user
	promoted.Role = model.ProfileRoleAdmin
	repo.EXPECT().GetByID(gomock.Any(), "u-4").Return(user, nil)
	repo.EXPECT().SetRole(gomock.Any(), "u-4", model.ProfileRoleAdmin).Return(&promoted, nil)

	p, err := svc.Promote(context.Background(), testAdmin, "u-4")
	require.NoError(t, err)
	assert.Equal(t, model.ProfileRoleAdmin, p.Role)

	// promoting an admin is a no-op
	repo.EXPECT().GetByID(gomock.Any(), "u-4").Return(&promoted, nil)
	_, err = svc.Promote(context.Background(), testAdmin, "u-4")
	require.NoError(t, err)

	repo.EXPECT().GetByID(gomock.Any(), "u-4").Return(&promoted, nil)
	repo.EXPECT().CountAdmins(gomock.Any()).Return(1, nil)
	_, err = svc.Demote(context.Background(), testAdmin, "u-4")
	require.True(t, apperrors.IsConflict(err))
}

func TestUserService_ResetPassword(t *testing.T) {
	repo, svc := newUserFixture(t)

	require.True(t, apperrors.IsValidation(svc.ResetPassword(context.Background(), testAdmin, "u-5", "tiny")))

	repo.EXPECT().SetPasswordHash(gomock.Any(), "u-5", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, hash string) error {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("another-long-secret"))
		})
	require.NoError(t, svc.ResetPassword(context.Background(), testAdmin, "u-5", "another-long-secret"))
}

func TestUserService_Authenticate(t *testing.T) {
	t.Run("success records login", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		p := hashedProfile(t, "u-6", model.ProfileRoleUser)
		repo.EXPECT().GetByEmail(gomock.Any(), p.Email).Return(p, nil)
		repo.EXPECT().TouchLogin(gomock.Any(), "u-6").Return(errors.New("ignored"))

		got, err := svc.Authenticate(context.Background(), p.Email, testPassword)
		require.NoError(t, err)
		assert.Equal(t, "u-6", got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		p := hashedProfile(t, "u-6", model.ProfileRoleUser)
		repo.EXPECT().GetByEmail(gomock.Any(), p.Email).Return(p, nil)

		_, err := svc.Authenticate(context.Background(), p.Email, "not-the-password")
		require.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		repo.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, apperrors.NotFound("user not found"))

		_, err := svc.Authenticate(context.Background(), "ghost@example.com", testPassword)
		require.ErrorIs(t, err, errInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		repo, svc := newUserFixture(t)
		p := hashedProfile(t, "u-7", model.ProfileRoleUser)
		p.Active = false
		repo.EXPECT().GetByEmail(gomock.Any(), p.Email).Return(p, nil)

		_, err := svc.Authenticate(context.Background(), p.Email, testPassword)
		require.ErrorIs(t, err, errInvalidCredentials)
	})
}

func TestUserService_Lookup(t *testing.T) {
	repo, svc := newUserFixture(t)
	p := hashedProfile(t, "u-8", model.ProfileRoleAdmin)
	repo.EXPECT().GetByEmail(gomock.Any(), p.Email).Return(p, nil)
	repo.EXPECT().TouchLogin(gomock.Any(), "u-8").Return(nil)

	got, err := svc.Lookup(context.Background(), p.Email)
	require.NoError(t, err)
	assert.Equal(t, model.ProfileRoleAdmin, got.Role)

	inactive := *p
	inactive.Active = false
	repo.EXPECT().GetByEmail(gomock.Any(), p.Email).Return(&inactive, nil)
	_, err = svc.Lookup(context.Background(), p.Email)
	require.True(t, apperrors.IsNotFound(err))
}
