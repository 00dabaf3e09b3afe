package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/mocks"
)

var testInviteSecret = []byte("0123456789abcdef0123456789abcdef")

// invitationStore backs the invitation mock with a map keyed by token hash.
type invitationStore struct {
	mu     sync.Mutex
	byHash map[string]*model.AdminInvitation
}

func (s *invitationStore) wire(repo *mocks.MockInvitationRepository, now time.Time) {
	s.byHash = map[string]*model.AdminInvitation{}
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p core.CreateInvitationParams) (*model.AdminInvitation, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			inv := &model.AdminInvitation{
				ID:        "inv-" + p.TokenHash[:6],
				Email:     p.Email,
				InvitedBy: p.InvitedBy,
				TokenHash: p.TokenHash,
				ExpiresAt: p.ExpiresAt,
				CreatedAt: now,
			}
			s.byHash[p.TokenHash] = inv
			return inv, nil
		}).AnyTimes()
	repo.EXPECT().GetByTokenHash(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, hash string) (*model.AdminInvitation, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			inv, ok := s.byHash[hash]
			if !ok {
				return nil, apperrors.NotFound("invitation not found")
			}
			cp := *inv
			return &cp, nil
		}).AnyTimes()
	repo.EXPECT().MarkUsed(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id string) (*model.AdminInvitation, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, inv := range s.byHash {
				if inv.ID != id {
					continue
				}
				if inv.UsedAt != nil {
					return nil, apperrors.Conflict("invitation already used")
				}
				used := now
				inv.UsedAt = &used
				cp := *inv
				return &cp, nil
			}
			return nil, apperrors.NotFound("invitation not found")
		}).AnyTimes()
	repo.EXPECT().ReleaseUse(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id string, usedAt time.Time) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, inv := range s.byHash {
				if inv.ID == id && inv.UsedAt != nil && inv.UsedAt.Equal(usedAt) {
					inv.UsedAt = nil
					return nil
				}
			}
			return apperrors.Conflict("invitation is no longer valid")
		}).AnyTimes()
}

type invitationFixture struct {
	invites  *mocks.MockInvitationRepository
	profiles *mocks.MockProfileRepository
	svc      *InvitationService
}

func newInvitationFixture(t *testing.T, now time.Time) *invitationFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &invitationFixture{
		invites:  mocks.NewMockInvitationRepository(ctrl),
		profiles: mocks.NewMockProfileRepository(ctrl),
	}
	users := NewUserService(UserServiceOptions{Profiles: f.profiles, BcryptCost: bcrypt.MinCost, Logger: quietLogger()})
	svc, err := NewInvitationService(InvitationServiceOptions{
		Repos:  InvitationRepositories{Invitations: f.invites, Profiles: f.profiles},
		Users:  users,
		Config: InvitationConfig{Secret: testInviteSecret, AcceptURL: "https://dispatch.example.com/signup"},
		Logger: quietLogger(),
		Clock:  stubClock{now: now},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewInvitationService_RejectsShortSecret(t *testing.T) {
	ctrl := gomock.NewController(t)
	profiles := mocks.NewMockProfileRepository(ctrl)
	_, err := NewInvitationService(InvitationServiceOptions{
		Repos:  InvitationRepositories{Invitations: mocks.NewMockInvitationRepository(ctrl), Profiles: profiles},
		Users:  NewUserService(UserServiceOptions{Profiles: profiles}),
		Config: InvitationConfig{Secret: []byte("short")},
	})
	require.Error(t, err)
}

func TestInvitationService_Create(t *testing.T) {
	f := newInvitationFixture(t, testNow)
	store := &invitationStore{}
	store.wire(f.invites, testNow)

	_, err := f.svc.Create(context.Background(), testUser, &model.CreateInvitationRequest{Email: "new.admin@example.com"})
	require.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Create(context.Background(), testAdmin, &model.CreateInvitationRequest{Email: "not-an-email"})
	require.True(t, apperrors.IsValidation(err))

	issued, err := f.svc.Create(context.Background(), testAdmin, &model.CreateInvitationRequest{Email: " New.Admin@Example.com "})
	require.NoError(t, err)

	assert.Equal(t, "new.admin@example.com", issued.Invitation.Email)
	assert.Equal(t, testAdmin.Email, issued.Invitation.InvitedBy)
	assert.Equal(t, testNow.Add(defaultInviteTTL), issued.Invitation.ExpiresAt)
	assert.Equal(t, 3, strings.Count(issued.Token, ".")+1, "token should be a compact JWS")
	assert.NotEqual(t, issued.Token, issued.Invitation.TokenHash)
	assert.Equal(t, hashToken(issued.Token), issued.Invitation.TokenHash)

	u, err := url.Parse(issued.AcceptURL)
	require.NoError(t, err)
	assert.Equal(t, "/signup", u.Path)
	assert.Equal(t, issued.Token, u.Query().Get("token"))
}

func TestInvitationService_AcceptOnce(t *testing.T) {
	f := newInvitationFixture(t, testNow)
	store := &invitationStore{}
	store.wire(f.invites, testNow)

	issued, err := f.svc.Issue(context.Background(), "new.admin@example.com", "cli")
	require.NoError(t, err)

	f.profiles.EXPECT().GetByEmail(gomock.Any(), "new.admin@example.com").Return(nil, apperrors.NotFound("user not found"))
	f.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p core.CreateProfileParams) (*model.Profile, error) {
			assert.Equal(t, model.ProfileRoleAdmin, p.Role)
			assert.Equal(t, "Jordan Diaz", p.DisplayName)
			return &model.Profile{ID: "u-new", Email: p.Email, Role: p.Role, Active: true}, nil
		})

	req := &model.AcceptInvitationRequest{Token: issued.Token, DisplayName: "Jordan Diaz", Password: testPassword}
	p, err := f.svc.Accept(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.ProfileRoleAdmin, p.Role)

	// The token is spent.
	_, err = f.svc.Accept(context.Background(), &model.AcceptInvitationRequest{Token: issued.Token, Password: testPassword})
	require.ErrorIs(t, err, errInvitationUnusable)
}

func TestInvitationService_AcceptRetriesAfterFailedSignup(t *testing.T) {
	f := newInvitationFixture(t, testNow)
	store := &invitationStore{}
	store.wire(f.invites, testNow)

	issued, err := f.svc.Issue(context.Background(), "new.admin@example.com", "cli")
	require.NoError(t, err)

	f.profiles.EXPECT().GetByEmail(gomock.Any(), "new.admin@example.com").
		Return(nil, apperrors.NotFound("user not found")).Times(2)
	gomock.InOrder(
		f.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("db: connection reset")),
		f.profiles.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(&model.Profile{ID: "u-new", Email: "new.admin@example.com", Role: model.ProfileRoleAdmin}, nil),
	)

	req := &model.AcceptInvitationRequest{Token: issued.Token, DisplayName: "Jordan Diaz", Password: testPassword}
	_, err = f.svc.Accept(context.Background(), req)
	require.ErrorContains(t, err, "connection reset")

	inv, err := f.svc.Validate(context.Background(), issued.Token)
	require.NoError(t, err, "a failed signup must leave the invitation pending")
	assert.Nil(t, inv.UsedAt)

	p, err := f.svc.Accept(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "u-new", p.ID)
}

func TestInvitationService_Validate(t *testing.T) {
	f := newInvitationFixture(t, testNow)
	store := &invitationStore{}
	store.wire(f.invites, testNow)

	issued, err := f.svc.Issue(context.Background(), "new.admin@example.com", "cli")
	require.NoError(t, err)

	inv, err := f.svc.Validate(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.Invitation.ID, inv.ID)

	t.Run("tampered token", func(t *testing.T) {
		_, err := f.svc.Validate(context.Background(), issued.Token+"x")
		require.ErrorIs(t, err, errInvitationUnusable)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.svc.Validate(context.Background(), "not-a-token")
		require.ErrorIs(t, err, errInvitationUnusable)
	})

	t.Run("expired", func(t *testing.T) {
		later := newInvitationFixture(t, testNow.Add(defaultInviteTTL+time.Minute))
		_, err := later.svc.Validate(context.Background(), issued.Token)
		require.ErrorIs(t, err, errInvitationUnusable)
	})

	t.Run("revoked", func(t *testing.T) {
		store.mu.Lock()
		store.byHash[hashToken(issued.Token)].ExpiresAt = testNow.Add(-time.Second)
		store.mu.Unlock()

		_, err := f.svc.Validate(context.Background(), issued.Token)
		require.ErrorIs(t, err, errInvitationUnusable)
	})
}

func TestInvitationService_Accept_ExistingEmail(t *testing.T) {
	f := newInvitationFixture(t, testNow)
	store := &invitationStore{}
	store.wire(f.invites, testNow)

	issued, err := f.svc.Issue(context.Background(), "taken@example.com", "cli")
	require.NoError(t, err)
	f.profiles.EXPECT().GetByEmail(gomock.Any(), "taken@example.com").Return(&model.Profile{ID: "u-1"}, nil)

	_, err = f.svc.Accept(context.Background(), &model.AcceptInvitationRequest{Token: issued.Token, Password: testPassword})
	require.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "email", apperrors.GetField(err))
}

func TestInvitationService_ListAndRevoke(t *testing.T) {
	f := newInvitationFixture(t, testNow)

	_, err := f.svc.List(context.Background(), testUser)
	require.True(t, apperrors.IsForbidden(err))

	f.invites.EXPECT().List(gomock.Any()).Return([]model.AdminInvitation{{ID: "inv-1"}}, nil)
	invs, err := f.svc.List(context.Background(), testAdmin)
	require.NoError(t, err)
	assert.Len(t, invs, 1)

	f.invites.EXPECT().Revoke(gomock.Any(), "inv-1").Return(&model.AdminInvitation{ID: "inv-1", ExpiresAt: testNow}, nil)
	inv, err := f.svc.Revoke(context.Background(), testAdmin, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, model.InvitationStatusExpired, inv.Status(testNow))
}
