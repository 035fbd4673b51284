package users

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

type memoryRepo struct {
	users    map[string]models.User
	profiles map[string]models.UserProfile
	err      error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:    make(map[string]models.User),
		profiles: make(map[string]models.UserProfile),
	}
}

func (m *memoryRepo) UpsertUser(_ context.Context, u *models.User) error {
	if m.err != nil {
		return m.err
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepo) GetUser(_ context.Context, userID string) (*models.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	if p, ok := m.profiles[userID]; ok {
		u.Profile = &p
	}
	return &u, nil
}

func (m *memoryRepo) SaveProfile(_ context.Context, userID string, p *models.UserProfile) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[userID]; !ok {
		m.users[userID] = models.User{ID: userID}
	}
	m.profiles[userID] = *p
	return nil
}

func (m *memoryRepo) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func TestSetProfileNormalizesAndStores(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	p, err := svc.SetProfile(ctx, "u1", models.UserProfile{
		RiskTolerance:     " Aggressive ",
		InvestmentHorizon: "long ",
		PrimaryGoal:       "growth",
	})
	require.NoError(t, err)
	assert.Equal(t, "aggressive", p.RiskTolerance)
	assert.Equal(t, "long", p.InvestmentHorizon)

	got, err := svc.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, *p, *got)

	u, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.Profile)
	assert.Equal(t, "growth", u.Profile.PrimaryGoal)
}

func TestSetProfileRejectsUnknownRiskTolerance(t *testing.T) {
	svc := NewService(newMemoryRepo(), zerolog.Nop())

	_, err := svc.SetProfile(context.Background(), "u1", models.UserProfile{RiskTolerance: "reckless"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SetProfile(context.Background(), " ", models.UserProfile{RiskTolerance: "moderate"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProfileMissing(t *testing.T) {
	svc := NewService(newMemoryRepo(), zerolog.Nop())
	ctx := context.Background()

	p, err := svc.GetProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = svc.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Get(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStorageFailuresAreClassified(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("disk full")
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.SetProfile(context.Background(), "u1", models.UserProfile{RiskTolerance: "moderate"})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Equal(t, "storage", apperr.Kind(err))

	_, err = svc.Register(context.Background(), models.User{ID: "u1"})
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestRegister(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, zerolog.Nop())

	u, err := svc.Register(context.Background(), models.User{ID: " u1 ", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "a@example.com", repo.users["u1"].Email)

	_, err = svc.Register(context.Background(), models.User{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
