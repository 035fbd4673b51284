// Package users manages user records and their investment profiles.
package users

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

type Repository interface {
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SaveProfile(ctx context.Context, userID string, p *models.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Values accepted for the free-form profile fields. Only RiskTolerance is
// enforced; the others are offered as choices by interactive clients.
var (
	RiskTolerances       = []string{"conservative", "moderate", "aggressive"}
	InvestmentHorizons   = []string{"short", "medium", "long"}
	PrimaryGoals         = []string{"growth", "income", "preservation", "balanced"}
	LiquidityPreferences = []string{"low", "medium", "high"}
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	log      zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		log:      log.With().Str("service", "users").Logger(),
	}
}

// GetProfile returns the stored profile, or nil when the user has none.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("get profile", err)
	}
	return p, nil
}

// Profile is GetProfile for callers that require one to exist.
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("profile for user %s", userID)
	}
	return p, nil
}

// SetProfile normalizes, validates and stores p for userID.
func (s *Service) SetProfile(ctx context.Context, userID string, p models.UserProfile) (*models.UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("user id is required")
	}
	p.RiskTolerance = strings.ToLower(strings.TrimSpace(p.RiskTolerance))
	p.InvestmentHorizon = strings.TrimSpace(p.InvestmentHorizon)
	p.PrimaryGoal = strings.TrimSpace(p.PrimaryGoal)
	p.LiquidityPreference = strings.TrimSpace(p.LiquidityPreference)
	if err := s.validate.Struct(p); err != nil {
		return nil, apperr.Validation("profile: %v", err)
	}
	if err := s.repo.SaveProfile(ctx, userID, &p); err != nil {
		return nil, apperr.Storage("save profile", err)
	}
	s.log.Info().Str("user_id", userID).Str("risk_tolerance", p.RiskTolerance).Msg("profile saved")
	return &p, nil
}

// Get returns the user with its profile.
func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("get user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user %s", userID)
	}
	return u, nil
}

// Register creates or updates the user record.
func (s *Service) Register(ctx context.Context, u models.User) (*models.User, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return nil, apperr.Validation("user id is required")
	}
	if err := s.repo.UpsertUser(ctx, &u); err != nil {
		return nil, apperr.Storage("upsert user", err)
	}
	return &u, nil
}
