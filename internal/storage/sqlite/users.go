package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/CortexFolio/models"
)

// UpsertUser creates the user or updates its email and name.
func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, email, name, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    email=excluded.email,
    name=excluded.name
`, u.ID, u.Email, u.Name, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser returns the user with its profile, or (nil, nil) when missing.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var (
		u         models.User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, email, name, created_at FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Email, &u.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.Profile, err = s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveProfile stores the profile, creating a bare user row when needed.
func (s *Store) SaveProfile(ctx context.Context, userID string, p *models.UserProfile) error {
	now := formatTime(time.Now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, created_at) VALUES (?, ?)
ON CONFLICT(id) DO NOTHING
`, userID, now); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO user_profiles (user_id, risk_tolerance, investment_horizon, primary_goal, liquidity_preference, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    risk_tolerance=excluded.risk_tolerance,
    investment_horizon=excluded.investment_horizon,
    primary_goal=excluded.primary_goal,
    liquidity_preference=excluded.liquidity_preference,
    updated_at=excluded.updated_at
`, userID, p.RiskTolerance, p.InvestmentHorizon, p.PrimaryGoal, p.LiquidityPreference, now)
		if err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
}

// GetProfile returns the user's profile, or (nil, nil) when none is stored.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRowContext(ctx, `
SELECT risk_tolerance, investment_horizon, primary_goal, liquidity_preference
FROM user_profiles
WHERE user_id = ?
`, userID).Scan(&p.RiskTolerance, &p.InvestmentHorizon, &p.PrimaryGoal, &p.LiquidityPreference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}
