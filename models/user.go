package models

import "time"

type UserProfile struct {
	RiskTolerance       string `json:"risk_tolerance" validate:"omitempty,oneof=conservative moderate aggressive"`
	InvestmentHorizon   string `json:"investment_horizon,omitempty"`
	PrimaryGoal         string `json:"primary_goal"`
	LiquidityPreference string `json:"liquidity_preference"`
}

type User struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Profile   *UserProfile `json:"profile,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
