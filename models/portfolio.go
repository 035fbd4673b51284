package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownSector labels holdings whose sector is not known.
const UnknownSector = "Unknown"

// StockHolding is one position inside a portfolio. CurrentPrice, MarketValue,
// GainLoss and GainLossPercentage are derived by the valuation engine and are
// nil until the holding has been valued.
type StockHolding struct {
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"company_name"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Sector        string          `json:"sector,omitempty"`

	CurrentPrice       *decimal.Decimal `json:"current_price,omitempty"`
	MarketValue        *decimal.Decimal `json:"market_value,omitempty"`
	GainLoss           *decimal.Decimal `json:"gain_loss,omitempty"`
	GainLossPercentage *decimal.Decimal `json:"gain_loss_percentage,omitempty"`
}

// CostBasis is purchase price times shares.
func (h *StockHolding) CostBasis() decimal.Decimal {
	return h.PurchasePrice.Mul(h.Shares)
}

// SectorOrUnknown returns the holding's sector, or UnknownSector when unset.
func (h *StockHolding) SectorOrUnknown() string {
	if strings.TrimSpace(h.Sector) == "" {
		return UnknownSector
	}
	return h.Sector
}

// ValueOrCost returns the market value when valued, otherwise the cost basis.
func (h *StockHolding) ValueOrCost() decimal.Decimal {
	if h.MarketValue != nil {
		return *h.MarketValue
	}
	return h.CostBasis()
}

type Portfolio struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Stocks      []*StockHolding `json:"stocks"`

	TotalValue              decimal.Decimal `json:"total_value"`
	TotalCost               decimal.Decimal `json:"total_cost"`
	TotalGainLoss           decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercentage decimal.Decimal `json:"total_gain_loss_percentage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Holding returns the holding for symbol and its index, or nil and -1.
func (p *Portfolio) Holding(symbol string) (*StockHolding, int) {
	for i, h := range p.Stocks {
		if strings.EqualFold(h.Symbol, symbol) {
			return h, i
		}
	}
	return nil, -1
}

// PortfolioSummary is the listing view of a portfolio.
type PortfolioSummary struct {
	ID                      string          `json:"id"`
	Name                    string          `json:"name"`
	Description             string          `json:"description,omitempty"`
	TotalValue              decimal.Decimal `json:"total_value"`
	TotalGainLoss           decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercentage decimal.Decimal `json:"total_gain_loss_percentage"`
	StockCount              int             `json:"stock_count"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

type HoldingPerformance struct {
	Symbol             string          `json:"symbol"`
	GainLoss           decimal.Decimal `json:"gain_loss"`
	GainLossPercentage decimal.Decimal `json:"gain_loss_percentage"`
}

type PortfolioAnalytics struct {
	PortfolioID          string                     `json:"portfolio_id"`
	TotalValue           decimal.Decimal            `json:"total_value"`
	TotalGainLoss        decimal.Decimal            `json:"total_gain_loss"`
	TotalGainLossPct     decimal.Decimal            `json:"total_gain_loss_percentage"`
	SectorAllocation     map[string]decimal.Decimal `json:"sector_allocation"`
	TopPerformers        []HoldingPerformance       `json:"top_performers"`
	WorstPerformers      []HoldingPerformance       `json:"worst_performers"`
	RiskScore            *decimal.Decimal           `json:"risk_score,omitempty"`
	DiversificationScore *decimal.Decimal           `json:"diversification_score,omitempty"`
}

// AddStockRequest carries a new lot to add to a portfolio.
type AddStockRequest struct {
	Symbol        string          `json:"symbol" validate:"required,max=10"`
	CompanyName   string          `json:"company_name"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Sector        string          `json:"sector,omitempty"`
}

// UpdateHoldingRequest changes an existing holding; nil fields are kept.
type UpdateHoldingRequest struct {
	Shares        *decimal.Decimal `json:"shares,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	Sector        *string          `json:"sector,omitempty"`
}

type CreatePortfolioRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}
