package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/models"
)

func (s *Store) CreatePortfolio(ctx context.Context, p *models.Portfolio) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO portfolios (id, user_id, name, description, total_value, total_cost, total_gain_loss, total_gain_loss_pct, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, p.ID, p.UserID, p.Name, p.Description, p.TotalValue, p.TotalCost, p.TotalGainLoss, p.TotalGainLossPercentage,
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert portfolio: %w", err)
		}
		return insertHoldings(ctx, tx, p)
	})
}

// SavePortfolio rewrites the portfolio row and its holdings.
func (s *Store) SavePortfolio(ctx context.Context, p *models.Portfolio) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE portfolios
SET name = ?, description = ?, total_value = ?, total_cost = ?, total_gain_loss = ?, total_gain_loss_pct = ?, updated_at = ?
WHERE id = ? AND user_id = ?
`, p.Name, p.Description, p.TotalValue, p.TotalCost, p.TotalGainLoss, p.TotalGainLossPercentage,
			formatTime(p.UpdatedAt), p.ID, p.UserID)
		if err != nil {
			return fmt.Errorf("update portfolio: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return fmt.Errorf("update portfolio: portfolio %s not found", p.ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE portfolio_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear holdings: %w", err)
		}
		return insertHoldings(ctx, tx, p)
	})
}

func insertHoldings(ctx context.Context, tx *sql.Tx, p *models.Portfolio) error {
	if len(p.Stocks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO holdings (portfolio_id, position, symbol, company_name, shares, purchase_price, purchase_date, sector,
    current_price, market_value, gain_loss, gain_loss_pct)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare holding insert: %w", err)
	}
	defer stmt.Close()

	for i, h := range p.Stocks {
		_, err := stmt.ExecContext(ctx, p.ID, i, h.Symbol, h.CompanyName, h.Shares, h.PurchasePrice,
			formatTime(h.PurchaseDate), h.Sector,
			nullDecimal(h.CurrentPrice), nullDecimal(h.MarketValue), nullDecimal(h.GainLoss), nullDecimal(h.GainLossPercentage))
		if err != nil {
			return fmt.Errorf("insert holding %s: %w", h.Symbol, err)
		}
	}
	return nil
}

func (s *Store) GetPortfolio(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, name, description, total_value, total_cost, total_gain_loss, total_gain_loss_pct, created_at, updated_at
FROM portfolios
WHERE id = ? AND user_id = ?
`, portfolioID, userID)
	p, err := scanPortfolio(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.loadHoldings(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, name, description, total_value, total_cost, total_gain_loss, total_gain_loss_pct, created_at, updated_at
FROM portfolios
WHERE user_id = ?
ORDER BY created_at ASC, id ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	var out []*models.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, p := range out {
		if err := s.loadHoldings(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) DeletePortfolio(ctx context.Context, userID, portfolioID string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ? AND user_id = ?`, portfolioID, userID)
		if err != nil {
			return fmt.Errorf("delete portfolio: %w", err)
		}
		rows, _ := res.RowsAffected()
		deleted = rows > 0
		if !deleted {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE portfolio_id = ?`, portfolioID); err != nil {
			return fmt.Errorf("delete holdings: %w", err)
		}
		return nil
	})
	return deleted, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row scanner) (*models.Portfolio, error) {
	var (
		p                    models.Portfolio
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.TotalValue, &p.TotalCost,
		&p.TotalGainLoss, &p.TotalGainLossPercentage, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan portfolio: %w", err)
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	p.Stocks = []*models.StockHolding{}
	return &p, nil
}

func (s *Store) loadHoldings(ctx context.Context, p *models.Portfolio) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT symbol, company_name, shares, purchase_price, purchase_date, sector, current_price, market_value, gain_loss, gain_loss_pct
FROM holdings
WHERE portfolio_id = ?
ORDER BY position ASC
`, p.ID)
	if err != nil {
		return fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			h                                   models.StockHolding
			purchaseDate                        string
			price, value, gainLoss, gainLossPct decimal.NullDecimal
		)
		if err := rows.Scan(&h.Symbol, &h.CompanyName, &h.Shares, &h.PurchasePrice, &purchaseDate, &h.Sector,
			&price, &value, &gainLoss, &gainLossPct); err != nil {
			return fmt.Errorf("scan holding: %w", err)
		}
		if h.PurchaseDate, err = parseTime(purchaseDate); err != nil {
			return err
		}
		h.CurrentPrice = fromNull(price)
		h.MarketValue = fromNull(value)
		h.GainLoss = fromNull(gainLoss)
		h.GainLossPercentage = fromNull(gainLossPct)
		p.Stocks = append(p.Stocks, &h)
	}
	return rows.Err()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
