package portfolio

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

// Repository persists portfolios. Get returns (nil, nil) when the portfolio
// does not exist for the owner.
type Repository interface {
	CreatePortfolio(ctx context.Context, p *models.Portfolio) error
	ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error)
	GetPortfolio(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error)
	SavePortfolio(ctx context.Context, p *models.Portfolio) error
	DeletePortfolio(ctx context.Context, userID, portfolioID string) (bool, error)
}

// Quotes is the slice of the market data provider the portfolio service uses.
type Quotes interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
	CompanyDetails(ctx context.Context, symbol string) (*models.CompanyDetails, bool)
}

type Service struct {
	repo     Repository
	quotes   Quotes
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

type ServiceOption func(*Service)

// WithCallTimeout bounds every market data call.
func WithCallTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, quotes Quotes, log zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		quotes:   quotes,
		validate: validator.New(),
		timeout:  30 * time.Second,
		now:      time.Now,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PriceLookup returns a lookup bound to the service's quote source and timeout.
func (s *Service) PriceLookup() PriceLookup {
	return func(ctx context.Context, symbol string) (decimal.Decimal, bool) {
		if s.quotes == nil {
			return decimal.Zero, false
		}
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		price, ok := s.quotes.CurrentPrice(ctx, symbol)
		if !ok {
			s.log.Debug().Str("symbol", symbol).Msg("no current price, valuing at cost")
		}
		return price, ok
	}
}

func (s *Service) Create(ctx context.Context, userID string, req models.CreatePortfolioRequest) (*models.Portfolio, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.Validation("portfolio: %v", err)
	}
	now := s.now().UTC()
	p := &models.Portfolio{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Stocks:      []*models.StockHolding{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreatePortfolio(ctx, p); err != nil {
		return nil, apperr.Storage("create portfolio", err)
	}
	s.log.Info().Str("portfolio_id", p.ID).Str("user_id", userID).Msg("portfolio created")
	return p, nil
}

// List returns a revalued summary of every portfolio the user owns.
func (s *Service) List(ctx context.Context, userID string) ([]models.PortfolioSummary, error) {
	portfolios, err := s.repo.ListPortfolios(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("list portfolios", err)
	}
	lookup := s.PriceLookup()
	summaries := make([]models.PortfolioSummary, 0, len(portfolios))
	for _, p := range portfolios {
		Revalue(ctx, p, lookup)
		summaries = append(summaries, models.PortfolioSummary{
			ID:                      p.ID,
			Name:                    p.Name,
			Description:             p.Description,
			TotalValue:              p.TotalValue,
			TotalGainLoss:           p.TotalGainLoss,
			TotalGainLossPercentage: p.TotalGainLossPercentage,
			StockCount:              len(p.Stocks),
			CreatedAt:               p.CreatedAt,
			UpdatedAt:               p.UpdatedAt,
		})
	}
	return summaries, nil
}

// Get loads, revalues and persists the refreshed portfolio.
func (s *Service) Get(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	p, err := s.load(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	Revalue(ctx, p, s.PriceLookup())
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update changes name and/or description. Nil arguments are left unchanged.
func (s *Service) Update(ctx context.Context, userID, portfolioID string, name, description *string) (*models.Portfolio, error) {
	p, err := s.load(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperr.Validation("portfolio name cannot be empty")
		}
		p.Name = strings.TrimSpace(*name)
	}
	if description != nil {
		p.Description = *description
	}
	Revalue(ctx, p, s.PriceLookup())
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID, portfolioID string) error {
	ok, err := s.repo.DeletePortfolio(ctx, userID, portfolioID)
	if err != nil {
		return apperr.Storage("delete portfolio", err)
	}
	if !ok {
		return apperr.NotFound("portfolio %s", portfolioID)
	}
	s.log.Info().Str("portfolio_id", portfolioID).Msg("portfolio deleted")
	return nil
}

// AddStock adds a lot to the portfolio, merging with an existing holding of
// the same symbol. A missing sector is filled from company details.
func (s *Service) AddStock(ctx context.Context, userID, portfolioID string, req models.AddStockRequest) (*models.Portfolio, error) {
	req.Symbol = NormalizeSymbol(req.Symbol)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.Validation("stock: %v", err)
	}
	holding := &models.StockHolding{
		Symbol:        req.Symbol,
		CompanyName:   req.CompanyName,
		Shares:        req.Shares,
		PurchasePrice: req.PurchasePrice,
		PurchaseDate:  req.PurchaseDate,
		Sector:        req.Sector,
	}
	if err := ValidateHolding(holding); err != nil {
		return nil, err
	}

	p, err := s.load(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	if holding.Sector == "" || holding.CompanyName == "" {
		if details, ok := s.companyDetails(ctx, holding.Symbol); ok {
			if holding.Sector == "" {
				holding.Sector = details.Sector
			}
			if holding.CompanyName == "" {
				holding.CompanyName = details.Name
			}
		}
	}
	if holding.PurchaseDate.IsZero() {
		holding.PurchaseDate = s.now().UTC()
	}

	if _, err := AddOrMergeHolding(ctx, p, holding, s.PriceLookup()); err != nil {
		return nil, err
	}
	Revalue(ctx, p, s.PriceLookup())
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Str("portfolio_id", p.ID).Str("symbol", holding.Symbol).Msg("stock added")
	return p, nil
}

// UpdateHolding applies the non-nil fields of req to the holding for symbol.
func (s *Service) UpdateHolding(ctx context.Context, userID, portfolioID, symbol string, req models.UpdateHoldingRequest) (*models.Portfolio, error) {
	p, err := s.load(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	h, _ := p.Holding(NormalizeSymbol(symbol))
	if h == nil {
		return nil, apperr.NotFound("holding %s in portfolio %s", symbol, portfolioID)
	}

	updated := *h
	if req.Shares != nil {
		updated.Shares = *req.Shares
	}
	if req.PurchasePrice != nil {
		updated.PurchasePrice = *req.PurchasePrice
	}
	if req.PurchaseDate != nil {
		updated.PurchaseDate = *req.PurchaseDate
	}
	if req.Sector != nil {
		updated.Sector = strings.TrimSpace(*req.Sector)
	}
	if err := ValidateHolding(&updated); err != nil {
		return nil, err
	}
	*h = updated

	Revalue(ctx, p, s.PriceLookup())
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) RemoveHolding(ctx context.Context, userID, portfolioID, symbol string) (*models.Portfolio, error) {
	p, err := s.load(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	_, idx := p.Holding(NormalizeSymbol(symbol))
	if idx < 0 {
		return nil, apperr.NotFound("holding %s in portfolio %s", symbol, portfolioID)
	}
	p.Stocks = append(p.Stocks[:idx], p.Stocks[idx+1:]...)

	Revalue(ctx, p, s.PriceLookup())
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Analytics revalues the portfolio and derives its analytics.
func (s *Service) Analytics(ctx context.Context, userID, portfolioID string) (*models.PortfolioAnalytics, error) {
	p, err := s.Get(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	return Analytics(p), nil
}

func (s *Service) load(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	if strings.TrimSpace(portfolioID) == "" {
		return nil, apperr.Validation("portfolio id is required")
	}
	p, err := s.repo.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, apperr.Storage("get portfolio", err)
	}
	if p == nil {
		return nil, apperr.NotFound("portfolio %s", portfolioID)
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *models.Portfolio) error {
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.SavePortfolio(ctx, p); err != nil {
		return apperr.Storage("save portfolio", err)
	}
	return nil
}

func (s *Service) companyDetails(ctx context.Context, symbol string) (*models.CompanyDetails, bool) {
	if s.quotes == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	details, ok := s.quotes.CompanyDetails(ctx, symbol)
	if !ok || details == nil {
		return nil, false
	}
	return details, true
}
