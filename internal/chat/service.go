// Package chat runs conversational analysis turns over persisted sessions.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/portfolio"
	"github.com/dyike/CortexFolio/internal/prompts"
	"github.com/dyike/CortexFolio/internal/rag"
	"github.com/dyike/CortexFolio/internal/vectorstore"
	"github.com/dyike/CortexFolio/models"
)

// Apology is the assistant reply recorded when the reasoning step fails.
const Apology = "I apologize, but I'm having trouble processing your request right now. Please try again later."

const (
	symbolSearchLimit  = 5
	generalSearchLimit = 3
	chatBarDays        = 5
	defaultRelevance   = 0.8
)

// Repository persists chat sessions. GetSession returns (nil, nil) when the
// session does not exist for the user.
type Repository interface {
	CreateSession(ctx context.Context, s *models.ChatSession) error
	GetSession(ctx context.Context, userID, sessionID string) (*models.ChatSession, error)
	AppendMessages(ctx context.Context, sessionID string, updatedAt time.Time, msgs ...models.ChatMessage) error
	// ListSessions returns the user's sessions, most recently updated first.
	ListSessions(ctx context.Context, userID string) ([]*models.ChatSession, error)
	DeleteSession(ctx context.Context, userID, sessionID string) (bool, error)
	DeleteSessionsIdleSince(ctx context.Context, cutoff time.Time) (int, error)
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Deps are the collaborators of the chat service. Market, Index and Profiles
// may be nil.
type Deps struct {
	Repo     Repository
	Market   dataflows.MarketData
	Index    vectorstore.Index
	Reasoner llm.Reasoner
	Profiles Profiles
}

type Service struct {
	Deps
	idleTTL time.Duration
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from the map once no turn holds or awaits it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Service)

func WithIdleTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(deps Deps, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		Deps:    deps,
		idleTTL: 7 * 24 * time.Hour,
		timeout: 30 * time.Second,
		now:     time.Now,
		log:     log.With().Str("service", "chat").Logger(),
		locks:   make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts an empty session, optionally bound to a portfolio or
// a stock symbol.
func (s *Service) CreateSession(ctx context.Context, userID, portfolioID, symbol string) (*models.ChatSession, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	if symbol != "" {
		symbol = portfolio.NormalizeSymbol(symbol)
		if err := portfolio.ValidateSymbol(symbol); err != nil {
			return nil, err
		}
	}
	now := s.now().UTC()
	session := &models.ChatSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		PortfolioID: portfolioID,
		StockSymbol: symbol,
		Messages:    []models.ChatMessage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.CreateSession(ctx, session); err != nil {
		return nil, apperr.Storage("create chat session", err)
	}
	s.log.Info().Str("session_id", session.ID).Str("user_id", userID).Msg("chat session created")
	return session, nil
}

// SendMessage runs one chat turn. Without a session id a new session is
// created from the request's bindings.
func (s *Service) SendMessage(ctx context.Context, userID string, req models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperr.Validation("message cannot be empty")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		session, err := s.CreateSession(ctx, userID, req.PortfolioID, req.StockSymbol)
		if err != nil {
			return nil, err
		}
		sessionID = session.ID
	}

	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	history := session.Messages

	userMsg := models.ChatMessage{Role: models.RoleUser, Content: message, Timestamp: s.now().UTC()}
	if err := s.Repo.AppendMessages(ctx, session.ID, userMsg.Timestamp, userMsg); err != nil {
		return nil, appendError("append user message", err)
	}

	reply, sources := s.respond(ctx, session, history, message)

	assistantMsg := models.ChatMessage{Role: models.RoleAssistant, Content: reply, Timestamp: s.now().UTC()}
	if err := s.Repo.AppendMessages(ctx, session.ID, assistantMsg.Timestamp, assistantMsg); err != nil {
		return nil, appendError("append assistant message", err)
	}

	return &models.ChatResponse{
		SessionID: session.ID,
		Message:   assistantMsg,
		Sources:   sources,
	}, nil
}

// respond builds the context and asks the reasoner. A reasoning failure
// yields the apology and no sources.
func (s *Service) respond(ctx context.Context, session *models.ChatSession, history []models.ChatMessage, message string) (string, []models.NewsSource) {
	log := s.log.With().Str("session_id", session.ID).Logger()

	var (
		hits    []models.SearchHit
		sources = []models.NewsSource{}
	)
	if session.StockSymbol != "" {
		hits = s.search(ctx, message, session.StockSymbol, symbolSearchLimit)
		sources = sourcesFromHits(hits, s.now().UTC())
	} else {
		hits = s.search(ctx, message, "", generalSearchLimit)
	}

	inputs := rag.ChatInputs{
		Symbol:      session.StockSymbol,
		PortfolioID: session.PortfolioID,
		Profile:     s.profile(ctx, session.UserID),
		Snippets:    rag.SnippetsFromHits(hits),
	}
	if session.StockSymbol != "" {
		inputs.Price, inputs.LatestBar = s.quote(ctx, session.StockSymbol)
	}

	prompt, err := prompts.Render(prompts.Chat, map[string]string{
		"Context": rag.ChatContext(inputs),
		"History": rag.History(history),
		"Message": message,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to render chat prompt")
		return Apology, []models.NewsSource{}
	}

	if s.Reasoner == nil {
		return Apology, []models.NewsSource{}
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.Reasoner.Complete(rctx, prompt)
	if err != nil {
		log.Error().Err(apperr.Reasoning(err)).Msg("error generating chat response")
		return Apology, []models.NewsSource{}
	}
	return reply, sources
}

func (s *Service) search(ctx context.Context, query, symbol string, limit int) []models.SearchHit {
	if s.Index == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	hits, err := s.Index.Search(ctx, query, symbol, limit)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("document search failed")
		return nil
	}
	return hits
}

func (s *Service) quote(ctx context.Context, symbol string) (*decimal.Decimal, *models.Bar) {
	if s.Market == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var price *decimal.Decimal
	if p, ok := s.Market.CurrentPrice(ctx, symbol); ok {
		price = &p
	}
	var latest *models.Bar
	if bars := s.Market.DailyBars(ctx, symbol, chatBarDays); len(bars) > 0 {
		b := bars[len(bars)-1]
		latest = &b
	}
	return price, latest
}

func (s *Service) profile(ctx context.Context, userID string) *models.UserProfile {
	if s.Profiles == nil {
		return nil
	}
	profile, err := s.Profiles.GetProfile(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to load profile for chat")
		return nil
	}
	return profile
}

// sourcesFromHits keeps hits that carry both a URL and a title.
func sourcesFromHits(hits []models.SearchHit, now time.Time) []models.NewsSource {
	sources := []models.NewsSource{}
	for _, h := range hits {
		if h.URL == "" || h.Title == "" {
			continue
		}
		published := h.PublishedAt
		if published.IsZero() {
			published = now
		}
		source := h.Source
		if source == "" {
			source = "Unknown"
		}
		score := h.Score
		if score == 0 {
			score = defaultRelevance
		}
		sources = append(sources, models.NewsSource{
			Title:          h.Title,
			URL:            h.URL,
			PublishedDate:  published,
			Source:         source,
			RelevanceScore: score,
		})
	}
	return sources
}

// GetSession returns the session when it belongs to userID.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	return s.load(ctx, userID, sessionID)
}

// History returns the session transcript, or an empty list when the session
// is missing or belongs to another user.
func (s *Service) History(ctx context.Context, userID, sessionID string) ([]models.ChatMessage, error) {
	session, err := s.Repo.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, apperr.Storage("get chat session", err)
	}
	if session == nil {
		return []models.ChatMessage{}, nil
	}
	return session.Messages, nil
}

func (s *Service) ListSessions(ctx context.Context, userID string) ([]*models.ChatSession, error) {
	sessions, err := s.Repo.ListSessions(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("list chat sessions", err)
	}
	return sessions, nil
}

// DeleteSession reports false when the session is missing or foreign.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) (bool, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ok, err := s.Repo.DeleteSession(ctx, userID, sessionID)
	if err != nil {
		return false, apperr.Storage("delete chat session", err)
	}
	if ok {
		s.log.Info().Str("session_id", sessionID).Msg("chat session deleted")
	}
	return ok, nil
}

// SweepIdle deletes every session not updated within the idle TTL.
func (s *Service) SweepIdle(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.idleTTL)
	n, err := s.Repo.DeleteSessionsIdleSince(ctx, cutoff)
	if err != nil {
		return 0, apperr.Storage("sweep chat sessions", err)
	}
	if n > 0 {
		s.log.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("swept idle chat sessions")
	}
	return n, nil
}

func (s *Service) load(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	session, err := s.Repo.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, apperr.Storage("get chat session", err)
	}
	if session == nil {
		return nil, apperr.NotFound("chat session %s", sessionID)
	}
	return session, nil
}

// lock serializes turns on one session.
func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

// appendError keeps NotFound from a session deleted mid-turn, for example by
// the idle sweep, and classes everything else as a storage failure.
func appendError(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return apperr.Storage(op, err)
}
