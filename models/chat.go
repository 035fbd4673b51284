package models

import (
	"strings"
	"time"
)

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Title returns the role capitalised for transcripts ("User", "Assistant").
func (r ChatRole) Title() string {
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatSession struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	PortfolioID string        `json:"portfolio_id,omitempty"`
	StockSymbol string        `json:"stock_symbol,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ChatRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	Message     string `json:"message" validate:"required"`
	PortfolioID string `json:"portfolio_id,omitempty"`
	StockSymbol string `json:"stock_symbol,omitempty"`
}

type ChatResponse struct {
	SessionID string       `json:"session_id"`
	Message   ChatMessage  `json:"message"`
	Sources   []NewsSource `json:"sources"`
}
