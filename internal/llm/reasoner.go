// Package llm adapts the configured generative model provider to the
// Reasoner used by the analysis and chat services.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/apperr"
)

// Reasoner is the generative reasoning step. Every error it returns is
// classed apperr.ErrReasoning.
type Reasoner interface {
	// Complete returns free text for prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteStructured decodes the model's JSON answer into out, whose
	// validate tags act as the schema.
	CompleteStructured(ctx context.Context, prompt string, out any) error
}

// Generator is a single provider round trip. The adapters for each SDK
// implement it; reasoner supplies timeouts, logging and parsing.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

const structuredSystem = "You are a financial analysis engine. Respond with a single JSON object and nothing else."

type reasoner struct {
	gen     Generator
	timeout time.Duration
	log     zerolog.Logger
}

// NewReasoner wraps gen with a per-call timeout and error classification.
func NewReasoner(gen Generator, timeout time.Duration, log zerolog.Logger) Reasoner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &reasoner{
		gen:     gen,
		timeout: timeout,
		log:     log.With().Str("service", "llm").Str("provider", gen.Name()).Logger(),
	}
}

func (r *reasoner) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := r.call(ctx, "", prompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (r *reasoner) CompleteStructured(ctx context.Context, prompt string, out any) error {
	text, err := r.call(ctx, structuredSystem, prompt)
	if err != nil {
		return err
	}
	if err := DecodeStructured(text, out); err != nil {
		r.log.Warn().Err(err).Int("response_len", len(text)).Msg("unusable structured response")
		return err
	}
	return nil
}

func (r *reasoner) call(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	text, err := r.gen.Generate(ctx, system, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		r.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("generation failed")
		return "", apperr.Reasoning(err)
	}
	if text == "" {
		return "", apperr.Reasoning(errors.New("empty response"))
	}
	r.log.Debug().Dur("elapsed", time.Since(start)).Int("response_len", len(text)).Msg("generation complete")
	return text, nil
}

// NewGenerator builds the SDK adapter selected by cfg.LLMProvider for model.
func NewGenerator(ctx context.Context, cfg *config.Config, model string) (Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderDeepSeek:
		return NewDeepSeekGenerator(ctx, cfg.DeepSeekAPIKey, model, cfg.MaxTokens)
	case config.ProviderOpenAI:
		return NewEinoGenerator(ctx, EinoOptions{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.OpenAIAPIKey,
			Model:     model,
			MaxTokens: cfg.MaxTokens,
		})
	case config.ProviderGemini:
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, model)
	case config.ProviderAnthropic:
		return NewClaudeGenerator(cfg.AnthropicAPIKey, model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// New builds a Reasoner for model using the configured provider.
func New(ctx context.Context, cfg *config.Config, model string, log zerolog.Logger) (Reasoner, error) {
	gen, err := NewGenerator(ctx, cfg, model)
	if err != nil {
		return nil, err
	}
	return NewReasoner(gen, cfg.ExternalCallTimeout, log), nil
}
