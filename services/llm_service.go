package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-recommender/config"
	"shop-recommender/metrics"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ErrLLMDisabled     = errors.New("language model disabled")
	ErrEmptyCompletion = errors.New("language model returned no content")
)

// Completer is the language model interface the ranker depends on
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMService sends single chat completions through a circuit breaker.
// Failures are returned, never retried.
type LLMService struct {
	client  *openai.Client
	cfg     config.LLMConfig
	breaker *gobreaker.CircuitBreaker[string]
	log     zerolog.Logger
	metrics *metrics.Recorder
}

// NewLLMService creates a new LLM service instance
func NewLLMService(cfg config.LLMConfig, log zerolog.Logger, rec *metrics.Recorder) (*LLMService, error) {
	log = log.With().Str("component", "llm").Logger()

	s := &LLMService{
		cfg:     cfg,
		log:     log,
		metrics: rec,
	}
	if cfg.Disabled {
		log.Warn().Msg("language model disabled, rankings will use the fallback")
		return s, nil
	}

	switch cfg.Provider {
	case "openai":
		clientConfig := openai.DefaultConfig(cfg.OpenAIKey)
		s.client = openai.NewClientWithConfig(clientConfig)
	case "groq":
		clientConfig := openai.DefaultConfig(cfg.GroqKey)
		clientConfig.BaseURL = cfg.BaseURL
		s.client = openai.NewClientWithConfig(clientConfig)
	default:
		return nil, fmt.Errorf("invalid LLM provider: %s", cfg.Provider)
	}

	s.breaker = newBreaker(cfg, log, rec)
	return s, nil
}

func newBreaker(cfg config.LLMConfig, log zerolog.Logger, rec *metrics.Recorder) *gobreaker.CircuitBreaker[string] {
	name := "llm-" + cfg.Provider
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	rec.ObserveBreakerState(name, false)

	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a cancelled request is the caller's doing, not the provider's
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			rec.ObserveBreakerState(name, to == gobreaker.StateOpen)
		},
	})
}

// Complete runs one chat completion bounded by the configured timeout
func (s *LLMService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.client == nil {
		return "", ErrLLMDisabled
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	content, err := s.breaker.Execute(func() (string, error) {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: s.cfg.Temperature,
			MaxTokens:   s.cfg.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyCompletion
		}
		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return "", ErrEmptyCompletion
		}
		return content, nil
	})
	s.metrics.ObserveLLM(time.Since(started))

	if err != nil {
		s.log.Warn().Err(err).Str("model", s.cfg.Model).Dur("elapsed", time.Since(started)).Msg("LLM completion failed")
		return "", err
	}
	return content, nil
}
