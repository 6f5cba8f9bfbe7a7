// Package openai wraps the OpenAI API with retry, rate limiting and an
// in-flight cap so batch analysis cannot stampede the backend.
package openai

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/regulaworks/corpagent/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultCompletionModel is the chat model used for drafting review suggestions
	DefaultCompletionModel = openai.GPT4oMini

	defaultTimeout     = 20 * time.Second
	defaultMaxRetries  = 3
	defaultMaxInFlight = 4
	defaultRatePerSec  = 5
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions, expected 1536")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// CompletionAPI defines the interface for chat completion generation
type CompletionAPI interface {
	CreateCompletion(ctx context.Context, system, prompt string) (string, error)
}

// Client wraps the OpenAI API client. All calls share one rate limiter and
// one in-flight semaphore, and transient failures are retried with
// exponential backoff before surfacing a domain error.
type Client struct {
	embeddings  EmbeddingAPI
	completions CompletionAPI
	dimensions  int
	timeout     time.Duration
	maxRetries  uint64
	limiter     *rate.Limiter
	inFlight    *semaphore.Weighted
}

type OpenAIAdapter struct {
	client          *openai.Client
	embeddingModel  openai.EmbeddingModel
	completionModel string
}

func NewOpenAIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, completionModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if completionModel == "" {
		completionModel = DefaultCompletionModel
	}
	return &OpenAIAdapter{
		client:          openai.NewClient(apiKey),
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the OpenAI chat API and returns the first choice.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, system, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.completionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	CompletionModel     string
	EmbeddingDimensions int
	Timeout             time.Duration
	MaxRetries          int
	MaxInFlight         int
	RatePerSecond       int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	perSec := cfg.RatePerSecond
	if perSec <= 0 {
		perSec = defaultRatePerSec
	}

	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.CompletionModel)
	return &Client{
		embeddings:  adapter,
		completions: adapter,
		dimensions:  dimensions,
		timeout:     timeout,
		maxRetries:  uint64(retries),
		limiter:     rate.NewLimiter(rate.Limit(perSec), perSec),
		inFlight:    semaphore.NewWeighted(int64(maxInFlight)),
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text. A nil Client
// reports the backend unavailable, matching a configured-but-unreachable one.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	var embedding []float32
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		embedding, err = c.embeddings.CreateEmbeddings(ctx, text)
		return err
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding,
			"embedding backend unavailable", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// GenerateCompletion asks the chat model for a short completion, typically a
// corrective suggestion for a flagged clause.
func (c *Client) GenerateCompletion(ctx context.Context, system, prompt string) (string, error) {
	if c == nil {
		return "", domain.ErrGenerationUnavailable
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyText
	}

	var out string
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.completions.CreateCompletion(ctx, system, prompt)
		return err
	})
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeGeneration,
			"completion backend unavailable", err)
	}
	return out, nil
}

// call runs one backend operation through the shared in-flight cap, rate
// limiter and retry policy. Context cancellation aborts without retrying.
func (c *Client) call(ctx context.Context, op func(context.Context) error) error {
	if err := c.inFlight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.inFlight.Release(1)

	attempt := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := op(callCtx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(attempt, policy)
}
