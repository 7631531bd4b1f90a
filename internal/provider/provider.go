// Package provider defines the vendor-neutral chat capability and the
// pieces shared by its vendor adapters.
package provider

//go:generate mockgen -destination=mocks/provider_mock.go -package=mocks github.com/zgsm-ai/llm-bridge/internal/provider Provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zgsm-ai/llm-bridge/internal/client"
	"github.com/zgsm-ai/llm-bridge/internal/service"
	"github.com/zgsm-ai/llm-bridge/internal/types"
	"github.com/zgsm-ai/llm-bridge/internal/utils"
)

// ErrMissingCredential is returned when a vendor that requires an API key
// has none configured
var ErrMissingCredential = errors.New("missing API credential")

// Provider is implemented by every vendor adapter. Implementations hold only
// immutable configuration and are safe for concurrent use; nothing is
// retried internally.
type Provider interface {
	// Chat sends req. When req.Stream is set, onDelta (if non-nil) receives
	// each text fragment as it arrives.
	Chat(ctx context.Context, req *types.ChatRequest, onDelta types.DeltaFunc) (*types.ChatResponse, error)

	// ListModels returns the vendor's models, or an error; never a partial list
	ListModels(ctx context.Context) ([]types.ModelInfo, error)

	// CountTokens is an approximate prompt size, not vendor tokenization
	CountTokens(messages []types.ChatMessage) int

	Name() string
}

// CredentialProvider supplies the API credential for each call
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

// StaticCredential is a fixed credential
type StaticCredential string

// Credential implements CredentialProvider
func (c StaticCredential) Credential(context.Context) (string, error) {
	return string(c), nil
}

// EnvCredential reads the named environment variable at call time
type EnvCredential string

// Credential implements CredentialProvider. An unset variable yields "".
func (c EnvCredential) Credential(context.Context) (string, error) {
	return os.Getenv(string(c)), nil
}

// Settings is the immutable configuration an adapter is built from
type Settings struct {
	BaseURL    string
	Model      string
	Credential CredentialProvider

	HTTPClient   *client.HTTPClient
	Truncation   utils.TruncationPolicy
	TokenCounter *utils.TokenCounter
	Metrics      *service.MetricsService

	StrictToolArguments bool

	// IdleTimeout aborts a stream that sends nothing for this long; 0 disables
	IdleTimeout   time.Duration
	MaxFrameBytes int
}

// WithDefaults fills unset fields
func (s Settings) WithDefaults(defaultBaseURL string) Settings {
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	if s.HTTPClient == nil {
		s.HTTPClient = client.NewHTTPClient(client.HTTPClientConfig{})
	}
	if s.Truncation.MaxChars <= 0 || s.Truncation.MaxTokens <= 0 {
		s.Truncation = utils.NewTruncationPolicy(s.Truncation.MaxChars, s.Truncation.MaxTokens)
	}
	if s.Credential == nil {
		s.Credential = StaticCredential("")
	}
	return s
}

// ResolveCredential fetches the credential, wrapping failures
func (s Settings) ResolveCredential(ctx context.Context) (string, error) {
	if s.Credential == nil {
		return "", nil
	}
	key, err := s.Credential.Credential(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve credential: %w", err)
	}
	return key, nil
}

// CountTokens is the shared approximation used by adapters
func (s Settings) CountTokens(messages []types.ChatMessage) int {
	return s.TokenCounter.CountMessagesTokens(messages)
}
