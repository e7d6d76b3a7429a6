package provider

import (
	"context"
	"errors"

	"github.com/mindx-labs/stemchat/config"
	gemini_provider "github.com/mindx-labs/stemchat/provider/gemini"
)

// Client represents different LLM providers
type Client string

const (
	Gemini Client = "gemini"
)

// Message is one turn of a tutoring conversation.
type Message = gemini_provider.Message

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	// Generate produces the next assistant reply given the system prompt
	// and the conversation so far.
	Generate(ctx context.Context, system string, history []Message) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.Config) (Provider, error) {
	switch client {
	case Gemini:
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, errors.New("gemini api key not set")
		}
		return gemini_provider.NewClient(
			cfg.Providers.Gemini.APIKey,
			cfg.Providers.Gemini.Model,
			cfg.Providers.Gemini.FallbackModel,
			cfg.Providers.Gemini.Timeout,
		), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
