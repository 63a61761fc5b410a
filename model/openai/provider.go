package openai

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentkit-go/agentkit/model"
)

// ProviderOptions configure a Provider.
type ProviderOptions struct {
	// APIKey overrides the OPENAI_API_KEY environment variable.
	APIKey string

	// BaseURL points the provider at an OpenAI-compatible endpoint. All
	// models resolved through the provider share it.
	BaseURL string
}

// Provider resolves model names to Models sharing one client, so a run
// config can select models by name:
//
//	provider := openai.NewProvider(func(o *openai.ProviderOptions) {
//	    o.APIKey = os.Getenv("GEMINI_API_KEY")
//	    o.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
//	})
type Provider struct {
	client *openai.Client
}

// NewProvider creates a provider with its own client.
func NewProvider(optFns ...func(o *ProviderOptions)) *Provider {
	opts := ProviderOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	var ro []option.RequestOption
	if opts.APIKey != "" {
		ro = append(ro, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		ro = append(ro, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(ro...)
	return &Provider{client: &client}
}

// NewProviderFromClient creates a provider around an existing client.
func NewProviderFromClient(client *openai.Client) *Provider {
	return &Provider{client: client}
}

// Get implements model.Provider.
func (p *Provider) Get(name string) (model.Model, error) {
	if name == "" {
		return nil, fmt.Errorf("model name required")
	}
	return NewModelFromClient(p.client, func(o *Options) { o.Model = name }), nil
}

var _ model.Provider = (*Provider)(nil)
