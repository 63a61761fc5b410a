package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentkit-go/agentkit/model"
)

// ProviderOptions configure a Provider.
type ProviderOptions struct {
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string
}

// Provider resolves Claude model names to Models sharing one client.
type Provider struct {
	client *anthropic.Client
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
	client := anthropic.NewClient(ro...)
	return &Provider{client: &client}
}

// NewProviderFromClient creates a provider around an existing client.
func NewProviderFromClient(client *anthropic.Client) *Provider {
	return &Provider{client: client}
}

// Get implements model.Provider.
func (p *Provider) Get(name string) (model.Model, error) {
	if name == "" {
		return nil, fmt.Errorf("model name required")
	}
	return NewModelFromClient(p.client, func(o *Options) { o.Model = anthropic.Model(name) }), nil
}

var _ model.Provider = (*Provider)(nil)
