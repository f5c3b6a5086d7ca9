package provider

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

// Provider is the outbound message delivery port. Implementations report any
// transport or delivery problem as an error, preferably a *ProviderError.
type Provider interface {
	Send(ctx context.Context, msg domain.Message) (*Receipt, error)
}

// Receipt is returned by a provider that accepted a message. MessageID is the
// provider-assigned identifier; its format is up to the provider.
type Receipt struct {
	MessageID  string
	Provider   string
	StatusCode int
	Body       string
}

// Named is implemented by providers that carry a human-readable name.
type Named interface {
	Name() string
}

// NameOf returns the provider's name, or a positional label when it has none.
func NameOf(p Provider, index int) string {
	if named, ok := p.(Named); ok {
		if name := named.Name(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("provider-%d", index)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, msg domain.Message) (*Receipt, error)

func (f Func) Send(ctx context.Context, msg domain.Message) (*Receipt, error) {
	return f(ctx, msg)
}
