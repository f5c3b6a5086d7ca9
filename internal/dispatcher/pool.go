package dispatcher

import (
	"fmt"
	"sync"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/provider"
)

// Pool is an ordered, non-empty set of providers with a rotation cursor.
// The cursor is always a valid index.
type Pool struct {
	mu        sync.Mutex
	providers []provider.Provider
	names     []string
	cursor    int
}

func NewPool(providers []provider.Provider) (*Pool, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: at least one provider is required", domain.ErrValidation)
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: provider %d is nil", domain.ErrValidation, i)
		}
		names[i] = provider.NameOf(p, i)
	}

	return &Pool{
		providers: append([]provider.Provider(nil), providers...),
		names:     names,
	}, nil
}

// Current returns the provider under the cursor together with its index.
func (p *Pool) Current() (int, provider.Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cursor, p.providers[p.cursor]
}

// Advance moves the cursor to the next provider, wrapping at the end, and
// returns the new index.
func (p *Pool) Advance() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cursor = (p.cursor + 1) % len(p.providers)
	return p.cursor
}

func (p *Pool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cursor
}

func (p *Pool) Len() int { return len(p.providers) }

// Name returns the label of the provider at index.
func (p *Pool) Name(index int) string {
	if index < 0 || index >= len(p.names) {
		return ""
	}
	return p.names[index]
}
