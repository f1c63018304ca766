// Package providertest provides an in-memory Provider for tests.
package providertest

import (
	"context"
	"sync"

	"voicecoach-gateway/internal/provider"
)

// Fake answers prompts from Respond, or from Responses keyed by operation.
type Fake struct {
	Respond   func(ctx context.Context, prompt provider.Prompt) (string, error)
	Responses map[string]string
	Err       error

	mu    sync.Mutex
	calls []provider.Prompt
}

func (f *Fake) Generate(ctx context.Context, prompt provider.Prompt) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(ctx, prompt)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Responses[prompt.Operation], nil
}

// Calls returns a copy of every prompt received so far.
func (f *Fake) Calls() []provider.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.Prompt, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many prompts were received for operation, or in total
// when operation is empty.
func (f *Fake) CallCount(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if operation == "" {
		return len(f.calls)
	}
	n := 0
	for _, c := range f.calls {
		if c.Operation == operation {
			n++
		}
	}
	return n
}

var _ provider.Provider = (*Fake)(nil)
