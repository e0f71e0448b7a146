package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Complete when no configured provider is
// reachable; callers (C7) degrade instead of failing the request.
var ErrUnavailable = errors.New("no llm provider available")

const maxHistoryMessages = 6

// Gateway tries its providers in order and uses the first one available.
// Providers are checked fresh on every call since reachability can change
// between requests (e.g. a local model server starting up).
type Gateway struct {
	providers []Provider
	active    string
}

// NewGateway constructs a gateway over providers, tried in the given
// order of preference.
func NewGateway(providers ...Provider) *Gateway {
	return &Gateway{providers: providers}
}

// AvailableProviders returns the names of providers currently reachable.
func (g *Gateway) AvailableProviders(ctx context.Context) []string {
	var out []string
	for _, p := range g.providers {
		if p.Available(ctx) {
			out = append(out, p.Name())
		}
	}
	return out
}

// SetActive pins the gateway to a specific provider by name. An unknown
// name is ignored and the gateway continues to pick by preference order.
func (g *Gateway) SetActive(name string) {
	g.active = name
}

// Complete truncates history to the most recent maxHistoryMessages
// entries (defense in depth; C7 already applies history_window) and
// dispatches to the first available provider, preferring g.active when
// set and available.
func (g *Gateway) Complete(ctx context.Context, system string, history []Message, user string, opts CompleteOptions) (string, error) {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	if g.active != "" {
		for _, p := range g.providers {
			if p.Name() == g.active && p.Available(ctx) {
				return p.Complete(ctx, system, history, user, opts)
			}
		}
	}

	for _, p := range g.providers {
		if p.Available(ctx) {
			return p.Complete(ctx, system, history, user, opts)
		}
	}
	return "", ErrUnavailable
}
