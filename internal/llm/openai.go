package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// pingTimeout bounds the local provider's reachability probe; it must stay
// well under request latency budgets since Available is checked on every
// Complete call.
const pingTimeout = 2 * time.Second

// openAIProvider talks to an OpenAI-compatible chat completions endpoint.
// The same client construction serves both the hosted OpenAI API and a
// local, self-hosted OpenAI-compatible server, distinguished only by
// baseURL and apiKey.
type openAIProvider struct {
	name    string
	model   string
	baseURL string
	apiKey  string
	client  openai.Client
	pinger  *http.Client
}

// newOpenAICompatible builds a provider against any OpenAI-compatible
// endpoint. An empty apiKey is valid for local servers that don't check it.
func newOpenAICompatible(name, model, baseURL, apiKey string) *openAIProvider {
	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &openAIProvider{
		name:    name,
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  openai.NewClient(opts...),
		pinger:  &http.Client{Timeout: pingTimeout},
	}
}

// NewLocal constructs the local self-hosted provider, available when a base
// URL is configured and a GET against it gets any HTTP response.
func NewLocal(baseURL, model string) Provider {
	return newOpenAICompatible("local", model, baseURL, "")
}

// NewOpenAI constructs the hosted OpenAI provider, available whenever an
// API key is configured.
func NewOpenAI(apiKey, model, baseURL string) Provider {
	return newOpenAICompatible("openai", model, baseURL, apiKey)
}

func (p *openAIProvider) Name() string { return p.name }

// Available reports whether the provider can currently serve requests. The
// local provider additionally probes the configured host, since "available"
// for a self-hosted server means reachable right now, not merely configured
// (spec orders providers "local self-hosted first (if reachable)").
func (p *openAIProvider) Available(ctx context.Context) bool {
	if p.name == "local" {
		if strings.TrimSpace(p.baseURL) == "" {
			return false
		}
		return p.ping(ctx)
	}
	return strings.TrimSpace(p.apiKey) != ""
}

// ping issues a bounded-timeout GET against the base URL to check
// reachability; any response (even a non-2xx one from an OpenAI-compatible
// server without a root route) counts as reachable, only a transport-level
// failure does not.
func (p *openAIProvider) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.pinger.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return true
}

func (p *openAIProvider) Complete(ctx context.Context, system string, history []Message, user string, opts CompleteOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, m := range history {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    messages,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
