package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultGroqBaseURL      = "https://api.groq.com/openai/v1"
	defaultMistralBaseURL   = "https://api.mistral.ai/v1"
	defaultOllamaBaseURL    = "http://localhost:11434"

	// DefaultTimeout bounds a single dispatch when the caller sets none.
	DefaultTimeout = 120 * time.Second
)

// Dispatcher sends one completion request per call. It keeps no per-turn state and is safe for concurrent use.
type Dispatcher struct {
	httpClient    *http.Client
	timeout       time.Duration
	ollamaBaseURL string
	logger        *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets the transport shared by all wire-schemes.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.httpClient = c }
}

// WithTimeout bounds every call; 0 leaves only the caller's context.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

// WithOllamaBaseURL sets the server used by Ollama variants without their own base URL.
func WithOllamaBaseURL(u string) Option {
	return func(d *Dispatcher) {
		if u != "" {
			d.ollamaBaseURL = u
		}
	}
}

// WithLogger sets the logger; nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher returns a Dispatcher with DefaultTimeout and the default Ollama URL.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		httpClient:    &http.Client{},
		timeout:       DefaultTimeout,
		ollamaBaseURL: defaultOllamaBaseURL,
	}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

var defaultDispatcher = NewDispatcher()

// Dispatch sends history to model on v using a default Dispatcher.
func Dispatch(ctx context.Context, v Variant, model string, history []Message, cfg GenerationConfig) (string, error) {
	return defaultDispatcher.Dispatch(ctx, v, model, history, cfg)
}

// target is what a variant resolves to on the wire.
type target struct {
	scheme  WireScheme
	baseURL string
	apiKey  string
}

func (d *Dispatcher) resolve(v Variant) (target, error) {
	switch x := v.(type) {
	case OpenAI:
		return target{SchemeOpenAI, defaultOpenAIBaseURL, x.APIKey}, nil
	case Anthropic:
		return target{SchemeAnthropic, defaultAnthropicBaseURL, x.APIKey}, nil
	case Groq:
		return target{SchemeGroq, defaultGroqBaseURL, x.APIKey}, nil
	case Mistral:
		return target{SchemeMistral, defaultMistralBaseURL, x.APIKey}, nil
	case Ollama:
		base := x.BaseURL
		if base == "" {
			base = d.ollamaBaseURL
		}
		return target{SchemeOllama, base, x.APIKey}, nil
	case Custom:
		return target{x.Scheme(), x.BaseURL, x.APIKey}, nil
	default:
		return target{}, &DispatchError{Kind: KindUnsupportedProvider, Provider: fmt.Sprintf("%T", v)}
	}
}

// Dispatch makes exactly one network call and returns the top completion text.
// Every failure is a *DispatchError; there are no retries.
func (d *Dispatcher) Dispatch(ctx context.Context, v Variant, model string, history []Message, cfg GenerationConfig) (string, error) {
	if v == nil {
		return "", &DispatchError{Kind: KindUnsupportedProvider}
	}
	t, err := d.resolve(v)
	if err != nil {
		return "", err
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if d.logger.Enabled(ctx, slog.LevelDebug) {
		d.logger.DebugContext(ctx, "llm dispatch",
			"provider", v.Name(), "scheme", string(t.scheme), "model", model,
			"messages", len(history), "prompt_tokens_est", EstimateTokens(history))
	}

	var answer string
	switch t.scheme {
	case SchemeOpenAI:
		answer, err = d.chatOpenAI(ctx, t, model, history, cfg)
	case SchemeGroq, SchemeMistral:
		answer, err = d.chatCompat(ctx, t, model, history, cfg)
	case SchemeAnthropic:
		answer, err = d.chatAnthropic(ctx, t, model, history, cfg)
	case SchemeOllama:
		answer, err = d.chatOllama(ctx, t, model, history, cfg)
	default:
		err = &DispatchError{Kind: KindUnsupportedProvider, Provider: string(t.scheme)}
	}

	if err == nil && answer == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		de := Classify(v.Name(), err)
		d.logger.Warn("llm dispatch failed",
			"provider", v.Name(), "model", model, "kind", string(de.Kind),
			"duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", de
	}

	d.logger.Debug("llm dispatch done", "provider", v.Name(), "model", model,
		"duration_ms", time.Since(start).Milliseconds())
	return answer, nil
}
