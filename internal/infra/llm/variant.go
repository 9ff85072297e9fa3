package llm

import "strings"

// WireScheme is the request/response protocol a backend speaks.
type WireScheme string

const (
	SchemeOpenAI    WireScheme = "openai"
	SchemeAnthropic WireScheme = "anthropic"
	SchemeGroq      WireScheme = "groq"
	SchemeMistral   WireScheme = "mistral"
	SchemeOllama    WireScheme = "ollama"
)

// Canonical provider names, as stored in the providers table.
const (
	NameOpenAI    = "openai"
	NameAnthropic = "anthropic"
	NameMistral   = "mistralai"
	NameGroq      = "groqcloud"
	NameOllama    = "ollama"
	NameCustom    = "custom"
)

// Variant is the closed set of backends a turn can be sent to.
// It is rebuilt from the credential record on every turn.
type Variant interface {
	// Name is the canonical provider name; Custom reports NameCustom.
	Name() string
	Scheme() WireScheme
	sealed()
}

type OpenAI struct{ APIKey string }
type Anthropic struct{ APIKey string }
type Groq struct{ APIKey string }
type Mistral struct{ APIKey string }

// Ollama reaches a local or remote Ollama server. An empty BaseURL uses the dispatcher's default.
type Ollama struct {
	BaseURL string
	APIKey  string
}

// Custom is any endpoint with an explicit base URL, speaking one of the known wire-schemes.
// A zero WireScheme means openai.
type Custom struct {
	BaseURL    string
	APIKey     string
	WireScheme WireScheme
}

func (OpenAI) Name() string    { return NameOpenAI }
func (Anthropic) Name() string { return NameAnthropic }
func (Groq) Name() string      { return NameGroq }
func (Mistral) Name() string   { return NameMistral }
func (Ollama) Name() string    { return NameOllama }
func (Custom) Name() string    { return NameCustom }

func (OpenAI) Scheme() WireScheme    { return SchemeOpenAI }
func (Anthropic) Scheme() WireScheme { return SchemeAnthropic }
func (Groq) Scheme() WireScheme      { return SchemeGroq }
func (Mistral) Scheme() WireScheme   { return SchemeMistral }
func (Ollama) Scheme() WireScheme    { return SchemeOllama }
func (c Custom) Scheme() WireScheme {
	if c.WireScheme == "" {
		return SchemeOpenAI
	}
	return c.WireScheme
}

func (OpenAI) sealed()    {}
func (Anthropic) sealed() {}
func (Groq) sealed()      {}
func (Mistral) sealed()   {}
func (Ollama) sealed()    {}
func (Custom) sealed()    {}

var aliases = map[string]string{
	"openai":    NameOpenAI,
	"anthropic": NameAnthropic,
	"claude":    NameAnthropic,
	"mistral":   NameMistral,
	"mistralai": NameMistral,
	"groq":      NameGroq,
	"groqcloud": NameGroq,
	"ollama":    NameOllama,
	"local":     NameOllama,
}

var schemeByName = map[string]WireScheme{
	NameOpenAI:    SchemeOpenAI,
	NameAnthropic: SchemeAnthropic,
	NameMistral:   SchemeMistral,
	NameGroq:      SchemeGroq,
	NameOllama:    SchemeOllama,
}

// CanonicalName resolves a provider alias (case-insensitive). ok is false for unknown names.
func CanonicalName(name string) (canonical string, ok bool) {
	canonical, ok = aliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// ParseScheme resolves a wire-scheme name or provider alias. Empty means openai.
func ParseScheme(s string) (WireScheme, error) {
	if strings.TrimSpace(s) == "" {
		return SchemeOpenAI, nil
	}
	if canonical, ok := CanonicalName(s); ok {
		return schemeByName[canonical], nil
	}
	return "", &DispatchError{Kind: KindUnsupportedProvider, Provider: s}
}

// NewVariant builds the variant for a credential record. A non-blank baseURL always yields
// Custom, whatever the name; otherwise name must be a known alias.
func NewVariant(name, apiKey, baseURL, scheme string) (Variant, error) {
	if base := strings.TrimSpace(baseURL); base != "" {
		ws, err := ParseScheme(scheme)
		if err != nil {
			return nil, err
		}
		return Custom{BaseURL: strings.TrimRight(base, "/"), APIKey: apiKey, WireScheme: ws}, nil
	}

	canonical, ok := CanonicalName(name)
	if !ok {
		return nil, &DispatchError{Kind: KindUnsupportedProvider, Provider: name}
	}
	switch canonical {
	case NameOpenAI:
		return OpenAI{APIKey: apiKey}, nil
	case NameAnthropic:
		return Anthropic{APIKey: apiKey}, nil
	case NameMistral:
		return Mistral{APIKey: apiKey}, nil
	case NameGroq:
		return Groq{APIKey: apiKey}, nil
	default:
		return Ollama{APIKey: apiKey}, nil
	}
}
