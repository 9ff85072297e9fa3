// Package provider manages credential records: the built-in backends seeded by migration
// and the custom endpoints a user adds. API keys are sealed at rest.
package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
)

const entityProvider = "Provider"

var (
	ErrBuiltinProvider = errors.New("built-in providers cannot be deleted")
	ErrNoDefaultModel  = errors.New("no default model found for provider")
	ErrInvalidInput    = errors.New("invalid provider input")
)

// Provider is one credential record.
type Provider struct {
	Name        string `json:"provider_name"`
	DisplayName string `json:"display_name"`
	APIKey      string `json:"-"`
	APIKeyValid bool   `json:"api_key_valid"`
	BaseURL     string `json:"base_url,omitempty"`
	WireScheme  string `json:"wire_scheme,omitempty"`
	IsCustom    bool   `json:"is_custom"`
}

// HasKey reports whether an API key is configured.
func (p Provider) HasKey() bool { return p.APIKey != "" }

// Variant builds the dispatch variant for this record.
func (p Provider) Variant() (llm.Variant, error) {
	return llm.NewVariant(p.Name, p.APIKey, p.BaseURL, p.WireScheme)
}

// IsLocal reports whether name refers to the local Ollama backend, which needs no stored record.
func IsLocal(name string) bool {
	canonical, ok := llm.CanonicalName(name)
	return ok && canonical == llm.NameOllama
}

// LocalCredential is the zero-credential, always-valid record used for the local backend.
func LocalCredential() *Provider {
	return &Provider{Name: llm.NameOllama, DisplayName: "Ollama (local)", APIKeyValid: true}
}

// Sealer protects API keys at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// Dispatcher sends a single completion request; satisfied by *llm.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, v llm.Variant, model string, history []llm.Message, cfg llm.GenerationConfig) (string, error)
}

// Service provides credential record operations.
type Service struct {
	db         *sql.DB
	sealer     Sealer
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewService creates a Service. A nil sealer stores keys in plaintext; a nil dispatcher disables key validation.
func NewService(db *sql.DB, sealer Sealer, dispatcher Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, sealer: sealer, dispatcher: dispatcher, logger: logger}
}

const selectProvider = `
	SELECT provider_name, api_key, display_name, api_key_valid,
	       COALESCE(base_url, ''), COALESCE(wire_scheme, ''), is_custom
	FROM providers`

// List returns every record, built-ins first.
func (s *Service) List(ctx context.Context) ([]*Provider, error) {
	rows, err := s.db.QueryContext(ctx, selectProvider+` ORDER BY is_custom ASC, provider_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	out := []*Provider{}
	for rows.Next() {
		p, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list providers: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one record with its key opened.
func (s *Service) Get(ctx context.Context, name string) (*Provider, error) {
	p, err := s.scan(s.db.QueryRowContext(ctx, selectProvider+` WHERE provider_name = ?`, name))
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", apperr.FromSQL(err, entityProvider, name))
	}
	return p, nil
}

// GetCredential resolves name (alias-aware) to its record. The local backend is synthesized.
func (s *Service) GetCredential(ctx context.Context, name string) (*Provider, error) {
	if IsLocal(name) {
		return LocalCredential(), nil
	}
	if canonical, ok := llm.CanonicalName(name); ok {
		name = canonical
	}
	return s.Get(ctx, name)
}

// AddInput describes a custom endpoint.
type AddInput struct {
	Name        string `json:"provider_name"`
	DisplayName string `json:"display_name"`
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	WireScheme  string `json:"wire_scheme"`
}

// Add creates a custom record. Built-in names and aliases are reserved.
func (s *Service) Add(ctx context.Context, in AddInput) (*Provider, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.BaseURL = strings.TrimSpace(in.BaseURL)
	if in.Name == "" || in.BaseURL == "" {
		return nil, fmt.Errorf("%w: provider_name and base_url are required", ErrInvalidInput)
	}
	if _, reserved := llm.CanonicalName(in.Name); reserved {
		return nil, &apperr.DuplicateError{Entity: entityProvider, ID: in.Name}
	}
	if _, err := llm.ParseScheme(in.WireScheme); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Name
	}

	sealed, err := s.seal(in.APIKey)
	if err != nil {
		return nil, fmt.Errorf("add provider: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO providers (provider_name, api_key, display_name, api_key_valid, base_url, wire_scheme, is_custom)
		VALUES (?, ?, ?, 0, ?, ?, 1)
	`, in.Name, sealed, in.DisplayName, in.BaseURL, nullable(in.WireScheme))
	if err != nil {
		return nil, fmt.Errorf("add provider: %w", apperr.FromSQL(err, entityProvider, in.Name))
	}
	return s.Get(ctx, in.Name)
}

// UpdateInput changes the non-key fields of a record; nil fields are left as they are.
type UpdateInput struct {
	DisplayName *string `json:"display_name"`
	BaseURL     *string `json:"base_url"`
	WireScheme  *string `json:"wire_scheme"`
}

// Update applies in to the named record.
func (s *Service) Update(ctx context.Context, name string, in UpdateInput) (*Provider, error) {
	cur, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil && strings.TrimSpace(*in.DisplayName) != "" {
		cur.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.BaseURL != nil {
		cur.BaseURL = strings.TrimSpace(*in.BaseURL)
	}
	if in.WireScheme != nil {
		if _, err := llm.ParseScheme(*in.WireScheme); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		cur.WireScheme = *in.WireScheme
	}
	if cur.IsCustom && cur.BaseURL == "" {
		return nil, fmt.Errorf("%w: custom providers need a base_url", ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE providers SET display_name = ?, base_url = ?, wire_scheme = ? WHERE provider_name = ?
	`, cur.DisplayName, nullable(cur.BaseURL), nullable(cur.WireScheme), name)
	if err != nil {
		return nil, fmt.Errorf("update provider: %w", err)
	}
	if err := apperr.RequireAffected(res, entityProvider, name); err != nil {
		return nil, fmt.Errorf("update provider: %w", err)
	}
	return cur, nil
}

// Delete removes a custom record together with its models.
func (s *Service) Delete(ctx context.Context, name string) error {
	cur, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if !cur.IsCustom {
		return ErrBuiltinProvider
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete provider: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM models WHERE provider_name = ?`, name); err != nil {
		return fmt.Errorf("delete provider models: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM providers WHERE provider_name = ?`, name); err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	return tx.Commit()
}

func (s *Service) scan(r interface{ Scan(...any) error }) (*Provider, error) {
	var (
		p             Provider
		valid, custom int
		stored        string
	)
	if err := r.Scan(&p.Name, &stored, &p.DisplayName, &valid, &p.BaseURL, &p.WireScheme, &custom); err != nil {
		return nil, err
	}
	key, err := s.open(stored)
	if err != nil {
		return nil, fmt.Errorf("open api key for %s: %w", p.Name, err)
	}
	p.APIKey = key
	p.APIKeyValid = valid != 0
	p.IsCustom = custom != 0
	return &p, nil
}

func (s *Service) seal(key string) (string, error) {
	if s.sealer == nil {
		return key, nil
	}
	return s.sealer.Seal(key)
}

func (s *Service) open(stored string) (string, error) {
	if s.sealer == nil {
		return stored, nil
	}
	return s.sealer.Open(stored)
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
