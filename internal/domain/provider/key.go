package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
)

// validationPrompt is the message sent to check that a key works.
const validationPrompt = "Hello"

// EnvKeyNames are the environment variables read by ImportFromEnv, one per built-in provider.
var EnvKeyNames = []string{llm.NameOpenAI, llm.NameAnthropic, llm.NameMistral, llm.NameGroq}

// KeyStatus is the outcome of a key validation.
type KeyStatus struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// SetAPIKey stores key for name, validates it against the provider's default model
// and records the result. The key is kept even when validation fails.
func (s *Service) SetAPIKey(ctx context.Context, name, key string) (KeyStatus, error) {
	if err := s.storeKey(ctx, name, key); err != nil {
		return KeyStatus{}, err
	}
	return s.ValidateKey(ctx, name)
}

// ValidateKey checks the stored key and records the result.
func (s *Service) ValidateKey(ctx context.Context, name string) (KeyStatus, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return KeyStatus{}, err
	}
	status, err := s.validate(ctx, p)
	if err != nil {
		return KeyStatus{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE providers SET api_key_valid = ? WHERE provider_name = ?`, status.Valid, name,
	); err != nil {
		return KeyStatus{}, fmt.Errorf("record key validity: %w", err)
	}
	s.logger.Info("api key validated", "provider", name, "valid", status.Valid)
	return status, nil
}

func (s *Service) validate(ctx context.Context, p *Provider) (KeyStatus, error) {
	if p.APIKey == "" && p.BaseURL == "" {
		return KeyStatus{Valid: false, Error: "no API key configured"}, nil
	}
	if s.dispatcher == nil {
		return KeyStatus{}, errors.New("key validation is not configured")
	}
	model, err := s.defaultModel(ctx, p.Name)
	if err != nil {
		return KeyStatus{}, err
	}
	v, err := p.Variant()
	if err != nil {
		return KeyStatus{Valid: false, Error: err.Error()}, nil
	}

	history := []llm.Message{{Role: llm.RoleUser, Content: validationPrompt}}
	if _, err := s.dispatcher.Dispatch(ctx, v, model, history, llm.DefaultGenerationConfig()); err != nil {
		s.logger.Warn("api key validation failed", "provider", p.Name, "model", model, "error", err)
		return KeyStatus{Valid: false, Error: err.Error()}, nil
	}
	return KeyStatus{Valid: true}, nil
}

// defaultModel is the first catalogue entry of the provider (the seeded default for built-ins).
func (s *Service) defaultModel(ctx context.Context, name string) (string, error) {
	var model string
	err := s.db.QueryRowContext(ctx,
		`SELECT model_name FROM models WHERE provider_name = ? ORDER BY id ASC LIMIT 1`, name,
	).Scan(&model)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoDefaultModel, name)
	}
	if err != nil {
		return "", fmt.Errorf("default model: %w", err)
	}
	return model, nil
}

func (s *Service) storeKey(ctx context.Context, name, key string) error {
	sealed, err := s.seal(key)
	if err != nil {
		return fmt.Errorf("set api key: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET api_key = ?, api_key_valid = 0 WHERE provider_name = ?`, sealed, name)
	if err != nil {
		return fmt.Errorf("set api key: %w", err)
	}
	if err := apperr.RequireAffected(res, entityProvider, name); err != nil {
		return fmt.Errorf("set api key: %w", err)
	}
	return nil
}

// ImportFromEnv copies non-empty keys from the environment (via lookup) into the built-in records
// without validating them. Returns the names that were updated.
func (s *Service) ImportFromEnv(ctx context.Context, lookup func(string) string) ([]string, error) {
	imported := []string{}
	for _, name := range EnvKeyNames {
		key := lookup(name)
		if key == "" {
			continue
		}
		if err := s.storeKey(ctx, name, key); err != nil {
			return imported, fmt.Errorf("import %s key: %w", name, err)
		}
		imported = append(imported, name)
	}
	s.logger.Info("api keys imported from environment", "providers", imported)
	return imported, nil
}
