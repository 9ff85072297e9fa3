// Package model manages the catalogue of models offered per provider.
package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
)

const entityModel = "Model"

var ErrInvalidInput = errors.New("invalid model input")

// Model is one catalogue entry, unique per (provider, model name).
type Model struct {
	ProviderName  string `json:"provider_name"`
	ModelName     string `json:"model_name"`
	DisplayName   string `json:"model_display_name"`
	Show          bool   `json:"show"`
	MaxTokens     int    `json:"max_tokens"`
	ContextWindow int    `json:"context_window"`
}

func modelID(provider, name string) string { return provider + "/" + name }

func (m Model) validate() error {
	switch {
	case strings.TrimSpace(m.ProviderName) == "" || strings.TrimSpace(m.ModelName) == "":
		return fmt.Errorf("%w: provider_name and model_name are required", ErrInvalidInput)
	case m.MaxTokens < 0 || m.ContextWindow < 0:
		return fmt.Errorf("%w: token limits must not be negative", ErrInvalidInput)
	}
	return nil
}

func (m *Model) applyDefaults() {
	if m.DisplayName == "" {
		m.DisplayName = m.ModelName
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = 4096
	}
	if m.ContextWindow == 0 {
		m.ContextWindow = 8192
	}
}

// Service provides catalogue operations.
type Service struct {
	db *sql.DB
}

// NewService creates a Service on db.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const selectModel = `
	SELECT m.provider_name, m.model_name, m.model_display_name, m.show, m.max_tokens, m.context_window
	FROM models m`

// ListAll returns every catalogue entry.
func (s *Service) ListAll(ctx context.Context) ([]*Model, error) {
	return s.query(ctx, selectModel+` ORDER BY m.provider_name, m.id`)
}

// ListAvailable returns the visible models whose provider has a key configured, plus every local model.
func (s *Service) ListAvailable(ctx context.Context) ([]*Model, error) {
	return s.query(ctx, selectModel+`
		LEFT JOIN providers p ON p.provider_name = m.provider_name
		WHERE m.show = 1
		  AND (m.provider_name IN ('ollama', 'local')
		       OR (p.provider_name IS NOT NULL AND (p.api_key != '' OR p.is_custom = 1)))
		ORDER BY m.provider_name, m.id`)
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, provider, name string) (*Model, error) {
	m, err := scanModel(s.db.QueryRowContext(ctx,
		selectModel+` WHERE m.provider_name = ? AND m.model_name = ?`, provider, name))
	if err != nil {
		return nil, fmt.Errorf("get model: %w", apperr.FromSQL(err, entityModel, modelID(provider, name)))
	}
	return m, nil
}

// Add creates an entry; an existing (provider, name) pair yields a *apperr.DuplicateError.
func (s *Service) Add(ctx context.Context, m Model) (*Model, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.applyDefaults()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO models (provider_name, model_name, model_display_name, show, max_tokens, context_window)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ProviderName, m.ModelName, m.DisplayName, m.Show, m.MaxTokens, m.ContextWindow)
	if err != nil {
		return nil, fmt.Errorf("add model: %w", apperr.FromSQL(err, entityModel, modelID(m.ProviderName, m.ModelName)))
	}
	return &m, nil
}

// Update replaces the entry identified by (provider, name) with m, which may rename it.
func (s *Service) Update(ctx context.Context, provider, name string, m Model) (*Model, error) {
	if m.ProviderName == "" {
		m.ProviderName = provider
	}
	if m.ModelName == "" {
		m.ModelName = name
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.applyDefaults()

	res, err := s.db.ExecContext(ctx, `
		UPDATE models
		SET provider_name = ?, model_name = ?, model_display_name = ?, show = ?, max_tokens = ?, context_window = ?
		WHERE provider_name = ? AND model_name = ?
	`, m.ProviderName, m.ModelName, m.DisplayName, m.Show, m.MaxTokens, m.ContextWindow, provider, name)
	if err != nil {
		return nil, fmt.Errorf("update model: %w", apperr.FromSQL(err, entityModel, modelID(m.ProviderName, m.ModelName)))
	}
	if err := apperr.RequireAffected(res, entityModel, modelID(provider, name)); err != nil {
		return nil, fmt.Errorf("update model: %w", err)
	}
	return &m, nil
}

// Delete removes one entry.
func (s *Service) Delete(ctx context.Context, provider, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM models WHERE provider_name = ? AND model_name = ?`, provider, name)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if err := apperr.RequireAffected(res, entityModel, modelID(provider, name)); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	return nil
}

func (s *Service) query(ctx context.Context, q string, args ...any) ([]*Model, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	out := []*Model{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanModel(r interface{ Scan(...any) error }) (*Model, error) {
	var (
		m    Model
		show int
	)
	if err := r.Scan(&m.ProviderName, &m.ModelName, &m.DisplayName, &show, &m.MaxTokens, &m.ContextWindow); err != nil {
		return nil, err
	}
	m.Show = show != 0
	return &m, nil
}
