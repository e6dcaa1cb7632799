package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/metasync/internal/mapping"
)

// CreatePreset validates and saves a new mapping preset.
func (s *Service) CreatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	return s.store.CreatePreset(ctx, p)
}

// UpdatePreset replaces the preset with p.ID.
func (s *Service) UpdatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	return s.store.UpdatePreset(ctx, p)
}

// GetPreset retrieves a preset by ID.
func (s *Service) GetPreset(ctx context.Context, id string) (*mapping.Preset, error) {
	return s.store.GetPreset(ctx, id)
}

// ListPresets returns all presets ordered by name.
func (s *Service) ListPresets(ctx context.Context) ([]mapping.Preset, error) {
	return s.store.ListPresets(ctx)
}

// DeletePreset removes a preset.
func (s *Service) DeletePreset(ctx context.Context, id string) error {
	return s.store.DeletePreset(ctx, id)
}

// MatchPresets returns presets whose saved headers fit headers, best first.
func (s *Service) MatchPresets(ctx context.Context, headers []string) ([]mapping.PresetMatch, error) {
	presets, err := s.store.ListPresets(ctx)
	if err != nil {
		return nil, err
	}
	matches := mapping.MatchPresets(headers, presets)
	if matches == nil {
		matches = []mapping.PresetMatch{}
	}
	return matches, nil
}
