package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Manjussha/tokenbench/internal/preprocess"
)

// Settings are the user preferences stored under KeySettings.
type Settings struct {
	Preprocess preprocess.Options `json:"preprocess"`
	Budget     float64            `json:"budget"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings(budget float64) Settings {
	return Settings{
		Preprocess: preprocess.Defaults(),
		Budget:     budget,
	}
}

// SettingsStore reads and writes Settings.
type SettingsStore struct {
	kv       KV
	defaults Settings
}

// NewSettingsStore creates a SettingsStore falling back to defaults.
func NewSettingsStore(kv KV, defaults Settings) *SettingsStore {
	return &SettingsStore{kv: kv, defaults: defaults}
}

// Load returns stored settings merged over the defaults.
// Fields missing from the stored JSON keep their default values.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	raw, ok, err := s.kv.Get(ctx, KeySettings)
	if err != nil {
		return s.defaults, fmt.Errorf("settings.Load: %w", err)
	}
	if !ok {
		return s.defaults, nil
	}
	out := s.defaults
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Printf("settings.Load: unreadable settings, using defaults: %v", err)
		return s.defaults, nil
	}
	if out.Budget < 0 {
		out.Budget = 0
	}
	return out, nil
}

// Save stores settings. A negative budget is clamped to zero.
func (s *SettingsStore) Save(ctx context.Context, settings Settings) (Settings, error) {
	if settings.Budget < 0 {
		settings.Budget = 0
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return Settings{}, fmt.Errorf("settings.Save: marshal: %w", err)
	}
	if err := s.kv.Set(ctx, KeySettings, raw); err != nil {
		return Settings{}, fmt.Errorf("settings.Save: %w", err)
	}
	return settings, nil
}
