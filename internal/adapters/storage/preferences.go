package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPreferences is returned when preferences fail validation.
var ErrInvalidPreferences = errors.New("invalid preferences")

// Preferences are the user's saved settings.
type Preferences struct {
	Language      string  `json:"language"`
	Theme         string  `json:"theme"`
	DefaultModel  string  `json:"defaultModel"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"maxTokens"`
	Streaming     bool    `json:"streaming"`
	Notifications bool    `json:"notifications"`
}

// DefaultPreferences returns the settings of a first-time user.
func DefaultPreferences() Preferences {
	return Preferences{
		Language:      "ar",
		Theme:         "dark",
		DefaultModel:  "gpt-5",
		Temperature:   0.7,
		MaxTokens:     500,
		Streaming:     true,
		Notifications: true,
	}
}

// Validate checks value ranges.
func (p Preferences) Validate() error {
	switch {
	case p.Language != "ar" && p.Language != "en":
		return fmt.Errorf("%w: language %q", ErrInvalidPreferences, p.Language)
	case p.Theme != "dark" && p.Theme != "light" && p.Theme != "system":
		return fmt.Errorf("%w: theme %q", ErrInvalidPreferences, p.Theme)
	case p.Temperature < 0 || p.Temperature > 2:
		return fmt.Errorf("%w: temperature %v", ErrInvalidPreferences, p.Temperature)
	case p.MaxTokens < 1 || p.MaxTokens > 4000:
		return fmt.Errorf("%w: maxTokens %d", ErrInvalidPreferences, p.MaxTokens)
	}
	return nil
}

// LoadPreferences returns stored preferences, or defaults when none are saved.
func LoadPreferences(ctx context.Context, s Store) (Preferences, error) {
	p := DefaultPreferences()
	err := GetJSON(ctx, s, KeyUserPreferences, &p)
	if errors.Is(err, ErrNotFound) {
		return DefaultPreferences(), nil
	}
	return p, err
}

// SavePreferences validates and stores p.
func SavePreferences(ctx context.Context, s Store, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return SetJSON(ctx, s, KeyUserPreferences, p)
}

// PrependCapped stores item at the head of the JSON list at key and keeps
// at most limit entries. Callers serialize concurrent writers to one key.
func PrependCapped(ctx context.Context, s Store, key string, item any, limit int) error {
	var list []json.RawMessage
	if err := GetJSON(ctx, s, key, &list); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s item: %w", key, err)
	}
	list = append([]json.RawMessage{raw}, list...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return SetJSON(ctx, s, key, list)
}
