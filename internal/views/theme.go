package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/expense-console/internal/storage"
)

// Theme names
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme persists the light/dark preference
type Theme struct {
	store storage.Store
}

// NewTheme creates a theme preference backed by store
func NewTheme(store storage.Store) *Theme {
	return &Theme{store: store}
}

// Current returns the stored theme, light when unset or unrecognized
func (t *Theme) Current(ctx context.Context) (string, error) {
	value, err := t.store.Get(ctx, storage.KeyTheme)
	if errors.Is(err, storage.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read theme: %w", err)
	}
	if value == ThemeDark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

// Toggle switches between light and dark and persists the result
func (t *Theme) Toggle(ctx context.Context) (string, error) {
	current, err := t.Current(ctx)
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}
	if err := t.store.Set(ctx, storage.KeyTheme, next); err != nil {
		return "", fmt.Errorf("failed to save theme: %w", err)
	}
	return next, nil
}
