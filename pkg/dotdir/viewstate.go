package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	viewStateFile = "view.json"
)

// ViewState is the persisted filter and sort selection of the deck.
type ViewState struct {
	Search    string `json:"search,omitempty"`
	User      string `json:"user,omitempty"`
	Tag       string `json:"tag,omitempty"`
	SortField string `json:"sort_field,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// LoadViewState loads the view state from a target .memdeck/view.json.
// Returns nil, nil if no view state was saved yet.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadViewState(overrideDir string) (*ViewState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, viewStateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading view state: %w", err)
	}

	state := &ViewState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing view state: %w", err)
	}

	return state, nil
}

// SaveViewState persists the view state to a target .memdeck/view.json.
func (m *Manager) SaveViewState(state *ViewState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil view state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling view state: %w", err)
	}

	path := filepath.Join(dir, viewStateFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing view state: %w", err)
	}

	return nil
}

// ClearViewState removes the view state file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearViewState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, viewStateFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing view state: %w", err)
	}

	return nil
}
