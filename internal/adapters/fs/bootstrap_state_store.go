package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// BootstrapStateStore keeps one JSON state file per manifest under the data dir
type BootstrapStateStore struct {
	dir string
}

// NewBootstrapStateStore creates a new BootstrapStateStore
func NewBootstrapStateStore(cfg *config.RuntimeConfig) *BootstrapStateStore {
	return &BootstrapStateStore{
		dir: filepath.Join(cfg.DataDir, "bootstrap"),
	}
}

// statePath derives the state file from the manifest file name
func (s *BootstrapStateStore) statePath(manifestPath string) string {
	base := filepath.Base(manifestPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.dir, base+".json")
}

// Load reads the state of the last run of manifestPath. Returns ErrNotFound if there is none.
func (s *BootstrapStateStore) Load(_ context.Context, manifestPath string) (*models.BootstrapState, error) {
	path := s.statePath(manifestPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no bootstrap state for %s: %w", manifestPath, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read bootstrap state file: %w", err)
	}

	var state models.BootstrapState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap state file: %w", err)
	}

	if state.Components == nil {
		state.Components = make(map[string]*models.ComponentState)
	}

	return &state, nil
}

// Save writes the state to disk, creating the directory if needed.
func (s *BootstrapStateStore) Save(_ context.Context, state *models.BootstrapState) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create bootstrap state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bootstrap state: %w", err)
	}

	path := s.statePath(state.ManifestPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write bootstrap state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace bootstrap state file: %w", err)
	}

	return nil
}

// Delete removes the state file of manifestPath
func (s *BootstrapStateStore) Delete(_ context.Context, manifestPath string) error {
	err := os.Remove(s.statePath(manifestPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete bootstrap state file: %w", err)
	}
	return nil
}

// Ensure BootstrapStateStore implements the port
var _ usecase.BootstrapStateStore = (*BootstrapStateStore)(nil)
