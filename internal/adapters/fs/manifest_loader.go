package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
	"gopkg.in/yaml.v3"
)

// ManifestLoader reads YAML bootstrap manifests
type ManifestLoader struct {
	projectRoot string
}

// NewManifestLoader creates a loader resolving relative paths against the project root
func NewManifestLoader(cfg *config.RuntimeConfig) *ManifestLoader {
	return &ManifestLoader{projectRoot: cfg.ProjectRoot}
}

// Load parses and validates the manifest at path
func (l *ManifestLoader) Load(_ context.Context, path string) (*usecase.Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no manifest path given", domain.ErrInvalidInput)
	}
	if !filepath.IsAbs(path) && l.projectRoot != "" {
		path = filepath.Join(l.projectRoot, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest usecase.Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: manifest %s is empty", domain.ErrInvalidPlan, path)
		}
		return nil, fmt.Errorf("%w: failed to parse manifest %s: %v", domain.ErrInvalidPlan, path, err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

var _ usecase.ManifestLoader = (*ManifestLoader)(nil)
