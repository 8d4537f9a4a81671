package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
)

// ArtifactRepository loads compiled contracts from the build output directory.
// Both Foundry (out/<File>.sol/<Name>.json) and Truffle (build/contracts/<Name>.json)
// layouts are understood.
type ArtifactRepository struct {
	dir string

	mu    sync.Mutex
	cache map[string]*models.Artifact
}

// NewArtifactRepository creates a repository over the configured artifacts dir
func NewArtifactRepository(cfg *config.RuntimeConfig) *ArtifactRepository {
	dir := cfg.ArtifactsDir
	if dir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.ProjectRoot, dir)
	}
	return &ArtifactRepository{dir: dir, cache: make(map[string]*models.Artifact)}
}

type artifactFile struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

type foundryBytecode struct {
	Object         string                                       `json:"object"`
	LinkReferences map[string]map[string][]models.LinkReference `json:"linkReferences"`
}

// GetArtifact returns the artifact for name. name may be a bare contract name
// or "File.sol:Name".
func (r *ArtifactRepository) GetArtifact(_ context.Context, name string) (*models.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if artifact, ok := r.cache[name]; ok {
		return artifact, nil
	}

	path, err := r.find(name)
	if err != nil {
		return nil, err
	}

	artifact, err := parseArtifact(path, contractName(name))
	if err != nil {
		return nil, err
	}
	r.cache[name] = artifact
	return artifact, nil
}

func contractName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (r *ArtifactRepository) find(name string) (string, error) {
	if r.dir == "" {
		return "", fmt.Errorf("%w: no artifacts directory configured", domain.ErrInvalidInput)
	}

	contract := contractName(name)
	var candidates []string
	if i := strings.LastIndex(name, ":"); i >= 0 {
		candidates = append(candidates, filepath.Join(r.dir, filepath.Base(name[:i]), contract+".json"))
	}
	candidates = append(candidates,
		filepath.Join(r.dir, contract+".sol", contract+".json"),
		filepath.Join(r.dir, contract+".json"),
	)
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	// fall back to a walk for contracts declared in differently named files
	var found string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == contract+".json" {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return "", fmt.Errorf("failed to search artifacts: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("artifact %s: %w", name, domain.ErrNotFound)
	}
	return found, nil
}

func parseArtifact(path, name string) (*models.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}

	artifact := &models.Artifact{Name: name, Path: path}
	if len(file.ABI) > 0 {
		artifact.ABI, err = abi.JSON(bytes.NewReader(file.ABI))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI of %s: %w", name, err)
		}
	}

	trimmed := bytes.TrimSpace(file.Bytecode)
	switch {
	case len(trimmed) == 0:
	case trimmed[0] == '"':
		if err := json.Unmarshal(trimmed, &artifact.Bytecode); err != nil {
			return nil, fmt.Errorf("failed to parse bytecode of %s: %w", name, err)
		}
	default:
		var bc foundryBytecode
		if err := json.Unmarshal(trimmed, &bc); err != nil {
			return nil, fmt.Errorf("failed to parse bytecode of %s: %w", name, err)
		}
		artifact.Bytecode = bc.Object
		artifact.LinkReferences = bc.LinkReferences
	}

	return artifact, nil
}
