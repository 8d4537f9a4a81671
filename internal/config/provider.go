package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
)

// projectMarkers identify a contracts project root
var projectMarkers = []string{"foundry.toml", "truffle-config.js", "truffle.js"}

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, ".treb"),
		PrivateKey:     v.GetString("private_key"),
		ManifestPath:   v.GetString("manifest"),
		ArtifactsDir:   v.GetString("artifacts_dir"),
		RegistryDB:     v.GetString("registry_db"),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		DryRun:         v.GetBool("dry_run"),
		Timeout:        v.GetDuration("timeout"),
	}
	if cfg.PrivateKey == "" {
		// .env files commonly use the unprefixed name
		cfg.PrivateKey = os.Getenv("PRIVATE_KEY")
	}

	foundryConfig, err := loadFoundryConfig(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load foundry config: %w", err)
	}

	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = defaultArtifactsDir(projectRoot, foundryConfig)
	}
	if cfg.RegistryDB == "" {
		cfg.RegistryDB = filepath.Join(cfg.DataDir, "registry.db")
	}

	backend, err := parseBackend(v.GetString("registry_backend"), cfg.DryRun)
	if err != nil {
		return nil, err
	}
	cfg.RegistryBackend = backend

	if rpcURL := v.GetString("rpc_url"); rpcURL != "" {
		cfg.Network = &config.Network{Name: v.GetString("network"), RPCURL: rpcURL}
	} else if networkName := v.GetString("network"); networkName != "" {
		network, err := ResolveNetwork(networkName, foundryConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		cfg.Network = network
	}
	if cfg.Network != nil {
		cfg.Network.ChainID = v.GetUint64("chain_id")
	}

	return cfg, nil
}

// parseBackend validates the registry backend. Dry runs always get a
// throwaway in-memory registry so simulated entries and the lock never reach
// a durable store.
func parseBackend(raw string, dryRun bool) (config.RegistryBackend, error) {
	backend := config.RegistryBackend(strings.ToLower(raw))
	switch backend {
	case "":
		backend = config.RegistryBackendChain
	case config.RegistryBackendChain, config.RegistryBackendSQLite, config.RegistryBackendMemory:
	default:
		return "", fmt.Errorf("%w: unknown registry backend %q (chain, sqlite or memory)", domain.ErrInvalidInput, raw)
	}

	if dryRun {
		return config.RegistryBackendMemory, nil
	}
	return backend, nil
}

// defaultArtifactsDir prefers foundry's out dir, then truffle's build output
func defaultArtifactsDir(projectRoot string, foundry *FoundryConfig) string {
	if foundry.Out != "" {
		return foundry.Out
	}
	if _, err := os.Stat(filepath.Join(projectRoot, "foundry.toml")); err == nil {
		return "out"
	}
	truffle := filepath.Join("build", "contracts")
	if _, err := os.Stat(filepath.Join(projectRoot, truffle)); err == nil {
		return truffle
	}
	return "out"
}

// FindProjectRoot walks up from current directory to find a project marker
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a contracts project (%s not found)", strings.Join(projectMarkers, ", "))
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up config file
	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".treb"))

	// Set up environment variables
	v.SetEnvPrefix("TREB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("timeout", "10m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("registry_backend", string(config.RegistryBackendChain))
	v.SetDefault("project_root", projectRoot)

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	})

	return v
}
