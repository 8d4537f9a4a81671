package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FoundryTOML represents the parts of foundry.toml the bootstrap reads
type FoundryTOML struct {
	RpcEndpoints map[string]string         `toml:"rpc_endpoints"`
	Profile      map[string]FoundryProfile `toml:"profile"`
}

// FoundryProfile is one [profile.<name>] section
type FoundryProfile struct {
	Src string `toml:"src"`
	Out string `toml:"out"`
}

// FoundryConfig is the resolved foundry configuration
type FoundryConfig struct {
	RpcEndpoints map[string]string
	RpcEnvVars   map[string]string // network name -> env var its endpoint refers to
	Out          string
}

// loadEnvFiles loads .env and .env.local without overriding the environment
func loadEnvFiles(projectRoot string) {
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				// Log warning but don't fail
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}
}

// loadFoundryConfig parses foundry.toml. A missing file yields an empty config.
func loadFoundryConfig(projectRoot string) (*FoundryConfig, error) {
	cfg := &FoundryConfig{
		RpcEndpoints: make(map[string]string),
		RpcEnvVars:   make(map[string]string),
	}

	foundryPath := filepath.Join(projectRoot, "foundry.toml")
	if _, err := os.Stat(foundryPath); os.IsNotExist(err) {
		return cfg, nil
	}

	var raw FoundryTOML
	if _, err := toml.DecodeFile(foundryPath, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse foundry.toml: %w", err)
	}

	for name, url := range raw.RpcEndpoints {
		if envVar, ok := DetectEnvVar(url); ok {
			cfg.RpcEnvVars[name] = envVar
		}
		cfg.RpcEndpoints[name] = os.ExpandEnv(url)
	}
	if profile, ok := raw.Profile["default"]; ok {
		cfg.Out = profile.Out
	}

	return cfg, nil
}
