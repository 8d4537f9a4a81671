package config

import (
	"time"
)

// RegistryBackend selects where registry entries are written
type RegistryBackend string

const (
	RegistryBackendChain  RegistryBackend = "chain"
	RegistryBackendSQLite RegistryBackend = "sqlite"
	RegistryBackendMemory RegistryBackend = "memory"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network *Network // nil if not specified

	// Deployer account
	PrivateKey string

	// Inputs
	ManifestPath string
	ArtifactsDir string

	// Registry settings
	RegistryBackend RegistryBackend
	RegistryDB      string

	// Execution settings
	Debug          bool
	NonInteractive bool
	DryRun         bool
	Timeout        time.Duration
}

// Network represents network configuration
type Network struct {
	ChainID uint64 `json:"chainId"`
	Name    string `json:"name"`
	RPCURL  string `json:"rpcUrl"`
}
