package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
)

// envVarPattern matches ${VAR_NAME} patterns in TOML values
var envVarPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// DetectEnvVar checks if a raw TOML value is a simple ${VAR_NAME} reference.
// Returns the variable name and true if the value is a pure env var reference.
func DetectEnvVar(rawValue string) (string, bool) {
	matches := envVarPattern.FindStringSubmatch(rawValue)
	if len(matches) == 2 {
		return matches[1], true
	}
	return "", false
}

// GenerateEnvVarName generates a conventional env var name for a network's RPC URL.
// Examples: sepolia -> SEPOLIA_RPC_URL, celo-sepolia -> CELO_SEPOLIA_RPC_URL
func GenerateEnvVarName(networkName string) string {
	name := strings.ToUpper(networkName)
	name = strings.NewReplacer("-", "_", ".", "_").Replace(name)
	return name + "_RPC_URL"
}

// ResolveNetwork maps a network name to an RPC URL. foundry.toml
// [rpc_endpoints] wins, then the <NAME>_RPC_URL environment variable.
// A name that already is a URL is used as is.
func ResolveNetwork(name string, foundry *FoundryConfig) (*config.Network, error) {
	if strings.Contains(name, "://") {
		return &config.Network{Name: name, RPCURL: name}, nil
	}

	if url, ok := foundry.RpcEndpoints[name]; ok {
		// an unset variable expands to nothing
		if url == "" {
			if envVar, ok := foundry.RpcEnvVars[name]; ok {
				return nil, fmt.Errorf("network '%s' RPC URL is empty: %s is not set", name, envVar)
			}
			return nil, fmt.Errorf("network '%s' RPC URL is empty", name)
		}
		return &config.Network{Name: name, RPCURL: url}, nil
	}

	if url := os.Getenv(GenerateEnvVarName(name)); url != "" {
		return &config.Network{Name: name, RPCURL: url}, nil
	}

	return nil, fmt.Errorf("network '%s' not found in foundry.toml [rpc_endpoints] or %s",
		name, GenerateEnvVarName(name))
}
