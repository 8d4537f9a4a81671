package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEnvVar(t *testing.T) {
	tests := []struct {
		name       string
		rawValue   string
		wantEnvVar string
		wantIsVar  bool
	}{
		{
			name:       "simple env var",
			rawValue:   "${SEPOLIA_RPC_URL}",
			wantEnvVar: "SEPOLIA_RPC_URL",
			wantIsVar:  true,
		},
		{
			name:      "hardcoded URL",
			rawValue:  "https://sepolia.base.org",
			wantIsVar: false,
		},
		{
			name:      "env var with path suffix",
			rawValue:  "${MY_VAR}/path",
			wantIsVar: false,
		},
		{
			name:      "empty string",
			rawValue:  "",
			wantIsVar: false,
		},
		{
			name:       "env var starting with underscore",
			rawValue:   "${_MY_VAR}",
			wantEnvVar: "_MY_VAR",
			wantIsVar:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envVar, isVar := DetectEnvVar(tt.rawValue)
			assert.Equal(t, tt.wantEnvVar, envVar)
			assert.Equal(t, tt.wantIsVar, isVar)
		})
	}
}

func TestGenerateEnvVarName(t *testing.T) {
	tests := []struct {
		network string
		want    string
	}{
		{"sepolia", "SEPOLIA_RPC_URL"},
		{"celo-sepolia", "CELO_SEPOLIA_RPC_URL"},
		{"base.sepolia", "BASE_SEPOLIA_RPC_URL"},
		{"local", "LOCAL_RPC_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateEnvVarName(tt.network))
		})
	}
}

func writeFoundryToml(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foundry.toml"), []byte(content), 0644))
}

func TestResolveNetwork(t *testing.T) {
	dir := t.TempDir()
	writeFoundryToml(t, dir, `
[profile.default]
src = "src"
out = "artifacts"

[rpc_endpoints]
local = "http://localhost:8545"
sepolia = "${TREB_TEST_SEPOLIA_URL}"
`)

	t.Run("endpoint from foundry.toml", func(t *testing.T) {
		foundry, err := loadFoundryConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "artifacts", foundry.Out)

		network, err := ResolveNetwork("local", foundry)
		require.NoError(t, err)
		assert.Equal(t, "local", network.Name)
		assert.Equal(t, "http://localhost:8545", network.RPCURL)
	})

	t.Run("endpoint expands env var", func(t *testing.T) {
		t.Setenv("TREB_TEST_SEPOLIA_URL", "https://rpc.sepolia.example")
		foundry, err := loadFoundryConfig(dir)
		require.NoError(t, err)

		network, err := ResolveNetwork("sepolia", foundry)
		require.NoError(t, err)
		assert.Equal(t, "https://rpc.sepolia.example", network.RPCURL)
	})

	t.Run("unset env var names the variable", func(t *testing.T) {
		t.Setenv("TREB_TEST_SEPOLIA_URL", "")
		foundry, err := loadFoundryConfig(dir)
		require.NoError(t, err)

		_, err = ResolveNetwork("sepolia", foundry)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TREB_TEST_SEPOLIA_URL is not set")
	})

	t.Run("falls back to conventional env var", func(t *testing.T) {
		t.Setenv("HOLESKY_RPC_URL", "https://rpc.holesky.example")
		foundry, err := loadFoundryConfig(dir)
		require.NoError(t, err)

		network, err := ResolveNetwork("holesky", foundry)
		require.NoError(t, err)
		assert.Equal(t, "https://rpc.holesky.example", network.RPCURL)
	})

	t.Run("raw URL", func(t *testing.T) {
		network, err := ResolveNetwork("http://127.0.0.1:8545", &FoundryConfig{})
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8545", network.RPCURL)
	})

	t.Run("unknown network", func(t *testing.T) {
		foundry, err := loadFoundryConfig(dir)
		require.NoError(t, err)

		_, err = ResolveNetwork("nowhere", foundry)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NOWHERE_RPC_URL")
	})
}

func TestLoadFoundryConfigMissingFile(t *testing.T) {
	foundry, err := loadFoundryConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, foundry.RpcEndpoints)
	assert.Empty(t, foundry.Out)
}
