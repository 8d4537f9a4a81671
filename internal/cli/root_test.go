package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foundry.toml"), []byte("[profile.default]\nout = \"out\"\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestRootCmdRelease(t *testing.T) {
	tests := []struct {
		name    string
		runErr  error
		wantErr bool
	}{
		{name: "command succeeds"},
		{name: "command fails", runErr: errors.New("deploy failed"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newProjectDir(t)

			rootCmd, release := NewRootCmd()
			var runCtx context.Context
			rootCmd.AddCommand(&cobra.Command{
				Use: "noop",
				RunE: func(cmd *cobra.Command, args []string) error {
					runCtx = cmd.Context()
					_, err := getApp(cmd)
					require.NoError(t, err)
					return tt.runErr
				},
			})
			t.Setenv("TREB_TIMEOUT", "1m")
			rootCmd.SetArgs([]string{"noop", "--registry-backend", "memory"})
			rootCmd.SetOut(io.Discard)
			rootCmd.SetErr(io.Discard)

			err := rootCmd.Execute()
			if tt.wantErr {
				require.ErrorIs(t, err, tt.runErr)
			} else {
				require.NoError(t, err)
			}

			require.NotNil(t, runCtx)
			assert.NoError(t, runCtx.Err(), "app stays alive until released")

			release()
			assert.ErrorIs(t, runCtx.Err(), context.Canceled)

			// a second release is a no-op
			release()
		})
	}
}

func TestRootCmdReleaseWithoutApp(t *testing.T) {
	rootCmd, release := NewRootCmd()
	rootCmd.SetArgs([]string{"version"})
	rootCmd.SetOut(io.Discard)
	require.NoError(t, rootCmd.Execute())

	assert.NotPanics(t, release)
}
