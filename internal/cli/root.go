package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-bootstrap/internal/adapters/progress"
	"github.com/trebuchet-org/treb-bootstrap/internal/app"
	"github.com/trebuchet-org/treb-bootstrap/internal/cli/render"
	"github.com/trebuchet-org/treb-bootstrap/internal/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// NewRootCmd creates the root command. The returned func releases the app a
// command initialized and must be called after Execute, whether it failed or
// not, since cobra skips post-run hooks on error.
func NewRootCmd() (*cobra.Command, func()) {
	var release func()

	rootCmd := &cobra.Command{
		Use:   "treb-bootstrap",
		Short: "Deploy and register a protocol's contract suite",
		Long: `treb-bootstrap deploys every component of a bootstrap manifest in
dependency order, records each one in the protocol's address registry and
finally locks the registry against further writes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			// Find project root
			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			// Set up viper
			v := config.SetupViper(projectRoot, cmd)

			appInstance, cleanup, err := app.InitApp(v, newProgressSink(cmd))
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			// Store app in context
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			cancel := context.CancelFunc(func() {})
			if appInstance.Config.Timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
			}
			release = func() {
				cancel()
				cleanup()
			}

			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (foundry.toml rpc_endpoints name)")
	rootCmd.PersistentFlags().String("rpc-url", "", "RPC URL, overrides --network")
	rootCmd.PersistentFlags().Uint64("chain-id", 0, "Expected chain ID (0 skips the check)")
	rootCmd.PersistentFlags().String("registry-backend", "chain", "Registry backend: chain, sqlite or memory")
	rootCmd.PersistentFlags().String("registry-db", "", "SQLite registry database (defaults to .treb/registry.db)")
	rootCmd.PersistentFlags().String("artifacts-dir", "", "Compiled artifacts directory (defaults to out or build/contracts)")

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "registry",
		Title: "Registry Commands",
	})

	bootstrapCmd := NewBootstrapCmd()
	bootstrapCmd.GroupID = "main"
	rootCmd.AddCommand(bootstrapCmd)

	planCmd := NewPlanCmd()
	planCmd.GroupID = "main"
	rootCmd.AddCommand(planCmd)

	lookupCmd := NewLookupCmd()
	lookupCmd.GroupID = "registry"
	rootCmd.AddCommand(lookupCmd)

	registryCmd := NewRegistryCmd()
	registryCmd.GroupID = "registry"
	rootCmd.AddCommand(registryCmd)

	// Version command
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd, func() {
		if release != nil {
			release()
			release = nil
		}
	}
}

// newProgressSink renders live progress for bootstrap runs only
func newProgressSink(cmd *cobra.Command) usecase.ProgressSink {
	if cmd.Name() != "bootstrap" {
		return progress.NewNopSink()
	}
	return progress.NewBootstrapProgress(render.NewBootstrapRenderer(cmd.OutOrStdout()))
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
