package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-bootstrap/internal/cli/render"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// NewBootstrapCmd creates the bootstrap command
func NewBootstrapCmd() *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "bootstrap <manifest>",
		Short: "Deploy, register and lock a manifest's components",
		Long: `Deploy every component of a bootstrap manifest in dependency order,
register each one in the address registry and lock the registry.

The lock is irreversible and asks for confirmation unless --non-interactive
or --dry-run is given. A run whose registration failed after every
component was deployed can be finished with --resume.`,
		Example: `  # Bootstrap against a local anvil node
  treb-bootstrap bootstrap bootstrap.yaml --network local

  # Predict addresses without sending transactions
  treb-bootstrap bootstrap bootstrap.yaml --dry-run

  # Finish registration of a previous run
  treb-bootstrap bootstrap bootstrap.yaml --network sepolia --resume`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			manifestPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			params := usecase.BootstrapParams{
				ManifestPath: manifestPath,
				Resume:       resume,
				DryRun:       app.Config.DryRun,
			}
			if app.Config.Network != nil {
				params.Network = app.Config.Network.Name
			}

			result, runErr := app.BootstrapRegistry.Run(cmd.Context(), params)
			if result != nil {
				renderer := render.NewBootstrapRenderer(cmd.OutOrStdout())
				if err := renderer.RenderResult(result, app.Config.DryRun); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().Bool("dry-run", false, "Simulate deployments and use an in-memory registry")
	cmd.Flags().BoolVar(&resume, "resume", false, "Retry registration and lock of a fully deployed previous run")

	return cmd
}
