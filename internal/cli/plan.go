package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-bootstrap/internal/cli/render"
)

// NewPlanCmd creates the plan command
func NewPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <manifest>",
		Short: "Show the deployment order of a manifest",
		Long: `Validate a bootstrap manifest and print its components in the order
they would be deployed. Nothing is sent to the network.`,
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

			plan, err := app.PlanBootstrap.Run(cmd.Context(), manifestPath)
			if err != nil {
				return err
			}

			render.NewBootstrapRenderer(cmd.OutOrStdout()).RenderPlan(plan)
			return nil
		},
	}
}
