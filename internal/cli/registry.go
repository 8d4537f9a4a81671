package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-bootstrap/internal/cli/render"
)

// NewRegistryCmd creates the registry listing command
func NewRegistryCmd() *cobra.Command {
	var flags registryFlags

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "List every registry entry of a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params, err := flags.params(app.Config.ManifestPath)
			if err != nil {
				return err
			}

			result, err := app.LookupComponent.List(cmd.Context(), params)
			if err != nil {
				return err
			}

			return render.NewRegistryRenderer(cmd.OutOrStdout()).RenderList(result)
		},
	}

	flags.register(cmd)
	return cmd
}
