package cli

import (
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-bootstrap/internal/cli/render"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// registryFlags are shared by the commands that read a registry
type registryFlags struct {
	registry string
	manifest string
}

func (f *registryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.registry, "registry", "", "Registry address (defaults to the one recorded by the last bootstrap)")
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "Bootstrap manifest")
}

func (f *registryFlags) params(defaultManifest string) (usecase.LookupParams, error) {
	var params usecase.LookupParams

	if f.registry != "" {
		if !common.IsHexAddress(f.registry) {
			return params, fmt.Errorf("invalid registry address: %s", f.registry)
		}
		params.Registry = common.HexToAddress(f.registry)
	}

	manifest := f.manifest
	if manifest == "" {
		manifest = defaultManifest
	}
	if manifest != "" {
		abs, err := filepath.Abs(manifest)
		if err != nil {
			return params, err
		}
		params.ManifestPath = abs
	}

	return params, nil
}

// NewLookupCmd creates the lookup command
func NewLookupCmd() *cobra.Command {
	var flags registryFlags

	cmd := &cobra.Command{
		Use:   "lookup <name|address>",
		Short: "Resolve a registry entry",
		Long: `Resolve a component name to its registered address, or check that an
address is registered. Unknown names get suggestions from the manifest.`,
		Example: `  treb-bootstrap lookup rocketVault -m bootstrap.yaml
  treb-bootstrap lookup 0x5FbDB2315678afecb367f032d93F642f64180aa3 --registry 0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params, err := flags.params(app.Config.ManifestPath)
			if err != nil {
				return err
			}
			params.Query = args[0]

			result, err := app.LookupComponent.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			return render.NewRegistryRenderer(cmd.OutOrStdout()).RenderLookup(result)
		},
	}

	flags.register(cmd)
	return cmd
}
