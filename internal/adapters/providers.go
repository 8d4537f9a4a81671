package adapters

import (
	"fmt"
	"log/slog"

	"github.com/google/wire"
	"github.com/trebuchet-org/treb-bootstrap/internal/adapters/blockchain"
	"github.com/trebuchet-org/treb-bootstrap/internal/adapters/dryrun"
	"github.com/trebuchet-org/treb-bootstrap/internal/adapters/fs"
	"github.com/trebuchet-org/treb-bootstrap/internal/adapters/interactive"
	"github.com/trebuchet-org/treb-bootstrap/internal/adapters/registry"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// ProvideRegistryBinder selects the registry backend from RuntimeConfig.
// The returned cleanup closes any database the backend opened.
func ProvideRegistryBinder(cfg *config.RuntimeConfig, client *blockchain.Client) (usecase.RegistryBinder, func(), error) {
	switch cfg.RegistryBackend {
	case config.RegistryBackendSQLite:
		binder, err := registry.NewSQLiteBinderFromConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		return binder, func() { binder.Close() }, nil
	case config.RegistryBackendMemory:
		return registry.NewMemoryBinder(), func() {}, nil
	case config.RegistryBackendChain:
		binder, err := blockchain.NewStorageBinder(client)
		if err != nil {
			return nil, nil, err
		}
		return binder, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported registry backend: %s", cfg.RegistryBackend)
	}
}

// ProvideClient creates the RPC client. It only dials on first use, so dry
// runs and offline backends never touch the network.
func ProvideClient(cfg *config.RuntimeConfig, log *slog.Logger) (*blockchain.Client, func()) {
	client := blockchain.NewClient(cfg, log)
	return client, client.Close
}

// ProvideContractDeployer simulates deployments on dry runs
func ProvideContractDeployer(cfg *config.RuntimeConfig, dry *dryrun.Deployer, live *blockchain.ContractDeployer) usecase.ContractDeployer {
	if cfg.DryRun {
		return dry
	}
	return live
}

// ProvideFundsTransferer simulates transfers on dry runs
func ProvideFundsTransferer(cfg *config.RuntimeConfig, dry *dryrun.Transferer, live *blockchain.FundsTransferer) usecase.FundsTransferer {
	if cfg.DryRun {
		return dry
	}
	return live
}

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	fs.NewManifestLoader,
	wire.Bind(new(usecase.ManifestLoader), new(*fs.ManifestLoader)),

	fs.NewBootstrapStateStore,
	wire.Bind(new(usecase.BootstrapStateStore), new(*fs.BootstrapStateStore)),

	fs.NewArtifactRepository,
	wire.Bind(new(blockchain.ArtifactRepository), new(*fs.ArtifactRepository)),
)

// BlockchainSet provides chain-backed implementations and their dry-run twins
var BlockchainSet = wire.NewSet(
	ProvideClient,
	blockchain.NewContractDeployer,
	blockchain.NewFundsTransferer,
	dryrun.NewDeployerFromConfig,
	dryrun.NewTransferer,
	ProvideContractDeployer,
	ProvideFundsTransferer,
)

// RegistrySet provides the address registry backend
var RegistrySet = wire.NewSet(
	ProvideRegistryBinder,
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewLockConfirmer,
	wire.Bind(new(usecase.LockConfirmer), new(*interactive.LockConfirmer)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	BlockchainSet,
	RegistrySet,
	InteractiveSet,
)
