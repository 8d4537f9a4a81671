package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
)

// LookupComponent resolves registry entries the same way a later component would
type LookupComponent struct {
	binder RegistryBinder
	loader ManifestLoader
	states BootstrapStateStore
}

// NewLookupComponent creates a new lookup use case
func NewLookupComponent(binder RegistryBinder, loader ManifestLoader, states BootstrapStateStore) *LookupComponent {
	return &LookupComponent{
		binder: binder,
		loader: loader,
		states: states,
	}
}

// LookupParams contains parameters for a lookup
type LookupParams struct {
	Registry     common.Address // zero means: take it from the last bootstrap state
	ManifestPath string
	Query        string // registry name or hex address
}

// LookupResult contains the outcome of a lookup
type LookupResult struct {
	Query       string
	Registry    common.Address
	Namespace   string
	Key         common.Hash
	Address     common.Address
	Found       bool
	Locked      bool
	Suggestions []string
}

// Run looks up a single name or address
func (l *LookupComponent) Run(ctx context.Context, params LookupParams) (*LookupResult, error) {
	registry, err := l.resolveRegistry(ctx, params.Registry, params.ManifestPath)
	if err != nil {
		return nil, err
	}

	store, err := l.binder.Bind(ctx, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to bind registry: %w", err)
	}

	result := &LookupResult{Query: params.Query, Registry: registry}
	if common.IsHexAddress(params.Query) {
		result.Namespace = domain.NamespaceContractAddress
		result.Key = domain.AddressKey(common.HexToAddress(params.Query))
	} else {
		result.Namespace = domain.NamespaceContractName
		result.Key, err = domain.NameKey(params.Query)
		if err != nil {
			return nil, err
		}
	}

	address, err := store.GetAddress(ctx, result.Key)
	switch {
	case err == nil:
		result.Address = address
		result.Found = true
	case errors.Is(err, domain.ErrNotFound):
		if result.Namespace == domain.NamespaceContractName {
			result.Suggestions = l.suggest(ctx, params.ManifestPath, params.Query)
		}
	default:
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	result.Locked, err = store.GetBool(ctx, domain.InitialisedKey())
	if err != nil {
		return nil, fmt.Errorf("failed to read lock flag: %w", err)
	}

	return result, nil
}

// suggest returns registry names from the manifest that fuzzy match query
func (l *LookupComponent) suggest(ctx context.Context, manifestPath, query string) []string {
	if manifestPath == "" || l.loader == nil {
		return nil
	}
	manifest, err := l.loader.Load(ctx, manifestPath)
	if err != nil {
		return nil
	}
	plan, err := BuildPlan(manifest)
	if err != nil {
		return nil
	}

	names := lo.Map(plan.Registrable(), func(c *models.ComponentSpec, _ int) string { return c.Name })
	matches := fuzzy.Find(query, names)
	return lo.Map(matches, func(m fuzzy.Match, _ int) string { return m.Str })
}

func (l *LookupComponent) resolveRegistry(ctx context.Context, registry common.Address, manifestPath string) (common.Address, error) {
	if registry != (common.Address{}) {
		return registry, nil
	}
	if l.states == nil || manifestPath == "" {
		return common.Address{}, fmt.Errorf("%w: no registry address given", domain.ErrInvalidAddress)
	}
	state, err := l.states.Load(ctx, manifestPath)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to load bootstrap state: %w", err)
	}
	if state.RegistryAddress == nil {
		return common.Address{}, fmt.Errorf("%w: bootstrap %s has no deployed registry", domain.ErrInvalidAddress, state.Group)
	}
	return *state.RegistryAddress, nil
}

// RegistryListing is one component's view of the registry
type RegistryListing struct {
	Component         string
	Name              string
	Address           *common.Address
	AddressRegistered bool
}

// RegistryListResult contains the entries of every registrable component
type RegistryListResult struct {
	Group    string
	Registry common.Address
	Entries  []RegistryListing
	Locked   bool
}

// List reads the name and address entries for every component of the manifest
func (l *LookupComponent) List(ctx context.Context, params LookupParams) (*RegistryListResult, error) {
	registry, err := l.resolveRegistry(ctx, params.Registry, params.ManifestPath)
	if err != nil {
		return nil, err
	}

	manifest, err := l.loader.Load(ctx, params.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	plan, err := BuildPlan(manifest)
	if err != nil {
		return nil, err
	}

	store, err := l.binder.Bind(ctx, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to bind registry: %w", err)
	}

	result := &RegistryListResult{Group: plan.Group, Registry: registry}
	for _, spec := range plan.Registrable() {
		listing := RegistryListing{Component: spec.ID, Name: spec.Name}

		nameKey, err := domain.NameKey(spec.Name)
		if err != nil {
			return nil, err
		}
		address, err := store.GetAddress(ctx, nameKey)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to read %s: %w", spec.Name, err)
		}
		if err == nil {
			listing.Address = &address
			registered, err := store.GetAddress(ctx, domain.AddressKey(address))
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("failed to read address entry of %s: %w", spec.Name, err)
			}
			listing.AddressRegistered = err == nil && registered == address
		}
		result.Entries = append(result.Entries, listing)
	}

	result.Locked, err = store.GetBool(ctx, domain.InitialisedKey())
	if err != nil {
		return nil, fmt.Errorf("failed to read lock flag: %w", err)
	}

	return result, nil
}
