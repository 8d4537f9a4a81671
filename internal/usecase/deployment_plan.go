package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
)

// Manifest represents the top-level bootstrap configuration
type Manifest struct {
	Group      string             `yaml:"group"`
	Components []*ComponentConfig `yaml:"components"`
}

// ComponentConfig represents a single component in the manifest
type ComponentConfig struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name,omitempty"`
	Kind      string   `yaml:"kind,omitempty"`
	Artifact  string   `yaml:"artifact,omitempty"`
	Deps      []string `yaml:"deps,omitempty"`
	Libraries []string `yaml:"libraries,omitempty"`
	Fund      string   `yaml:"fund,omitempty"`
}

// DeploymentPlan is a total order over components satisfying every dependency
type DeploymentPlan struct {
	Group    string
	Registry *models.ComponentSpec
	Steps    []*models.ComponentSpec
}

// Order returns the component IDs in execution order
func (p *DeploymentPlan) Order() []string {
	return lo.Map(p.Steps, func(c *models.ComponentSpec, _ int) string { return c.ID })
}

// Get returns the step with the given ID, or nil
func (p *DeploymentPlan) Get(id string) *models.ComponentSpec {
	for _, step := range p.Steps {
		if step.ID == id {
			return step
		}
	}
	return nil
}

// Registrable returns the steps that receive registry entries, in plan order
func (p *DeploymentPlan) Registrable() []*models.ComponentSpec {
	return lo.Filter(p.Steps, func(c *models.ComponentSpec, _ int) bool { return c.Registrable() })
}

func kindOf(raw string) (models.ComponentKind, bool) {
	switch raw {
	case "", string(models.ComponentKindContract):
		return models.ComponentKindContract, true
	case string(models.ComponentKindLibrary):
		return models.ComponentKindLibrary, true
	case string(models.ComponentKindRegistry):
		return models.ComponentKindRegistry, true
	default:
		return "", false
	}
}

func planErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidPlan, fmt.Sprintf(format, args...))
}

// Validate checks the manifest for errors
func (m *Manifest) Validate() error {
	if m.Group == "" {
		return planErr("group name is required")
	}
	if len(m.Components) == 0 {
		return planErr("at least one component is required")
	}

	byID := make(map[string]*ComponentConfig, len(m.Components))
	names := make(map[string]string)
	registries := 0

	for _, c := range m.Components {
		if c == nil || c.ID == "" {
			return planErr("every component must have an id")
		}
		if _, dup := byID[c.ID]; dup {
			return planErr("component '%s' is declared twice", c.ID)
		}
		byID[c.ID] = c

		kind, ok := kindOf(c.Kind)
		if !ok {
			return planErr("component '%s' has unknown kind '%s'", c.ID, c.Kind)
		}
		if kind == models.ComponentKindRegistry {
			registries++
			if len(c.Deps) > 0 || len(c.Libraries) > 0 {
				return planErr("registry '%s' cannot have deps or libraries", c.ID)
			}
		}
		if kind == models.ComponentKindLibrary && len(c.Deps) > 0 {
			return planErr("library '%s' cannot take constructor deps", c.ID)
		}

		if kind == models.ComponentKindContract {
			name := c.Name
			if name == "" {
				name = models.DefaultRegistryName(c.ID)
			}
			if _, err := domain.NameKey(name); err != nil {
				return planErr("component '%s' has an invalid registry name: %v", c.ID, err)
			}
			if other, taken := names[name]; taken {
				return planErr("components '%s' and '%s' share registry name '%s'", other, c.ID, name)
			}
			names[name] = c.ID
		}

		if c.Fund != "" {
			if _, err := domain.ParseAmount(c.Fund); err != nil {
				return planErr("component '%s' has an invalid fund amount: %v", c.ID, err)
			}
		}
	}

	if registries != 1 {
		return planErr("exactly one registry component is required, found %d", registries)
	}

	for _, c := range m.Components {
		for _, dep := range c.Deps {
			if dep == c.ID {
				return planErr("component '%s' cannot depend on itself", c.ID)
			}
			if _, exists := byID[dep]; !exists {
				return planErr("component '%s' depends on non-existent component '%s'", c.ID, dep)
			}
		}
		for _, lib := range c.Libraries {
			target, exists := byID[lib]
			if !exists {
				return planErr("component '%s' requires non-existent library '%s'", c.ID, lib)
			}
			if kind, _ := kindOf(target.Kind); kind != models.ComponentKindLibrary {
				return planErr("component '%s' requires '%s' which is not a library", c.ID, lib)
			}
			if lib == c.ID {
				return planErr("library '%s' cannot link itself", c.ID)
			}
		}
	}

	return nil
}

// BuildPlan validates the manifest and linearizes it. The registry comes
// before everything, libraries before their consumers, and ties keep the
// manifest declaration order.
func BuildPlan(m *Manifest) (*DeploymentPlan, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	specs := make([]*models.ComponentSpec, 0, len(m.Components))
	index := make(map[string]int, len(m.Components))
	var registry *models.ComponentSpec

	for i, c := range m.Components {
		kind, _ := kindOf(c.Kind)
		spec := &models.ComponentSpec{
			ID:        c.ID,
			Name:      c.Name,
			Kind:      kind,
			Artifact:  c.Artifact,
			Libraries: append([]string(nil), c.Libraries...),
		}
		if spec.Name == "" {
			spec.Name = models.DefaultRegistryName(c.ID)
		}
		if spec.Artifact == "" {
			spec.Artifact = c.ID
		}
		if c.Fund != "" {
			spec.Funding, _ = domain.ParseAmount(c.Fund)
		}
		if kind == models.ComponentKindRegistry {
			registry = spec
		}
		specs = append(specs, spec)
		index[c.ID] = i
	}

	for i, c := range m.Components {
		spec := specs[i]
		spec.ConstructorArgs = append([]string(nil), c.Deps...)
		if spec.IsRegistry() {
			continue
		}
		spec.DependsOn = lo.Uniq(append([]string{registry.ID}, c.Deps...))
	}

	steps, err := topologicalSort(specs, index)
	if err != nil {
		return nil, err
	}

	return &DeploymentPlan{
		Group:    m.Group,
		Registry: registry,
		Steps:    steps,
	}, nil
}

// topologicalSort orders specs so every dependency and library precedes its
// consumer, picking the earliest declared ready component at each step.
func topologicalSort(specs []*models.ComponentSpec, index map[string]int) ([]*models.ComponentSpec, error) {
	inDegree := make(map[string]int, len(specs))
	dependents := make(map[string][]string)

	for _, spec := range specs {
		edges := lo.Uniq(append(append([]string(nil), spec.DependsOn...), spec.Libraries...))
		inDegree[spec.ID] = len(edges)
		for _, dep := range edges {
			dependents[dep] = append(dependents[dep], spec.ID)
		}
	}

	var ready []string
	for _, spec := range specs {
		if inDegree[spec.ID] == 0 {
			ready = append(ready, spec.ID)
		}
	}

	result := make([]*models.ComponentSpec, 0, len(specs))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return index[ready[i]] < index[ready[j]] })
		current := ready[0]
		ready = ready[1:]
		result = append(result, specs[index[current]])

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(result) != len(specs) {
		var cycle []string
		for id, degree := range inDegree {
			if degree > 0 {
				cycle = append(cycle, id)
			}
		}
		sort.Strings(cycle)
		return nil, planErr("circular dependency detected involving components: %v", cycle)
	}

	return result, nil
}

// PlanBootstrap loads a manifest and returns its deployment plan
type PlanBootstrap struct {
	loader ManifestLoader
}

// NewPlanBootstrap creates a new plan use case
func NewPlanBootstrap(loader ManifestLoader) *PlanBootstrap {
	return &PlanBootstrap{loader: loader}
}

// Run loads and linearizes the manifest at path
func (p *PlanBootstrap) Run(ctx context.Context, path string) (*DeploymentPlan, error) {
	manifest, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return BuildPlan(manifest)
}
