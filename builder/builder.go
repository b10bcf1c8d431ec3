// Package builder resolves a policy id to a refpipeline chain by name,
// via a YAML catalog file. The catalog only selects among a fixed
// registry of Go-defined chains — it is not a decoder/filter rule DSL.
package builder

import (
	"context"
	"fmt"

	"github.com/justapithecus/policyrt/cliconfig"
	"github.com/justapithecus/policyrt/refpipeline"
	"github.com/justapithecus/policyrt/runtimepolicy"
	"github.com/justapithecus/policyrt/types"
	"gopkg.in/yaml.v3"
)

// Catalog is the YAML shape of a policy catalog file: a map from policy
// id to the name of a registered chain.
type Catalog struct {
	Policies map[string]string `yaml:"policies"`
}

// Registry maps a chain name to its definition. Callers populate this
// with the chains their deployment supports; refpipeline itself ships no
// default registry.
type Registry map[string]refpipeline.Chain

// Builder resolves policy ids via a loaded Catalog against a Registry of
// known chains.
type Builder struct {
	catalog  Catalog
	registry Registry
}

// Load reads a catalog file (with environment-variable expansion via
// cliconfig) and pairs it with registry to build a Builder.
func Load(path string, registry Registry) (*Builder, error) {
	data, err := cliconfig.ReadExpanded(path)
	if err != nil {
		return nil, err
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog YAML in %s: %w", path, err)
	}

	return &Builder{catalog: catalog, registry: registry}, nil
}

// BuildPolicy implements runtimepolicy.Builder: look up id's chain name
// in the catalog, then the chain itself in the registry.
func (b *Builder) BuildPolicy(ctx context.Context, id types.PolicyID) (runtimepolicy.PipelineExpression, error) {
	chainName, ok := b.catalog.Policies[id.String()]
	if !ok {
		return nil, fmt.Errorf("builder: no catalog entry for policy %q", id)
	}

	chain, ok := b.registry[chainName]
	if !ok {
		return nil, fmt.Errorf("builder: policy %q references unknown chain %q", id, chainName)
	}
	return chain, nil
}

var _ runtimepolicy.Builder = (*Builder)(nil)
