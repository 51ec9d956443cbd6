package plan

import (
	"strings"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
)

// CachingResolver memoizes scope resolution keyed on a fingerprint of the
// stage parameters and input scopes. Worth wiring when the resolver seam
// crosses into an external planner process and builds reuse the same stage
// shapes over and over.
type CachingResolver struct {
	resolver Resolver
	cache    *ristretto.Cache
}

func NewCachingResolver(resolver Resolver) (*CachingResolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1 << 22,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't initialize scope cache")
	}
	return &CachingResolver{
		resolver: resolver,
		cache:    cache,
	}, nil
}

func (r *CachingResolver) ResolveScope(stage *Stage, inputs []Scope) (Scope, error) {
	key := fingerprint(stage, inputs)
	if value, ok := r.cache.Get(key); ok {
		return value.(Scope).Copy(), nil
	}
	scope, err := r.resolver.ResolveScope(stage, inputs)
	if err != nil {
		return Scope{}, err
	}
	r.cache.Set(key, scope.Copy(), int64(len(key)))
	return scope, nil
}

// Info reports the wrapped resolver's identity when it has one.
func (r *CachingResolver) Info() ResolverInfo {
	if provider, ok := r.resolver.(InfoProvider); ok {
		return provider.Info()
	}
	return ResolverInfo{}
}

// fingerprint is a deterministic key for one resolution call: the stage type,
// its parameters and the input scopes. Stage names and upstream pointers stay
// out of it so that identically shaped stages share an entry.
func fingerprint(stage *Stage, inputs []Scope) string {
	var sb strings.Builder
	sb.WriteString(stage.StageType.String())
	for _, attr := range stageAttributes(stage) {
		sb.WriteString("|")
		sb.WriteString(attr.Name)
		sb.WriteString("=")
		sb.WriteString(attr.Value)
	}
	for _, input := range inputs {
		sb.WriteString("#")
		sb.WriteString(input.Kind.String())
		for _, schema := range input.Inputs {
			sb.WriteString("<")
			sb.WriteString(schema.String())
		}
		sb.WriteString(">")
		sb.WriteString(input.Output.String())
		if input.Keys != nil {
			sb.WriteString("@")
			sb.WriteString(input.Keys.String())
		}
	}
	return sb.String()
}
