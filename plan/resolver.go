package plan

import (
	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/sluice"
)

// Resolver is the seam to the external planner's field-resolution algebra.
// The pipeline builder calls it once per constructed stage and treats the
// returned scope as ground truth for schema evolution.
type Resolver interface {
	ResolveScope(stage *Stage, inputs []Scope) (Scope, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(stage *Stage, inputs []Scope) (Scope, error)

func (f ResolverFunc) ResolveScope(stage *Stage, inputs []Scope) (Scope, error) {
	return f(stage, inputs)
}

// Resolve computes the scope for a stage, wrapping resolver failures so the
// offending stage is identifiable and the planner's own message survives.
func Resolve(r Resolver, stage *Stage, inputs []Scope) (Scope, error) {
	scope, err := r.ResolveScope(stage, inputs)
	if err != nil {
		return Scope{}, sluice.WrapError(sluice.ErrorKindScopeResolution, err, "resolve scope for %s stage %q", stage.StageType, stage.Name)
	}
	return scope, nil
}

// ResolverInfo identifies a resolver implementation and the resolution
// protocol version it speaks.
type ResolverInfo struct {
	Name            string
	ProtocolVersion string
}

// InfoProvider is implemented by resolvers that can report their identity.
// Resolvers without it are assumed compatible.
type InfoProvider interface {
	Info() ResolverInfo
}

// resolverProtocolRange is the resolution protocol range this package can
// drive. Bump the upper bound together with any change to the Stage or Scope
// contract.
const resolverProtocolRange = ">= 1.0.0, < 2.0.0"

// CheckProtocol verifies that the resolver speaks a supported resolution
// protocol version. Resolvers reporting no version are assumed compatible.
func CheckProtocol(r Resolver) error {
	provider, ok := r.(InfoProvider)
	if !ok {
		return nil
	}
	info := provider.Info()
	if info.ProtocolVersion == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(resolverProtocolRange)
	if err != nil {
		return errors.Wrap(err, "couldn't parse supported protocol range")
	}
	version, err := semver.NewVersion(info.ProtocolVersion)
	if err != nil {
		return errors.Wrapf(err, "couldn't parse protocol version %q of resolver %q", info.ProtocolVersion, info.Name)
	}
	if !constraint.Check(version) {
		return errors.Errorf("resolver %q speaks protocol %s, supported range is %s", info.Name, info.ProtocolVersion, resolverProtocolRange)
	}
	return nil
}
