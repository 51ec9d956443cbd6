package pipeline

import (
	"github.com/tidwall/btree"

	"github.com/sluicedata/sluice/sluice"
)

// Registry scopes one build session. Every top-level cascade registers here
// by name, so independent sessions never share state and tests never leak
// pipelines into each other.
type Registry struct {
	cascades btree.Map[string, *Cascade]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// NewCascade opens a top-level cascade under the session.
func (r *Registry) NewCascade(name string) (*Cascade, error) {
	if name == "" {
		return nil, sluice.Errorf(sluice.ErrorKindAmbiguousNodeName, "cascade name must not be empty")
	}
	if _, ok := r.cascades.Get(name); ok {
		return nil, sluice.Errorf(sluice.ErrorKindAmbiguousNodeName, "a cascade named %q is already registered", name)
	}
	cascade := &Cascade{registry: r}
	cascade.node = newNode(name, cascade)
	r.cascades.Set(name, cascade)
	return cascade, nil
}

func (r *Registry) Cascade(name string) (*Cascade, bool) {
	return r.cascades.Get(name)
}

// Cascades returns the registered cascades ordered by name.
func (r *Registry) Cascades() []*Cascade {
	out := make([]*Cascade, 0, r.cascades.Len())
	r.cascades.Scan(func(_ string, cascade *Cascade) bool {
		out = append(out, cascade)
		return true
	})
	return out
}
