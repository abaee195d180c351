package feature

import (
	"errors"
	"fmt"
	"strings"

	"shellhost/internal/options"
	"shellhost/pkg/logging"
)

// ErrNilModules reports a nil module collection, which is a caller contract
// violation; an empty collection is valid and yields an empty registry.
var ErrNilModules = errors.New("module collection must not be nil")

// DiscoveryError is fatal for the whole discovery pass: the registry is
// shared, so no shell can be built from a partially valid one.
type DiscoveryError struct {
	FeatureID string
	TypeName  string
	// Conflict names the second type when two candidates collide on an id.
	Conflict string
	Reason   string
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	switch {
	case e.Conflict != "":
		return fmt.Sprintf("feature discovery: duplicate feature id %q declared by %s and %s",
			e.FeatureID, e.TypeName, e.Conflict)
	case e.FeatureID != "":
		return fmt.Sprintf("feature discovery: feature %q (%s): %s", e.FeatureID, e.TypeName, e.Reason)
	default:
		return fmt.Sprintf("feature discovery: %s: %s", e.TypeName, e.Reason)
	}
}

// Descriptor is the immutable record produced for one discovered feature.
type Descriptor struct {
	ID           string
	Dependencies []string
	Metadata     map[string]string

	source   Buildable
	typeName string
}

// Build constructs the feature's per-shell instance. The descriptor keeps
// the constructor reference opaque.
func (d Descriptor) Build(bctx BuildContext) (Instance, error) {
	return d.source.Build(bctx)
}

// DefaultOptions returns the feature's declared defaults, or nil.
func (d Descriptor) DefaultOptions() map[string]any {
	if hd, ok := d.source.(HasDefaults); ok {
		return hd.DefaultOptions()
	}
	return nil
}

// Validators returns the feature's option validation rules, or nil.
func (d Descriptor) Validators() []options.Validator {
	if hv, ok := d.source.(HasValidators); ok {
		return hv.OptionsValidators()
	}
	return nil
}

// TypeName reports the Go type that declared the feature. Diagnostic only.
func (d Descriptor) TypeName() string {
	return d.typeName
}

// Registry is the immutable set of discovered feature descriptors, shared by
// every shell. Lookup is case-insensitive; listing preserves discovery
// order.
type Registry struct {
	order []string
	byID  map[string]Descriptor
}

// Get returns the descriptor for a feature id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[strings.ToLower(id)]
	return d, ok
}

// Descriptors returns all descriptors in discovery order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byID[key])
	}
	return out
}

// IDs returns all feature ids in discovery order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byID[key].ID)
	}
	return out
}

// Len returns the number of discovered features.
func (r *Registry) Len() int {
	return len(r.order)
}

// Discover scans the module set for feature candidates and produces the
// registry. It is a pure function of its input: no side effects beyond
// allocating descriptors, so repeated discovery over the same modules yields
// an identical registry.
//
// Candidates without the feature marker are silently ignored. A nil module
// in the set is skipped. Any marked candidate that fails validation aborts
// the whole pass.
func Discover(modules []Module) (*Registry, error) {
	if modules == nil {
		return nil, ErrNilModules
	}

	reg := &Registry{byID: make(map[string]Descriptor)}

	for _, mod := range modules {
		if mod == nil {
			continue
		}
		for _, candidate := range mod.Candidates() {
			if candidate == nil {
				continue
			}
			def, marked := candidate.(Definition)
			if !marked {
				continue
			}
			typeName := fmt.Sprintf("%T", candidate)

			buildable, ok := candidate.(Buildable)
			if !ok {
				return nil, &DiscoveryError{
					TypeName: typeName,
					Reason:   "declares a feature but does not implement Buildable",
				}
			}

			info := def.Describe()
			if info.Name == "" {
				return nil, &DiscoveryError{
					TypeName: typeName,
					Reason:   "declares a feature with an empty name",
				}
			}
			if len(info.Metadata)%2 != 0 {
				return nil, &DiscoveryError{
					FeatureID: info.Name,
					TypeName:  typeName,
					Reason:    fmt.Sprintf("metadata has %d elements; key/value pairs require an even count", len(info.Metadata)),
				}
			}

			key := strings.ToLower(info.Name)
			if existing, dup := reg.byID[key]; dup {
				return nil, &DiscoveryError{
					FeatureID: info.Name,
					TypeName:  existing.typeName,
					Conflict:  typeName,
				}
			}

			metadata := make(map[string]string, len(info.Metadata)/2)
			for i := 0; i < len(info.Metadata); i += 2 {
				metadata[info.Metadata[i]] = info.Metadata[i+1]
			}

			deps := make([]string, len(info.Dependencies))
			copy(deps, info.Dependencies)

			reg.order = append(reg.order, key)
			reg.byID[key] = Descriptor{
				ID:           info.Name,
				Dependencies: deps,
				Metadata:     metadata,
				source:       buildable,
				typeName:     typeName,
			}
		}
	}

	logging.Debug("Registry", "Discovered %d features", reg.Len())
	return reg, nil
}
