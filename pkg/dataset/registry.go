package dataset

import "github.com/paradigmxyz/cryo/pkg/cryoerrors"

// Registry is the lookup-by-name-or-alias table of every known dataset plus
// the group-name expansion table.
type Registry struct {
	byName map[string]*Dataset
	groups map[string][]string
	// groupOrder preserves the declared order groups were registered in,
	// so expansion is deterministic regardless of map iteration order.
	groupOrder []string
}

// NewRegistry builds the full dataset table.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Dataset), groups: make(map[string][]string)}
	for _, d := range allDatasets() {
		r.register(d)
	}
	r.registerGroup("state_diffs", []string{"balance_diffs", "code_diffs", "nonce_diffs", "storage_diffs"})
	r.registerGroup("blocks_and_transactions", []string{"blocks", "transactions"})
	return r
}

func (r *Registry) register(d *Dataset) {
	r.byName[d.Name] = d
	for _, alias := range d.Aliases {
		r.byName[alias] = d
	}
}

func (r *Registry) registerGroup(name string, members []string) {
	r.groups[name] = members
	r.groupOrder = append(r.groupOrder, name)
}

// Lookup resolves a single dataset name or alias.
func (r *Registry) Lookup(name string) (*Dataset, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Expand resolves a list of requested names, expanding any group names
// into their constituent datasets (in the group's declared order) and
// removing duplicates while preserving first occurrence.
func (r *Registry) Expand(names []string) ([]*Dataset, error) {
	seen := make(map[string]bool)
	var out []*Dataset
	add := func(name string) error {
		d, ok := r.Lookup(name)
		if !ok {
			return cryoerrors.NewInvalidQuery(nil, "unknown dataset %q", name)
		}
		if seen[d.Name] {
			return nil
		}
		seen[d.Name] = true
		out = append(out, d)
		return nil
	}
	for _, name := range names {
		if members, ok := r.groups[name]; ok {
			for _, m := range members {
				if err := add(m); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := add(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}
