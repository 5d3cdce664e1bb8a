package ledger

import "fmt"

// AssetCount is the fixed number of balance slots carried per account. The
// registry may name fewer assets, but never more.
const AssetCount = 8

// AssetID addresses one asset by index. The index is the sole identity used
// throughout the ledger; names only appear at the edges (config, import, HTTP).
type AssetID uint32

// Asset is an immutable (index, name) pair.
type Asset struct {
	ID   AssetID
	Name string
}

// DefaultAssets is the historical asset list the platform launched with.
var DefaultAssets = []string{"btc", "rna", "jerry", "tom", "zhu", "pig", "godess", "none"}

// Registry is the static enumerated list of supported assets.
type Registry struct {
	names []string
}

// NewRegistry builds a registry from at most AssetCount unique, non-empty
// names. The slice order fixes the asset indices.
func NewRegistry(names []string) (*Registry, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("ledger: registry needs at least one asset")
	}
	if len(names) > AssetCount {
		return nil, fmt.Errorf("ledger: at most %d assets supported, got %d", AssetCount, len(names))
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("ledger: empty asset name")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("ledger: duplicate asset name %q", name)
		}
		seen[name] = struct{}{}
	}
	return &Registry{names: append([]string(nil), names...)}, nil
}

// MustRegistry is NewRegistry for static asset lists known to be valid.
func MustRegistry(names []string) *Registry {
	r, err := NewRegistry(names)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of registered assets.
func (r *Registry) Len() int { return len(r.names) }

// Valid reports whether the id addresses a registered asset.
func (r *Registry) Valid(id AssetID) bool { return int(id) < len(r.names) }

// Name returns the asset name for a registered id, or "" otherwise.
func (r *Registry) Name(id AssetID) string {
	if !r.Valid(id) {
		return ""
	}
	return r.names[id]
}

// Lookup resolves an asset name to its index.
func (r *Registry) Lookup(name string) (AssetID, error) {
	for i, n := range r.names {
		if n == name {
			return AssetID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, name)
}

// Assets lists the registered assets in index order.
func (r *Registry) Assets() []Asset {
	out := make([]Asset, len(r.names))
	for i, n := range r.names {
		out[i] = Asset{ID: AssetID(i), Name: n}
	}
	return out
}
