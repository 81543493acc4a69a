package crypto

import "fmt"

// Registry holds every encryption algorithm version the process knows
// about, plus the two defaults used for new encryptions. The snapshot is
// immutable after construction: providers are never removed, only the
// defaults move forward, so ciphertext produced under an old version stays
// decryptable indefinitely.
type Registry struct {
	providers   map[string]Provider
	defaultID   Provider
	defaultData Provider
}

// NewRegistry builds a registry from the default identifier provider, the
// default payload provider and any additional legacy providers that must
// remain available for decryption.
func NewRegistry(defaultID, defaultData Provider, legacy ...Provider) *Registry {
	providers := make(map[string]Provider, 2+len(legacy))
	providers[defaultID.Version()] = defaultID
	providers[defaultData.Version()] = defaultData
	for _, p := range legacy {
		providers[p.Version()] = p
	}
	return &Registry{
		providers:   providers,
		defaultID:   defaultID,
		defaultData: defaultData,
	}
}

func (r *Registry) ProviderFor(version string) (Provider, error) {
	p, ok := r.providers[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, version)
	}
	return p, nil
}

// DefaultIDProvider is used for new identifier encryptions. Identifiers are
// short and latency-sensitive, so this may differ from the payload default.
func (r *Registry) DefaultIDProvider() Provider {
	return r.defaultID
}

// DefaultDataProvider is used for new payload encryptions.
func (r *Registry) DefaultDataProvider() Provider {
	return r.defaultData
}
