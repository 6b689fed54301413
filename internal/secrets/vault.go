// Package secrets holds operator secrets that can be swapped at runtime,
// such as the admin token guarding the test delivery endpoint.
package secrets

import (
	"fmt"
	"sort"
	"sync"
)

// KeyAdminToken names the admin token in a Vault.
const KeyAdminToken = "HOOKRELAY_ADMIN_TOKEN" //nolint:gosec // key name, not a credential

// Loader retrieves secrets from a source (env vars, config file, remote vault).
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Getter returns a func reading key on every call, so holders observe reloads.
func (v *Vault) Getter(key string) func() string {
	return func() string { return v.Get(key) }
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	vals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = vals
	v.mu.Unlock()
	return nil
}

// Keys returns the names of the loaded secrets, sorted.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Redacted returns the secret for key masked for display: the first two
// characters followed by ****, or **** alone for values of four characters
// or fewer. Missing keys yield "".
func (v *Vault) Redacted(key string) string {
	val := v.Get(key)
	switch {
	case val == "":
		return ""
	case len(val) <= 4:
		return "****"
	default:
		return val[:2] + "****"
	}
}
