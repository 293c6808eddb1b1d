// Package secrets holds provider credentials (webhook URLs, SMTP passwords,
// signing keys) in a thread-safe vault that supports hot reload, so rotated
// secrets take effect without a restart.
package secrets

import (
	"fmt"
	"strings"
	"sync"
)

// Loader retrieves secrets from a source (env vars, file, remote vault, etc.).
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
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Reload calls the loader and swaps in the new values atomically, reporting
// how many keys were added, removed, or given a new value. A zero count tells
// the caller the rotation was a no-op and dependent clients need no rebuild.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() (int, error) {
	newVals, err := v.loader()
	if err != nil {
		return 0, fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	changed := 0
	for k, nv := range newVals {
		if old, ok := v.values[k]; !ok || old != nv {
			changed++
		}
	}
	for k := range v.values {
		if _, ok := newVals[k]; !ok {
			changed++
		}
	}
	v.values = newVals
	return changed, nil
}

// Keys returns the names of all loaded secrets.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	return keys
}

// Redacted returns a masked form of the secret for key, safe for logs.
// Empty for missing keys, fully masked when the value is 4 chars or less.
func (v *Vault) Redacted(key string) string {
	return redact(v.Get(key))
}

// RedactString replaces any secret values occurring in s with their masked
// form. Values shorter than 4 characters are left alone to avoid mangling
// unrelated text.
func (v *Vault) RedactString(s string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, val := range v.values {
		if len(val) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, val, redact(val))
	}
	return s
}

func redact(val string) string {
	if val == "" {
		return ""
	}
	if len(val) <= 4 {
		return "****"
	}
	return val[:2] + "****"
}
