// Package envview abstracts the process environment behind an explicit view.
//
// Components never touch os.Environ directly; the real view is handed in at
// the outermost boundary and a map-backed fake stands in for tests. The
// orchestrator only ever adds keys that are currently absent, so ambient
// values set by the caller always win over resolved ones.
package envview

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// View is a read/write window onto an environment key/value map.
type View interface {
	// Lookup returns the value and whether the key is present.
	Lookup(key string) (string, bool)
	// Set unconditionally writes a key. Callers wanting add-if-absent
	// semantics must Lookup first.
	Set(key, value string) error
	// Snapshot returns a copy of the full map.
	Snapshot() map[string]string
}

type osView struct{}

// OS returns the view backed by the real process environment.
func OS() View { return osView{} }

func (osView) Lookup(key string) (string, bool) { return os.LookupEnv(key) }
func (osView) Set(key, value string) error      { return os.Setenv(key, value) }

func (osView) Snapshot() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}

// MapView is an in-memory View for tests. Safe for concurrent use.
type MapView struct {
	mu sync.RWMutex
	m  map[string]string
}

// Map builds a MapView seeded with the given pairs.
func Map(seed map[string]string) *MapView {
	m := make(map[string]string, len(seed))
	for k, v := range seed {
		m[k] = v
	}
	return &MapView{m: m}
}

func (v *MapView) Lookup(key string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[key]
	return val, ok
}

func (v *MapView) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[key] = value
	return nil
}

func (v *MapView) Snapshot() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.m))
	for k, val := range v.m {
		out[k] = val
	}
	return out
}

// Keys returns the sorted key set, handy for deterministic test assertions.
func (v *MapView) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
