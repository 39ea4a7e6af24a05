package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// runtimeNamespace holds operator-mutable search defaults.
const runtimeNamespace = "runtime"

// RuntimeKeys are the settings the API accepts writes for. Everything
// else in the config file requires a restart. "instances" holds a JSON
// string array.
var RuntimeKeys = map[string]bool{
	"max_results":        true,
	"max_content_length": true,
	"default_language":   true,
	"optimize_query":     true,
	"fetch_full_content": true,
	"multi_query":        true,
	"re_rank":            true,
	"brave_api_key":      true,
	"custom_instance":    true,
	"instances":          true,
	"optimizer_model":    true,
}

// Runtime is a typed view over the settings store for mutable search
// defaults. Values set here override the config file and survive
// restarts. All methods are safe for concurrent use; reads come from an
// in-memory copy and writes go through to the store immediately.
type Runtime struct {
	store  *Store
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]string
}

// NewRuntime creates a runtime settings view, loading any persisted
// overrides. A nil store leaves the view purely in-memory.
func NewRuntime(store *Store, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runtime{
		store:  store,
		logger: logger.With("component", "settings"),
		values: make(map[string]string),
	}
	if store != nil {
		all, err := store.All(runtimeNamespace)
		if err != nil {
			logger.Warn("failed to load runtime settings", "error", err)
		} else {
			r.values = all
		}
	}
	return r
}

// Set validates and persists one runtime setting.
func (r *Runtime) Set(key, value string) error {
	if !RuntimeKeys[key] {
		return fmt.Errorf("unknown setting %q", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Set(runtimeNamespace, key, value); err != nil {
			return fmt.Errorf("persist setting %s: %w", key, err)
		}
	}
	r.values[key] = value
	logged := value
	if key == "brave_api_key" {
		logged = "(set)"
	}
	r.logger.Info("runtime setting changed", "key", key, "value", logged)
	return nil
}

// Bool returns the override for key, or fallback when unset or
// unparseable.
func (r *Runtime) Bool(key string, fallback bool) bool {
	r.mu.Lock()
	v, ok := r.values[key]
	r.mu.Unlock()
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Int returns the override for key, or fallback when unset or
// unparseable.
func (r *Runtime) Int(key string, fallback int) int {
	r.mu.Lock()
	v, ok := r.values[key]
	r.mu.Unlock()
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// String returns the override for key, or fallback when unset.
func (r *Runtime) String(key, fallback string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.values[key]; ok {
		return v
	}
	return fallback
}

// Strings returns the override for key decoded as a JSON string array,
// or fallback when unset or unparseable.
func (r *Runtime) Strings(key string, fallback []string) []string {
	r.mu.Lock()
	v, ok := r.values[key]
	r.mu.Unlock()
	if !ok {
		return fallback
	}
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		r.logger.Warn("setting is not a JSON string array, ignoring", "key", key, "error", err)
		return fallback
	}
	return out
}

// All returns a copy of every override currently set.
func (r *Runtime) All() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
