// Package flags provides feature flags for features still being rolled
// out. A Registry is read-only once built and unknown flags read as off.
package flags

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/zjrosen/canvasflow/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagSequenceAPI exposes POST /sequence on the HTTP API.
	FlagSequenceAPI = "sequence-api"

	// FlagWatchSequential makes "watch" run changed graphs through the
	// sequential queue instead of a full dependency-ordered run.
	FlagWatchSequential = "watch-sequential"
)

// Flag describes one known feature flag.
type Flag struct {
	Name        string
	Description string
}

var known = []Flag{
	{FlagSequenceAPI, "serve POST /sequence"},
	{FlagWatchSequential, "watch runs graphs through the sequential queue"},
}

// Known returns every flag this build understands.
func Known() []Flag {
	return append([]Flag(nil), known...)
}

func isKnown(name string) bool {
	for _, f := range known {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. A nil map disables every
// flag. Names this build does not know are kept but logged.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: make(map[string]bool, len(flags))}
	for name, on := range flags {
		name = strings.ToLower(name)
		if !isKnown(name) {
			log.Warn(log.CatConfig, "Unknown feature flag in config", "flag", name)
		}
		r.flags[name] = on
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(r.flags), "flags", r.flags)
	return r
}

// With returns a new Registry with overrides applied on top of r.
func (r *Registry) With(overrides map[string]bool) *Registry {
	merged := r.All()
	maps.Copy(merged, overrides)
	return &Registry{flags: merged}
}

// Enabled reports whether the named flag is on. Unknown flags and a nil
// registry read as off.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of every flag value. A nil registry yields an empty
// map.
func (r *Registry) All() map[string]bool {
	result := make(map[string]bool)
	if r != nil {
		maps.Copy(result, r.flags)
	}
	return result
}

// ParseOverrides parses command-line specs of the form "name" (on) or
// "name=<bool>". Unknown names are rejected so typos fail loudly.
func ParseOverrides(specs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(specs))
	for _, spec := range specs {
		name, value, hasValue := strings.Cut(spec, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !isKnown(name) {
			return nil, fmt.Errorf("unknown feature flag %q", name)
		}
		on := true
		if hasValue {
			v, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("feature flag %s: %w", name, err)
			}
			on = v
		}
		out[name] = on
	}
	return out, nil
}
