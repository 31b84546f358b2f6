// Package config loads the compiler session's tunable limits from the
// environment (and an optional .env file), the way termfx-morfx's
// internal/config loads its encryption/WAL/retention knobs: a struct of
// defaults, overridden by FLASHCPP_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/GregorGullwi/FlashCpp-sub002/internal/instantiate"
)

// Limits holds the Instantiation Engine's recursion-depth cap plus
// the lazy-instantiation toggle, sourced from the environment so a CI run
// or a local dev session can raise the recursion cap for a deeply
// recursive template (e.g. a long Tuple pack) without a recompile.
type Limits struct {
	MaxRecursionDepth int
	LazyInstantiation bool
}

// Load reads an optional .env file at path (godotenv.Load returns the
// open error for an absent file, which Load ignores when os.IsNotExist
// reports it), then FLASHCPP_MAX_RECURSION_DEPTH and
// FLASHCPP_LAZY_INSTANTIATION from the process environment, falling back
// to defaults. path may be empty, in which case only the process
// environment and defaults apply.
func Load(path string) (*Limits, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %q: %w", path, err)
		}
	}

	limits := &Limits{MaxRecursionDepth: instantiate.DefaultLimits().MaxRecursionDepth}

	if v := os.Getenv("FLASHCPP_MAX_RECURSION_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil && depth > 0 {
			limits.MaxRecursionDepth = depth
		}
	}
	if v := os.Getenv("FLASHCPP_LAZY_INSTANTIATION"); v != "" {
		if lazy, err := strconv.ParseBool(v); err == nil {
			limits.LazyInstantiation = lazy
		}
	}
	return limits, nil
}

// ToEngineLimits converts to the Instantiation Engine's own Limits type,
// kept distinct so internal/instantiate does not need to import
// internal/config (spec §5 single-owner wiring: the compiler session is
// the only thing that knows about both).
func (l Limits) ToEngineLimits() instantiate.Limits {
	return instantiate.Limits{MaxRecursionDepth: l.MaxRecursionDepth, LazyInstantiation: l.LazyInstantiation}
}
