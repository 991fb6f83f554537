package armdbt

import "github.com/armdbt/armdbt/internal/cache"

// HaltReason is the bitwise-OR of every reason Run or Step stopped
// guest execution; a zero value means cycles_to_run was exhausted with
// no other condition observed. Aliased from internal/cache so callers
// of this package never need to import it directly.
type HaltReason = cache.HaltReason

const (
	HaltStep              = cache.HaltStep
	HaltCacheInvalidation = cache.HaltCacheInvalidation
	HaltMemoryAbort       = cache.HaltMemoryAbort
	HaltUserDefined       = cache.HaltUserDefined
)
