package armdbt

import (
	"fmt"

	"github.com/armdbt/armdbt/internal/cache"
	"github.com/armdbt/armdbt/internal/frontend/a32"
	"github.com/armdbt/armdbt/internal/frontend/a64"
	"github.com/armdbt/armdbt/internal/loc"
)

// Core is one guest processor core: a code cache, a dispatcher, and
// the frontend that decodes its chosen GuestISA. Not safe for
// concurrent use beyond what AddressSpace itself guarantees; per spec
// section 5, two cores that need independent caches get independent
// Cores.
type Core struct {
	as  *cache.AddressSpace
	isa GuestISA
}

// New builds a Core from cfg, allocating its code cache and emitting
// the dispatcher prelude. cfg must carry a Callbacks implementation
// (WithCallbacks); everything else falls back to NewConfig's defaults.
func New(cfg Config) (*Core, error) {
	if cfg.cb == nil {
		return nil, fmt.Errorf("armdbt: Config.Callbacks is required; supply one via WithCallbacks")
	}

	var translator cache.Translator
	switch cfg.isa {
	case GuestISAA64:
		translator = a64.New()
	case GuestISAA32:
		translator = a32.New()
	default:
		return nil, fmt.Errorf("armdbt: unknown GuestISA %v", cfg.isa)
	}

	as, err := cache.NewAddressSpace(cache.Config{
		CodeCacheSizeBytes: cfg.codeCacheSizeBytes,
		SafetyMarginBytes:  cfg.safetyMarginBytes,
		Translator:         translator,
		Callbacks:          cfg.cb,
		Options: cache.TranslateOptions{
			ArchVersion:                  cfg.archVersion,
			DefineUnpredictableBehaviour: cfg.defineUnpredictableBehaviour,
			HookHintInstructions:         cfg.hookHintInstructions,
		},
		Allocatable: cfg.allocatable,
		Invoker:     cfg.invoker,
	})
	if err != nil {
		return nil, err
	}
	return &Core{as: as, isa: cfg.isa}, nil
}

// GuestISA reports the instruction set this Core decodes.
func (c *Core) GuestISA() GuestISA { return c.isa }

// Run executes guest code starting at entry: the entry block is
// translated if needed and invoked once, with no dispatch loop around
// it, and the invoker's result is returned as the HaltReason.
func (c *Core) Run(entry loc.Descriptor, guestState, haltFlag *byte, cyclesToRun uint64) (HaltReason, error) {
	return c.as.RunCode(entry, guestState, haltFlag, cyclesToRun)
}

// Step is Run with cycles_to_run forced to 1 and the Step halt bit
// forced on entry.
func (c *Core) Step(entry loc.Descriptor, guestState, haltFlag *byte) (HaltReason, error) {
	return c.as.StepCode(entry, guestState, haltFlag)
}

// InvalidateCacheRanges drops every cached block overlapping any of
// ranges (guest PC intervals), forcing re-translation on next dispatch.
func (c *Core) InvalidateCacheRanges(ranges [][2]uint32) {
	c.as.InvalidateCacheRanges(ranges)
}

// ClearCache empties the code cache entirely and resets the code
// buffer to just past the prelude.
func (c *Core) ClearCache() {
	c.as.ClearCache()
}
