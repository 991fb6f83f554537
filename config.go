package armdbt

import (
	"github.com/armdbt/armdbt/internal/backend"
	"github.com/armdbt/armdbt/internal/cache"
	"github.com/armdbt/armdbt/internal/callbacks"
)

// GuestISA selects which guest instruction set a Core decodes: a Core
// is built for exactly one, matching the spec's per-core register file
// split (A32 core registers vs. A64 core registers are distinct
// RegClass values, never mixed within one AddressSpace).
type GuestISA int

const (
	// GuestISAA64 decodes AArch64 (ARMv8-A, 64-bit) guest code.
	GuestISAA64 GuestISA = iota
	// GuestISAA32 decodes ARMv7-A ARM-state 32-bit guest code.
	GuestISAA32
)

func (isa GuestISA) String() string {
	switch isa {
	case GuestISAA64:
		return "a64"
	case GuestISAA32:
		return "a32"
	default:
		return "unknown"
	}
}

// Config configures a new Core, built with functional options the same
// way wazero's own RuntimeConfig is assembled: a private struct plus a
// chain of With* setters, never exported fields.
type Config struct {
	isa                          GuestISA
	codeCacheSizeBytes           int
	safetyMarginBytes            int
	archVersion                  int
	defineUnpredictableBehaviour bool
	hookHintInstructions         bool
	cb                           callbacks.Callbacks
	allocatable                  []backend.RealReg
	invoker                      cache.EntryInvoker
}

// Option configures a Config. See the With* functions.
type Option func(*Config)

// NewConfig builds a Config from defaults (AArch64 guest, a 16 MiB code
// cache, a 4 KiB safety margin, ARMv8 decode) plus any options.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		isa:                GuestISAA64,
		codeCacheSizeBytes: 16 << 20,
		safetyMarginBytes:  4 << 10,
		archVersion:        8,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithGuestISA selects the guest instruction set a Core decodes.
func WithGuestISA(isa GuestISA) Option {
	return func(c *Config) { c.isa = isa }
}

// WithCodeCacheSizeBytes overrides the fixed executable region size.
func WithCodeCacheSizeBytes(n int) Option {
	return func(c *Config) { c.codeCacheSizeBytes = n }
}

// WithSafetyMarginBytes overrides the minimum free space GetOrEmit
// requires before emitting a new block without first clearing the
// cache.
func WithSafetyMarginBytes(n int) Option {
	return func(c *Config) { c.safetyMarginBytes = n }
}

// WithArchVersion sets the guest architecture version (e.g. 7 for
// ARMv7-A, 8 for ARMv8-A) the frontend decodes against.
func WithArchVersion(v int) Option {
	return func(c *Config) { c.archVersion = v }
}

// WithDefineUnpredictableBehaviour makes the frontend give a defined
// fallback to encodings the architecture leaves UNPREDICTABLE, instead
// of raising an exception.
func WithDefineUnpredictableBehaviour(b bool) Option {
	return func(c *Config) { c.defineUnpredictableBehaviour = b }
}

// WithHookHintInstructions makes the frontend emit a host-visible
// callback for hint instructions (WFE/WFI/YIELD and similar) rather
// than translating them as a plain Nop.
func WithHookHintInstructions(b bool) Option {
	return func(c *Config) { c.hookHintInstructions = b }
}

// WithCallbacks supplies the embedder's guest-memory and host-callback
// implementation. Required; New returns an error if this is omitted.
func WithCallbacks(cb callbacks.Callbacks) Option {
	return func(c *Config) { c.cb = cb }
}

// WithAllocatableRegisters overrides the set of host registers the
// register allocator may hand out. Defaults to the arm64 backend's
// own register set.
func WithAllocatableRegisters(regs []backend.RealReg) Option {
	return func(c *Config) { c.allocatable = regs }
}

// WithEntryInvoker supplies the platform-specific trampoline that
// bridges Go's calling convention into emitted machine code. Required
// for Run/Step to do anything beyond panicking; see cache.EntryInvoker.
func WithEntryInvoker(inv cache.EntryInvoker) Option {
	return func(c *Config) { c.invoker = inv }
}
