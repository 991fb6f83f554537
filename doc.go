// Package armdbt is a dynamic binary translator for ARM guest code
// (ARM-state ARMv7-A and ARMv8-A AArch64; Thumb instructions are not
// decoded) executing on a host CPU via JIT-translated machine code.
//
// A Core owns one guest processor's code cache and dispatcher; callers
// configure one with New, then drive it with Run or Step, supplying a
// Callbacks implementation for guest memory access and the surrounding
// host integration points (spec section 6). InvalidateCacheRanges and
// ClearCache let the embedder react to self-modifying guest code.
//
// Everything below this package lives under internal/ and is not meant
// to be imported directly; this file and its siblings (config.go,
// jit.go, haltreason.go) are the only supported entry points.
package armdbt
