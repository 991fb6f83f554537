package sync

// ExclusiveMonitor implements the shared LDXR/STXR-style exclusive
// access pairing spec sections 3, 5 and 8 describe: a load-exclusive
// records the requesting processor and address; a store-exclusive to
// the same address by the same processor succeeds only if no other
// processor's store has invalidated the record since.
//
// One ExclusiveMonitor instance may be shared by every guest core in a
// process, guarded by a single SpinLock, matching spec section 5's
// "multiple cores may share one exclusive-monitor instance".
type ExclusiveMonitor struct {
	lock *SpinLock
	tags map[uint64]exclusiveTag
}

type exclusiveTag struct {
	processor uint32
	present   bool
}

// NewExclusiveMonitor returns a ready-to-use, empty ExclusiveMonitor.
func NewExclusiveMonitor() *ExclusiveMonitor {
	return &ExclusiveMonitor{lock: New(), tags: make(map[uint64]exclusiveTag)}
}

// MarkExclusive records that processor holds an exclusive tag on addr,
// as the side effect of a LDXR-class read.
func (m *ExclusiveMonitor) MarkExclusive(processor uint32, addr uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tags[addr] = exclusiveTag{processor: processor, present: true}
}

// CheckAndClear attempts the STXR-class store: it succeeds iff addr
// still carries an exclusive tag for processor. Whether it succeeds or
// not, the tag for addr is cleared (a single store-exclusive attempt,
// successful or not, always clears the local monitor per the
// architecture's "single exclusive access" rule).
func (m *ExclusiveMonitor) CheckAndClear(processor uint32, addr uint64) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	tag, ok := m.tags[addr]
	delete(m.tags, addr)
	return ok && tag.present && tag.processor == processor
}

// ClearProcessor drops every tag held by processor, e.g. on a context
// switch or exception entry that the guest ABI defines as
// monitor-clearing.
func (m *ExclusiveMonitor) ClearProcessor(processor uint32) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for addr, tag := range m.tags {
		if tag.processor == processor {
			delete(m.tags, addr)
		}
	}
}

// InvalidateAddress clears any tag on addr regardless of owner,
// modelling an observed write from another processor per spec section
// 5's ordering guarantees.
func (m *ExclusiveMonitor) InvalidateAddress(addr uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.tags, addr)
}
