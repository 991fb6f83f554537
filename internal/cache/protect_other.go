//go:build !unix

package cache

// rwxCodeRegion is the fallback codeRegion for platforms without
// mprotect: a plain heap-allocated RWX buffer, exactly as spec section
// 4.5 permits ("platforms without mprotect/VirtualProtect leave the
// region RWX").
type rwxCodeRegion struct {
	data []byte
}

func newCodeRegion(size int) (codeRegion, error) {
	return &rwxCodeRegion{data: make([]byte, size)}, nil
}

func (r *rwxCodeRegion) Bytes() []byte      { return r.data }
func (r *rwxCodeRegion) MakeWritable() error   { return nil }
func (r *rwxCodeRegion) MakeExecutable() error { return nil }
func (r *rwxCodeRegion) Close() error          { return nil }
