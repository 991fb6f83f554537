package cache

import (
	"testing"

	"github.com/armdbt/armdbt/internal/loc"
)

func TestBlockRanges_Overlapping(t *testing.T) {
	r := NewBlockRanges()
	r.Insert(0, 16, loc.New(0))
	r.Insert(16, 32, loc.New(16))
	r.Insert(100, 108, loc.New(100))

	for _, tc := range []struct {
		name       string
		start, end uint32
		want       []loc.Descriptor
	}{
		{name: "hits first only", start: 4, end: 8, want: []loc.Descriptor{loc.New(0)}},
		{name: "straddles first and second", start: 12, end: 20, want: []loc.Descriptor{loc.New(0), loc.New(16)}},
		{name: "misses everything", start: 40, end: 60, want: nil},
		{name: "exact match on third", start: 100, end: 108, want: []loc.Descriptor{loc.New(100)}},
		{name: "half-open end excludes boundary", start: 16, end: 16, want: nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Overlapping(tc.start, tc.end)
			if len(got) != len(tc.want) {
				t.Fatalf("Overlapping(%d,%d) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Overlapping(%d,%d)[%d] = %v, want %v", tc.start, tc.end, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestBlockRanges_Remove(t *testing.T) {
	r := NewBlockRanges()
	r.Insert(0, 16, loc.New(0))
	r.Insert(16, 32, loc.New(16))

	r.Remove(loc.New(0))
	got := r.Overlapping(0, 32)
	if len(got) != 1 || got[0] != loc.New(16) {
		t.Fatalf("after Remove, Overlapping(0,32) = %v, want [%v]", got, loc.New(16))
	}
}

func TestBlockRanges_Clear(t *testing.T) {
	r := NewBlockRanges()
	r.Insert(0, 16, loc.New(0))
	r.Insert(16, 32, loc.New(16))
	r.Clear()
	if got := r.Overlapping(0, 32); got != nil {
		t.Fatalf("after Clear, Overlapping(0,32) = %v, want nil", got)
	}
}

func TestBlockRanges_InsertKeepsSortedOrder(t *testing.T) {
	r := NewBlockRanges()
	r.Insert(100, 108, loc.New(100))
	r.Insert(0, 16, loc.New(0))
	r.Insert(50, 60, loc.New(50))

	wantOrder := []uint32{0, 50, 100}
	for i, e := range r.intervals {
		if e.start != wantOrder[i] {
			t.Fatalf("intervals[%d].start = %d, want %d", i, e.start, wantOrder[i])
		}
	}
}
