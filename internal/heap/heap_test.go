package heap

import "testing"

func TestAllocZeroFlagZeroesBuffer(t *testing.T) {
	buf := Alloc("T1", 256, 0)
	for i := range buf {
		buf[i] = 0xFF
	}
	Free("T1", buf)

	buf2 := Alloc("T1", 256, Zero)
	for i, b := range buf2 {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %#x", i, b)
		}
	}
	Free("T1", buf2)
}

func TestAllocExactSize(t *testing.T) {
	buf := Alloc("T2", 100, 0)
	if len(buf) != 100 {
		t.Fatalf("expected len 100, got %d", len(buf))
	}
	Free("T2", buf)
}

func TestOutstandingTracksAllocFree(t *testing.T) {
	tag := "T3"
	base := Outstanding(tag)

	a := Alloc(tag, 64, 0)
	b := Alloc(tag, 64, 0)
	if got := Outstanding(tag); got != base+2 {
		t.Fatalf("expected %d outstanding, got %d", base+2, got)
	}

	Free(tag, a)
	if got := Outstanding(tag); got != base+1 {
		t.Fatalf("expected %d outstanding, got %d", base+1, got)
	}

	Free(tag, b)
	if got := Outstanding(tag); got != base {
		t.Fatalf("expected %d outstanding, got %d", base, got)
	}
}
