package ring

import (
	"testing"
)

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)

	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}
	dst := make([]byte, 0, N)

	// Producer offers 7 bytes at a time, consumer takes 5, so the indices
	// wrap often and both sides see partial progress.
	p := src
	var tmp [5]byte
	for len(dst) < N {
		if len(p) > 0 {
			k := min(7, len(p))
			p = p[r.WriteFrom(p[:k]):]
		}
		n := r.ReadInto(tmp[:])
		dst = append(dst, tmp[:n]...)
	}
	for i := range dst {
		if dst[i] != byte(i) {
			t.Fatalf("byte %d = %d", i, dst[i])
		}
	}
	if r.Available() != 0 || r.Space() != 64 {
		t.Fatalf("avail=%d space=%d after drain", r.Available(), r.Space())
	}
}

func TestFullRingRejects(t *testing.T) {
	r := New(4)
	if n := r.WriteFrom([]byte("abcdef")); n != 4 {
		t.Fatalf("WriteFrom = %d, want 4", n)
	}
	if r.Push('x') {
		t.Fatal("Push into a full ring succeeded")
	}
	if b, ok := r.Pop(); !ok || b != 'a' {
		t.Fatalf("Pop = %q,%v", b, ok)
	}
	if !r.Push('x') {
		t.Fatal("Push after Pop failed")
	}
	var out [8]byte
	if n := r.ReadInto(out[:]); string(out[:n]) != "bcdx" {
		t.Fatalf("ReadInto = %q", out[:n])
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("Pop from empty ring succeeded")
	}
}

func TestNewRejectsOddSizes(t *testing.T) {
	for _, n := range []int{0, 1, 3, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d) did not panic", n)
				}
			}()
			New(n)
		}()
	}
}
