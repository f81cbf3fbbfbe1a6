package termauto

import (
	"bytes"
	"strings"
	"testing"
)

// TestRollingBufferCrossChunk reproduces the canonical split: "Credits:"
// arriving as "...Cred" + "its: 10" must be visible in the second window.
func TestRollingBufferCrossChunk(t *testing.T) {
	needle := []byte("Credits:")
	rb := NewRollingBuffer(len(needle))

	w1 := rb.Append([]byte("...Cred"))
	if bytes.Contains(w1, needle) {
		t.Fatalf("needle unexpectedly present in first window %q", w1)
	}
	w2 := rb.Append([]byte("its: 10"))
	if !bytes.Contains(w2, needle) {
		t.Fatalf("needle not found in second window %q", w2)
	}
}

// TestRollingBufferAnySplit splits a stream containing the needle at every
// possible two-chunk boundary and at a sweep of three-chunk boundaries; the
// needle must show up in at least one returned window every time.
func TestRollingBufferAnySplit(t *testing.T) {
	needle := "trust this folder?"
	stream := "banner text... " + needle + " ...more text"

	detect := func(chunks []string) bool {
		rb := NewRollingBuffer(len(needle))
		for _, c := range chunks {
			if bytes.Contains(rb.Append([]byte(c)), []byte(needle)) {
				return true
			}
		}
		return false
	}

	for i := 0; i <= len(stream); i++ {
		if !detect([]string{stream[:i], stream[i:]}) {
			t.Errorf("missed needle with 2-way split at %d", i)
		}
	}
	for i := 0; i <= len(stream); i++ {
		for j := i; j <= len(stream); j += 3 {
			if !detect([]string{stream[:i], stream[i:j], stream[j:]}) {
				t.Errorf("missed needle with 3-way split at %d/%d", i, j)
			}
		}
	}
}

// TestRollingBufferTailBound verifies the invariant that the retained tail
// stays strictly shorter than the max needle length.
func TestRollingBufferTailBound(t *testing.T) {
	rb := NewRollingBuffer(8)
	for _, chunk := range []string{"a", "bcdefghij", "", "klmnopqrstuvwxyz"} {
		rb.Append([]byte(chunk))
		if len(rb.tail) >= 8 {
			t.Fatalf("tail length %d, want < 8", len(rb.tail))
		}
	}
}

func TestRollingBufferReset(t *testing.T) {
	needle := "marker"
	rb := NewRollingBuffer(len(needle))
	rb.Append([]byte("mark"))
	rb.Reset()
	if w := rb.Append([]byte("er")); bytes.Contains(w, []byte(needle)) {
		t.Fatalf("match survived a reset: window %q", w)
	}
}

func TestTailBufferBounded(t *testing.T) {
	tb := newTailBuffer(10)
	tb.Write([]byte(strings.Repeat("x", 25)))
	tb.Write([]byte("tail-end"))
	got := string(tb.Bytes())
	if len(got) > 10 {
		t.Fatalf("tail buffer grew to %d bytes, want <= 10", len(got))
	}
	if !strings.HasSuffix(got, "tail-end") {
		t.Fatalf("tail buffer lost the newest bytes: %q", got)
	}
}
