package termauto

// RollingBuffer detects substrings in an unbounded byte stream without
// rescanning history. It retains only the last maxNeedle-1 bytes seen, so a
// needle of length <= maxNeedle that straddles a chunk boundary is always
// fully visible in some window returned by Append.
type RollingBuffer struct {
	tail []byte
	max  int
}

// NewRollingBuffer returns a buffer able to catch needles up to
// maxNeedle bytes long across chunk splits.
func NewRollingBuffer(maxNeedle int) *RollingBuffer {
	if maxNeedle < 1 {
		maxNeedle = 1
	}
	return &RollingBuffer{max: maxNeedle}
}

// Append returns the scan window for this chunk: the retained tail followed
// by the chunk itself. The tail is then advanced to the last maxNeedle-1
// bytes of the window.
func (b *RollingBuffer) Append(chunk []byte) []byte {
	window := make([]byte, 0, len(b.tail)+len(chunk))
	window = append(window, b.tail...)
	window = append(window, chunk...)

	keep := b.max - 1
	if keep > len(window) {
		keep = len(window)
	}
	b.tail = append(b.tail[:0], window[len(window)-keep:]...)
	return window
}

// Reset clears the retained tail. Used when a sub-flow deliberately
// restarts capture and pre-restart bytes must not produce matches.
func (b *RollingBuffer) Reset() {
	b.tail = b.tail[:0]
}

// tailBuffer keeps a bounded suffix of everything written to it. Unlike
// RollingBuffer it is meant for whole-text scans (markers that may be
// interleaved with escape sequences), not for chunk-boundary windows.
type tailBuffer struct {
	max  int
	data []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) {
	t.data = append(t.data, p...)
	if len(t.data) > t.max {
		t.data = append(t.data[:0], t.data[len(t.data)-t.max:]...)
	}
}

func (t *tailBuffer) Bytes() []byte {
	return t.data
}

func (t *tailBuffer) Reset() {
	t.data = t.data[:0]
}
