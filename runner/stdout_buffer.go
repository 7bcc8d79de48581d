package runner

import (
	"sync"
	"unicode/utf8"
)

// defaultTailBytes is the per-stream memory ceiling. It is well above
// types.MaxOutputTail characters even for four-byte runes.
const defaultTailBytes = 64 * 1024

// tailBuffer is an io.Writer that remembers only the most recent output of a
// suite. Stdout and stderr each get their own buffer.
type tailBuffer struct {
	limit int

	mu      sync.Mutex
	buf     []byte
	written int64
	dropped bool
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = defaultTailBytes
	}
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.written += int64(len(p))
	b.buf = append(b.buf, p...)
	if excess := len(b.buf) - b.limit; excess > 0 {
		// Never start the tail in the middle of a rune.
		for excess < len(b.buf) && !utf8.RuneStart(b.buf[excess]) {
			excess++
		}
		b.buf = append(b.buf[:0], b.buf[excess:]...)
		b.dropped = true
	}
	return len(p), nil
}

// String returns the retained tail.
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// TotalBytes returns everything ever written, including dropped output.
func (b *tailBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// Truncated reports whether older output was dropped.
func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
