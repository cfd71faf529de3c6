package media

import "sync"

// Buffer keeps captured chunks in arrival order.
type Buffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append stores a copy of chunk. Empty chunks are ignored.
func (b *Buffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)

	b.mu.Lock()
	b.chunks = append(b.chunks, cp)
	b.size += len(cp)
	b.mu.Unlock()
}

// Len returns the buffered byte count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Chunks returns the number of buffered chunks.
func (b *Buffer) Chunks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Flush concatenates every chunk and empties the buffer.
func (b *Buffer) Flush() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, 0, b.size)
	for _, chunk := range b.chunks {
		out = append(out, chunk...)
	}
	b.chunks = nil
	b.size = 0
	return out
}

// Discard drops everything without copying.
func (b *Buffer) Discard() {
	b.mu.Lock()
	b.chunks = nil
	b.size = 0
	b.mu.Unlock()
}
