package tracing

import (
	"errors"
	"sync"
)

var (
	// ErrStillReferenced is returned by Drain while other handles to the
	// buffer are alive.
	ErrStillReferenced = errors.New("shared buffer still referenced")

	// ErrBufferReleased is returned when a closed or drained handle is used.
	ErrBufferReleased = errors.New("shared buffer handle released")
)

type sharedBytes struct {
	mu      sync.Mutex
	buf     []byte
	refs    int
	drained bool
}

// SharedBuffer is a growable byte buffer with several owning handles. The
// Chrome writer holds one handle and the caller another; once the writer
// is closed the caller can Drain the bytes without copying.
//
// A SharedBuffer is safe for concurrent use.
type SharedBuffer struct {
	shared *sharedBytes

	// guarded by shared.mu
	released bool
}

// NewSharedBuffer returns the first handle to an empty buffer.
func NewSharedBuffer() *SharedBuffer {
	return &SharedBuffer{shared: &sharedBytes{refs: 1}}
}

// Clone returns another owning handle to the same bytes. Cloning a released
// handle returns a released handle.
func (b *SharedBuffer) Clone() *SharedBuffer {
	s := b.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.released || s.drained {
		return &SharedBuffer{shared: s, released: true}
	}
	s.refs++
	return &SharedBuffer{shared: s}
}

// Write appends p to the buffer.
func (b *SharedBuffer) Write(p []byte) (int, error) {
	s := b.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.released || s.drained {
		return 0, ErrBufferReleased
	}
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Close releases this handle. It is idempotent and always returns nil.
func (b *SharedBuffer) Close() error {
	s := b.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.released {
		return nil
	}
	b.released = true
	if !s.drained {
		s.refs--
	}
	return nil
}

// Drain transfers ownership of the bytes to the caller and releases the
// handle. It fails with ErrStillReferenced, leaving the buffer untouched,
// while any other handle is alive.
func (b *SharedBuffer) Drain() ([]byte, error) {
	s := b.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.released || s.drained {
		return nil, ErrBufferReleased
	}
	if s.refs > 1 {
		return nil, ErrStillReferenced
	}

	out := s.buf
	s.buf = nil
	s.drained = true
	s.refs = 0
	b.released = true
	return out, nil
}

// Len returns the number of bytes written so far.
func (b *SharedBuffer) Len() int {
	s := b.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Bytes returns a copy of the current contents without taking ownership.
func (b *SharedBuffer) Bytes() []byte {
	s := b.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf...)
}

// Refs returns the number of live handles.
func (b *SharedBuffer) Refs() int {
	s := b.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}
