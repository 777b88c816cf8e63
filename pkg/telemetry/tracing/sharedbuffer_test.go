package tracing

import (
	"errors"
	"sync"
	"testing"
)

func TestSharedBuffer_DrainWhileReferenced(t *testing.T) {
	buf := NewSharedBuffer()
	writer := buf.Clone()

	if _, err := writer.Write([]byte("abc")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := buf.Drain(); !errors.Is(err, ErrStillReferenced) {
		t.Fatalf("Drain() error = %v, want ErrStillReferenced", err)
	}
	if got := buf.Len(); got != 3 {
		t.Errorf("failed Drain() changed the buffer: Len() = %d, want 3", got)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := buf.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("Drain() = %q, want %q", data, "abc")
	}

	if _, err := buf.Drain(); !errors.Is(err, ErrBufferReleased) {
		t.Errorf("second Drain() error = %v, want ErrBufferReleased", err)
	}
}

func TestSharedBuffer_ReleasedHandle(t *testing.T) {
	buf := NewSharedBuffer()
	clone := buf.Clone()

	if buf.Refs() != 2 {
		t.Fatalf("Refs() = %d, want 2", buf.Refs())
	}

	_ = clone.Close()
	_ = clone.Close()

	if buf.Refs() != 1 {
		t.Errorf("Refs() after double Close() = %d, want 1", buf.Refs())
	}
	if _, err := clone.Write([]byte("x")); !errors.Is(err, ErrBufferReleased) {
		t.Errorf("Write() on closed handle error = %v, want ErrBufferReleased", err)
	}

	again := clone.Clone()
	if _, err := again.Write([]byte("x")); !errors.Is(err, ErrBufferReleased) {
		t.Errorf("Write() on clone of closed handle error = %v, want ErrBufferReleased", err)
	}
	if buf.Refs() != 1 {
		t.Errorf("cloning a released handle changed Refs() to %d", buf.Refs())
	}
}

func TestSharedBuffer_BytesIsACopy(t *testing.T) {
	buf := NewSharedBuffer()
	_, _ = buf.Write([]byte("hello"))

	snapshot := buf.Bytes()
	snapshot[0] = 'j'

	if got := string(buf.Bytes()); got != "hello" {
		t.Errorf("Bytes() aliased the buffer: %q", got)
	}
}

func TestSharedBuffer_ConcurrentWrites(t *testing.T) {
	buf := NewSharedBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		h := buf.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer h.Close()
			for j := 0; j < 100; j++ {
				_, _ = h.Write([]byte("ab"))
			}
		}()
	}
	wg.Wait()

	data, err := buf.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(data) != 8*100*2 {
		t.Errorf("Drain() returned %d bytes, want %d", len(data), 8*100*2)
	}
}
