package device

import (
	"fmt"
	"log"
	"sync/atomic"
)

var (
	allocID  atomic.Uint64
	live     atomic.Int64
	tracking atomic.Bool
)

// Buffer is an owned block of device memory holding Size() elements of T.
// It is zeroed on allocation and must be released with Free exactly once.
type Buffer[T any] struct {
	id    uint64
	data  []T
	freed bool
}

// Alloc allocates a zero-filled device buffer of size elements.
func Alloc[T any](size int) *Buffer[T] {
	if size < 0 {
		fault("malloc", fmt.Errorf("negative size %v", size))
	}
	var b = &Buffer[T]{
		id:   allocID.Add(1),
		data: make([]T, size),
	}
	live.Add(1)
	b.report("Allocated")
	Synchronise()
	return b
}

// SetTracking switches logging of every allocation and free.
func SetTracking(enabled bool) {
	tracking.Store(enabled)
}

// LiveAllocations returns the number of buffers allocated and not yet freed.
func LiveAllocations() int {
	return int(live.Load())
}

func (b *Buffer[T]) Free() {
	if b.freed {
		fault("free", fmt.Errorf("buffer #%v freed twice", b.id))
	}
	b.report("Freed")
	b.freed = true
	b.data = nil
	live.Add(-1)
	Synchronise()
}

func (b *Buffer[T]) Size() int {
	return len(b.data)
}

func (b *Buffer[T]) ID() uint64 {
	return b.id
}

// Ptr points at the first element.
func (b *Buffer[T]) Ptr() Ptr[T] {
	return Ptr[T]{buf: b}
}

// Offset points at element index, which must lie inside the buffer.
func (b *Buffer[T]) Offset(index int) Ptr[T] {
	if index < 0 || index >= len(b.data) {
		panic(fmt.Sprintf("Index out of bounds: %v >= %v!", index, len(b.data)))
	}
	return Ptr[T]{buf: b, off: index}
}

func (b *Buffer[T]) LoadFromCPU(src []T) {
	if len(src) > len(b.data) {
		panic(fmt.Sprintf("Overflow! %v > %v", len(src), len(b.data)))
	}
	CopyToDevice(b.Ptr(), src)
}

func (b *Buffer[T]) WriteToCPU(dst []T) {
	if len(dst) > len(b.data) {
		panic(fmt.Sprintf("Overflow! %v > %v", len(dst), len(b.data)))
	}
	CopyFromDevice(dst, b.Ptr())
}

func (b *Buffer[T]) report(msg string) {
	if tracking.Load() {
		log.Printf("[device#%v] %v %v elements", b.id, msg, len(b.data))
	}
}

// Ptr is a non-owning device address: a buffer plus an element offset.
// Every access is checked against the live buffer.
type Ptr[T any] struct {
	buf *Buffer[T]
	off int
}

func (p Ptr[T]) IsNil() bool {
	return p.buf == nil
}

func (p Ptr[T]) Add(n int) Ptr[T] {
	return Ptr[T]{buf: p.buf, off: p.off + n}
}

// slice resolves n elements starting at p.
func (p Ptr[T]) slice(n int) []T {
	if p.buf == nil {
		panic("Attempting to dereference null pointer!")
	}
	if p.buf.freed {
		fault("access", fmt.Errorf("buffer #%v used after free", p.buf.id))
	}
	if n < 0 || p.off < 0 || p.off+n > len(p.buf.data) {
		panic(fmt.Sprintf("Index out of bounds: [%v:%v] of %v!", p.off, p.off+n, len(p.buf.data)))
	}
	return p.buf.data[p.off : p.off+n]
}

// CopyToDevice copies src into device memory at dst.
func CopyToDevice[T any](dst Ptr[T], src []T) {
	copy(dst.slice(len(src)), src)
	Synchronise()
}

// CopyFromDevice copies len(dst) elements starting at src back to the host.
func CopyFromDevice[T any](dst []T, src Ptr[T]) {
	copy(dst, src.slice(len(dst)))
	Synchronise()
}

// Zero clears n elements starting at p.
func Zero[T any](p Ptr[T], n int) {
	clear(p.slice(n))
	Synchronise()
}
