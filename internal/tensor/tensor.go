package tensor

import (
	"fmt"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

// Shape of a matrix with Cols columns and Rows rows. Vectors are (1, n).
type Shape struct {
	cols int
	rows int
}

func NewShape(cols, rows int) Shape {
	return Shape{cols: cols, rows: rows}
}

func (s Shape) Cols() int { return s.cols }
func (s Shape) Rows() int { return s.rows }
func (s Shape) Size() int { return s.cols * s.rows }

func (s Shape) String() string {
	return fmt.Sprintf("%vx%v", s.cols, s.rows)
}

// Tensor is a single matrix in device memory. It either owns its memory
// (Calloc/Free) or views memory owned by someone else (SetPtr).
type Tensor struct {
	shape Shape
	ptr   device.Ptr[float32]
	owned *device.Buffer[float32]
}

// NewTensor returns a tensor that points nowhere yet.
func NewTensor(shape Shape) *Tensor {
	return &Tensor{shape: shape}
}

// SetPtr makes t a view starting at ptr.
func (t *Tensor) SetPtr(ptr device.Ptr[float32]) {
	t.ptr = ptr
}

func (t *Tensor) Calloc() {
	if t.owned != nil {
		panic("Tensor already allocated!")
	}
	t.owned = device.Alloc[float32](t.NumElements())
	t.ptr = t.owned.Ptr()
}

func (t *Tensor) Free() {
	if t.owned == nil {
		panic("Freeing a tensor that does not own memory!")
	}
	t.owned.Free()
	t.owned = nil
	t.ptr = device.Ptr[float32]{}
}

func (t *Tensor) Shape() Shape             { return t.shape }
func (t *Tensor) Ptr() device.Ptr[float32] { return t.ptr }
func (t *Tensor) NumElements() int         { return t.shape.Size() }

func (t *Tensor) LoadFromCPU(buf []float32) {
	t.checkTransfer(len(buf))
	device.CopyToDevice(t.ptr, buf)
}

func (t *Tensor) WriteToCPU(buf []float32) {
	t.checkTransfer(len(buf))
	device.CopyFromDevice(buf, t.ptr)
}

func (t *Tensor) checkTransfer(n int) {
	if t.ptr.IsNil() {
		panic("Attempting to dereference null pointer!")
	}
	if n != t.NumElements() {
		panic(fmt.Sprintf("Must be exactly the same size! %v != %v", n, t.NumElements()))
	}
}

// TensorBatch is cap matrices of one shape packed into a single buffer.
type TensorBatch struct {
	shape Shape
	cap   int
	buf   *device.Buffer[float32]
}

func NewTensorBatch(shape Shape, cap int) *TensorBatch {
	if cap <= 0 {
		panic("Cannot have a 0 sized batch!")
	}
	return &TensorBatch{
		shape: shape,
		cap:   cap,
		buf:   device.Alloc[float32](cap * shape.Size()),
	}
}

func (b *TensorBatch) Shape() Shape             { return b.shape }
func (b *TensorBatch) Cap() int                 { return b.cap }
func (b *TensorBatch) ElementSize() int         { return b.shape.Size() }
func (b *TensorBatch) NumElements() int         { return b.buf.Size() }
func (b *TensorBatch) Ptr() device.Ptr[float32] { return b.buf.Ptr() }

func (b *TensorBatch) LoadFromCPU(buf []float32) {
	b.buf.LoadFromCPU(buf)
}

func (b *TensorBatch) WriteToCPU(buf []float32) {
	b.buf.WriteToCPU(buf)
}

func (b *TensorBatch) Free() {
	b.buf.Free()
}

func checkBatch(batchSize int, b *TensorBatch) {
	if batchSize > b.cap {
		panic(fmt.Sprintf("Overflow! batch %v > cap %v", batchSize, b.cap))
	}
}

func assertShape(got, want Shape) {
	if got != want {
		panic(fmt.Sprintf("Mismatched tensor shapes! %v != %v", got, want))
	}
}

func assertCap(a, b *TensorBatch) {
	if a.cap != b.cap {
		panic("Not all tensor caps are the same length!")
	}
}
