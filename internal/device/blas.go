package device

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Matrices are m columns by n rows, stored row-major: row r occupies
// a[r*m : (r+1)*m]. Vectors x are m long and y are n long.

func matrix(data []float32, m, n int) blas32.General {
	return blas32.General{Rows: n, Cols: m, Stride: m, Data: data}
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// SplatGemv computes y[i] = a x[i] for every batch element with one shared a.
func SplatGemv(batchSize, m, n int, a, x, y Ptr[float32]) {
	if batchSize == 0 {
		return
	}
	var xs = blas32.General{Rows: batchSize, Cols: m, Stride: m, Data: x.slice(batchSize * m)}
	var ys = blas32.General{Rows: batchSize, Cols: n, Stride: n, Data: y.slice(batchSize * n)}
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, xs, matrix(a.slice(m*n), m, n), 0, ys)
	Synchronise()
}

// SplatGemvT computes x[i] = aᵗ y[i] for every batch element with one shared a.
func SplatGemvT(batchSize, m, n int, a, y, x Ptr[float32]) {
	if batchSize == 0 {
		return
	}
	var ys = blas32.General{Rows: batchSize, Cols: n, Stride: n, Data: y.slice(batchSize * n)}
	var xs = blas32.General{Rows: batchSize, Cols: m, Stride: m, Data: x.slice(batchSize * m)}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, ys, matrix(a.slice(m*n), m, n), 0, xs)
	Synchronise()
}

// StridedGemv computes y[i] = a[i] x[i], where a[i] starts aStride elements
// after a[i-1].
func StridedGemv(batchSize, m, n, aStride int, a, x, y Ptr[float32]) {
	if batchSize == 0 {
		return
	}
	var as = a.slice((batchSize-1)*aStride + m*n)
	var xs = x.slice(batchSize * m)
	var ys = y.slice(batchSize * n)
	launch(batchSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			blas32.Gemv(blas.NoTrans, 1,
				matrix(as[i*aStride:i*aStride+m*n], m, n),
				vector(xs[i*m:(i+1)*m]),
				0, vector(ys[i*n:(i+1)*n]))
		}
	})
	Synchronise()
}

// StridedGemvT computes x[i] = a[i]ᵗ y[i].
func StridedGemvT(batchSize, m, n, aStride int, a, y, x Ptr[float32]) {
	if batchSize == 0 {
		return
	}
	var as = a.slice((batchSize-1)*aStride + m*n)
	var ys = y.slice(batchSize * n)
	var xs = x.slice(batchSize * m)
	launch(batchSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			blas32.Gemv(blas.Trans, 1,
				matrix(as[i*aStride:i*aStride+m*n], m, n),
				vector(ys[i*n:(i+1)*n]),
				0, vector(xs[i*m:(i+1)*m]))
		}
	})
	Synchronise()
}

// StridedGer computes a[i] = y[i] x[i]ᵗ, overwriting each a[i].
func StridedGer(batchSize, m, n, aStride int, y, x, a Ptr[float32]) {
	if batchSize == 0 {
		return
	}
	var as = a.slice((batchSize-1)*aStride + m*n)
	var ys = y.slice(batchSize * n)
	var xs = x.slice(batchSize * m)
	launch(batchSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var ai = as[i*aStride : i*aStride+m*n]
			clear(ai)
			blas32.Ger(1, vector(ys[i*n:(i+1)*n]), vector(xs[i*m:(i+1)*m]), matrix(ai, m, n))
		}
	})
	Synchronise()
}
