package polymer

import (
	"encoding/binary"
	"math"
)

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// NewMatrix allocates a zeroed rows×cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// At returns the element at row r, column c.
func (m Matrix) At(r, c int) float32 { return m.Data[r*m.Cols+c] }

// Set assigns the element at row r, column c.
func (m Matrix) Set(r, c int, v float32) { m.Data[r*m.Cols+c] = v }

// Nested converts m to [rows][cols].
func (m Matrix) Nested() [][]float32 {
	out := make([][]float32, m.Rows)
	for r := range out {
		out[r] = m.Data[r*m.Cols : (r+1)*m.Cols : (r+1)*m.Cols]
	}
	return out
}

// Bytes returns the little-endian IEEE-754 encoding of m's elements.
func (m Matrix) Bytes() []byte {
	buf := make([]byte, 4*len(m.Data))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// BatchTensor stacks equally shaped matrices along a leading axis.
type BatchTensor struct {
	Items []Matrix
}

// Len returns the batch size.
func (b BatchTensor) Len() int { return len(b.Items) }

// Shape returns (batch, rows, cols); rows and cols are zero for an empty batch.
func (b BatchTensor) Shape() (int, int, int) {
	if len(b.Items) == 0 {
		return 0, 0, 0
	}
	return len(b.Items), b.Items[0].Rows, b.Items[0].Cols
}

// Nested converts b to [batch][rows][cols], the TensorFlow Serving instance
// layout.
func (b BatchTensor) Nested() [][][]float32 {
	out := make([][][]float32, len(b.Items))
	for i, m := range b.Items {
		out[i] = m.Nested()
	}
	return out
}

// Subset returns a batch holding the items at idx, in that order.
func (b BatchTensor) Subset(idx []int) BatchTensor {
	items := make([]Matrix, len(idx))
	for i, j := range idx {
		items[i] = b.Items[j]
	}
	return BatchTensor{Items: items}
}
