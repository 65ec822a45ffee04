package scene

// WeightMatrix is a dense vertex-count × influence-count matrix of skinning
// weights, stored row-major so one vertex's weights are contiguous.
type WeightMatrix struct {
	verts      int
	influences int
	data       []float64
}

// NewWeightMatrix allocates a zeroed verts × influences weight matrix.
func NewWeightMatrix(verts, influences int) *WeightMatrix {
	return &WeightMatrix{
		verts:      verts,
		influences: influences,
		data:       make([]float64, verts*influences),
	}
}

// NewWeightMatrixFrom wraps an existing row-major flat slice.
// The slice is not copied; len(data) must equal verts*influences.
func NewWeightMatrixFrom(verts, influences int, data []float64) *WeightMatrix {
	return &WeightMatrix{verts: verts, influences: influences, data: data}
}

func (w *WeightMatrix) VertexCount() int    { return w.verts }
func (w *WeightMatrix) InfluenceCount() int { return w.influences }

func (w *WeightMatrix) At(vertex, influence int) float64 {
	return w.data[vertex*w.influences+influence]
}

func (w *WeightMatrix) Set(vertex, influence int, value float64) {
	w.data[vertex*w.influences+influence] = value
}

// Row returns the weight row for a vertex as a slice aliasing the matrix
// storage. Mutating the slice mutates the matrix.
func (w *WeightMatrix) Row(vertex int) []float64 {
	off := vertex * w.influences
	return w.data[off : off+w.influences]
}

// SetRow copies values into the vertex's row.
func (w *WeightMatrix) SetRow(vertex int, values []float64) {
	copy(w.Row(vertex), values)
}

// Raw returns the underlying row-major storage.
func (w *WeightMatrix) Raw() []float64 { return w.data }

// Clone returns a deep copy.
func (w *WeightMatrix) Clone() *WeightMatrix {
	data := make([]float64, len(w.data))
	copy(data, w.data)
	return &WeightMatrix{verts: w.verts, influences: w.influences, data: data}
}

// NormalizeRows scales each row to sum to 1. Rows summing to zero are left
// unchanged so the caller can detect and repair them.
func (w *WeightMatrix) NormalizeRows() {
	for v := 0; v < w.verts; v++ {
		row := w.Row(v)
		var sum float64
		for _, x := range row {
			sum += x
		}
		if sum == 0 {
			continue
		}
		inv := 1 / sum
		for i := range row {
			row[i] *= inv
		}
	}
}

// ClampNonNegative clips negative entries to 0.
func (w *WeightMatrix) ClampNonNegative() {
	for i, x := range w.data {
		if x < 0 {
			w.data[i] = 0
		}
	}
}

// Prune zeroes weights below threshold and renormalizes each row.
func (w *WeightMatrix) Prune(threshold float64) {
	for i, x := range w.data {
		if x < threshold {
			w.data[i] = 0
		}
	}
	w.NormalizeRows()
}
