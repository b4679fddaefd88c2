package workload

import (
	mrand "math/rand"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/verify"
)

const (
	matvecEpsilon = 1e-4

	// MatVecRowGroupSize is the work-group size of the row-per-group
	// matrix-vector kernel.
	MatVecRowGroupSize = 128
)

// MatVec multiplies a square matrix by a vector, one row per work-item.
type MatVec struct{}

func (MatVec) Profile() Profile {
	return Profile{
		Name:            "matvec",
		Description:     "square matrix-vector product",
		Entry:           "computeMatrixVector",
		GeneratedKernel: "matrixvector_generated.cl",
		CustomKernel:    "matrixvector_custom.cl",
		DefaultSize:     Size{X: 2048},
		Warmup:          30,
		Iterations:      60,
		Unit:            "GFLOP/s",
		Scale:           1e9,
	}
}

func (w MatVec) Generate(rng *mrand.Rand, size Size) (Instance, error) {
	if err := w.Profile().CheckSize(size); err != nil {
		return nil, err
	}

	n := size.X
	m := &matvecInstance{
		n:      n,
		matrix: make(buffer.Float32, n*n),
		vector: make(buffer.Float32, n),
	}

	fillUniform(rng, m.matrix, -1, 1)
	fillUniform(rng, m.vector, -1, 1)

	return m, nil
}

type matvecInstance struct {
	n      int
	matrix buffer.Float32
	vector buffer.Float32
}

func (m *matvecInstance) Inputs() []buffer.Buffer {
	return []buffer.Buffer{m.matrix, m.vector}
}

func (m *matvecInstance) Operations() float64 {
	n := float64(m.n)
	return 2 * n * n
}

func (m *matvecInstance) Validate(ref, cand buffer.Buffer) (verify.Outcome, error) {
	return verify.Compare(ref, cand, verify.TolerancePolicy(matvecEpsilon))
}

func (m *matvecInstance) NewRun() Run {
	out := make(buffer.Float32, m.n)

	return &simpleRun{
		output:    out,
		reference: func() { MatVecReference(m.matrix, m.vector, out, m.n, m.n) },
		bindings: func() ([]device.Binding, *device.Geometry) {
			// The kernel derives its size from the vector, and the
			// executor derives the geometry from the output.
			return []device.Binding{
				device.Buffer("matrix", m.matrix, device.ReadOnly),
				device.Buffer("vector", m.vector, device.ReadOnly),
				device.Buffer("result", out, device.WriteOnly),
			}, nil
		},
	}
}

// MatVecReference computes out = matrix * vector for a rows x cols
// row-major matrix.
func MatVecReference(matrix, vector, out buffer.Float32, rows, cols int) {
	for row := 0; row < rows; row++ {
		var sum float32
		for col := 0; col < cols; col++ {
			sum += matrix[row*cols+col] * vector[col]
		}
		out[row] = sum
	}
}

// MatVecRow multiplies an input vector by a row-major weight matrix with
// one work-group per output row. Size.X is the input dimension, Size.Y
// the output dimension.
type MatVecRow struct{}

func (MatVecRow) Profile() Profile {
	return Profile{
		Name:            "matvecrow",
		Description:     "row-major matrix-vector product, one work-group per row",
		Entry:           "matrixVectorGeneric",
		GeneratedKernel: "matrixvectorrow_generated.cl",
		CustomKernel:    "matrixvectorrow_custom.cl",
		DefaultSize:     Size{X: 8192, Y: 2048},
		Rectangular:     true,
		Warmup:          60,
		Iterations:      120,
		Unit:            "GFLOP/s",
		Scale:           1e9,
	}
}

func (w MatVecRow) Generate(rng *mrand.Rand, size Size) (Instance, error) {
	if err := w.Profile().CheckSize(size); err != nil {
		return nil, err
	}

	m := &matvecRowInstance{
		in:      size.X,
		out:     size.Y,
		input:   make(buffer.Float32, size.X),
		weights: make(buffer.Float32, size.X*size.Y),
	}

	fillUniform(rng, m.input, -1, 1)
	fillUniform(rng, m.weights, -0.1, 0.1)

	return m, nil
}

type matvecRowInstance struct {
	in, out int
	input   buffer.Float32
	weights buffer.Float32
}

func (m *matvecRowInstance) Inputs() []buffer.Buffer {
	return []buffer.Buffer{m.input, m.weights}
}

func (m *matvecRowInstance) Operations() float64 {
	return 2 * float64(m.in) * float64(m.out)
}

func (m *matvecRowInstance) Validate(ref, cand buffer.Buffer) (verify.Outcome, error) {
	return verify.Compare(ref, cand, verify.TolerancePolicy(matvecEpsilon))
}

func (m *matvecRowInstance) NewRun() Run {
	out := make(buffer.Float32, m.out)

	return &simpleRun{
		output:    out,
		reference: func() { MatVecReference(m.weights, m.input, out, m.out, m.in) },
		bindings: func() ([]device.Binding, *device.Geometry) {
			geom, _ := device.FixedGeometry1D(m.out*MatVecRowGroupSize, MatVecRowGroupSize)

			return []device.Binding{
				device.Buffer("input", m.input, device.ReadOnly),
				device.Buffer("output", out, device.WriteOnly),
				device.Buffer("weights", m.weights, device.ReadOnly),
				device.Scalar("inputDim", int32(m.in)),
				device.Scalar("outputDim", int32(m.out)),
				device.Scalar("localWorkGroupSize", int32(MatVecRowGroupSize)),
			}, &geom
		},
	}
}
