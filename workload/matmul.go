package workload

import (
	mrand "math/rand"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/verify"
)

const matmulEpsilon = 1e-3

// MatMul1D multiplies two square matrices stored as flat row-major
// arrays.
type MatMul1D struct{}

func (MatMul1D) Profile() Profile {
	return Profile{
		Name:            "matmul1d",
		Description:     "square matrix multiplication over flat arrays",
		Entry:           "matrixMultiplication",
		GeneratedKernel: "matrixmultiplication1d_generated.cl",
		CustomKernel:    "matrixmultiplication1d_custom.cl",
		DefaultSize:     Size{X: 512},
		Warmup:          30,
		Iterations:      60,
		Unit:            "GFLOP/s",
		Scale:           1e9,
	}
}

func (w MatMul1D) Generate(rng *mrand.Rand, size Size) (Instance, error) {
	if err := w.Profile().CheckSize(size); err != nil {
		return nil, err
	}

	return newMatmul(rng, size.X, MatMulReference), nil
}

// MatMul2D multiplies two square matrices addressed by row and column.
type MatMul2D struct{}

func (MatMul2D) Profile() Profile {
	return Profile{
		Name:            "matmul2d",
		Description:     "square matrix multiplication over 2-D matrices",
		Entry:           "matrixMultiplication",
		GeneratedKernel: "matrixMultiplication2d_generated.cl",
		CustomKernel:    "matrixMultiplication2d_custom.cl",
		DefaultSize:     Size{X: 512},
		Warmup:          30,
		Iterations:      60,
		Unit:            "GFLOP/s",
		Scale:           1e9,
	}
}

func (w MatMul2D) Generate(rng *mrand.Rand, size Size) (Instance, error) {
	if err := w.Profile().CheckSize(size); err != nil {
		return nil, err
	}

	return newMatmul(rng, size.X, matMulReference2D), nil
}

type matmulInstance struct {
	n         int
	a, b      buffer.Float32
	reference func(a, b, out buffer.Float32, n int)
}

func newMatmul(rng *mrand.Rand, n int, ref func(a, b, out buffer.Float32, n int)) *matmulInstance {
	m := &matmulInstance{
		n:         n,
		a:         make(buffer.Float32, n*n),
		b:         make(buffer.Float32, n*n),
		reference: ref,
	}

	fillUniform(rng, m.a, -1, 1)
	fillUniform(rng, m.b, -1, 1)

	return m
}

func (m *matmulInstance) Inputs() []buffer.Buffer {
	return []buffer.Buffer{m.a, m.b}
}

func (m *matmulInstance) Operations() float64 {
	n := float64(m.n)
	return 2 * n * n * n
}

func (m *matmulInstance) Validate(ref, cand buffer.Buffer) (verify.Outcome, error) {
	return verify.Compare(ref, cand, verify.Policy{
		Mode:    verify.Tolerance,
		Epsilon: matmulEpsilon,
		Width:   m.n,
	})
}

func (m *matmulInstance) NewRun() Run {
	n := m.n
	out := make(buffer.Float32, n*n)

	return &simpleRun{
		output:    out,
		reference: func() { m.reference(m.a, m.b, out, n) },
		bindings: func() ([]device.Binding, *device.Geometry) {
			return []device.Binding{
				device.Buffer("a", m.a, device.ReadOnly),
				device.Buffer("b", m.b, device.ReadOnly),
				device.Buffer("c", out, device.WriteOnly),
				device.Scalar("size", int32(n)),
			}, geometry(device.Geometry2D(n, n, device.DefaultLocalSize))
		},
	}
}

// MatMulReference computes out = a * b for n x n row-major matrices by
// triple-nested summation.
func MatMulReference(a, b, out buffer.Float32, n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for k := 0; k < n; k++ {
				sum += a[i*n+k] * b[k*n+j]
			}
			out[i*n+j] = sum
		}
	}
}

// matrix2D addresses a flat buffer by row and column.
type matrix2D struct {
	data buffer.Float32
	cols int
}

func (m matrix2D) get(row, col int) float32     { return m.data[row*m.cols+col] }
func (m matrix2D) set(row, col int, v float32) { m.data[row*m.cols+col] = v }

func matMulReference2D(a, b, out buffer.Float32, n int) {
	ma, mb, mc := matrix2D{a, n}, matrix2D{b, n}, matrix2D{out, n}

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			var sum float32
			for k := 0; k < n; k++ {
				sum += ma.get(row, k) * mb.get(k, col)
			}
			mc.set(row, col, sum)
		}
	}
}
