package workload

import (
	"math"
	mrand "math/rand"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/verify"
)

const (
	// PiEpsilon bounds the accepted difference of the pi estimates.
	PiEpsilon = 1e-3

	piGroupSize = 256
)

// Pi reduces the Leibniz series into a single sum; four times the sum
// estimates pi.
type Pi struct{}

func (Pi) Profile() Profile {
	return Profile{
		Name:            "pi",
		Description:     "Leibniz series reduction",
		Entry:           "computePi",
		GeneratedKernel: "picomputation_generated.cl",
		CustomKernel:    "picomputation_custom.cl",
		DefaultSize:     Size{X: 8192},
		Warmup:          20,
		Iterations:      50,
		Unit:            "MElems/s",
		Scale:           1e6,
	}
}

// Generate allocates an all-zero input; the series terms are computed
// from the index.
func (w Pi) Generate(_ *mrand.Rand, size Size) (Instance, error) {
	if err := w.Profile().CheckSize(size); err != nil {
		return nil, err
	}

	return &piInstance{input: make(buffer.Float32, size.X)}, nil
}

type piInstance struct {
	input buffer.Float32
}

func (p *piInstance) Inputs() []buffer.Buffer {
	return []buffer.Buffer{p.input}
}

func (p *piInstance) Operations() float64 {
	return float64(len(p.input))
}

// Scalar returns the pi estimate held by out.
func (p *piInstance) Scalar(out buffer.Buffer) float64 {
	return float64(out.(buffer.Float32)[0] * 4)
}

func (p *piInstance) Validate(ref, cand buffer.Buffer) (verify.Outcome, error) {
	if ref.Len() != 1 || cand.Len() != 1 {
		return verify.Compare(ref, cand, verify.TolerancePolicy(PiEpsilon))
	}

	return verify.Compare(
		buffer.Float32{float32(p.Scalar(ref))},
		buffer.Float32{float32(p.Scalar(cand))},
		verify.TolerancePolicy(PiEpsilon),
	)
}

func (p *piInstance) NewRun() Run {
	out := make(buffer.Float32, 1)
	n := len(p.input)

	return &simpleRun{
		output:    out,
		reference: func() { PiReference(p.input, out) },
		bindings: func() ([]device.Binding, *device.Geometry) {
			return []device.Binding{
				device.Buffer("input", p.input, device.ReadOnly),
				device.Buffer("result", out, device.ReadWrite),
			}, geometry(device.Geometry1D(n, piGroupSize))
		},
	}
}

// PiReference sums input[i] + (-1)^(i+1)/(2i-1) for i in [1, len(input))
// into out[0].
func PiReference(input, out buffer.Float32) {
	out[0] = 0
	for i := 1; i < len(input); i++ {
		out[0] += input[i] + PiTerm(i)
	}
}

// PiTerm returns the i-th Leibniz term in single precision.
func PiTerm(i int) float32 {
	return float32(math.Pow(-1, float64(i+1)) / float64(2*i-1))
}
