package workload

import (
	mrand "math/rand"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/verify"
)

// MandelbrotIterations is the escape-time iteration limit per pixel.
const MandelbrotIterations = 10000

// mandelbrotEpsilon allows one intensity step of float divergence.
const mandelbrotEpsilon = 1

// Mandelbrot renders a size x size escape-time image as 0-255 intensities.
type Mandelbrot struct{}

func (Mandelbrot) Profile() Profile {
	return Profile{
		Name:            "mandelbrot",
		Description:     "Mandelbrot escape-time rendering",
		Entry:           "mandelbrotTornado",
		GeneratedKernel: "mandelbrot_generated.cl",
		CustomKernel:    "mandelbrot_custom.cl",
		DefaultSize:     Size{X: 1024},
		Warmup:          10,
		Iterations:      30,
		Unit:            "MPixels/s",
		Scale:           1e6,
	}
}

func (w Mandelbrot) Generate(_ *mrand.Rand, size Size) (Instance, error) {
	if err := w.Profile().CheckSize(size); err != nil {
		return nil, err
	}

	return &mandelbrotInstance{size: size.X}, nil
}

type mandelbrotInstance struct {
	size int
}

func (m *mandelbrotInstance) Inputs() []buffer.Buffer { return nil }

func (m *mandelbrotInstance) Operations() float64 {
	return float64(m.size) * float64(m.size)
}

func (m *mandelbrotInstance) Validate(ref, cand buffer.Buffer) (verify.Outcome, error) {
	return verify.Compare(ref, cand, verify.Policy{
		Mode:    verify.Tolerance,
		Epsilon: mandelbrotEpsilon,
		Width:   m.size,
	})
}

func (m *mandelbrotInstance) NewRun() Run {
	size := m.size
	out := make(buffer.Int16, size*size)

	return &simpleRun{
		output:    out,
		reference: func() { MandelbrotReference(out, size) },
		bindings: func() ([]device.Binding, *device.Geometry) {
			return []device.Binding{
				device.Scalar("size", int32(size)),
				device.Buffer("output", out, device.WriteOnly),
			}, geometry(device.Geometry2D(size, size, device.DefaultLocalSize))
		},
	}
}

// MandelbrotReference renders the image on the host.
func MandelbrotReference(out buffer.Int16, size int) {
	space := 2.0 / float32(size)

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			out[i*size+j] = MandelbrotPixel(i, j, space)
		}
	}
}

// MandelbrotPixel computes the intensity of pixel (i, j).
func MandelbrotPixel(i, j int, space float32) int16 {
	var zr, zi, zrN, ziN float32

	cr := float32(j)*space - 1.5
	ci := float32(i)*space - 1.0

	y := 0
	for ii := 0; ii < MandelbrotIterations; ii++ {
		if ziN+zrN > 4.0 {
			break
		}

		zi = 2.0*zr*zi + ci
		zr = zrN - ziN + cr
		ziN = zi * zi
		zrN = zr * zr
		y++
	}

	return int16((y * 255) / MandelbrotIterations)
}
