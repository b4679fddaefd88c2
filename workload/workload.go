// Package workload defines the benchmark workloads: how each one generates
// its inputs from a seeded source, computes its reference output on the
// host, binds its buffers for a device plan and validates a candidate.
package workload

import (
	"fmt"
	mrand "math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/verify"
)

// DefaultSeed is the seed used when none is configured.
const DefaultSeed = 42

// NewRand returns the seeded source a run hands to Generate.
func NewRand(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// Size is the problem size. Y is zero for square or linear workloads.
type Size struct {
	X int `json:"x"`
	Y int `json:"y,omitempty"`
}

func (s Size) String() string {
	if s.Y == 0 {
		return strconv.Itoa(s.X)
	}

	return fmt.Sprintf("%dx%d", s.X, s.Y)
}

// ParseSize accepts "N", "X,Y" or "XxY".
func ParseSize(v string) (Size, error) {
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == 'x'
	})

	if len(parts) == 0 || len(parts) > 2 {
		return Size{}, fmt.Errorf("invalid size %q", v)
	}

	var dims [2]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Size{}, fmt.Errorf("invalid size %q: %w", v, err)
		}
		if n <= 0 {
			return Size{}, fmt.Errorf("invalid size %q: dimensions must be positive", v)
		}
		dims[i] = n
	}

	return Size{X: dims[0], Y: dims[1]}, nil
}

// Profile holds the static description and defaults of a workload.
type Profile struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Entry           string `json:"entry"`
	GeneratedKernel string `json:"generated_kernel"`
	CustomKernel    string `json:"custom_kernel"`
	DefaultSize     Size   `json:"default_size"`
	Rectangular     bool   `json:"rectangular"`
	Warmup          int    `json:"warmup"`
	Iterations      int    `json:"iterations"`
	// Unit names the throughput metric; Scale divides Operations into it.
	Unit  string  `json:"unit"`
	Scale float64 `json:"-"`
}

// CheckSize rejects sizes the workload cannot run.
func (p Profile) CheckSize(s Size) error {
	if s.X <= 0 {
		return fmt.Errorf("%s: size must be positive, got %s", p.Name, s)
	}

	if p.Rectangular && s.Y <= 0 {
		return fmt.Errorf("%s: size needs two dimensions, got %s", p.Name, s)
	}

	if !p.Rectangular && s.Y != 0 {
		return fmt.Errorf("%s: size takes one dimension, got %s", p.Name, s)
	}

	return nil
}

// Workload is one benchmarkable computation.
type Workload interface {
	Profile() Profile
	// Generate fills the inputs for size from rng. The same seed and
	// size always produce identical inputs.
	Generate(rng *mrand.Rand, size Size) (Instance, error)
}

// Instance is a workload with generated inputs.
type Instance interface {
	// Inputs returns the generated input buffers.
	Inputs() []buffer.Buffer
	// NewRun allocates the mutable state of one executor: its output
	// buffer and any scratch buffers the computation drives.
	NewRun() Run
	// Operations is the fixed work of one full execution, in units of
	// Profile.Unit times Profile.Scale.
	Operations() float64
	// Validate compares a candidate output against the reference output.
	Validate(ref, cand buffer.Buffer) (verify.Outcome, error)
}

// Scalar is implemented by instances whose output reduces to one number
// worth reporting.
type Scalar interface {
	Scalar(out buffer.Buffer) float64
}

// Run is the per-executor state of an instance.
type Run interface {
	// Reset restores the initial conditions shared by every executor.
	Reset()
	// Reference computes the output on the host.
	Reference() Convergence
	// Bindings returns the device bindings over this run's buffers and
	// the launch geometry; a nil geometry lets the executor choose.
	Bindings() ([]device.Binding, *device.Geometry)
	// Device computes the output with plan, which must have been built
	// from Bindings.
	Device(plan device.Plan) (Convergence, error)
	// Output returns the output buffer.
	Output() buffer.Buffer
}

// Convergence reports how an execution ended. Single-pass workloads
// always report one converged iteration.
type Convergence struct {
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

var once = Convergence{Iterations: 1, Converged: true}

// Converge runs step for iterations 0, 1, ... until it reports no change
// or limit iterations ran. Reaching the limit while still changing is
// reported as not converged.
func Converge(limit int, step func(iter int) (changed bool, err error)) (Convergence, error) {
	for iter := 0; iter < limit; iter++ {
		changed, err := step(iter)
		if err != nil {
			return Convergence{Iterations: iter + 1}, err
		}

		if !changed {
			return Convergence{Iterations: iter + 1, Converged: true}, nil
		}
	}

	return Convergence{Iterations: limit}, nil
}

// All returns every workload ordered by name.
func All() []Workload {
	all := []Workload{
		BFS{},
		Mandelbrot{},
		MatMul1D{},
		MatMul2D{},
		MatVec{},
		MatVecRow{},
		Pi{},
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Profile().Name < all[j].Profile().Name
	})

	return all
}

// Lookup returns the workload with the given name.
func Lookup(name string) (Workload, error) {
	for _, w := range All() {
		if w.Profile().Name == name {
			return w, nil
		}
	}

	names := make([]string, 0, 7)
	for _, w := range All() {
		names = append(names, w.Profile().Name)
	}

	return nil, fmt.Errorf("unknown workload %q (known: %s)", name, strings.Join(names, ", "))
}

// simpleRun is the Run of a single-pass workload.
type simpleRun struct {
	output    buffer.Buffer
	reset     func()
	reference func()
	bindings  func() ([]device.Binding, *device.Geometry)
}

func (r *simpleRun) Reset() {
	if r.reset != nil {
		r.reset()
		return
	}

	r.output.Fill(0)
}

func (r *simpleRun) Reference() Convergence {
	r.reference()
	return once
}

func (r *simpleRun) Bindings() ([]device.Binding, *device.Geometry) {
	return r.bindings()
}

func (r *simpleRun) Device(plan device.Plan) (Convergence, error) {
	if err := plan.Execute(); err != nil {
		return Convergence{Iterations: 1}, err
	}

	return once, nil
}

func (r *simpleRun) Output() buffer.Buffer {
	return r.output
}

func fillUniform(rng *mrand.Rand, b buffer.Float32, lo, hi float32) {
	span := hi - lo
	for i := range b {
		b[i] = lo + rng.Float32()*span
	}
}

func geometry(g device.Geometry) *device.Geometry {
	return &g
}
