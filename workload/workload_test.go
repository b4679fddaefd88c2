package workload

import (
	"errors"
	"math"
	"testing"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
)

// smallSize returns a size every workload can run quickly in tests.
func smallSize(p Profile) Size {
	if p.Rectangular {
		return Size{X: 48, Y: 16}
	}

	return Size{X: 32}
}

func TestGenerateDeterministic(t *testing.T) {
	for _, w := range All() {
		p := w.Profile()
		t.Run(p.Name, func(t *testing.T) {
			size := smallSize(p)

			first, err := w.Generate(NewRand(DefaultSeed), size)
			if err != nil {
				t.Fatalf("first generation failed: %v", err)
			}

			second, err := w.Generate(NewRand(DefaultSeed), size)
			if err != nil {
				t.Fatalf("second generation failed: %v", err)
			}

			a, b := first.Inputs(), second.Inputs()
			if len(a) != len(b) {
				t.Fatalf("input count differs: %d vs %d", len(a), len(b))
			}

			for i := range a {
				if !buffer.Equal(a[i], b[i]) {
					t.Errorf("input %d differs for the same seed", i)
				}
			}
		})
	}
}

func TestGenerateSeedChangesInputs(t *testing.T) {
	w := MatMul1D{}

	a, err := w.Generate(NewRand(1), Size{X: 8})
	if err != nil {
		t.Fatal(err)
	}

	b, err := w.Generate(NewRand(2), Size{X: 8})
	if err != nil {
		t.Fatal(err)
	}

	if buffer.Equal(a.Inputs()[0], b.Inputs()[0]) {
		t.Error("different seeds produced identical inputs")
	}
}

func TestReferenceStable(t *testing.T) {
	for _, w := range All() {
		p := w.Profile()
		t.Run(p.Name, func(t *testing.T) {
			inst, err := w.Generate(NewRand(DefaultSeed), smallSize(p))
			if err != nil {
				t.Fatalf("generate: %v", err)
			}

			first := inst.NewRun()
			first.Reset()
			c1 := first.Reference()

			second := inst.NewRun()
			second.Reset()
			c2 := second.Reference()

			if !buffer.Equal(first.Output(), second.Output()) {
				t.Error("reference output differs between runs")
			}

			if c1 != c2 {
				t.Errorf("convergence differs: %+v vs %+v", c1, c2)
			}

			// A reset run must reproduce the output again.
			first.Reset()
			first.Reference()

			if !buffer.Equal(first.Output(), second.Output()) {
				t.Error("reference output differs after reset")
			}
		})
	}
}

func TestReferenceValidatesAgainstItself(t *testing.T) {
	for _, w := range All() {
		p := w.Profile()
		t.Run(p.Name, func(t *testing.T) {
			inst, err := w.Generate(NewRand(DefaultSeed), smallSize(p))
			if err != nil {
				t.Fatalf("generate: %v", err)
			}

			run := inst.NewRun()
			run.Reset()
			run.Reference()

			out, err := inst.Validate(run.Output(), run.Output().Clone())
			if err != nil {
				t.Fatalf("validate: %v", err)
			}

			if !out.Valid {
				t.Errorf("reference does not validate against itself: %s", out)
			}
		})
	}
}

func TestGenerateRejectsBadSizes(t *testing.T) {
	tests := []struct {
		name string
		w    Workload
		size Size
	}{
		{"zero", BFS{}, Size{}},
		{"negative", Pi{}, Size{X: -4}},
		{"square given two dims", MatMul1D{}, Size{X: 4, Y: 4}},
		{"rectangular given one dim", MatVecRow{}, Size{X: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.w.Generate(NewRand(DefaultSeed), tt.size); err == nil {
				t.Errorf("expected error for size %s", tt.size)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{"1024", Size{X: 1024}, false},
		{"8192,2048", Size{X: 8192, Y: 2048}, false},
		{"64x32", Size{X: 64, Y: 32}, false},
		{" 16 , 8 ", Size{X: 16, Y: 8}, false},
		{"", Size{}, true},
		{"0", Size{}, true},
		{"-3", Size{}, true},
		{"1,2,3", Size{}, true},
		{"abc", Size{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("ParseSize(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSizeString(t *testing.T) {
	if got := (Size{X: 512}).String(); got != "512" {
		t.Errorf("String() = %q, want 512", got)
	}

	if got := (Size{X: 8192, Y: 2048}).String(); got != "8192x2048" {
		t.Errorf("String() = %q, want 8192x2048", got)
	}
}

func TestLookup(t *testing.T) {
	w, err := Lookup("bfs")
	if err != nil {
		t.Fatalf("Lookup(bfs): %v", err)
	}

	if w.Profile().Entry != "runBFS" {
		t.Errorf("entry = %q, want runBFS", w.Profile().Entry)
	}

	if _, err := Lookup("fft"); err == nil {
		t.Error("expected error for unknown workload")
	}
}

func TestAllSortedAndUnique(t *testing.T) {
	all := All()
	if len(all) != 7 {
		t.Fatalf("len(All()) = %d, want 7", len(all))
	}

	for i := 1; i < len(all); i++ {
		if all[i-1].Profile().Name >= all[i].Profile().Name {
			t.Errorf("workloads not sorted: %s before %s",
				all[i-1].Profile().Name, all[i].Profile().Name)
		}
	}
}

func TestConverge(t *testing.T) {
	t.Run("stops without change", func(t *testing.T) {
		c, err := Converge(50, func(iter int) (bool, error) {
			return iter < 3, nil
		})
		if err != nil {
			t.Fatal(err)
		}

		if c.Iterations != 4 || !c.Converged {
			t.Errorf("got %+v, want 4 converged iterations", c)
		}
	})

	t.Run("hits cap", func(t *testing.T) {
		calls := 0
		c, err := Converge(5, func(int) (bool, error) {
			calls++
			return true, nil
		})
		if err != nil {
			t.Fatal(err)
		}

		if calls != 5 || c.Iterations != 5 || c.Converged {
			t.Errorf("got %+v after %d calls, want 5 unconverged", c, calls)
		}
	})

	t.Run("propagates error", func(t *testing.T) {
		boom := errors.New("boom")
		c, err := Converge(5, func(iter int) (bool, error) {
			if iter == 2 {
				return false, boom
			}
			return true, nil
		})

		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}

		if c.Converged || c.Iterations != 3 {
			t.Errorf("got %+v, want 3 unconverged", c)
		}
	})
}

func chainGraph(n int) *bfsInstance {
	adj := make(buffer.Int32, n*n)
	for i := 0; i+1 < n; i++ {
		adj[i*n+i+1] = 1
	}

	return &bfsInstance{n: n, adjacency: adj}
}

func TestBFSChainHitsCap(t *testing.T) {
	inst := chainGraph(60)
	run := inst.NewRun()
	run.Reset()

	c := run.Reference()
	if c.Converged {
		t.Error("chain of 60 should not converge within the cap")
	}

	if c.Iterations != BFSMaxIterations {
		t.Errorf("iterations = %d, want %d", c.Iterations, BFSMaxIterations)
	}

	depths := run.Output().(buffer.Int32)
	if depths[50] != 50 {
		t.Errorf("depth[50] = %d, want 50", depths[50])
	}

	if depths[51] != -1 {
		t.Errorf("depth[51] = %d, want unreached", depths[51])
	}
}

func TestBFSChainConverges(t *testing.T) {
	inst := chainGraph(10)
	run := inst.NewRun()
	run.Reset()

	c := run.Reference()
	if !c.Converged || c.Iterations != 10 {
		t.Errorf("got %+v, want 10 converged iterations", c)
	}

	depths := run.Output().(buffer.Int32)
	for i, d := range depths {
		if int(d) != i {
			t.Errorf("depth[%d] = %d, want %d", i, d, i)
		}
	}
}

func TestBFSDisconnectedTerminates(t *testing.T) {
	inst := &bfsInstance{n: 8, adjacency: make(buffer.Int32, 64)}
	run := inst.NewRun()
	run.Reset()

	c := run.Reference()
	if !c.Converged || c.Iterations != 1 {
		t.Errorf("got %+v, want a single converged sweep", c)
	}

	depths := run.Output().(buffer.Int32)
	if depths[0] != 0 {
		t.Errorf("root depth = %d, want 0", depths[0])
	}

	for i := 1; i < len(depths); i++ {
		if depths[i] != -1 {
			t.Errorf("depth[%d] = %d, want unreached", i, depths[i])
		}
	}
}

func TestBFSGraphShape(t *testing.T) {
	inst, err := BFS{}.Generate(NewRand(DefaultSeed), Size{X: 100})
	if err != nil {
		t.Fatal(err)
	}

	adj := inst.Inputs()[0].(buffer.Int32)
	n := 100

	rootEdges := 0
	for i := 0; i < n; i++ {
		if adj[i*n+i] != 0 {
			t.Errorf("self loop at %d", i)
		}

		for j := 0; j < n; j++ {
			if v := adj[i*n+j]; v != 0 && v != 1 {
				t.Fatalf("adj[%d][%d] = %d, want 0 or 1", i, j, v)
			}
		}

		rootEdges += int(adj[i])
	}

	if rootEdges == 0 {
		t.Error("root has no outgoing edges")
	}
}

// sweepPlan executes the host sweep in place of a device dispatch.
type sweepPlan struct {
	run      *bfsRun
	executed int
}

func (p *sweepPlan) Execute() error {
	p.executed++
	p.run.sweep()
	return nil
}

func (p *sweepPlan) Release() error { return nil }

func TestBFSDeviceLoopMatchesReference(t *testing.T) {
	inst, err := BFS{}.Generate(NewRand(DefaultSeed), Size{X: 200})
	if err != nil {
		t.Fatal(err)
	}

	ref := inst.NewRun()
	ref.Reset()
	refConv := ref.Reference()

	dev := inst.NewRun().(*bfsRun)
	dev.Reset()
	plan := &sweepPlan{run: dev}

	devConv, err := dev.Device(plan)
	if err != nil {
		t.Fatalf("device: %v", err)
	}

	if devConv != refConv {
		t.Errorf("device convergence %+v, reference %+v", devConv, refConv)
	}

	if plan.executed != devConv.Iterations {
		t.Errorf("executed %d sweeps, reported %d", plan.executed, devConv.Iterations)
	}

	out, err := inst.Validate(ref.Output(), dev.Output())
	if err != nil {
		t.Fatal(err)
	}

	if !out.Valid {
		t.Errorf("device output invalid: %s", out)
	}
}

type failingPlan struct{}

func (failingPlan) Execute() error { return errors.New("dispatch failed") }
func (failingPlan) Release() error { return nil }

func TestSimpleRunDeviceError(t *testing.T) {
	inst, err := Pi{}.Generate(NewRand(DefaultSeed), Size{X: 16})
	if err != nil {
		t.Fatal(err)
	}

	run := inst.NewRun()
	run.Reset()

	c, err := run.Device(failingPlan{})
	if err == nil {
		t.Fatal("expected execution error")
	}

	if c.Converged {
		t.Error("failed execution reported as converged")
	}
}

func TestMatMulReferenceKnownProduct(t *testing.T) {
	a := buffer.Float32{1, 2, 3, 4}
	b := buffer.Float32{5, 6, 7, 8}
	want := buffer.Float32{19, 22, 43, 50}

	out := make(buffer.Float32, 4)
	MatMulReference(a, b, out, 2)

	if !buffer.Equal(out, want) {
		t.Errorf("flat product = %v, want %v", out, want)
	}

	out.Fill(0)
	matMulReference2D(a, b, out, 2)

	if !buffer.Equal(out, want) {
		t.Errorf("row/col product = %v, want %v", out, want)
	}
}

func TestMatVecReference(t *testing.T) {
	// 2 x 3 matrix times a 3-vector.
	matrix := buffer.Float32{1, 2, 3, 4, 5, 6}
	vector := buffer.Float32{1, 0, -1}
	out := make(buffer.Float32, 2)

	MatVecReference(matrix, vector, out, 2, 3)

	want := buffer.Float32{-2, -2}
	if !buffer.Equal(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestMatVecRowBindings(t *testing.T) {
	inst, err := MatVecRow{}.Generate(NewRand(DefaultSeed), Size{X: 64, Y: 8})
	if err != nil {
		t.Fatal(err)
	}

	bindings, geom := inst.NewRun().Bindings()
	if geom == nil {
		t.Fatal("expected a fixed geometry")
	}

	if geom.Global.X != 8*MatVecRowGroupSize || geom.Local.X != MatVecRowGroupSize {
		t.Errorf("geometry = %s, want one group of %d per row", geom, MatVecRowGroupSize)
	}

	if len(bindings) != 6 {
		t.Fatalf("got %d bindings, want 6", len(bindings))
	}

	if bindings[1].Access != device.WriteOnly {
		t.Errorf("output access = %s, want WRITE_ONLY", bindings[1].Access)
	}
}

func TestPiEstimate(t *testing.T) {
	inst, err := Pi{}.Generate(NewRand(DefaultSeed), Size{X: 8192})
	if err != nil {
		t.Fatal(err)
	}

	run := inst.NewRun()
	run.Reset()
	run.Reference()

	got := inst.(Scalar).Scalar(run.Output())
	if math.Abs(got-math.Pi) > 0.001 {
		t.Errorf("pi estimate = %v, want within 0.001 of %v", got, math.Pi)
	}
}

func TestPiValidateScalesResult(t *testing.T) {
	inst, err := Pi{}.Generate(NewRand(DefaultSeed), Size{X: 16})
	if err != nil {
		t.Fatal(err)
	}

	// 0.0002 apart as raw sums, 0.0008 apart as pi estimates.
	out, err := inst.Validate(buffer.Float32{0.7854}, buffer.Float32{0.7856})
	if err != nil {
		t.Fatal(err)
	}

	if !out.Valid {
		t.Errorf("estimates within tolerance rejected: %s", out)
	}

	// 0.0003 apart as raw sums, 0.0012 apart as pi estimates.
	out, err = inst.Validate(buffer.Float32{0.7854}, buffer.Float32{0.7857})
	if err != nil {
		t.Fatal(err)
	}

	if out.Valid {
		t.Error("estimates outside tolerance accepted")
	}
}

func TestMandelbrotPixel(t *testing.T) {
	// The first pixel maps to c = -1.5 - 1.0i, which escapes after a
	// couple of steps.
	if got := MandelbrotPixel(0, 0, 2.0/16); got != 0 {
		t.Errorf("corner pixel = %d, want 0", got)
	}

	// Pixel (8, 12) of a 16 x 16 image maps to c = 0, inside the set.
	if got := MandelbrotPixel(8, 12, 2.0/16); got != 255 {
		t.Errorf("origin pixel = %d, want 255", got)
	}
}
