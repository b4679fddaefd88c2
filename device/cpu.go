package device

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/weiihann/kernbench/buffer"
)

// CPUExecutor runs kernel ports on the host. Each plan owns device-side
// shadow copies of its buffers, so the access modes behave as they would
// across a host/device boundary.
type CPUExecutor struct {
	Registry *Registry
	Workers  int
	Logger   *slog.Logger
}

// NewCPUExecutor creates a CPUExecutor that uses one worker per CPU.
func NewCPUExecutor(registry *Registry, logger *slog.Logger) *CPUExecutor {
	return &CPUExecutor{
		Registry: registry,
		Workers:  runtime.NumCPU(),
		Logger:   logger.With(slog.String("device", "cpu")),
	}
}

type staged struct {
	host   buffer.Buffer
	shadow buffer.Buffer
	access Access
}

type cpuPlan struct {
	kernel  Kernel
	port    Port
	geom    Geometry
	workers int
	args    Args
	staged  []staged

	mu       sync.Mutex
	released bool
}

// BuildPlan implements Executor.
func (e *CPUExecutor) BuildPlan(
	ctx context.Context,
	k Kernel,
	bindings []Binding,
	geom *Geometry,
) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("build", k, err)
	}

	port, src, err := e.Registry.Resolve(k)
	if err != nil {
		return nil, newError("build", k, err)
	}

	if err := checkBindings(port, bindings); err != nil {
		return nil, newError("build", k, err)
	}

	g, err := resolveGeometry(bindings, geom)
	if err != nil {
		return nil, newError("build", k, err)
	}

	plan := &cpuPlan{
		kernel:  k,
		port:    port,
		geom:    g,
		workers: e.Workers,
		args:    make(Args, len(bindings)),
	}

	if plan.workers < 1 {
		plan.workers = 1
	}

	for i, b := range bindings {
		host, ok := b.Value.(buffer.Buffer)
		if !ok {
			plan.args[i] = b.Value
			continue
		}

		shadow, err := buffer.New(host.Kind(), host.Len())
		if err != nil {
			return nil, newError("build", k, err)
		}

		plan.args[i] = shadow
		plan.staged = append(plan.staged, staged{
			host:   host,
			shadow: shadow,
			access: b.Access,
		})
	}

	e.Logger.DebugContext(ctx, "plan built",
		slog.String("entry", k.Entry),
		slog.String("path", k.Path),
		slog.String("variant", src.Variant),
		slog.String("geometry", g.String()),
		slog.Int("bindings", len(bindings)),
	)

	return plan, nil
}

func checkBindings(port Port, bindings []Binding) error {
	if len(bindings) != len(port.Params) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrBindingMismatch, port.Entry, len(port.Params), len(bindings))
	}

	for i, b := range bindings {
		p := port.Params[i]

		if p.Scalar {
			if b.Access != AccessNone {
				return fmt.Errorf("%w: scalar %q bound %s",
					ErrBindingMismatch, b.Name, b.Access)
			}

			if !scalarMatches(b.Value, p.Kind) {
				return fmt.Errorf("%w: argument %d (%s) wants %s scalar, got %T",
					ErrBindingMismatch, i, p.Name, p.Kind, b.Value)
			}

			continue
		}

		buf, ok := b.Value.(buffer.Buffer)
		if !ok || buf.Kind() != p.Kind {
			return fmt.Errorf("%w: argument %d (%s) wants %s buffer, got %T",
				ErrBindingMismatch, i, p.Name, p.Kind, b.Value)
		}

		if b.Access == AccessNone {
			return fmt.Errorf("%w: buffer %q bound %s",
				ErrBindingMismatch, b.Name, b.Access)
		}
	}

	return nil
}

func scalarMatches(v any, kind buffer.Kind) bool {
	switch v.(type) {
	case int32:
		return kind == buffer.KindInt32
	case float32:
		return kind == buffer.KindFloat32
	default:
		return false
	}
}

// resolveGeometry returns geom, or a 1-D geometry over the first buffer
// the kernel writes when geom is nil.
func resolveGeometry(bindings []Binding, geom *Geometry) (Geometry, error) {
	if geom != nil {
		return *geom, geom.Validate()
	}

	for _, b := range bindings {
		if buf, ok := b.Value.(buffer.Buffer); ok && b.Access.copiesOut() {
			g := Geometry1D(buf.Len(), DefaultLocalSize)
			return g, g.Validate()
		}
	}

	return Geometry{}, fmt.Errorf("%w: no geometry and no writable buffer to derive one",
		ErrInvalidGeometry)
}

// Execute implements Plan.
func (p *cpuPlan) Execute() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return newError("execute", p.kernel, ErrReleased)
	}

	for _, s := range p.staged {
		if s.access.copiesIn() {
			if err := s.shadow.CopyFrom(s.host); err != nil {
				return newError("execute", p.kernel, err)
			}
		}
	}

	p.launch()

	for _, s := range p.staged {
		if s.access.copiesOut() {
			if err := s.host.CopyFrom(s.shadow); err != nil {
				return newError("execute", p.kernel, err)
			}
		}
	}

	return nil
}

// launch spreads the work-groups over the workers and waits for all of
// them. Work-items of one group run in order on a single worker.
func (p *cpuPlan) launch() {
	groupsDim := p.geom.Groups()
	numGroups := groupsDim.Size()

	numWorkers := p.workers
	if numGroups < numWorkers {
		numWorkers = numGroups
	}

	groupsPerWorker := (numGroups + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		start := w * groupsPerWorker
		end := min(start+groupsPerWorker, numGroups)

		go func() {
			defer wg.Done()

			for gid := start; gid < end; gid++ {
				p.runGroup(linearTo3D(gid, groupsDim), groupsDim)
			}
		}()
	}

	wg.Wait()
}

func (p *cpuPlan) runGroup(idx, groupsDim Dim3) {
	local := p.geom.Local

	if p.port.Group != nil {
		p.port.Group(Group{Idx: idx, LocalDim: local, GroupsDim: groupsDim}, p.args)
		return
	}

	items := local.Size()
	for item := 0; item < items; item++ {
		p.port.Thread(ThreadID{
			GroupIdx:  idx,
			LocalIdx:  linearTo3D(item, local),
			LocalDim:  local,
			GroupsDim: groupsDim,
		}, p.args)
	}
}

// Release implements Plan.
func (p *cpuPlan) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released = true
	p.staged = nil
	p.args = nil

	return nil
}
