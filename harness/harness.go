// Package harness drives a benchmark run: it generates the workload,
// times the host reference and each device kernel, and validates the
// kernel outputs against the reference.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/workload"
)

// RunConfig holds parameters for a single harness execution.
type RunConfig struct {
	Workload  workload.Workload
	Size      workload.Size
	Seed      int64
	Phase     Phase
	Generated device.Kernel
	Custom    device.Kernel
}

// Validate reports the first configuration problem as a KindConfig error.
func (c RunConfig) Validate() error {
	if c.Workload == nil {
		return newError(KindConfig, "validate", "no workload", nil)
	}

	if err := c.Workload.Profile().CheckSize(c.Size); err != nil {
		return newError(KindConfig, "validate", "", err)
	}

	if err := c.Phase.Validate(); err != nil {
		return err
	}

	if err := checkKernel(NameGenerated, c.Generated); err != nil {
		return err
	}

	return checkKernel(NameCustom, c.Custom)
}

// Runner benchmarks the kernels of a workload on one device.
type Runner struct {
	Executor device.Executor
	Logger   *slog.Logger
}

// NewRunner creates a Runner that builds plans with exec.
func NewRunner(exec device.Executor, logger *slog.Logger) *Runner {
	return &Runner{
		Executor: exec,
		Logger:   logger.With(slog.String("component", "harness")),
	}
}

// Run executes the reference and both candidates. Configuration problems
// are returned before anything is timed. Plan and execution failures are
// recorded on the failing candidate and the run carries on.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := cfg.Workload.Profile()
	logger := r.Logger.With(slog.String("workload", p.Name), slog.String("size", cfg.Size.String()))

	inst, err := cfg.Workload.Generate(workload.NewRand(cfg.Seed), cfg.Size)
	if err != nil {
		return nil, newError(KindConfig, "generate", p.Name, err)
	}

	logger.Info("generated workload",
		slog.Int64("seed", cfg.Seed),
		slog.Int("warmup", cfg.Phase.Warmup),
		slog.Int("iterations", cfg.Phase.Iterations),
	)

	result := &Result{
		Workload:   p,
		Size:       cfg.Size,
		Seed:       cfg.Seed,
		Phase:      cfg.Phase,
		Operations: inst.Operations(),
		InputBytes: buffer.Bytes(inst.Inputs()...),
	}

	ref := inst.NewRun()
	result.Reference = r.reference(inst, ref, cfg.Phase)

	logger.Info("reference finished",
		slog.Int("samples", len(result.Reference.Samples)),
		slog.Int("convergence_iterations", result.Reference.Convergence.Iterations),
	)

	candidates := []struct {
		name   string
		kernel device.Kernel
	}{
		{NameGenerated, cfg.Generated},
		{NameCustom, cfg.Custom},
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s: %w", p.Name, err)
		}

		cr := r.candidate(ctx, inst, ref, c.name, c.kernel, cfg.Phase)

		if cr.Err != "" {
			logger.Warn("candidate unavailable",
				slog.String("candidate", c.name),
				slog.String("error", cr.Err),
			)
		} else {
			logger.Info("candidate finished",
				slog.String("candidate", c.name),
				slog.Int("samples", len(cr.Samples)),
				slog.Bool("valid", cr.Validation != nil && cr.Validation.Valid),
			)
		}

		result.Candidates = append(result.Candidates, cr)
	}

	return result, nil
}

func (r *Runner) reference(inst workload.Instance, run workload.Run, phase Phase) CandidateResult {
	cr := CandidateResult{Name: NameReference}

	samples, err := phase.Run(run.Reset, func() error {
		cr.Convergence = run.Reference()
		return nil
	})
	if err != nil {
		cr.Err = err.Error()
		return cr
	}

	cr.Samples = samples
	cr.Scalar = scalar(inst, run)

	return cr
}

// candidate benchmarks one kernel. The plan is released before the
// output is validated.
func (r *Runner) candidate(
	ctx context.Context,
	inst workload.Instance,
	ref workload.Run,
	name string,
	k device.Kernel,
	phase Phase,
) CandidateResult {
	kernel := k
	cr := CandidateResult{Name: name, Kernel: &kernel}

	run := inst.NewRun()

	if err := r.measure(ctx, run, k, phase, &cr); err != nil {
		cr.Err = err.Error()
		return cr
	}

	outcome, err := inst.Validate(ref.Output(), run.Output())
	if err != nil {
		cr.Err = newError(KindExecution, "validate", name, err).Error()
		return cr
	}

	cr.Validation = &outcome
	cr.Scalar = scalar(inst, run)

	return cr
}

func (r *Runner) measure(
	ctx context.Context,
	run workload.Run,
	k device.Kernel,
	phase Phase,
	cr *CandidateResult,
) error {
	run.Reset()
	bindings, geom := run.Bindings()

	plan, err := r.Executor.BuildPlan(ctx, k, bindings, geom)
	if err != nil {
		return newError(KindPlan, "build plan", k.String(), err)
	}

	defer func() {
		if err := plan.Release(); err != nil {
			r.Logger.Warn("release plan",
				slog.String("kernel", k.String()),
				slog.String("error", err.Error()),
			)
		}
	}()

	samples, err := phase.Run(run.Reset, func() error {
		conv, err := run.Device(plan)
		cr.Convergence = conv

		return err
	})
	if err != nil {
		var herr *Error
		if errors.As(err, &herr) {
			return err
		}

		return newError(KindExecution, "execute", k.String(), err)
	}

	cr.Samples = samples

	return nil
}

func scalar(inst workload.Instance, run workload.Run) *float64 {
	s, ok := inst.(workload.Scalar)
	if !ok {
		return nil
	}

	v := s.Scalar(run.Output())

	return &v
}
