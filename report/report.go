// Package report turns harness results into comparison reports.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/harness"
	"github.com/weiihann/kernbench/verify"
	"github.com/weiihann/kernbench/workload"
)

// Comparison is the report of one harness run.
type Comparison struct {
	Workload    string  `json:"workload"`
	Description string  `json:"description"`
	Size        string  `json:"size"`
	Seed        int64   `json:"seed"`
	Warmup      int     `json:"warmup"`
	Iterations  int     `json:"iterations"`
	InputBytes  uint64  `json:"input_bytes"`
	Unit        string  `json:"unit"`
	Entries     []Entry `json:"executors"`
	Speedups    Ratios  `json:"speedups"`
	Verdict     Verdict `json:"verdict"`
}

// Entry is the report line of one executor.
type Entry struct {
	Name        string               `json:"name"`
	Kernel      *device.Kernel       `json:"kernel,omitempty"`
	Available   bool                 `json:"available"`
	Error       string               `json:"error,omitempty"`
	Stats       Stats                `json:"stats"`
	Throughput  float64              `json:"throughput"`
	Convergence workload.Convergence `json:"convergence"`
	Validation  *verify.Outcome      `json:"validation,omitempty"`
	Scalar      *float64             `json:"scalar,omitempty"`
	// ScalarDelta is the distance of Scalar from the reference scalar.
	ScalarDelta *float64 `json:"scalar_delta,omitempty"`
}

// Build derives the comparison from a run result.
func Build(r *harness.Result) Comparison {
	c := Comparison{
		Workload:    r.Workload.Name,
		Description: r.Workload.Description,
		Size:        r.Size.String(),
		Seed:        r.Seed,
		Warmup:      r.Phase.Warmup,
		Iterations:  r.Phase.Iterations,
		InputBytes:  r.InputBytes,
		Unit:        r.Workload.Unit,
	}

	means := map[string]time.Duration{}

	for _, cr := range append([]harness.CandidateResult{r.Reference}, r.Candidates...) {
		e := Entry{
			Name:        cr.Name,
			Kernel:      cr.Kernel,
			Available:   cr.Available(),
			Error:       cr.Err,
			Convergence: cr.Convergence,
			Validation:  cr.Validation,
			Scalar:      cr.Scalar,
		}

		if e.Available {
			e.Stats = Summarize(cr.Samples)
			e.Throughput = Throughput(r.Operations, e.Stats.Mean, r.Workload.Scale)
			means[cr.Name] = e.Stats.Mean
		}

		if cr.Name != harness.NameReference && cr.Scalar != nil && r.Reference.Scalar != nil {
			d := math.Abs(*cr.Scalar - *r.Reference.Scalar)
			e.ScalarDelta = &d
		}

		c.Entries = append(c.Entries, e)
	}

	ref := means[harness.NameReference]
	gen := means[harness.NameGenerated]
	cus := means[harness.NameCustom]

	c.Speedups = Speedups(ref, gen, cus)
	c.Verdict = Decide(ref, gen, cus)

	return c
}

// Generate writes a markdown report of c to w.
func Generate(w io.Writer, c Comparison) error {
	if len(c.Entries) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintf(w, "## Benchmark Results: %s\n", c.Workload)
	fmt.Fprintln(w)

	if c.Description != "" {
		fmt.Fprintln(w, c.Description)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Size: %s | Seed: %d | Warmup: %d | Iterations: %d | Input: %s\n",
		c.Size, c.Seed, c.Warmup, c.Iterations, formatBytes(c.InputBytes))
	fmt.Fprintln(w)

	for _, e := range c.Entries {
		if e.Kernel != nil {
			fmt.Fprintf(w, "  - %s kernel: %s\n", e.Name, e.Kernel)
		}
	}
	fmt.Fprintln(w)

	// Timing table.
	fmt.Fprintln(w, "| Executor | Avg | Min | Max | StdDev | Throughput | Validation |")
	fmt.Fprintln(w, "|----------|-----|-----|-----|--------|------------|------------|")

	for _, e := range c.Entries {
		if !e.Available {
			fmt.Fprintf(w, "| %s | - | - | - | - | - | unavailable |\n", e.Name)
			continue
		}

		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s |\n",
			e.Name,
			formatDuration(e.Stats.Mean),
			formatDuration(e.Stats.Min),
			formatDuration(e.Stats.Max),
			formatDuration(e.Stats.StdDev),
			formatThroughput(e.Throughput, c.Unit),
			validationStatus(e),
		)
	}

	fmt.Fprintln(w)

	writeScalars(w, c)
	writeConvergence(w, c)

	fmt.Fprintln(w, "Speedups:")
	fmt.Fprintf(w, "  - reference / generated: %s\n", formatRatio(c.Speedups.ReferenceGenerated))
	fmt.Fprintf(w, "  - reference / custom: %s\n", formatRatio(c.Speedups.ReferenceCustom))
	fmt.Fprintf(w, "  - generated / custom: %s\n", formatRatio(c.Speedups.GeneratedCustom))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Verdict: **%s**\n", c.Verdict)

	writeWarnings(w, c)

	return nil
}

// GenerateJSON writes c as JSON to w.
func GenerateJSON(w io.Writer, c Comparison) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(c)
}

func writeScalars(w io.Writer, c Comparison) {
	var lines []string

	for _, e := range c.Entries {
		if e.Scalar == nil {
			continue
		}

		line := fmt.Sprintf("  - %s: %.6f", e.Name, *e.Scalar)
		if e.ScalarDelta != nil {
			line += fmt.Sprintf(" (delta %.2e)", *e.ScalarDelta)
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return
	}

	fmt.Fprintln(w, "Results:")
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)
}

// writeConvergence reports iteration counts for iterative workloads only.
func writeConvergence(w io.Writer, c Comparison) {
	iterative := false
	for _, e := range c.Entries {
		if e.Convergence.Iterations > 1 || (e.Available && !e.Convergence.Converged) {
			iterative = true
		}
	}

	if !iterative {
		return
	}

	fmt.Fprintln(w, "Convergence:")

	for _, e := range c.Entries {
		if !e.Available {
			continue
		}

		state := "converged"
		if !e.Convergence.Converged {
			state = "**hit iteration cap**"
		}

		fmt.Fprintf(w, "  - %s: %d iterations, %s\n", e.Name, e.Convergence.Iterations, state)
	}

	fmt.Fprintln(w)
}

func writeWarnings(w io.Writer, c Comparison) {
	for _, e := range c.Entries {
		switch {
		case !e.Available:
			fmt.Fprintln(w)
			fmt.Fprintf(w, "**WARNING** %s unavailable: %s\n", e.Name, e.Error)
		case e.Validation != nil && !e.Validation.Valid:
			fmt.Fprintln(w)
			fmt.Fprintf(w, "**WARNING** %s validation %s\n", e.Name, e.Validation)
		}
	}
}

func validationStatus(e Entry) string {
	switch {
	case e.Validation == nil:
		return "-"
	case e.Validation.Valid:
		return "PASS"
	default:
		return fmt.Sprintf("FAIL (%.2f%%)", e.Validation.Percent())
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fus", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatThroughput(v float64, unit string) string {
	if v == 0 {
		return "-"
	}

	return fmt.Sprintf("%.2f %s", v, unit)
}

func formatRatio(r float64) string {
	if r == 0 {
		return "n/a"
	}

	return formatFactor(r)
}

func formatFactor(f float64) string {
	return fmt.Sprintf("%.2fx", f)
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
