// Package main provides the CLI entry point for kernbench, a benchmark
// harness that compares a generated and a custom kernel against a host
// reference.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/harness"
	"github.com/weiihann/kernbench/kernels"
	"github.com/weiihann/kernbench/report"
	"github.com/weiihann/kernbench/workload"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("kernbench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "kernbench",
		Short: "Kernel benchmark and validation harness",
		Long: `Kernbench runs the same deterministic workload through a host reference
and two device kernels, a generated one and a hand-written one, validates
the kernel outputs against the reference and compares their performance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return level.UnmarshalText([]byte(logLevel))
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(logger),
		newListCmd(),
		newDeviceCmd(),
	)

	return root
}

type runConfig struct {
	workload   string
	size       string
	generated  string
	custom     string
	kernelDir  string
	seed       int64
	warmup     int
	iterations int
	format     string
	out        string

	// Set when the flag was given; otherwise the workload default applies.
	sizeSet       bool
	generatedSet  bool
	customSet     bool
	warmupSet     bool
	iterationsSet bool
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark the kernels of one workload",
		Long: `Generate the workload from the seed, time the host reference and both
kernels on the CPU device, validate the kernel outputs and print the
comparison. Sizes, kernels and iteration counts default to the workload's
profile (see "kernbench list").`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			cfg.sizeSet = flags.Changed("size")
			cfg.generatedSet = flags.Changed("generated")
			cfg.customSet = flags.Changed("custom")
			cfg.warmupSet = flags.Changed("warmup")
			cfg.iterationsSet = flags.Changed("iterations")

			return runBenchmark(cmd.Context(), logger, cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.workload, "workload", "",
		"Workload to run (see kernbench list)")
	flags.StringVar(&cfg.size, "size", "",
		"Problem size: N, or X,Y for rectangular workloads")
	flags.StringVar(&cfg.generated, "generated", "",
		"Path to the generated kernel source")
	flags.StringVar(&cfg.custom, "custom", "",
		"Path to the custom kernel source")
	flags.StringVar(&cfg.kernelDir, "kernel-dir", harness.DefaultKernelDir,
		"Directory holding the default kernel sources")
	flags.Int64Var(&cfg.seed, "seed", workload.DefaultSeed,
		"Random seed for input generation")
	flags.IntVar(&cfg.warmup, "warmup", 0,
		"Warm-up iterations per executor")
	flags.IntVar(&cfg.iterations, "iterations", 0,
		"Measured iterations per executor")
	flags.StringVar(&cfg.format, "format", "auto",
		"Output format: auto, text, json")
	flags.StringVar(&cfg.out, "out", "",
		"Also write the JSON report to this file")

	_ = cmd.MarkFlagRequired("workload")

	return cmd
}

// buildRunConfig applies the flags on top of the workload defaults.
func buildRunConfig(cfg runConfig) (harness.RunConfig, error) {
	w, err := workload.Lookup(cfg.workload)
	if err != nil {
		return harness.RunConfig{}, &harness.Error{Kind: harness.KindConfig, Op: "lookup", Err: err}
	}

	rc := harness.DefaultConfig(w, cfg.kernelDir)
	rc.Seed = cfg.seed

	if cfg.sizeSet {
		size, err := workload.ParseSize(cfg.size)
		if err != nil {
			return harness.RunConfig{}, &harness.Error{Kind: harness.KindConfig, Op: "parse size", Err: err}
		}
		rc.Size = size
	}

	if cfg.generatedSet {
		rc.Generated.Path = cfg.generated
	}

	if cfg.customSet {
		rc.Custom.Path = cfg.custom
	}

	if cfg.warmupSet {
		rc.Phase.Warmup = cfg.warmup
	}

	if cfg.iterationsSet {
		rc.Phase.Iterations = cfg.iterations
	}

	return rc, nil
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	stdout io.Writer,
	cfg runConfig,
) error {
	format, err := resolveFormat(cfg.format, stdout)
	if err != nil {
		return err
	}

	rc, err := buildRunConfig(cfg)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("workload", rc.Workload.Profile().Name),
		slog.String("size", rc.Size.String()),
		slog.Int64("seed", rc.Seed),
		slog.String("generated", rc.Generated.Path),
		slog.String("custom", rc.Custom.Path),
	)

	exec := device.NewCPUExecutor(kernels.Default(), logger)
	runner := harness.NewRunner(exec, logger)

	result, err := runner.Run(ctx, rc)
	if err != nil {
		return err
	}

	cmp := report.Build(result)

	if format == "json" {
		if err := report.GenerateJSON(stdout, cmp); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(stdout, cmp); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	if cfg.out != "" {
		if err := writeJSON(cfg.out, cmp); err != nil {
			return err
		}

		logger.InfoContext(ctx, "report written", slog.String("path", cfg.out))
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

// resolveFormat turns "auto" into text on a terminal and json otherwise.
func resolveFormat(format string, w io.Writer) (string, error) {
	switch format {
	case "text", "json":
		return format, nil
	case "auto":
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return "text", nil
		}
		return "json", nil
	default:
		return "", &harness.Error{
			Kind:    harness.KindConfig,
			Op:      "format",
			Message: fmt.Sprintf("unknown format %q (want auto, text or json)", format),
		}
	}
}

func writeJSON(path string, cmp report.Comparison) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	if err := report.GenerateJSON(f, cmp); err != nil {
		f.Close()
		return fmt.Errorf("write report file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}

	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the workloads and their defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "%-12s %-12s %-8s %-22s %s\n",
				"WORKLOAD", "SIZE", "RUNS", "ENTRY", "KERNELS")

			for _, wl := range workload.All() {
				p := wl.Profile()
				fmt.Fprintf(w, "%-12s %-12s %-8s %-22s %s, %s\n",
					p.Name,
					p.DefaultSize,
					fmt.Sprintf("%d/%d", p.Warmup, p.Iterations),
					p.Entry,
					p.GeneratedKernel,
					p.CustomKernel,
				)
			}

			return nil
		},
	}
}

func newDeviceCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Describe the CPU device and its kernel ports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			info := device.Describe()
			ports := kernels.Default().Ports()

			if asJSON {
				type portInfo struct {
					Entry   string `json:"entry"`
					Variant string `json:"variant,omitempty"`
					Group   bool   `json:"group"`
				}

				out := struct {
					device.Info
					Ports []portInfo `json:"ports"`
				}{Info: info}

				for _, p := range ports {
					out.Ports = append(out.Ports, portInfo{Entry: p.Entry, Variant: p.Variant, Group: p.Group != nil})
				}

				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")

				return enc.Encode(out)
			}

			features := "none"
			if len(info.Features) > 0 {
				features = strings.Join(info.Features, " ")
			}

			fmt.Fprintf(w, "Device:   %s (%s)\n", info.Name, info.Arch)
			fmt.Fprintf(w, "Cores:    %d\n", info.Cores)
			fmt.Fprintf(w, "Features: %s\n", features)
			fmt.Fprintln(w, "Ports:")

			for _, p := range ports {
				variant := p.Variant
				if variant == "" {
					variant = "default"
				}

				granularity := "work-item"
				if p.Group != nil {
					granularity = "work-group"
				}

				fmt.Fprintf(w, "  - %s [%s] per %s\n", p.Entry, variant, granularity)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
