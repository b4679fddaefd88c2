package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/workload"
)

// DefaultKernelDir is where the default kernel sources live, relative to
// the working directory.
const DefaultKernelDir = "kernels"

// Candidate names.
const (
	NameReference = "reference"
	NameGenerated = "generated"
	NameCustom    = "custom"
)

// ResolveKernels returns the default generated and custom kernels of a
// workload under kernelDir.
func ResolveKernels(kernelDir string, p workload.Profile) (generated, custom device.Kernel) {
	generated = device.Kernel{
		Path:  filepath.Join(kernelDir, p.GeneratedKernel),
		Entry: p.Entry,
	}
	custom = device.Kernel{
		Path:  filepath.Join(kernelDir, p.CustomKernel),
		Entry: p.Entry,
	}

	return generated, custom
}

// DefaultConfig returns the run configuration a workload uses when
// nothing is overridden.
func DefaultConfig(w workload.Workload, kernelDir string) RunConfig {
	p := w.Profile()
	gen, cus := ResolveKernels(kernelDir, p)

	return RunConfig{
		Workload:  w,
		Size:      p.DefaultSize,
		Seed:      workload.DefaultSeed,
		Phase:     Phase{Warmup: p.Warmup, Iterations: p.Iterations},
		Generated: gen,
		Custom:    cus,
	}
}

// checkKernel fails when the kernel source is not a readable file.
func checkKernel(name string, k device.Kernel) error {
	if k.Entry == "" {
		return newError(KindConfig, "check kernel", name+" kernel has no entry symbol", nil)
	}

	info, err := os.Stat(k.Path)
	if err != nil {
		return newError(KindConfig, "check kernel",
			fmt.Sprintf("%s kernel %s", name, k.Path), err)
	}

	if info.IsDir() {
		return newError(KindConfig, "check kernel",
			fmt.Sprintf("%s kernel %s is a directory", name, k.Path), nil)
	}

	return nil
}
