package device

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Info describes the host the CPU executor dispatches on.
type Info struct {
	Name     string   `json:"name"`
	Arch     string   `json:"arch"`
	Cores    int      `json:"cores"`
	Features []string `json:"features"`
}

// Describe reports the host CPU and the SIMD features a port can rely on.
func Describe() Info {
	info := Info{
		Name:  "cpu",
		Arch:  runtime.GOARCH,
		Cores: runtime.NumCPU(),
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		info.Features = features(map[string]bool{
			"sse4.1":   cpu.X86.HasSSE41,
			"sse4.2":   cpu.X86.HasSSE42,
			"avx":      cpu.X86.HasAVX,
			"avx2":     cpu.X86.HasAVX2,
			"fma":      cpu.X86.HasFMA,
			"avx512f":  cpu.X86.HasAVX512F,
			"avx512bw": cpu.X86.HasAVX512BW,
			"avx512vl": cpu.X86.HasAVX512VL,
		})
	case "arm64":
		info.Features = features(map[string]bool{
			"fp":      cpu.ARM64.HasFP,
			"asimd":   cpu.ARM64.HasASIMD,
			"asimdhp": cpu.ARM64.HasASIMDHP,
			"atomics": cpu.ARM64.HasATOMICS,
			"sve":     cpu.ARM64.HasSVE,
		})
	}

	return info
}

var featureOrder = []string{
	"sse4.1", "sse4.2", "avx", "avx2", "fma", "avx512f", "avx512bw", "avx512vl",
	"fp", "asimd", "asimdhp", "atomics", "sve",
}

func features(present map[string]bool) []string {
	var out []string
	for _, name := range featureOrder {
		if present[name] {
			out = append(out, name)
		}
	}

	return out
}
