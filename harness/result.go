package harness

import (
	"time"

	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/verify"
	"github.com/weiihann/kernbench/workload"
)

// Result holds everything measured in one harness run.
type Result struct {
	Workload   workload.Profile  `json:"workload"`
	Size       workload.Size     `json:"size"`
	Seed       int64             `json:"seed"`
	Phase      Phase             `json:"phase"`
	Operations float64           `json:"operations"`
	InputBytes uint64            `json:"input_bytes"`
	Reference  CandidateResult   `json:"reference"`
	Candidates []CandidateResult `json:"candidates"`
}

// Candidate returns the candidate with the given name.
func (r *Result) Candidate(name string) (CandidateResult, bool) {
	for _, c := range r.Candidates {
		if c.Name == name {
			return c, true
		}
	}

	return CandidateResult{}, false
}

// CandidateResult holds the measurements of one executor: the host
// reference or a device kernel.
type CandidateResult struct {
	Name        string               `json:"name"`
	Kernel      *device.Kernel       `json:"kernel,omitempty"`
	Samples     []time.Duration      `json:"-"`
	Convergence workload.Convergence `json:"convergence"`
	Validation  *verify.Outcome      `json:"validation,omitempty"`
	Scalar      *float64             `json:"scalar,omitempty"`
	Err         string               `json:"error,omitempty"`
}

// Available reports whether the candidate produced timing samples.
func (c CandidateResult) Available() bool {
	return c.Err == "" && len(c.Samples) > 0
}
