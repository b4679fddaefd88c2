package harness

import (
	"fmt"
	"time"
)

// Phase is the warm-up and measurement schedule of one executor.
type Phase struct {
	Warmup     int `json:"warmup"`
	Iterations int `json:"iterations"`
}

// Validate rejects schedules without measurements or with a negative
// warm-up.
func (p Phase) Validate() error {
	if p.Iterations < 1 {
		return newError(KindConfig, "phase",
			fmt.Sprintf("iterations must be at least 1, got %d", p.Iterations), nil)
	}

	if p.Warmup < 0 {
		return newError(KindConfig, "phase",
			fmt.Sprintf("warmup must not be negative, got %d", p.Warmup), nil)
	}

	return nil
}

// Run calls prepare then body Warmup+Iterations times and returns one
// sample of body's wall time per measurement iteration. prepare is not
// timed. The first body error stops the phase; samples taken so far are
// returned with it.
func (p Phase) Run(prepare func(), body func() error) ([]time.Duration, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	for i := 0; i < p.Warmup; i++ {
		prepare()

		if err := body(); err != nil {
			return nil, fmt.Errorf("warmup iteration %d: %w", i, err)
		}
	}

	samples := make([]time.Duration, 0, p.Iterations)

	for i := 0; i < p.Iterations; i++ {
		prepare()

		start := time.Now()
		err := body()
		elapsed := time.Since(start)

		if err != nil {
			return samples, fmt.Errorf("iteration %d: %w", i, err)
		}

		samples = append(samples, elapsed)
	}

	return samples, nil
}
