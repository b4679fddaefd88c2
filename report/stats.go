package report

import (
	"time"

	"github.com/weiihann/kernbench/harness"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the duration samples of one executor.
type Stats struct {
	Count  int           `json:"count"`
	Min    time.Duration `json:"min_ns"`
	Max    time.Duration `json:"max_ns"`
	Mean   time.Duration `json:"mean_ns"`
	StdDev time.Duration `json:"stddev_ns"`
}

// Summarize computes Stats over samples. A single sample has no spread.
func Summarize(samples []time.Duration) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	xs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(s)
	}

	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}

	return Stats{
		Count:  len(xs),
		Min:    time.Duration(floats.Min(xs)),
		Max:    time.Duration(floats.Max(xs)),
		Mean:   time.Duration(mean),
		StdDev: time.Duration(std),
	}
}

// Throughput returns ops per second divided by scale, or 0 without a
// positive mean.
func Throughput(ops float64, mean time.Duration, scale float64) float64 {
	if mean <= 0 || scale <= 0 {
		return 0
	}

	return ops / mean.Seconds() / scale
}

// Ratios are the pairwise speedups of the three executors. A ratio above
// 1 means the divisor is faster. Zero marks a pair with an unavailable
// side.
type Ratios struct {
	ReferenceGenerated float64 `json:"reference_over_generated"`
	ReferenceCustom    float64 `json:"reference_over_custom"`
	GeneratedCustom    float64 `json:"generated_over_custom"`
}

// Speedups computes the ratios of the mean durations. A non-positive
// duration marks an unavailable executor.
func Speedups(ref, gen, cus time.Duration) Ratios {
	return Ratios{
		ReferenceGenerated: ratio(ref, gen),
		ReferenceCustom:    ratio(ref, cus),
		GeneratedCustom:    ratio(gen, cus),
	}
}

func ratio(a, b time.Duration) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}

	return float64(a) / float64(b)
}

// Verdict names the faster of two executors and by how much.
type Verdict struct {
	Winner string  `json:"winner,omitempty"`
	Loser  string  `json:"loser,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	Tie    bool    `json:"tie,omitempty"`
}

func (v Verdict) String() string {
	switch {
	case v.Winner == "":
		return "no candidate available"
	case v.Tie:
		return v.Winner + " and " + v.Loser + " perform the same"
	default:
		return v.Winner + " is " + formatFactor(v.Factor) + " faster than " + v.Loser
	}
}

// Decide compares the two candidates, or the one available candidate
// with the reference. Non-positive durations mark unavailable executors.
func Decide(ref, gen, cus time.Duration) Verdict {
	type timed struct {
		name string
		mean time.Duration
	}

	var avail []timed
	if gen > 0 {
		avail = append(avail, timed{harness.NameGenerated, gen})
	}
	if cus > 0 {
		avail = append(avail, timed{harness.NameCustom, cus})
	}

	switch {
	case len(avail) == 0:
		return Verdict{}
	case len(avail) == 1:
		if ref <= 0 {
			return Verdict{}
		}
		avail = append(avail, timed{harness.NameReference, ref})
	}

	a, b := avail[0], avail[1]
	if a.mean == b.mean {
		return Verdict{Winner: a.name, Loser: b.name, Factor: 1, Tie: true}
	}

	if b.mean < a.mean {
		a, b = b, a
	}

	return Verdict{Winner: a.name, Loser: b.name, Factor: float64(b.mean) / float64(a.mean)}
}
