// Package verify compares candidate outputs against a reference output.
package verify

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/weiihann/kernbench/buffer"
)

// DefaultMaxRecords bounds the mismatch records kept in tolerance mode.
const DefaultMaxRecords = 10

// ErrShapeMismatch is returned when the buffers differ in kind or length.
var ErrShapeMismatch = errors.New("reference and candidate shapes differ")

// Mode selects the comparison rule.
type Mode int

const (
	// Exact requires identical elements and stops at the first mismatch.
	Exact Mode = iota
	// Tolerance accepts |ref - cand| <= Epsilon and scans every element.
	Tolerance
)

func (m Mode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Tolerance:
		return "tolerance"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Policy configures a comparison.
type Policy struct {
	Mode    Mode
	Epsilon float64
	// MaxRecords caps the mismatches kept; zero means DefaultMaxRecords.
	MaxRecords int
	// Width, when positive, is the row length used to report Row/Col.
	Width int
}

// ExactPolicy compares element by element without tolerance.
func ExactPolicy() Policy {
	return Policy{Mode: Exact}
}

// TolerancePolicy accepts absolute differences up to eps.
func TolerancePolicy(eps float64) Policy {
	return Policy{Mode: Tolerance, Epsilon: eps}
}

// Mismatch records one differing element.
type Mismatch struct {
	Index     int     `json:"index"`
	Row       int     `json:"row,omitempty"`
	Col       int     `json:"col,omitempty"`
	Reference float64 `json:"reference"`
	Candidate float64 `json:"candidate"`
	Diff      float64 `json:"diff"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("idx=%d ref=%g cand=%g diff=%g",
		m.Index, m.Reference, m.Candidate, m.Diff)
}

// Outcome is the result of one comparison.
type Outcome struct {
	Valid      bool       `json:"valid"`
	Mode       string     `json:"mode"`
	Epsilon    float64    `json:"epsilon,omitempty"`
	Count      int        `json:"mismatch_count"`
	Total      int        `json:"total"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Percent returns the share of mismatching elements.
func (o Outcome) Percent() float64 {
	if o.Total == 0 {
		return 0
	}

	return float64(o.Count) / float64(o.Total) * 100
}

func (o Outcome) String() string {
	if o.Valid {
		return fmt.Sprintf("PASS: %d elements match (%s)", o.Total, o.Mode)
	}

	var b strings.Builder

	if o.Mode == Exact.String() {
		fmt.Fprintf(&b, "FAIL: first mismatch (%s)", o.Mode)
	} else {
		fmt.Fprintf(&b, "FAIL: %d/%d elements differ (%.2f%%, eps=%g)",
			o.Count, o.Total, o.Percent(), o.Epsilon)
	}

	for _, m := range o.Mismatches {
		b.WriteString("\n  ")
		b.WriteString(m.String())
	}

	return b.String()
}

// Compare checks cand against ref under p.
func Compare(ref, cand buffer.Buffer, p Policy) (Outcome, error) {
	if ref.Kind() != cand.Kind() || ref.Len() != cand.Len() {
		return Outcome{}, fmt.Errorf("%w: %s[%d] vs %s[%d]", ErrShapeMismatch,
			ref.Kind(), ref.Len(), cand.Kind(), cand.Len())
	}

	maxRecords := p.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	out := Outcome{
		Mode:  p.Mode.String(),
		Total: ref.Len(),
	}

	if p.Mode == Tolerance {
		out.Epsilon = p.Epsilon
	}

	for i := 0; i < ref.Len(); i++ {
		r, c := ref.At(i), cand.At(i)
		diff := math.Abs(r - c)

		if matches(r, c, diff, p) {
			continue
		}

		out.Count++
		if len(out.Mismatches) < maxRecords {
			out.Mismatches = append(out.Mismatches, record(i, r, c, diff, p.Width))
		}

		if p.Mode == Exact {
			break
		}
	}

	out.Valid = out.Count == 0

	return out, nil
}

func matches(r, c, diff float64, p Policy) bool {
	if p.Mode == Exact {
		return r == c
	}

	// NaN compares false, so it always lands here as a mismatch.
	return diff <= p.Epsilon
}

func record(i int, r, c, diff float64, width int) Mismatch {
	m := Mismatch{Index: i, Reference: r, Candidate: c, Diff: diff}
	if width > 0 {
		m.Row, m.Col = i/width, i%width
	}

	return m
}
