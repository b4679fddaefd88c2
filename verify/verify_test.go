package verify

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/weiihann/kernbench/buffer"
)

func TestCompareSingleEpsilonDifference(t *testing.T) {
	const eps = 0.25

	ref := buffer.Float32{1, 2, 3, 4, 5}
	cand := buffer.Float32{1, 2, 3 + eps, 4, 5}

	exact, err := Compare(ref, cand, ExactPolicy())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if exact.Valid {
		t.Error("exact mode reported valid")
	}
	if len(exact.Mismatches) != 1 || exact.Mismatches[0].Index != 2 {
		t.Errorf("exact mismatches = %+v, want one at index 2", exact.Mismatches)
	}

	loose, err := Compare(ref, cand, TolerancePolicy(eps*2))
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !loose.Valid {
		t.Errorf("tolerance above eps reported invalid: %v", loose)
	}

	atEps, err := Compare(ref, cand, TolerancePolicy(eps))
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !atEps.Valid {
		t.Errorf("difference equal to eps must be accepted: %v", atEps)
	}

	tight, err := Compare(ref, cand, TolerancePolicy(eps/2))
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if tight.Valid {
		t.Error("tolerance below eps reported valid")
	}
	if tight.Count != 1 || len(tight.Mismatches) != 1 {
		t.Fatalf("count = %d, records = %d, want 1 and 1",
			tight.Count, len(tight.Mismatches))
	}

	m := tight.Mismatches[0]
	if m.Index != 2 || m.Reference != 3 || m.Candidate != 3+eps || m.Diff != eps {
		t.Errorf("mismatch = %+v", m)
	}
}

func TestCompareExactShortCircuits(t *testing.T) {
	ref := buffer.Int32{0, 1, 2, 3}
	cand := buffer.Int32{0, 9, 9, 9}

	out, err := Compare(ref, cand, ExactPolicy())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if out.Valid || out.Count != 1 || len(out.Mismatches) != 1 {
		t.Errorf("outcome = %+v, want a single mismatch", out)
	}
}

func TestCompareToleranceBoundsRecords(t *testing.T) {
	n := 100
	ref := make(buffer.Int16, n)
	cand := make(buffer.Int16, n)
	for i := 0; i < n; i += 2 {
		cand[i] = 5
	}

	out, err := Compare(ref, cand, Policy{Mode: Tolerance, Epsilon: 1, Width: 10})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if out.Count != 50 {
		t.Errorf("count = %d, want 50", out.Count)
	}
	if len(out.Mismatches) != DefaultMaxRecords {
		t.Errorf("records = %d, want %d", len(out.Mismatches), DefaultMaxRecords)
	}
	if out.Percent() != 50 {
		t.Errorf("percent = %v, want 50", out.Percent())
	}

	last := out.Mismatches[len(out.Mismatches)-1]
	if last.Index != 18 || last.Row != 1 || last.Col != 8 {
		t.Errorf("last record = %+v, want idx 18 at (1,8)", last)
	}
}

func TestCompareNaNIsMismatch(t *testing.T) {
	ref := buffer.Float32{1}
	cand := buffer.Float32{float32(math.NaN())}

	out, err := Compare(ref, cand, TolerancePolicy(1e6))
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if out.Valid {
		t.Error("NaN candidate reported valid")
	}
}

func TestCompareShapeMismatch(t *testing.T) {
	tests := []struct {
		name      string
		ref, cand buffer.Buffer
	}{
		{"length", buffer.Float32{1, 2}, buffer.Float32{1}},
		{"kind", buffer.Float32{1}, buffer.Int32{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.ref, tt.cand, ExactPolicy())
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("err = %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	out, _ := Compare(buffer.Int32{1, 2}, buffer.Int32{1, 2}, ExactPolicy())
	if !strings.HasPrefix(out.String(), "PASS") {
		t.Errorf("String() = %q, want PASS prefix", out.String())
	}

	out, _ = Compare(buffer.Float32{1, 2}, buffer.Float32{1, 3}, TolerancePolicy(0.5))
	s := out.String()
	if !strings.Contains(s, "1/2 elements differ") || !strings.Contains(s, "idx=1") {
		t.Errorf("String() = %q", s)
	}
}
