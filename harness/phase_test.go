package harness

import (
	"errors"
	"strings"
	"testing"
)

func TestPhaseRun(t *testing.T) {
	var prepared, ran int

	samples, err := Phase{Warmup: 2, Iterations: 5}.Run(
		func() { prepared++ },
		func() error { ran++; return nil },
	)
	if err != nil {
		t.Fatal(err)
	}

	if len(samples) != 5 {
		t.Errorf("samples = %d, want 5", len(samples))
	}

	if prepared != 7 || ran != 7 {
		t.Errorf("prepared %d, ran %d, want 7 each", prepared, ran)
	}
}

func TestPhaseRunNoWarmup(t *testing.T) {
	samples, err := Phase{Iterations: 1}.Run(func() {}, func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	if len(samples) != 1 {
		t.Errorf("samples = %d, want 1", len(samples))
	}
}

func TestPhaseRunStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	samples, err := Phase{Warmup: 1, Iterations: 4}.Run(func() {}, func() error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if len(samples) != 1 {
		t.Errorf("samples = %d, want the 1 taken before the failure", len(samples))
	}
}

func TestPhaseValidate(t *testing.T) {
	tests := []struct {
		phase   Phase
		wantErr bool
	}{
		{Phase{Warmup: 0, Iterations: 1}, false},
		{Phase{Warmup: 10, Iterations: 30}, false},
		{Phase{Warmup: 0, Iterations: 0}, true},
		{Phase{Warmup: -1, Iterations: 3}, true},
	}

	for _, tt := range tests {
		err := tt.phase.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%+v: err = %v, wantErr %v", tt.phase, err, tt.wantErr)
		}

		if err != nil && !IsKind(err, KindConfig) {
			t.Errorf("%+v: err = %v, want a config error", tt.phase, err)
		}
	}
}

func TestErrorFormat(t *testing.T) {
	cause := errors.New("no such file")
	err := newError(KindPlan, "build plan", "kernels/a.cl#f", cause)

	if got := err.Error(); got != "plan error: build plan: kernels/a.cl#f: no such file" {
		t.Errorf("Error() = %q", got)
	}

	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}

	if IsKind(err, KindConfig) {
		t.Error("plan error reported as config error")
	}

	if !strings.HasPrefix(newError(KindConfig, "", "bad", nil).Error(), "config error: bad") {
		t.Error("config error without op misformatted")
	}
}
