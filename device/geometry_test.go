package device

import (
	"errors"
	"testing"
)

func TestLocalSize(t *testing.T) {
	tests := []struct {
		name      string
		global    int
		preferred int
		want      int
	}{
		{"divisible", 1024, 16, 16},
		{"thousand", 1000, 16, 10},
		{"prime", 997, 16, 1},
		{"smaller than tile", 6, 16, 6},
		{"one", 1, 16, 1},
		{"preferred one", 512, 1, 1},
		{"preferred zero", 512, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocalSize(tt.global, tt.preferred)
			if got != tt.want {
				t.Errorf("LocalSize(%d, %d) = %d, want %d",
					tt.global, tt.preferred, got, tt.want)
			}
		})
	}
}

func TestLocalSizeAlwaysDivides(t *testing.T) {
	for global := 1; global <= 2048; global++ {
		local := LocalSize(global, DefaultLocalSize)

		if local < 1 {
			t.Fatalf("LocalSize(%d) = %d, want >= 1", global, local)
		}
		if global%local != 0 {
			t.Fatalf("LocalSize(%d) = %d does not divide", global, local)
		}

		// No larger tile up to the preferred size may divide global.
		for bigger := local + 1; bigger <= DefaultLocalSize; bigger++ {
			if global%bigger == 0 {
				t.Fatalf("LocalSize(%d) = %d but %d divides", global, local, bigger)
			}
		}
	}
}

func TestGeometry2D(t *testing.T) {
	g := Geometry2D(1000, 512, 16)

	if g.Local.X != 10 || g.Local.Y != 16 {
		t.Errorf("local = %+v, want 10x16", g.Local)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}

	groups := g.Groups()
	if groups.X != 100 || groups.Y != 32 || groups.Z != 1 {
		t.Errorf("groups = %+v, want 100x32x1", groups)
	}
}

func TestFixedGeometry1D(t *testing.T) {
	if _, err := FixedGeometry1D(2048*128, 128); err != nil {
		t.Fatalf("FixedGeometry1D failed: %v", err)
	}

	_, err := FixedGeometry1D(1000, 128)
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("err = %v, want ErrInvalidGeometry", err)
	}
}

func TestGeometryValidateZero(t *testing.T) {
	g := Geometry1D(0, 16)
	if err := g.Validate(); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("err = %v, want ErrInvalidGeometry", err)
	}
}

func TestGeometryString(t *testing.T) {
	if got := Geometry1D(64, 16).String(); got != "global=64 local=16" {
		t.Errorf("String() = %q", got)
	}
	if got := Geometry2D(64, 32, 16).String(); got != "global=64x32 local=16x16" {
		t.Errorf("String() = %q", got)
	}
}
