package kernel

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestPlanGrid(t *testing.T) {
	tests := []struct {
		name          string
		w, h, factor  int
		wantX, wantY  uint32
		wantSW, wantS int
	}{
		{"1600x900 half", 1600, 900, 2, 100, 57, 800, 450},
		{"1920x1080 half", 1920, 1080, 2, 120, 68, 960, 540},
		{"full resolution", 64, 32, 1, 8, 4, 64, 32},
		{"odd size", 15, 9, 2, 1, 1, 7, 4},
		{"factor 4", 1024, 512, 4, 32, 16, 256, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := PlanGrid(tt.w, tt.h, tt.factor)
			if err != nil {
				t.Fatalf("PlanGrid failed: %v", err)
			}
			if g.X != tt.wantX || g.Y != tt.wantY || g.Z != 1 {
				t.Errorf("workgroups = %dx%dx%d, want %dx%dx1", g.X, g.Y, g.Z, tt.wantX, tt.wantY)
			}
			if g.SampleWidth != tt.wantSW || g.SampleHeight != tt.wantS {
				t.Errorf("samples = %dx%d, want %dx%d", g.SampleWidth, g.SampleHeight, tt.wantSW, tt.wantS)
			}
		})
	}
}

// For sizes that are multiples of 8*factor the grid matches
// ceil(w/8)/factor x ceil(h/8)/factor.
func TestPlanGridAlignedMatchesTileHalving(t *testing.T) {
	for _, size := range [][2]int{{1600, 896}, {512, 512}, {1280, 720}, {2560, 1440}} {
		g, err := PlanGrid(size[0], size[1], 2)
		if err != nil {
			t.Fatalf("PlanGrid(%v) failed: %v", size, err)
		}
		wantX := uint32((size[0]+7)/8) / 2
		wantY := uint32((size[1]+7)/8) / 2
		if g.X != wantX || g.Y != wantY {
			t.Errorf("PlanGrid(%v) = %dx%d, want %dx%d", size, g.X, g.Y, wantX, wantY)
		}
	}
}

func TestGridCoverageEqualsPixelCount(t *testing.T) {
	for w := 1; w <= 70; w += 3 {
		for h := 1; h <= 70; h += 5 {
			for factor := 1; factor <= 4; factor++ {
				g, err := PlanGrid(w, h, factor)
				if errors.Is(err, ErrEmptyGrid) {
					continue
				}
				if err != nil {
					t.Fatalf("PlanGrid(%d, %d, %d) failed: %v", w, h, factor, err)
				}
				if want := (w / factor) * (h / factor); g.PixelCount() != want {
					t.Fatalf("PixelCount(%d, %d, %d) = %d, want %d", w, h, factor, g.PixelCount(), want)
				}
				if g.Covered() != g.PixelCount() {
					t.Fatalf("Covered(%d, %d, %d) = %d, PixelCount = %d", w, h, factor, g.Covered(), g.PixelCount())
				}
			}
		}
	}
}

func TestPlanGridErrors(t *testing.T) {
	tests := []struct {
		name         string
		w, h, factor int
		want         error
	}{
		{"zero width", 0, 10, 2, ErrInvalidSize},
		{"negative height", 10, -1, 2, ErrInvalidSize},
		{"zero factor", 10, 10, 0, ErrInvalidFactor},
		{"1x1 at half", 1, 1, 2, ErrEmptyGrid},
		{"too narrow", 3, 100, 4, ErrEmptyGrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PlanGrid(tt.w, tt.h, tt.factor); !errors.Is(err, tt.want) {
				t.Errorf("PlanGrid error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGridParamsLayout(t *testing.T) {
	g, err := PlanGrid(1600, 900, 2)
	if err != nil {
		t.Fatal(err)
	}
	buf := g.Params()
	if len(buf) != ParamsSize {
		t.Fatalf("len(Params) = %d, want %d", len(buf), ParamsSize)
	}
	want := []uint32{1600, 900, 2, 800, 450, 0, 0, 0}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != w {
			t.Errorf("word %d = %d, want %d", i, got, w)
		}
	}
}
