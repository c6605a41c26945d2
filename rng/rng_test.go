package rng

import "testing"

type fixedSource struct{ v float64 }

func (f fixedSource) Float64() float64 { return f.v }

func TestWeightedSelectEmpty(t *testing.T) {
	if _, ok := WeightedSelect(fixedSource{0}, nil); ok {
		t.Errorf("empty weights: ok = true, want false")
	}
}

func TestWeightedSelectAllZero(t *testing.T) {
	if _, ok := WeightedSelect(fixedSource{0.5}, []float64{0, 0, 0}); ok {
		t.Errorf("all-zero weights: ok = true, want false")
	}
}

func TestWeightedSelectPicksByPrefixSum(t *testing.T) {
	weights := []float64{1, 2, 3} // total 6, prefix sums 1,3,6
	cases := []struct {
		u    float64
		want int
	}{
		{0, 0},
		{0.99, 0},
		{1, 1},
		{2.99, 1},
		{3, 2},
		{5.99, 2},
	}
	for _, c := range cases {
		idx, ok := WeightedSelect(fixedSource{c.u / 6}, weights)
		if !ok || idx != c.want {
			t.Errorf("u=%v: idx=%v ok=%v, want %v", c.u, idx, ok, c.want)
		}
	}
}

func TestWeightedSelectSkipsZeroWeight(t *testing.T) {
	weights := []float64{0, 5, 0}
	idx, ok := WeightedSelect(fixedSource{0.999999}, weights)
	if !ok || idx != 1 {
		t.Errorf("idx=%v ok=%v, want 1 (only non-zero weight)", idx, ok)
	}
}

func TestNewIsDeterministicForSeed(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 5; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("seeded sources diverged at draw %d", i)
		}
	}
}
