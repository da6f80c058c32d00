package rank

import (
	"math"
	"testing"
)

func TestCosine_Identical(t *testing.T) {
	v := []float32{0.5, 0.5, 0.7}
	if got := cosine(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("cosine(v, v) = %f, want 1.0", got)
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := cosine(a, b); got != 0 {
		t.Errorf("cosine(orthogonal) = %f, want 0", got)
	}
}

func TestCosine_OppositeClampedToZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	// Raw cosine is -1; scores are clamped into [0, 1].
	if got := cosine(a, b); got != 0 {
		t.Errorf("cosine(opposite) = %f, want 0", got)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	if got := cosine(a, b); got != 0 {
		t.Errorf("cosine(zero, v) = %f, want 0", got)
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{1, 2, 3}
	if got := cosine(a, b); got != 0 {
		t.Errorf("cosine(mismatched dims) = %f, want 0", got)
	}
}

func TestCosine_Empty(t *testing.T) {
	if got := cosine(nil, nil); got != 0 {
		t.Errorf("cosine(nil, nil) = %f, want 0", got)
	}
}

func TestCosine_KnownAngle(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 1}
	want := 1 / math.Sqrt2
	if got := cosine(a, b); math.Abs(got-want) > 1e-6 {
		t.Errorf("cosine(45°) = %f, want %f", got, want)
	}
}
