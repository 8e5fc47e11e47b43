package vecmath

import (
	"math"
	"math/rand"
	"testing"
)

func TestCosineBounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		a := make([]float32, 16)
		b := make([]float32, 16)
		for j := range a {
			a[j] = float32(r.NormFloat64())
			b[j] = float32(r.NormFloat64())
		}
		s := Cosine(a, b)
		if s < -1 || s > 1 {
			t.Fatalf("cosine out of bounds: got=%v", s)
		}
		if self := Cosine(a, a); math.Abs(self-1) > 1e-9 {
			t.Fatalf("self similarity: want=1 got=%v", self)
		}
	}
}

func TestCosineZeroAndMismatch(t *testing.T) {
	v := []float32{1, 2, 3}
	if got := Cosine(v, []float32{0, 0, 0}); got != 0 {
		t.Fatalf("zero vector: want=0 got=%v", got)
	}
	if got := Cosine(v, []float32{1, 2}); got != 0 {
		t.Fatalf("mismatched dims: want=0 got=%v", got)
	}
	if got := Cosine(nil, nil); got != 0 {
		t.Fatalf("empty: want=0 got=%v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{-1, 0}); got != -1 {
		t.Fatalf("opposite: want=-1 got=%v", got)
	}
}

func TestNormalizeAndCodec(t *testing.T) {
	n := Normalize([]float32{3, 4})
	if math.Abs(float64(n[0])-0.6) > 1e-6 || math.Abs(float64(n[1])-0.8) > 1e-6 {
		t.Fatalf("normalize: got=%v", n)
	}
	raw, err := EncodeJSON([]float32{0.5, -1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeJSON(raw)
	if err != nil || len(back) != 2 || back[1] != -1 {
		t.Fatalf("decode: got=%v err=%v", back, err)
	}
	if v, err := DecodeJSON(nil); err != nil || v != nil {
		t.Fatalf("decode nil: got=%v err=%v", v, err)
	}
	if got := Clamp01(-0.3); got != 0 {
		t.Fatalf("clamp: want=0 got=%v", got)
	}
}
