package similarity

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{80, 90, 50, 0.01}, []float32{80, 90, 50, 0.01}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCosine_NonFinite(t *testing.T) {
	nan := float32(math.NaN())
	got := Cosine([]float32{1, nan}, []float32{1, 5})
	if math.IsNaN(got) {
		t.Fatal("expected NaN components to be ignored")
	}
	if math.Abs(got-1/math.Sqrt(26)) > 1e-6 {
		t.Errorf("unexpected similarity %v", got)
	}
}

func TestRank(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{Key: "far", Profile: []float32{0, 1}},
		{Key: "close", Profile: []float32{1, 0.1}},
		{Key: "same", Profile: []float32{2, 0}},
	}

	matches := Rank(query, candidates, 0.5, 0)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches above threshold, got %v", matches)
	}
	if matches[0].Key != "same" || matches[1].Key != "close" {
		t.Errorf("unexpected order %v", matches)
	}

	if limited := Rank(query, candidates, 0, 1); len(limited) != 1 || limited[0].Key != "same" {
		t.Errorf("expected only the best match, got %v", limited)
	}
}
