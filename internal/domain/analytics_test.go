package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestZoomNormalize(t *testing.T) {
	tests := []struct {
		in   ZoomSelection
		want ZoomSelection
	}{
		{ZoomSelection{0, 100}, ZoomSelection{0, 100}},
		{ZoomSelection{-10, 150}, ZoomSelection{0, 100}},
		{ZoomSelection{80, 20}, ZoomSelection{20, 80}},
		{ZoomSelection{math.NaN(), math.NaN()}, ZoomSelection{0, 100}},
		{ZoomSelection{0, 0}, ZoomSelection{0, 0}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Fatalf("Normalize(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestActiveTargetSet(t *testing.T) {
	s := AllActive([]Target{{Tag: "b"}, {Tag: "a"}})
	if s.Len() != 2 || !s.Has("a") {
		t.Fatalf("expected both tags active, got %v", s.Tags())
	}

	c := s.Clone()
	c.Remove("a")
	if !s.Has("a") {
		t.Fatal("expected clone to be independent")
	}

	s.Add("c")
	if got := s.Tags(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("expected sorted tags, got %v", got)
	}

	var empty ActiveTargetSet
	if empty.Has("a") || empty.Len() != 0 {
		t.Fatal("expected nil set to contain nothing")
	}
}

func TestTimeRangeContains(t *testing.T) {
	var unbounded *TimeRange
	if !unbounded.Contains(42) {
		t.Fatal("expected nil range to contain everything")
	}

	r := NewTimeRange(0, 60)
	for ts, want := range map[int64]bool{-1: false, 0: true, 60: true, 61: false} {
		if got := r.Contains(ts); got != want {
			t.Fatalf("Contains(%d): expected %v, got %v", ts, want, got)
		}
	}

	end := 10.0
	open := &TimeRange{End: &end}
	if !open.Contains(-1000) || open.Contains(11) {
		t.Fatal("expected only the end bound to apply")
	}
}

func TestIntervalJSON(t *testing.T) {
	b, err := json.Marshal([]Interval{{Start: 60, End: 120}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "[[60,120]]" {
		t.Fatalf("expected [[60,120]], got %s", b)
	}

	var back []Interval
	if err := json.Unmarshal(b, &back); err != nil || back[0] != (Interval{Start: 60, End: 120}) {
		t.Fatalf("expected round trip, got %v %v", back, err)
	}
	if err := json.Unmarshal([]byte("[[1]]"), &back); err == nil {
		t.Fatal("expected error for a one-element interval")
	}
}

func TestValidateThreshold(t *testing.T) {
	if err := ValidateThreshold(DefaultLossThreshold); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range []float64{-0.5, math.NaN(), math.Inf(1)} {
		if err := ValidateThreshold(v); err == nil {
			t.Fatalf("expected %v to be rejected", v)
		}
	}
}
