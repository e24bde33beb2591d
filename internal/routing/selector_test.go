package routing

import (
	"errors"
	"math/rand"
	"testing"
)

func TestSelector_SkipsZeroWeightAndInvalid(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(1)))
	origins := []WeightedOrigin{
		{Number: "+14155550100", Weight: 0},
		{Number: "not-a-number", Weight: 10},
		{Number: "(650) 253-0000", Weight: 3},
	}
	for i := 0; i < 20; i++ {
		got, err := s.Pick(origins, "US")
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		if got != "+16502530000" {
			t.Fatalf("unexpected origin %q", got)
		}
	}
}

func TestSelector_WeightedDistribution(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(7)))
	origins := []WeightedOrigin{
		{Number: "+14155550100", Weight: 9},
		{Number: "+16502530000", Weight: 1},
	}
	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		got, err := s.Pick(origins, "US")
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		counts[got]++
	}
	if counts["+14155550100"] < 800 || counts["+16502530000"] == 0 {
		t.Fatalf("unexpected distribution %v", counts)
	}
}

func TestSelector_NoEligible(t *testing.T) {
	s := NewSelector(nil)
	if _, err := s.Pick(nil, "US"); !errors.Is(err, ErrNoOrigin) {
		t.Fatalf("expected ErrNoOrigin, got %v", err)
	}
}
