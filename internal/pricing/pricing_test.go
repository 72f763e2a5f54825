package pricing

import "testing"

func TestSoloRide(t *testing.T) {
	got := PerPassenger(10.0, 1, 1.0)
	// (5.0 + 1.2*10) * 1.0 * 1.0 = 17.00
	if got != 17.00 {
		t.Fatalf("expected 17.00, got %v", got)
	}
}

func TestZeroDistanceSolo(t *testing.T) {
	if got := PerPassenger(0, 1, 1.0); got != 5.00 {
		t.Fatalf("expected base fare 5.00, got %v", got)
	}
}

func TestSharedRideCheaperPerPerson(t *testing.T) {
	solo := PerPassenger(10.0, 1, 1.0)
	shared := PerPassenger(10.0, 3, 1.0)
	if shared >= solo {
		t.Fatalf("shared %v should be cheaper than solo %v", shared, solo)
	}
}

func TestDemandFactorSurges(t *testing.T) {
	base := PerPassenger(10.0, 1, 1.0)
	surge := PerPassenger(10.0, 1, 1.5)
	if surge <= base {
		t.Fatalf("surge %v should exceed base %v", surge, base)
	}
}

func TestDiscountFloor(t *testing.T) {
	// at 10 seats the discount would be 0.55; it must clamp at 0.70
	got := PerPassenger(10.0, 10, 1.0)
	want := 11.90 // (5.0 + 12.0) * 0.70
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMonotoneInDistance(t *testing.T) {
	prev := PerPassenger(0, 2, 1.0)
	for _, d := range []float64{1, 5, 10, 50, 100} {
		p := PerPassenger(d, 2, 1.0)
		if p < prev {
			t.Fatalf("price decreased from %v to %v at distance %v", prev, p, d)
		}
		prev = p
	}
}

func TestNonIncreasingInOccupancy(t *testing.T) {
	prev := PerPassenger(10.0, 1, 1.0)
	for o := 2; o <= 12; o++ {
		p := PerPassenger(10.0, o, 1.0)
		if p > prev {
			t.Fatalf("price increased from %v to %v at occupancy %d", prev, p, o)
		}
		prev = p
	}
}

func TestRoundsToCents(t *testing.T) {
	// (5.0 + 1.2*3.33) * 0.95 = 8.54618 -> 8.55 rounding half away from zero
	if got := PerPassenger(3.33, 2, 1.0); got != 8.55 {
		t.Fatalf("expected 8.55, got %v", got)
	}
}
