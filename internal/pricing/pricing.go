package pricing

import "math"

const (
	Base          = 5.00
	PerKm         = 1.20
	DiscountStep  = 0.05
	DiscountFloor = 0.70
)

// PerPassenger computes the per-passenger fare for a shared ride.
//
//	price = (Base + PerKm*distanceKm) * occupancyDiscount(occupancy) * demandFactor
//
// rounded to cents, half away from zero. Each seat beyond the first discounts
// the fare by DiscountStep down to DiscountFloor. Occupancy below 1 is a caller
// error; demandFactor is an external surge multiplier, 1.0 meaning no surge.
func PerPassenger(distanceKm float64, occupancy int, demandFactor float64) float64 {
	raw := (Base + PerKm*distanceKm) * occupancyDiscount(occupancy) * demandFactor
	return math.Round(raw*100) / 100
}

func occupancyDiscount(occupancy int) float64 {
	d := 1.0 - DiscountStep*float64(occupancy-1)
	if d < DiscountFloor {
		return DiscountFloor
	}
	return d
}
