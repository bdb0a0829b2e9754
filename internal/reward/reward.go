// Package reward converts recyclable item weights into points and monetary
// gains. All functions are pure; callers are responsible for rejecting empty
// item lists before persisting a pickup.
package reward

import "math"

type Item struct {
	Type           string  `json:"type"`
	Quantity       int     `json:"quantity"`
	Weight         float64 `json:"weight"`
	Points         float64 `json:"points"`
	EstimatedValue string  `json:"estimatedValue"`
}

// PointsPerKg maps a material type to its per-kilogram point rate. Both
// capitalized and lowercase variants are accepted; unknown types score zero.
var PointsPerKg = map[string]float64{
	"Plastic": 167, "plastic": 167,
	"Paper": 53, "paper": 53,
	"Metal": 287, "metal": 287,
	"Glass": 23, "glass": 23,
	"E-Waste": 20, "e-waste": 20,
	"Electronics": 2000, "electronics": 2000,
	"Cardboard": 53, "cardboard": 53,
	"Clothes": 117, "clothes": 117,
	"Wood": 100, "wood": 100,
}

// GainsRate is the fixed points-to-currency exchange rate.
const GainsRate = 0.15

// Compute normalizes item weights and scores the set. When no item carries
// an individual weight, the declared total is distributed evenly across all
// items; individually weighted items are used as-is even if they disagree
// with the declared total. Returns the normalized items and the total points
// rounded to the nearest integer.
func Compute(items []Item, declaredWeight float64) ([]Item, int) {
	var totalItemWeight float64
	for _, item := range items {
		totalItemWeight += item.Weight
	}

	processed := make([]Item, len(items))
	copy(processed, items)

	if totalItemWeight == 0 && declaredWeight > 0 && len(items) > 0 {
		perItem := declaredWeight / float64(len(items))
		for i := range processed {
			processed[i].Weight = perItem
		}
	}

	var totalPoints float64
	for _, item := range processed {
		totalPoints += PointsPerKg[item.Type] * item.Weight
	}

	return processed, int(math.Round(totalPoints))
}

// Gains converts points to currency at the fixed rate, rounded to 2 decimal
// places.
func Gains(points int) float64 {
	return math.Round(float64(points)*GainsRate*100) / 100
}
