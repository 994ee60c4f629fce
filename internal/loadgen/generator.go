package loadgen

import (
	"crypto/rand"
	"math"
	"math/big"
	"strconv"

	"github.com/google/uuid"
)

// foods is the catalogue batches draw from.
var foods = []string{
	"Apple", "Banana", "Bread", "Chicken", "Curry",
	"Pasta", "Pizza", "Rice", "Salad", "Soup",
}

const (
	massMin   = 0.1
	massRange = 49.9
	randScale = 1000000
)

func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// randomMass returns a mass in [0.1, 50) rounded to one decimal.
func randomMass() float64 {
	f := float64(randomInt(randScale)) / randScale
	return math.Round((massMin+f*massRange)*10) / 10
}

// generateBatches builds n batches cycling through the mapping, items and
// table shapes.
func generateBatches(n, perBatch int) []Batch {
	if perBatch < 1 {
		perBatch = 1
	}
	if perBatch > len(foods) {
		perBatch = len(foods)
	}
	out := make([]Batch, n)
	for i := range out {
		totals := make(map[string]float64, perBatch)
		offset := randomInt(len(foods))
		names := make([]string, perBatch)
		for j := range names {
			names[j] = foods[(offset+j)%len(foods)]
			totals[names[j]] = randomMass()
		}
		b := Batch{SessionID: "loadgen_" + uuid.NewString(), Totals: totals}
		switch i % 3 {
		case 0:
			b.Shape, b.Body = "mapping", totals
		case 1:
			b.Shape, b.Body = "items", itemsBody(names, totals)
		default:
			b.Shape, b.Body = "table", tableBody(names, totals)
		}
		out[i] = b
	}
	return out
}

// itemsBody alternates between the canonical and alias field names.
func itemsBody(names []string, totals map[string]float64) []map[string]any {
	items := make([]map[string]any, len(names))
	for i, name := range names {
		if i%2 == 0 {
			items[i] = map[string]any{"food_name": name, "disposal_mass": totals[name]}
		} else {
			items[i] = map[string]any{"name": name, "weight": totals[name]}
		}
	}
	return items
}

// tableBody sends masses as text cells to exercise coercion.
func tableBody(names []string, totals map[string]float64) map[string]any {
	rows := make([][]any, len(names))
	for i, name := range names {
		rows[i] = []any{name, strconv.FormatFloat(totals[name], 'f', -1, 64)}
	}
	return map[string]any{
		"columns": []string{"food_name", "disposal_mass"},
		"rows":    rows,
	}
}

// expectedTotals sums every batch per food.
func expectedTotals(batches []Batch) map[string]float64 {
	out := make(map[string]float64)
	for _, b := range batches {
		for name, mass := range b.Totals {
			out[name] += mass
		}
	}
	return out
}
