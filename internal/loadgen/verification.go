package loadgen

import (
	"fmt"
	"math"
	"sort"
)

const massTolerance = 1e-6

// verifyTotals checks that every food reached at least its expected mass.
// Aggregates may include rows from earlier runs, so larger totals pass.
func verifyTotals(expected map[string]float64, got []Total) error {
	actual := make(map[string]float64, len(got))
	for _, t := range got {
		actual[t.FoodName] = t.DisposalMass
	}
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		want := expected[name]
		have, ok := actual[name]
		if !ok {
			return fmt.Errorf("food %q missing from aggregate", name)
		}
		if have+massTolerance*math.Max(1, want) < want {
			return fmt.Errorf("food %q: aggregate %.3f below submitted %.3f", name, have, want)
		}
	}
	return nil
}
