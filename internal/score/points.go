package score

import "github.com/shopspring/decimal"

// AwardedPoints settles one attempt: the question's full point value
// when the submitted set exactly matches the correct set, zero
// otherwise.
func AwardedPoints(submitted, correct []int64, points int) decimal.Decimal {
	if len(submitted) != len(correct) {
		return decimal.Zero
	}

	want := make(map[int64]bool, len(correct))
	for _, id := range correct {
		want[id] = true
	}

	for _, id := range submitted {
		if !want[id] {
			return decimal.Zero
		}
	}

	return decimal.NewFromInt(int64(points))
}
