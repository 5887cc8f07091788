package score_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/victornm/livequiz/internal/score"
)

func TestAwardedPoints(t *testing.T) {
	tests := map[string]struct {
		submitted []int64
		correct   []int64
		points    int
		want      decimal.Decimal
	}{
		"exact single match awards full points": {
			submitted: []int64{1},
			correct:   []int64{1},
			points:    5,
			want:      decimal.NewFromInt(5),
		},

		"exact multi match awards full points regardless of order": {
			submitted: []int64{3, 1},
			correct:   []int64{1, 3},
			points:    10,
			want:      decimal.NewFromInt(10),
		},

		"wrong answer awards zero": {
			submitted: []int64{2},
			correct:   []int64{1},
			points:    5,
			want:      decimal.Zero,
		},

		"partial match awards zero": {
			submitted: []int64{1},
			correct:   []int64{1, 3},
			points:    5,
			want:      decimal.Zero,
		},

		"superset awards zero": {
			submitted: []int64{1, 2},
			correct:   []int64{1},
			points:    5,
			want:      decimal.Zero,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := score.AwardedPoints(tt.submitted, tt.correct, tt.points)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
