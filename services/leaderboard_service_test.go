package services

import "testing"

func TestRankWindow(t *testing.T) {
	cases := []struct {
		name         string
		rank         int
		lower, upper int
	}{
		{"top of board", 1, 1, 6},
		{"clamped at one", 4, 1, 9},
		{"last clamped rank", 6, 1, 11},
		{"first full window", 7, 2, 12},
		{"deep in the board", 100, 95, 105},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lower, upper := rankWindow(tc.rank)
			if lower != tc.lower || upper != tc.upper {
				t.Fatalf("rankWindow(%d) = (%d, %d), want (%d, %d)",
					tc.rank, lower, upper, tc.lower, tc.upper)
			}
		})
	}
}
