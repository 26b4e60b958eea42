package services

import "testing"

func TestUnitAmountCentsRounds(t *testing.T) {
	cases := []struct {
		price float64
		want  int64
	}{
		{4.35, 435},
		{8.20, 820},
		{19.99, 1999},
		{0.01, 1},
		{10, 1000},
	}
	for _, tc := range cases {
		if got := unitAmountCents(tc.price); got != tc.want {
			t.Errorf("unitAmountCents(%v) = %d, want %d", tc.price, got, tc.want)
		}
	}
}
