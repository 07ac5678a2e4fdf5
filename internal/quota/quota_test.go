package quota

import (
	"testing"
	"time"
)

func TestCanScan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		last  string
		count int
		want  bool
	}{
		{name: "fresh user", last: "", count: 0, want: true},
		{name: "under limit", last: "2024-05-02", count: 99, want: true},
		{name: "at limit", last: "2024-05-02", count: 100, want: false},
		{name: "over limit", last: "2024-05-02", count: 130, want: false},
		{name: "limit reached yesterday", last: "2024-05-01", count: 100, want: true},
	}
	for _, tc := range cases {
		if got := CanScan(tc.last, tc.count, DailyScanLimit, "2024-05-02"); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestTodayUsesUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*60*60)
	now := time.Date(2024, 5, 2, 3, 0, 0, 0, loc)
	if got := Today(now); got != "2024-05-01" {
		t.Fatalf("unexpected day: %s", got)
	}
}
