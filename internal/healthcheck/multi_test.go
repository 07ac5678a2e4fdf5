package healthcheck

import (
	"context"
	"testing"
)

type testChecker struct {
	items []CheckResult
}

func (c *testChecker) ListChecks(ctx context.Context) []CheckResult {
	return c.items
}

func TestMultiCheckerListChecks(t *testing.T) {
	t.Parallel()

	checker := NewMultiChecker(
		&testChecker{items: []CheckResult{{ID: "store.ping", Status: StatusOK}}},
		nil,
		&testChecker{items: []CheckResult{{ID: "openai.config", Status: StatusWarn}}},
	)
	items := checker.ListChecks(context.Background())
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "store.ping" || items[1].ID != "openai.config" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestMultiCheckerNil(t *testing.T) {
	t.Parallel()

	var checker *MultiChecker
	if items := checker.ListChecks(context.Background()); len(items) != 0 {
		t.Fatalf("expected empty result, got %d", len(items))
	}
}

func TestOverall(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		items []CheckResult
		want  string
	}{
		{name: "empty", want: StatusOK},
		{name: "all ok", items: []CheckResult{{Status: StatusOK}, {Status: StatusOK}}, want: StatusOK},
		{name: "warn", items: []CheckResult{{Status: StatusOK}, {Status: StatusWarn}}, want: StatusWarn},
		{name: "unknown counts as warn", items: []CheckResult{{Status: StatusUnknown}}, want: StatusWarn},
		{name: "error wins", items: []CheckResult{{Status: StatusWarn}, {Status: StatusError}}, want: StatusError},
	}
	for _, tc := range cases {
		if got := Overall(tc.items); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.name, tc.want, got)
		}
	}
}
