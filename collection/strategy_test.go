package collection

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/plan"
)

func TestSelectDefaultsToCTEWithoutPerParentLimit(t *testing.T) {
	s, err := Select(Request{Terminal: plan.ToList})
	if err != nil {
		t.Fatal(err)
	}
	if s != CTE {
		t.Fatalf("got %v, want CTE", s)
	}
}

func TestSelectDefaultsToLateralWithPerParentLimit(t *testing.T) {
	n := 5
	s, err := Select(Request{Terminal: plan.ToList, PerParentLimit: &n})
	if err != nil {
		t.Fatal(err)
	}
	if s != Lateral {
		t.Fatalf("got %v, want Lateral", s)
	}
}

func TestSelectRejectsPerParentLimitUnderCTE(t *testing.T) {
	n := 5
	_, err := Select(Request{Terminal: plan.ToList, PerParentLimit: &n, Preferred: "cte"})
	if !pgorm.IsPlanError(err) {
		t.Fatalf("expected a PlanError, got %v", err)
	}
}

func TestSelectRejectsPerParentLimitUnderTempTable(t *testing.T) {
	n := 5
	_, err := Select(Request{Terminal: plan.ToList, PerParentLimit: &n, Preferred: "temptable"})
	if !pgorm.IsPlanError(err) {
		t.Fatalf("expected a PlanError, got %v", err)
	}
}

func TestBuildAllRunsSiblingCollectionsConcurrently(t *testing.T) {
	reqs := []Request{{Alias: "a"}, {Alias: "b"}, {Alias: "c"}}
	frags, err := BuildAll(context.Background(), reqs, func(_ context.Context, req Request, s Strategy) (Fragment, error) {
		return Fragment{Strategy: s, CTEName: req.Alias}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 3 {
		t.Fatalf("got %d fragments, want 3", len(frags))
	}
	for i, want := range []string{"a", "b", "c"} {
		if frags[i].CTEName != want {
			t.Fatalf("frags[%d].CTEName = %q, want %q (order must be preserved)", i, frags[i].CTEName, want)
		}
	}
}

func TestBuildAllPropagatesFirstError(t *testing.T) {
	reqs := []Request{{Alias: "a"}, {Alias: "b", PerParentLimit: ptr(1), Preferred: "cte"}}
	_, err := BuildAll(context.Background(), reqs, func(_ context.Context, req Request, s Strategy) (Fragment, error) {
		return Fragment{Strategy: s}, nil
	})
	if !pgorm.IsPlanError(err) {
		t.Fatalf("expected a PlanError from the invalid request, got %v", err)
	}
}

func TestBuildAllLimitedCapsConcurrency(t *testing.T) {
	reqs := make([]Request, 6)
	var inFlight, maxObserved atomic.Int64
	_, err := BuildAllLimited(context.Background(), reqs, 2, func(ctx context.Context, req Request, s Strategy) (Fragment, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxObserved.Load()
			if n <= cur || maxObserved.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return Fragment{Strategy: s}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if maxObserved.Load() > 2 {
		t.Fatalf("observed %d concurrent builds, want at most 2", maxObserved.Load())
	}
}

func ptr(n int) *int { return &n }
