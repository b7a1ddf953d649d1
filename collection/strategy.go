// Package collection picks how a to-many navigation gets materialized:
// for every to-many navigation a query projects, it picks one of three
// interchangeable materialization strategies — CTE (json_agg aggregation
// composed as a WITH fragment), TempTable (a server-side temporary table
// populated then joined back), or LATERAL (a correlated per-parent
// subquery) — and validates that a per-parent limit/offset the caller
// asked for is legal under that strategy before any SQL is built. The
// collection terminal is carried on each Request but plays no part in
// choosing or validating the strategy. Building the
// strategies for a query's sibling collections is parallelized with
// golang.org/x/sync/errgroup, since each is an independent read against
// the schema registry and shares no mutable state.
package collection

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/plan"
)

// Strategy names one of the three interchangeable materialization
// approaches for a to-many navigation.
type Strategy int

const (
	// CTE aggregates child rows into a json_agg array per parent key,
	// composed as a WITH fragment joined back to the root query.
	CTE Strategy = iota
	// TempTable populates a server-side temporary table with the
	// child rows, then joins the root query against it.
	TempTable
	// Lateral runs the child query as a LATERAL subquery correlated to
	// the parent row, the only strategy that can honor a per-collection
	// LIMIT/OFFSET/ORDER BY.
	Lateral
)

func (s Strategy) String() string {
	switch s {
	case TempTable:
		return "temptable"
	case Lateral:
		return "lateral"
	default:
		return "cte"
	}
}

// Request describes one to-many collection a query needs materialized.
type Request struct {
	Alias           string
	Terminal        plan.CollectionTerminal
	PerParentLimit  *int
	PerParentOffset *int
	HasOrderBy      bool
	Preferred       string // "", "cte", "temptable", "lateral"
}

// Select validates req and returns the strategy that will build it.
// A per-parent limit/offset is only legal under Lateral — CTE and
// TempTable aggregate every child row for a parent in one pass and have
// no way to cap rows before the aggregate runs, so requesting one
// against them is a *pgorm.PlanError caught here rather than producing
// silently-wrong SQL.
func Select(req Request) (Strategy, error) {
	wantsPerParentLimit := req.PerParentLimit != nil || req.PerParentOffset != nil

	switch req.Preferred {
	case "cte":
		if wantsPerParentLimit {
			return 0, pgorm.NewPlanError("collection", "cte strategy cannot honor a per-parent limit/offset; use lateral")
		}
		return CTE, nil
	case "temptable":
		if wantsPerParentLimit {
			return 0, pgorm.NewPlanError("collection", "temptable strategy cannot honor a per-parent limit/offset; use lateral")
		}
		return TempTable, nil
	case "lateral":
		return Lateral, nil
	case "":
		if wantsPerParentLimit || req.HasOrderBy {
			return Lateral, nil
		}
		return CTE, nil
	default:
		return 0, pgorm.NewPlanError("collection", "unknown collection strategy preference "+req.Preferred)
	}
}

// BuildAll resolves and builds the SQL fragment for every request
// concurrently, since each is an independent read with no shared
// mutable state; the first error encountered cancels the remaining
// builds and is returned. BuildAll puts no bound on how many builds run
// at once.
func BuildAll(ctx context.Context, reqs []Request, build func(context.Context, Request, Strategy) (Fragment, error)) ([]Fragment, error) {
	return BuildAllLimited(ctx, reqs, 0, build)
}

// BuildAllLimited is BuildAll with an explicit concurrency ceiling:
// maxConcurrency bounds how many builds run at once (0 means unbounded)
// — useful when a single query fans out into many sibling to-many
// collections and each build borrows a connection from a size-limited
// pool.
func BuildAllLimited(ctx context.Context, reqs []Request, maxConcurrency int64, build func(context.Context, Request, Strategy) (Fragment, error)) ([]Fragment, error) {
	out := make([]Fragment, len(reqs))
	g, gctx := errgroup.WithContext(ctx)

	var sem *semaphore.Weighted
	if maxConcurrency > 0 {
		sem = semaphore.NewWeighted(maxConcurrency)
	}

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if sem != nil {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
			}
			strategy, err := Select(req)
			if err != nil {
				return err
			}
			frag, err := build(gctx, req, strategy)
			if err != nil {
				return err
			}
			out[i] = frag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Fragment is the built artifact for one collection request: a named
// CTE to compose (CTE strategy), a temp table to populate ahead of time
// (TempTable strategy), or a LATERAL join clause to splice into the
// FROM list (Lateral strategy). CTEName carries the name the root
// query's own projection selects "items" from regardless of which
// strategy built the fragment — a WITH-clause alias, a real temp table
// name, or a LATERAL join alias are all just FROM-list members by the
// time the root SELECT runs.
type Fragment struct {
	Strategy Strategy

	CTEName string

	// CTESQL/CTEParams are set for the CTE strategy: the WITH-clause
	// fragment text and its own bound parameters.
	CTESQL    string
	CTEParams []any

	// TempTableStatements holds the CREATE TABLE/CREATE INDEX/DROP
	// TABLE statements for the TempTable strategy, run in sequence
	// around the caller's own root SELECT; CTEParams carries the
	// CREATE TABLE statement's bound parameters. When the driver cannot
	// run multiple statements in one round trip the caller issues these
	// as separate Exec calls instead of joining them with semicolons.
	TempTableStatements []string

	// LateralSQL/LateralParams are set for the Lateral strategy: a
	// "LATERAL (subquery) AS alias ON TRUE" fragment for the FROM
	// clause, bound against its own private placeholder numbering that
	// the SQL emitter renumbers before splicing it in.
	LateralSQL    string
	LateralParams []any
}
