package collection

import "github.com/syssam/pgorm/cte"

// BuildCTE renders the CTE strategy's fragment: group the child query's
// rows by the parent correlation column and aggregate each group into a
// jsonb array, ready to be composed into the root query's WITH clause
// and LEFT JOINed back by groupByColumn.
func BuildCTE(name, childSelectSQL, groupByColumn, childAlias string, childParams []any) Fragment {
	return Fragment{
		Strategy:  CTE,
		CTEName:   name,
		CTESQL:    cte.WithAggregation(childSelectSQL, groupByColumn, childAlias),
		CTEParams: childParams,
	}
}
