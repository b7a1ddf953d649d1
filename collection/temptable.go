package collection

import "fmt"

// BuildTempTable renders the statement sequence for the TempTable
// strategy: create a server-side temporary table holding the child rows
// already aggregated by groupByColumn (the same json_agg(to_jsonb(...))
// shape the CTE strategy composes inline), index it by that column, and
// let the root query LEFT JOIN against it exactly as it would a CTE.
// TempTableStatements[0] creates and populates the table, [1] indexes
// it, [2] drops it once the root query has run — three statements
// around the caller's own root SELECT, four round trips total for a
// driver that cannot run multiple statements at once. Where it can (the
// driver's Capabilities().MultiStatement), the caller may join [0] and
// [1] with a semicolon into one Exec.
func BuildTempTable(tableName, childSelectSQL, groupByColumn, childAlias string, childParams []any) Fragment {
	aggregated := fmt.Sprintf(
		"SELECT %s AS %s, json_agg(to_jsonb(%s.*)) AS %s FROM (%s) AS %s GROUP BY %s",
		quoteIdent(groupByColumn), quoteIdent(groupByColumn),
		quoteIdent(childAlias), quoteIdent("items"),
		childSelectSQL, quoteIdent(childAlias),
		quoteIdent(groupByColumn),
	)
	create := fmt.Sprintf("CREATE TEMPORARY TABLE %s ON COMMIT DROP AS %s", quoteIdent(tableName), aggregated)
	index := fmt.Sprintf("CREATE INDEX ON %s (%s)", quoteIdent(tableName), quoteIdent(groupByColumn))
	drop := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(tableName))

	return Fragment{
		Strategy:            TempTable,
		CTEName:             tableName,
		TempTableStatements: []string{create, index, drop},
		CTEParams:           childParams,
	}
}

// CompensatingDrop returns the DROP TABLE statement to run if building
// or populating the temp table fails partway through, or the
// surrounding context is cancelled before the root query runs — a
// ON COMMIT DROP table only disappears at transaction end, so a
// long-lived connection outside an explicit transaction scope must drop
// it itself to avoid leaking temp tables across reused pool
// connections.
func CompensatingDrop(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(tableName))
}
