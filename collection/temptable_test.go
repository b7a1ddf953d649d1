package collection

import (
	"strings"
	"testing"
)

func TestBuildTempTableAggregatesBeforeMaterializing(t *testing.T) {
	frag := BuildTempTable("posts_tmp", `SELECT * FROM "posts" "p"`, "author_id", "p", nil)
	if frag.Strategy != TempTable {
		t.Fatalf("got strategy %v, want TempTable", frag.Strategy)
	}
	if len(frag.TempTableStatements) != 3 {
		t.Fatalf("got %d statements, want 3 (create, index, drop)", len(frag.TempTableStatements))
	}
	create, index, drop := frag.TempTableStatements[0], frag.TempTableStatements[1], frag.TempTableStatements[2]
	if !strings.Contains(create, `CREATE TEMPORARY TABLE "posts_tmp" ON COMMIT DROP AS`) {
		t.Fatalf("unexpected create statement: %s", create)
	}
	if !strings.Contains(create, `json_agg(to_jsonb("p".*)) AS "items"`) || !strings.Contains(create, `GROUP BY "author_id"`) {
		t.Fatalf("expected the create statement to aggregate by author_id: %s", create)
	}
	if !strings.Contains(index, `CREATE INDEX ON "posts_tmp" ("author_id")`) {
		t.Fatalf("unexpected index statement: %s", index)
	}
	if drop != `DROP TABLE IF EXISTS "posts_tmp"` {
		t.Fatalf("unexpected drop statement: %s", drop)
	}
}

func TestCompensatingDropMatchesTableName(t *testing.T) {
	if got := CompensatingDrop("posts_tmp"); got != `DROP TABLE IF EXISTS "posts_tmp"` {
		t.Fatalf("got %q", got)
	}
}
