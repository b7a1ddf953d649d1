package collection

import (
	"strings"
	"testing"
)

func TestBuildLateralWrapsChildInJSONAggAndON_TRUE(t *testing.T) {
	frag := BuildLateral("p", `SELECT * FROM "posts" "p" WHERE "p"."author_id" = "u"."id" LIMIT $1`, []any{5})
	if frag.Strategy != Lateral {
		t.Fatalf("got strategy %v, want Lateral", frag.Strategy)
	}
	if frag.CTEName != "p" {
		t.Fatalf("got CTEName %q, want the alias", frag.CTEName)
	}
	if !strings.Contains(frag.LateralSQL, `json_agg(to_jsonb("p".*)) AS "items"`) {
		t.Fatalf("expected a json_agg wrapper, got: %s", frag.LateralSQL)
	}
	if !strings.HasPrefix(frag.LateralSQL, "LATERAL (") || !strings.HasSuffix(frag.LateralSQL, `AS "p" ON TRUE`) {
		t.Fatalf("expected \"LATERAL (...) AS \\\"p\\\" ON TRUE\", got: %s", frag.LateralSQL)
	}
	if len(frag.LateralParams) != 1 || frag.LateralParams[0] != 5 {
		t.Fatalf("expected the child's own params to pass through unchanged, got %v", frag.LateralParams)
	}
}
