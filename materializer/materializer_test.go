package materializer

import (
	"errors"
	"testing"

	"github.com/syssam/pgorm/mapper"
)

func TestDecodeJSONAggNullBecomesEmptySlice(t *testing.T) {
	v, err := decodeJSONAgg(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	items, ok := v.([]map[string]any)
	if !ok || len(items) != 0 {
		t.Fatalf("got %#v, want an empty slice", v)
	}
}

func TestDecodeJSONAggParsesArray(t *testing.T) {
	v, err := decodeJSONAgg([]byte(`[{"id":1},{"id":2}]`), nil)
	if err != nil {
		t.Fatal(err)
	}
	items := v.([]map[string]any)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestDecodeJSONAggAppliesItemMapperToEachRow(t *testing.T) {
	doubled := mapper.Func{FromDriverFn: func(v any) (any, error) {
		n, ok := v.(float64)
		if !ok {
			return nil, errors.New("not a number")
		}
		return n * 2, nil
	}}
	v, err := decodeJSONAgg([]byte(`[{"minutes":5},{"minutes":7}]`), map[string]mapper.Mapper{"minutes": doubled})
	if err != nil {
		t.Fatal(err)
	}
	items := v.([]map[string]any)
	if items[0]["minutes"] != float64(10) || items[1]["minutes"] != float64(14) {
		t.Fatalf("expected the mapper applied to every item, got %+v", items)
	}
}

func TestDecodeJSONAggSkipsMapperOnNullField(t *testing.T) {
	called := false
	m := mapper.Func{FromDriverFn: func(v any) (any, error) {
		called = true
		return v, nil
	}}
	v, err := decodeJSONAgg([]byte(`[{"minutes":null}]`), map[string]mapper.Mapper{"minutes": m})
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("expected the mapper not to be called for a null field")
	}
	items := v.([]map[string]any)
	if items[0]["minutes"] != nil {
		t.Fatalf("expected minutes to stay nil, got %v", items[0]["minutes"])
	}
}

func TestFirstOrDefaultOnEmptyIsNil(t *testing.T) {
	if got := FirstOrDefault(nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestOnlyErrorsOnMultipleRows(t *testing.T) {
	rows := []Row{{"u": {"id": 1}}, {"u": {"id": 2}}}
	_, err := Only("User", rows)
	if err == nil {
		t.Fatal("expected an error for more than one row")
	}
}

func TestOnlyErrorsOnNoRows(t *testing.T) {
	_, err := Only("User", nil)
	if err == nil {
		t.Fatal("expected an error for zero rows")
	}
}
