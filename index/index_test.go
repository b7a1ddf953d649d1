package index

import (
	"testing"

	"github.com/syssam/pgorm/schema"
)

func TestFieldsPreservesOrder(t *testing.T) {
	d := Fields("lastName", "firstName").Descriptor().(schema.IndexDescriptor)
	if len(d.Fields) != 2 || d.Fields[0] != "lastName" || d.Fields[1] != "firstName" {
		t.Fatalf("unexpected Fields order: %+v", d.Fields)
	}
	if d.Unique {
		t.Fatal("did not expect Fields() alone to mark the index unique")
	}
}

func TestUniqueMarksIndexUnique(t *testing.T) {
	d := Fields("email").Unique().Descriptor().(schema.IndexDescriptor)
	if !d.Unique {
		t.Fatal("expected Unique() to set Unique")
	}
}
