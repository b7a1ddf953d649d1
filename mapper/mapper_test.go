package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMinutesSinceMidnightRoundTrips(t *testing.T) {
	hm := HourMinute{Hour: 9, Minute: 30}
	driverValue, err := MinutesSinceMidnight.ToDriver(hm)
	if err != nil {
		t.Fatal(err)
	}
	if driverValue.(int) != 570 {
		t.Fatalf("got %v, want 570", driverValue)
	}
	back, err := MinutesSinceMidnight.FromDriver(int64(570))
	if err != nil {
		t.Fatal(err)
	}
	if back.(HourMinute) != hm {
		t.Fatalf("got %+v, want %+v", back, hm)
	}
}

func TestEpochSecondsRoundTrips(t *testing.T) {
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	m := EpochSeconds(epoch)
	when := epoch.Add(90 * time.Second)
	driverValue, err := m.ToDriver(when)
	if err != nil {
		t.Fatal(err)
	}
	if driverValue.(int64) != 90 {
		t.Fatalf("got %v, want 90", driverValue)
	}
	back, err := m.FromDriver(int64(90))
	if err != nil {
		t.Fatal(err)
	}
	if !back.(time.Time).Equal(when) {
		t.Fatalf("got %v, want %v", back, when)
	}
}

func TestNullSafeShortCircuitsNil(t *testing.T) {
	wrapped := NullSafe(MinutesSinceMidnight)
	v, err := wrapped.ToDriver(nil)
	if err != nil || v != nil {
		t.Fatalf("expected nil,nil from NullSafe on nil input, got %v, %v", v, err)
	}
}

func TestNullSafeIsIdempotent(t *testing.T) {
	once := NullSafe(MinutesSinceMidnight)
	twice := NullSafe(once)
	if _, ok := twice.(nullSafe); !ok {
		t.Fatal("expected NullSafe(NullSafe(m)) to still be a nullSafe wrapper")
	}
	v, err := twice.ToDriver(nil)
	if err != nil || v != nil {
		t.Fatalf("expected nil,nil from double-wrapped NullSafe on nil input, got %v, %v", v, err)
	}
}

func TestUUIDRoundTripsThroughTextRepresentation(t *testing.T) {
	id := uuid.New()
	driverValue, err := UUID.ToDriver(id)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := driverValue.(string)
	if !ok || s != id.String() {
		t.Fatalf("got %v, want %q", driverValue, id.String())
	}
	back, err := UUID.FromDriver(s)
	if err != nil {
		t.Fatal(err)
	}
	if back.(uuid.UUID) != id {
		t.Fatalf("got %v, want %v", back, id)
	}
}

func TestUUIDFromDriverRejectsWrongType(t *testing.T) {
	if _, err := UUID.FromDriver(42); err == nil {
		t.Fatal("expected an error for a non-string, non-[16]byte driver value")
	}
}

type msgpackPayload struct {
	Name string
	Tags []string
}

func TestMsgpackRoundTripsStructValue(t *testing.T) {
	m := Msgpack(msgpackPayload{})
	want := msgpackPayload{Name: "widget", Tags: []string{"a", "b"}}

	driverValue, err := m.ToDriver(want)
	if err != nil {
		t.Fatal(err)
	}
	raw, ok := driverValue.([]byte)
	if !ok {
		t.Fatalf("got %T, want []byte", driverValue)
	}

	back, err := m.FromDriver(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := back.(msgpackPayload)
	if !ok {
		t.Fatalf("got %T, want msgpackPayload", back)
	}
	if got.Name != want.Name || len(got.Tags) != len(want.Tags) || got.Tags[0] != want.Tags[0] || got.Tags[1] != want.Tags[1] {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMsgpackFromDriverRejectsNonBytes(t *testing.T) {
	m := Msgpack(msgpackPayload{})
	if _, err := m.FromDriver("not bytes"); err == nil {
		t.Fatal("expected an error for a non-[]byte driver value")
	}
}
