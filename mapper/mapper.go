// Package mapper implements the bidirectional value-mapper contract: a
// pair of pure total functions translating between the application
// representation of a column and the representation the driver
// sends/receives. Nulls pass through unmapped: both [Func] and
// [NullSafe] return nil for a nil input without calling the wrapped
// conversion.
package mapper

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Mapper is the value-mapper contract.
type Mapper interface {
	// DataType names the SQL type the driver-side value is stored as.
	DataType() string
	// ToDriver converts an application value to its driver representation.
	// A nil input must return a nil output.
	ToDriver(appValue any) (driverValue any, err error)
	// FromDriver converts a driver value back to its application
	// representation. A nil input must return a nil output.
	FromDriver(driverValue any) (appValue any, err error)
}

// Func adapts two plain functions into a [Mapper].
type Func struct {
	SQLType    string
	ToDriverFn func(any) (any, error)
	FromDriverFn func(any) (any, error)
}

func (f Func) DataType() string { return f.SQLType }

func (f Func) ToDriver(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return f.ToDriverFn(v)
}

func (f Func) FromDriver(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return f.FromDriverFn(v)
}

// NullSafe wraps m so that nil always maps to nil on both directions,
// even if m itself does not guard for it. Registering a custom [Mapper]
// through field.Custom always wraps it in NullSafe.
func NullSafe(m Mapper) Mapper {
	if ns, ok := m.(nullSafe); ok {
		return ns
	}
	return nullSafe{m}
}

type nullSafe struct{ Mapper }

func (n nullSafe) ToDriver(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return n.Mapper.ToDriver(v)
}

func (n nullSafe) FromDriver(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return n.Mapper.FromDriver(v)
}

// HourMinute is the application-side value for MinutesSinceMidnight, a
// worked example of a custom value mapper.
type HourMinute struct {
	Hour   int
	Minute int
}

// MinutesSinceMidnight maps an integer column storing minutes elapsed
// since midnight to/from an {Hour, Minute} pair.
var MinutesSinceMidnight Mapper = Func{
	SQLType: "integer",
	ToDriverFn: func(v any) (any, error) {
		hm, ok := v.(HourMinute)
		if !ok {
			return nil, fmt.Errorf("mapper: MinutesSinceMidnight: expected HourMinute, got %T", v)
		}
		return hm.Hour*60 + hm.Minute, nil
	},
	FromDriverFn: func(v any) (any, error) {
		minutes, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return HourMinute{Hour: int(minutes / 60), Minute: int(minutes % 60)}, nil
	},
}

// EpochSeconds maps an integer column storing seconds since a custom
// epoch to/from a time.Time.
func EpochSeconds(epoch time.Time) Mapper {
	return Func{
		SQLType: "bigint",
		ToDriverFn: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("mapper: EpochSeconds: expected time.Time, got %T", v)
			}
			return int64(t.Sub(epoch).Seconds()), nil
		},
		FromDriverFn: func(v any) (any, error) {
			secs, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			return epoch.Add(time.Duration(secs) * time.Second), nil
		},
	}
}

// UUID maps between google/uuid.UUID and the textual representation most
// Postgres drivers hand back for a uuid column.
var UUID Mapper = Func{
	SQLType: "uuid",
	ToDriverFn: func(v any) (any, error) {
		switch id := v.(type) {
		case uuid.UUID:
			return id.String(), nil
		case [16]byte:
			return uuid.UUID(id).String(), nil
		default:
			return nil, fmt.Errorf("mapper: UUID: expected uuid.UUID, got %T", v)
		}
	},
	FromDriverFn: func(v any) (any, error) {
		switch s := v.(type) {
		case string:
			return uuid.Parse(s)
		case [16]byte:
			return uuid.UUID(s), nil
		default:
			return nil, fmt.Errorf("mapper: UUID: expected string or [16]byte, got %T", v)
		}
	},
}

// Msgpack maps an arbitrary Go value to/from a msgpack-encoded bytea
// column, for entities that park semi-structured payloads alongside
// their relational columns without reaching for a full jsonb codec.
func Msgpack(sample any) Mapper {
	return Func{
		SQLType: "bytea",
		ToDriverFn: func(v any) (any, error) {
			return msgpack.Marshal(v)
		},
		FromDriverFn: func(v any) (any, error) {
			b, ok := v.([]byte)
			if !ok {
				return nil, fmt.Errorf("mapper: Msgpack: expected []byte, got %T", v)
			}
			out := newSameType(sample)
			if err := msgpack.Unmarshal(b, out); err != nil {
				return nil, err
			}
			return derefIfPointer(sample, out), nil
		},
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("mapper: expected integer driver value, got %T", v)
	}
}
