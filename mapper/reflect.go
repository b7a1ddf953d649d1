package mapper

import "reflect"

// newSameType allocates a new addressable zero value shaped like sample,
// suitable as a msgpack.Unmarshal destination regardless of whether sample
// itself is a pointer.
func newSameType(sample any) any {
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface()
	}
	return reflect.New(t).Interface()
}

// derefIfPointer mirrors the shape of sample back: if sample was not a
// pointer, dereference the addressable decode target so FromDriver returns
// a value, not a pointer-to-value, matching what ToDriver was given.
func derefIfPointer(sample, decoded any) any {
	if reflect.TypeOf(sample).Kind() == reflect.Ptr {
		return decoded
	}
	return reflect.ValueOf(decoded).Elem().Interface()
}
