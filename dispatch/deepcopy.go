package dispatch

import "reflect"

// deepCopy recursively duplicates v so that each workgroup's shared-memory
// instance is fully independent: a shallow copy (e.g. copying a struct that
// embeds a slice) would still let two workgroups alias the same backing
// array, silently defeating per-workgroup isolation (spec.md §4.4, §9). A
// nil v is normalized to an empty struct{} placeholder, so a shader that
// declares no shared memory still gets a valid, harmless args field.
func deepCopy(v any) any {
	if v == nil {
		return struct{}{}
	}
	rv := reflect.ValueOf(v)
	return deepCopyValue(rv).Interface()
}

func deepCopyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopyValue(v.Elem()))
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			f := out.Field(i)
			if !f.CanSet() {
				// Unexported field: copy by value without recursing, the
				// best we can do without unsafe.
				continue
			}
			f.Set(deepCopyValue(v.Field(i)))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopyValue(v.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopyValue(v.Index(i)))
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(deepCopyValue(iter.Key()), deepCopyValue(iter.Value()))
		}
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(deepCopyValue(v.Elem()))
		return out

	default:
		// Scalars (numbers, bools, strings, chans, funcs) copy by value
		// already; strings are immutable so sharing their backing bytes
		// is safe.
		return v
	}
}
