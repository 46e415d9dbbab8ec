package rosbag2

import (
	"reflect"
	"sort"
)

type Kind uint8

const (
	KindLeaf Kind = iota + 1
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "invalid"
	}
}

// Value is a decoded message: a scalar leaf, an ordered sequence of values or a
// mapping of field names to values. Only the member matching Kind is set.
type Value struct {
	Kind   Kind
	Leaf   interface{}
	Items  []Value
	Fields []Field
}

type Field struct {
	Name  string
	Value Value
}

func LeafValue(v interface{}) Value {
	return Value{Kind: KindLeaf, Leaf: v}
}

func SequenceValue(items ...Value) Value {
	return Value{Kind: KindSequence, Items: items}
}

func MappingValue(fields ...Field) Value {
	return Value{Kind: KindMapping, Fields: fields}
}

// Leaves counts the leaves of v.
func (v Value) Leaves() int {
	switch v.Kind {
	case KindSequence:
		n := 0
		for _, item := range v.Items {
			n += item.Leaves()
		}
		return n
	case KindMapping:
		n := 0
		for _, field := range v.Fields {
			n += field.Value.Leaves()
		}
		return n
	default:
		return 1
	}
}

// Lower converts a natively decoded message into a Value. Maps become mappings with
// their keys sorted, slices and arrays become sequences except []byte, which stays a
// single binary leaf. Structs are lowered through their rosbag tags.
func Lower(native interface{}) Value {
	switch v := native.(type) {
	case nil:
		return LeafValue(nil)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Name: k, Value: Lower(v[k])}
		}
		return MappingValue(fields...)
	case []byte:
		return LeafValue(v)
	case bool, string, int8, uint8, int16, uint16, int32, uint32, int64, uint64, float32, float64:
		return LeafValue(v)
	}

	return lowerReflect(reflect.ValueOf(native))
}

func lowerReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return LeafValue(nil)
		}
		return Lower(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return LeafValue(b)
		}

		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = Lower(rv.Index(i).Interface())
		}
		return SequenceValue(items...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return LeafValue(rv.Interface())
		}

		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})

		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Name: k.String(), Value: Lower(rv.MapIndex(k).Interface())}
		}
		return MappingValue(fields...)
	case reflect.Struct:
		rt := rv.Type()
		var fields []Field
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}

			name, ok := field.Tag.Lookup(rosbagStructTag)
			if !ok {
				name = field.Name
			}
			fields = append(fields, Field{Name: name, Value: Lower(rv.Field(i).Interface())})
		}
		return MappingValue(fields...)
	default:
		return LeafValue(rv.Interface())
	}
}
