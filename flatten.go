package rosbag2

import (
	"sort"
	"strconv"
)

// FlatRecord maps a dotted/indexed path such as "pose.position.x" or
// "transforms[0].child_frame_id" to a scalar leaf.
type FlatRecord map[string]interface{}

// Keys returns the keys of rec in ascending order.
func (rec FlatRecord) Keys() []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten walks v and collects every leaf under its composed path. A bare leaf
// ends up under the empty key.
func Flatten(v Value) FlatRecord {
	return FlattenPrefix(v, "")
}

// FlattenPrefix is Flatten with every key rooted at prefix. When two leaves compose
// to the same key, the one visited last wins.
func FlattenPrefix(v Value, prefix string) FlatRecord {
	rec := make(FlatRecord)
	flattenInto(rec, v, prefix)
	return rec
}

func flattenInto(rec FlatRecord, v Value, prefix string) {
	switch v.Kind {
	case KindMapping:
		for _, field := range v.Fields {
			key := field.Name
			if prefix != "" {
				key = prefix + "." + field.Name
			}
			flattenInto(rec, field.Value, key)
		}
	case KindSequence:
		for i, item := range v.Items {
			flattenInto(rec, item, prefix+"["+strconv.Itoa(i)+"]")
		}
	default:
		rec[prefix] = v.Leaf
	}
}
