package rosbag2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLower(t *testing.T) {
	type point struct {
		X float64 `rosbag:"x"`
		Y float64 `rosbag:"y"`
		Z float64
		z float64
	}

	testCases := []struct {
		Name     string
		Native   interface{}
		Expected Value
	}{
		{
			Name:     "Scalar",
			Native:   int16(-3),
			Expected: LeafValue(int16(-3)),
		},
		{
			Name:     "Nil",
			Native:   nil,
			Expected: LeafValue(nil),
		},
		{
			Name:   "Map keys are sorted",
			Native: map[string]interface{}{"b": 1.5, "a": "x"},
			Expected: MappingValue(
				Field{Name: "a", Value: LeafValue("x")},
				Field{Name: "b", Value: LeafValue(1.5)},
			),
		},
		{
			Name:     "Bytes stay a single leaf",
			Native:   []byte{0xde, 0xad},
			Expected: LeafValue([]byte{0xde, 0xad}),
		},
		{
			Name:     "Byte arrays become a single leaf",
			Native:   [2]uint8{1, 2},
			Expected: LeafValue([]byte{1, 2}),
		},
		{
			Name:     "Numeric slice",
			Native:   []float32{1, 2},
			Expected: SequenceValue(LeafValue(float32(1)), LeafValue(float32(2))),
		},
		{
			Name: "Slice of messages",
			Native: []map[string]interface{}{
				{"name": "a"},
				{"name": "b"},
			},
			Expected: SequenceValue(
				MappingValue(Field{Name: "name", Value: LeafValue("a")}),
				MappingValue(Field{Name: "name", Value: LeafValue("b")}),
			),
		},
		{
			Name:   "Struct uses tags",
			Native: &point{X: 1, Y: 2, Z: 3},
			Expected: MappingValue(
				Field{Name: "x", Value: LeafValue(1.0)},
				Field{Name: "y", Value: LeafValue(2.0)},
				Field{Name: "Z", Value: LeafValue(3.0)},
			),
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			if diff := cmp.Diff(testCase.Expected, Lower(testCase.Native)); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestValueLeaves(t *testing.T) {
	v := MappingValue(
		Field{Name: "a", Value: LeafValue(1)},
		Field{Name: "b", Value: SequenceValue(LeafValue(1), LeafValue(2))},
		Field{Name: "c", Value: SequenceValue()},
		Field{Name: "d", Value: MappingValue(Field{Name: "e", Value: LeafValue([]byte{1, 2, 3})})},
	)

	if n := v.Leaves(); n != 4 {
		t.Fatalf("expected 4 leaves, got %d", n)
	}
}

func TestKindString(t *testing.T) {
	for kind, expected := range map[Kind]string{
		KindLeaf:     "leaf",
		KindSequence: "sequence",
		KindMapping:  "mapping",
		Kind(0):      "invalid",
	} {
		if kind.String() != expected {
			t.Fatalf("expected %s, got %s", expected, kind)
		}
	}
}
