package rosbag2

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lherman-cs/go-rosbag2/internal/cdrtest"
)

const everythingType = "custom_msgs/msg/Everything"

var everythingDef = []byte(`
# This is an example comment
# Example can be anywhere

# Following is a list of singular types
bool bool# Comment can be next to the variable name
int8     int8 # Space should not matter in between the type and name
  uint8 uint8 # Initial space shouldn't matter either
byte byte
char char
int16 int16
uint16 uint16
int32 int32
uint32 uint32
int64 int64
uint64 uint64
float32 float32
float64 float64
string string
string<=10 bounded_string
wstring wstring
Person person
int32 with_default 42

# Following is a list of sequence types
bool[] bool_slice
int8[] int8_slice
uint8[] uint8_slice
int16[] int16_slice
uint16[] uint16_slice
int32[] int32_slice
uint32[] uint32_slice
int64[] int64_slice
uint64[] uint64_slice
float32[] float32_slice
float64[] float64_slice
string[] string_slice
Person[] person_slice
float64[<=4] bounded_slice

# Following is a list of fixed size arrays
int16[2] int16_array
float64[3] float64_array
string[1] string_array
Person[2] person_array

int32 CONST_INT=-1
string CONST_STR = "lukas herman"
float64 CONST_FLOAT = 0.321

================================================================================
  MSG: custom_msgs/Person # Message type should be parseable with a comment and a leading space
uint8 age
string name
`)

func everythingPayload(order binary.ByteOrder) []byte {
	w := cdrtest.NewWriter(order)
	w.Bool(true).
		Int8(math.MinInt8).
		Uint8(math.MaxUint8).
		Uint8(7).
		Uint8('c').
		Int16(math.MinInt16).
		Uint16(math.MaxUint16).
		Int32(math.MinInt32).
		Uint32(math.MaxUint32).
		Int64(math.MinInt64).
		Uint64(math.MaxUint64).
		Float32(math.MaxFloat32 / 10).
		Float64(math.MaxFloat64 / 10).
		String("lukas").
		String("bounded").
		WString("héllo").
		Uint8(24).String("ada").
		Int32(7)

	w.Length(2).Bool(true).Bool(false)
	w.Length(2).Int8(-1).Int8(1)
	w.Bytes([]byte{1, 2})
	w.Length(2).Int16(-1).Int16(1)
	w.Length(2).Uint16(1).Uint16(2)
	w.Length(2).Int32(-1).Int32(1)
	w.Length(2).Uint32(1).Uint32(2)
	w.Length(2).Int64(-1).Int64(1)
	w.Length(2).Uint64(1).Uint64(2)
	w.Length(3).Float32(0.123).Float32(0.3312).Float32(0.111)
	w.Length(3).Float64(-0.123).Float64(0.3312).Float64(-0.111)
	w.Length(2).String("a").String("b")
	w.Length(2).Uint8(26).String("x").Uint8(100).String("y")
	w.Length(1).Float64(1.5)

	w.Int16(-1).Int16(1)
	w.Float64s(1, 2, 3)
	w.String("only")
	w.Uint8(1).String("p").Uint8(2).String("q")

	return w.Payload()
}

func everythingMap() map[string]interface{} {
	person := func(age uint8, name string) map[string]interface{} {
		return map[string]interface{}{"age": age, "name": name}
	}

	return map[string]interface{}{
		"bool":           true,
		"int8":           int8(math.MinInt8),
		"uint8":          uint8(math.MaxUint8),
		"byte":           uint8(7),
		"char":           uint8('c'),
		"int16":          int16(math.MinInt16),
		"uint16":         uint16(math.MaxUint16),
		"int32":          int32(math.MinInt32),
		"uint32":         uint32(math.MaxUint32),
		"int64":          int64(math.MinInt64),
		"uint64":         uint64(math.MaxUint64),
		"float32":        float32(math.MaxFloat32 / 10),
		"float64":        float64(math.MaxFloat64 / 10),
		"string":         "lukas",
		"bounded_string": "bounded",
		"wstring":        "héllo",
		"person":         person(24, "ada"),
		"with_default":   int32(7),
		"bool_slice":     []bool{true, false},
		"int8_slice":     []int8{-1, 1},
		"uint8_slice":    []uint8{1, 2},
		"int16_slice":    []int16{-1, 1},
		"uint16_slice":   []uint16{1, 2},
		"int32_slice":    []int32{-1, 1},
		"uint32_slice":   []uint32{1, 2},
		"int64_slice":    []int64{-1, 1},
		"uint64_slice":   []uint64{1, 2},
		"float32_slice":  []float32{0.123, 0.3312, 0.111},
		"float64_slice":  []float64{-0.123, 0.3312, -0.111},
		"string_slice":   []string{"a", "b"},
		"person_slice":   []map[string]interface{}{person(26, "x"), person(100, "y")},
		"bounded_slice":  []float64{1.5},
		"int16_array":    []int16{-1, 1},
		"float64_array":  []float64{1, 2, 3},
		"string_array":   []string{"only"},
		"person_array":   []map[string]interface{}{person(1, "p"), person(2, "q")},
	}
}

func newEverythingRegistry(t testing.TB) *Registry {
	reg := NewRegistry()
	if err := reg.AddDefinition(everythingType, everythingDef); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestMessageDefinitionUnmarshall(t *testing.T) {
	defs, err := parseMessageDefinitions(everythingType, everythingDef)
	if err != nil {
		t.Fatal(err)
	}

	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	def, person := defs[0], defs[1]
	if person.Type != "custom_msgs/msg/Person" {
		t.Fatalf("unexpected nested type %s", person.Type)
	}

	fields := make(map[string]*MessageFieldDefinition)
	for _, field := range def.Fields {
		fields[field.Name] = field
	}

	testCases := []struct {
		Name     string
		Expected MessageFieldDefinition
	}{
		{
			Name:     "bounded_string",
			Expected: MessageFieldDefinition{Type: MessageFieldTypeString, Name: "bounded_string", ArraySize: -1, Bound: 10},
		},
		{
			Name:     "with_default",
			Expected: MessageFieldDefinition{Type: MessageFieldTypeInt32, Name: "with_default", ArraySize: -1, Default: "42"},
		},
		{
			Name:     "bounded_slice",
			Expected: MessageFieldDefinition{Type: MessageFieldTypeFloat64, Name: "bounded_slice", IsArray: true, ArraySize: -1, Bound: 4},
		},
		{
			Name:     "float64_array",
			Expected: MessageFieldDefinition{Type: MessageFieldTypeFloat64, Name: "float64_array", IsArray: true, ArraySize: 3},
		},
		{
			Name:     "byte",
			Expected: MessageFieldDefinition{Type: MessageFieldTypeUint8, Name: "byte", ArraySize: -1},
		},
		{
			Name:     "person_slice",
			Expected: MessageFieldDefinition{Type: MessageFieldTypeComplex, Name: "person_slice", IsArray: true, ArraySize: -1, TypeName: "custom_msgs/msg/Person"},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			actual, ok := fields[testCase.Name]
			if !ok {
				t.Fatalf("missing field %s", testCase.Name)
			}

			if diff := cmp.Diff(testCase.Expected, *actual); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	expectedConsts := map[string]interface{}{
		"CONST_INT":   int32(-1),
		"CONST_STR":   "lukas herman",
		"CONST_FLOAT": float64(0.321),
	}
	actualConsts := make(map[string]interface{})
	for _, c := range def.Constants {
		actualConsts[c.Name] = c.Value
	}
	if diff := cmp.Diff(expectedConsts, actualConsts); diff != "" {
		t.Fatal(diff)
	}
}

func TestDecodeMessageData(t *testing.T) {
	reg := newEverythingRegistry(t)

	testCases := []struct {
		Name  string
		Order binary.ByteOrder
	}{
		{Name: "Little Endian", Order: binary.LittleEndian},
		{Name: "Big Endian", Order: binary.BigEndian},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			fn, err := reg.Resolve(everythingType)
			if err != nil {
				t.Fatal(err)
			}

			actual, err := fn(everythingPayload(testCase.Order))
			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(everythingMap(), actual); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

type testPerson struct {
	Age  uint8  `rosbag:"age"`
	Name string `rosbag:"name"`
}

type testEverything struct {
	Bool         bool          `rosbag:"bool"`
	String       string        `rosbag:"string"`
	Person       testPerson    `rosbag:"person"`
	PersonSlice  []testPerson  `rosbag:"person_slice"`
	PersonArray  []*testPerson `rosbag:"person_array"`
	Float64Array [3]float64    `rosbag:"float64_array"`
	Uint8Slice   []byte        `rosbag:"uint8_slice"`
	Ignored      string
}

func TestDecodeMessageDataStruct(t *testing.T) {
	reg := newEverythingRegistry(t)

	actual := testEverything{Ignored: "untouched"}
	err := reg.UnmarshallTo(everythingType, everythingPayload(binary.LittleEndian), &actual)
	if err != nil {
		t.Fatal(err)
	}

	expected := testEverything{
		Bool:         true,
		String:       "lukas",
		Person:       testPerson{Age: 24, Name: "ada"},
		PersonSlice:  []testPerson{{Age: 26, Name: "x"}, {Age: 100, Name: "y"}},
		PersonArray:  []*testPerson{{Age: 1, Name: "p"}, {Age: 2, Name: "q"}},
		Float64Array: [3]float64{1, 2, 3},
		Uint8Slice:   []byte{1, 2},
		Ignored:      "untouched",
	}

	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatal(diff)
	}
}

func TestDecodeMessageDataStructMismatch(t *testing.T) {
	reg := newEverythingRegistry(t)

	var actual struct {
		Bool string `rosbag:"bool"`
	}
	err := reg.UnmarshallTo(everythingType, everythingPayload(binary.LittleEndian), &actual)

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected a DecodeError, got %v", err)
	}
}

func TestDecodeMessageDataInvalidTarget(t *testing.T) {
	reg := newEverythingRegistry(t)

	var notAStruct int
	err := reg.UnmarshallTo(everythingType, everythingPayload(binary.LittleEndian), &notAStruct)
	if !errors.Is(err, errInvalidDataType) {
		t.Fatalf("expected errInvalidDataType, got %v", err)
	}
}

func TestDecodeMessageDataTruncated(t *testing.T) {
	reg := newEverythingRegistry(t)
	payload := everythingPayload(binary.LittleEndian)

	for _, size := range []int{0, 3, 4, 5, 40, len(payload) - 1} {
		_, err := reg.Decode(everythingType, payload[:size])

		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("size %d: expected a DecodeError, got %v", size, err)
		}
	}
}

func TestDecodeEmptyMessage(t *testing.T) {
	reg, err := NewDefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}

	v, err := reg.Decode("std_msgs/msg/Empty", cdrtest.LE().Uint8(0).Payload())
	if err != nil {
		t.Fatal(err)
	}

	if v.Kind != KindMapping || len(v.Fields) != 0 {
		t.Fatalf("expected an empty mapping, got %+v", v)
	}
}

func TestDecodeEmptySequences(t *testing.T) {
	reg, err := NewDefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}

	// an odd-sized frame id leaves the reader unaligned before the empty sequences
	payload := cdrtest.LE().
		Header(1, 2, "odd").
		Length(0).
		Length(0).
		Length(0).
		Length(0).
		Payload()

	fn, err := reg.Resolve("sensor_msgs/msg/JointState")
	if err != nil {
		t.Fatal(err)
	}

	actual, err := fn(payload)
	if err != nil {
		t.Fatal(err)
	}

	m := actual.(map[string]interface{})
	if len(m["name"].([]string)) != 0 || len(m["position"].([]float64)) != 0 {
		t.Fatalf("expected empty sequences, got %v", m)
	}
}

func TestParseFieldLineErrors(t *testing.T) {
	testCases := []struct {
		Name string
		Line string
	}{
		{Name: "Missing name", Line: "int32"},
		{Name: "Unclosed array", Line: "int32[3 values"},
		{Name: "Bad array size", Line: "int32[x] values"},
		{Name: "Bad bound", Line: "string<=x name"},
		{Name: "Bad constant", Line: "int8 TOO_BIG=1000"},
		{Name: "Complex constant", Line: "Person P=1"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			_, _, err := parseFieldLine("pkg", []byte(testCase.Line))
			if err == nil {
				t.Fatal("expected to fail")
			}
		})
	}
}

func TestNormalizeTypeID(t *testing.T) {
	testCases := []struct {
		Pkg      string
		Name     string
		Expected string
	}{
		{Pkg: "geometry_msgs", Name: "Point", Expected: "geometry_msgs/msg/Point"},
		{Pkg: "sensor_msgs", Name: "Header", Expected: "std_msgs/msg/Header"},
		{Pkg: "sensor_msgs", Name: "std_msgs/Header", Expected: "std_msgs/msg/Header"},
		{Pkg: "", Name: "pkg/msg/Type", Expected: "pkg/msg/Type"},
		{Pkg: "", Name: "Type", Expected: "Type"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			if actual := normalizeTypeID(testCase.Pkg, testCase.Name); actual != testCase.Expected {
				t.Fatalf("expected %s, got %s", testCase.Expected, actual)
			}
		})
	}
}
