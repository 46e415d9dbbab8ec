package rosbag2

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	rosbagStructTag = "rosbag"
	msgSeparator    = "MSG:"
)

var (
	errInvalidFormat     = errors.New("invalid message format")
	errUnresolvedMsgType = errors.New("failed to resolve a complex message type")
	errInvalidConstType  = errors.New("invalid const type")
	errInvalidDataType   = errors.New("data must be a map[string]interface{} or a pointer to a struct")
	errInvalidFieldLine  = errors.New("invalid field definition")
	errRecursiveMsgType  = errors.New("message type refers to itself")
)

type MessageFieldType uint8

const (
	MessageFieldTypeBool MessageFieldType = iota + 1
	MessageFieldTypeInt8
	MessageFieldTypeUint8
	MessageFieldTypeInt16
	MessageFieldTypeUint16
	MessageFieldTypeInt32
	MessageFieldTypeUint32
	MessageFieldTypeInt64
	MessageFieldTypeUint64
	MessageFieldTypeFloat32
	MessageFieldTypeFloat64
	MessageFieldTypeString
	MessageFieldTypeWString
	MessageFieldTypeComplex
)

var (
	messageFieldTypeMap = map[string]MessageFieldType{
		"bool":    MessageFieldTypeBool,
		"byte":    MessageFieldTypeUint8,
		"char":    MessageFieldTypeUint8,
		"int8":    MessageFieldTypeInt8,
		"uint8":   MessageFieldTypeUint8,
		"int16":   MessageFieldTypeInt16,
		"uint16":  MessageFieldTypeUint16,
		"int32":   MessageFieldTypeInt32,
		"uint32":  MessageFieldTypeUint32,
		"int64":   MessageFieldTypeInt64,
		"uint64":  MessageFieldTypeUint64,
		"float32": MessageFieldTypeFloat32,
		"float64": MessageFieldTypeFloat64,
		"string":  MessageFieldTypeString,
		"wstring": MessageFieldTypeWString,
	}

	mapSliceType = reflect.TypeOf([]map[string]interface{}{})
)

// MessageDefinition is defined here, https://docs.ros.org/en/rolling/Concepts/Basic/About-Interfaces.html
type MessageDefinition struct {
	Type      string
	Fields    []*MessageFieldDefinition
	Constants []*MessageFieldDefinition
}

type MessageFieldDefinition struct {
	Type    MessageFieldType
	Name    string
	IsArray bool
	// ArraySize is only used when the field is a fixed-size array. If it's a sequence, ArraySize is -1
	ArraySize int
	// Bound is the upper bound of a bounded sequence or string, 0 when unbounded.
	Bound int
	// Value is an optional field. It's only being used for constants
	Value interface{}
	// Default is the raw default value, if the definition carries one.
	Default string
	// TypeName is the fully-qualified type id of a complex field.
	TypeName string
	// MsgType is only being used when type is complex. This defines the custom
	// message type.
	MsgType *MessageDefinition
}

// NormalizeTypeID expands short type names, "pkg/Type" becomes "pkg/msg/Type".
func NormalizeTypeID(typeID string) string {
	return normalizeTypeID("", typeID)
}

// normalizeTypeID resolves name relative to pkg. A bare "Header" always means
// std_msgs/msg/Header.
func normalizeTypeID(pkg, name string) string {
	parts := strings.Split(name, "/")
	switch len(parts) {
	case 1:
		if name == "Header" {
			return "std_msgs/msg/Header"
		}
		if pkg == "" {
			return name
		}
		return pkg + "/msg/" + name
	case 2:
		return parts[0] + "/msg/" + parts[1]
	default:
		return name
	}
}

func packageOf(typeID string) string {
	idx := strings.IndexByte(typeID, '/')
	if idx == -1 {
		return ""
	}
	return typeID[:idx]
}

// decodeConstValue decodes raw to concrete type. Raw is expected to be in ASCII.
// Reference: https://docs.ros.org/en/rolling/Concepts/Basic/About-Interfaces.html#constants
func decodeConstValue(fieldType MessageFieldType, raw []byte) (interface{}, error) {
	rawStr := string(raw)

	switch fieldType {
	case MessageFieldTypeBool:
		v, err := strconv.ParseBool(strings.ToLower(rawStr))
		return v, err
	case MessageFieldTypeInt8:
		v, err := strconv.ParseInt(rawStr, 10, 8)
		return int8(v), err
	case MessageFieldTypeUint8:
		v, err := strconv.ParseUint(rawStr, 10, 8)
		return uint8(v), err
	case MessageFieldTypeInt16:
		v, err := strconv.ParseInt(rawStr, 10, 16)
		return int16(v), err
	case MessageFieldTypeUint16:
		v, err := strconv.ParseUint(rawStr, 10, 16)
		return uint16(v), err
	case MessageFieldTypeInt32:
		v, err := strconv.ParseInt(rawStr, 10, 32)
		return int32(v), err
	case MessageFieldTypeUint32:
		v, err := strconv.ParseUint(rawStr, 10, 32)
		return uint32(v), err
	case MessageFieldTypeInt64:
		return strconv.ParseInt(rawStr, 10, 64)
	case MessageFieldTypeUint64:
		return strconv.ParseUint(rawStr, 10, 64)
	case MessageFieldTypeFloat32:
		v, err := strconv.ParseFloat(rawStr, 32)
		return float32(v), err
	case MessageFieldTypeFloat64:
		return strconv.ParseFloat(rawStr, 64)
	case MessageFieldTypeString, MessageFieldTypeWString:
		return strings.Trim(rawStr, `"'`), nil
	default:
		return nil, errInvalidConstType
	}
}

// parseMessageDefinitions parses the definition of typeID. Definitions of other
// types may follow, each introduced by a "MSG: pkg/msg/Type" line. The first
// element of the result is always typeID's definition.
func parseMessageDefinitions(typeID string, b []byte) ([]*MessageDefinition, error) {
	def := &MessageDefinition{Type: typeID}
	defs := []*MessageDefinition{def}

	for i, line := range bytes.Split(b, []byte("\n")) {
		// find comments
		idx := bytes.IndexByte(line, '#')
		if idx != -1 {
			line = line[:idx]
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// separator between concatenated definitions
		if line[0] == '=' {
			continue
		}

		if bytes.HasPrefix(line, []byte(msgSeparator)) {
			msgType := string(bytes.TrimSpace(line[len(msgSeparator):]))
			def = &MessageDefinition{Type: NormalizeTypeID(msgType)}
			defs = append(defs, def)
			continue
		}

		field, isConst, err := parseFieldLine(packageOf(def.Type), line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", typeID, i+1, err)
		}

		if isConst {
			def.Constants = append(def.Constants, field)
		} else {
			def.Fields = append(def.Fields, field)
		}
	}

	return defs, nil
}

func parseFieldLine(pkg string, line []byte) (*MessageFieldDefinition, bool, error) {
	idx := bytes.IndexAny(line, " \t")
	if idx == -1 {
		return nil, false, errInvalidFieldLine
	}

	fieldType := string(line[:idx])
	rest := strings.TrimSpace(string(line[idx+1:]))
	field := &MessageFieldDefinition{ArraySize: -1}

	idx = strings.IndexByte(fieldType, '[')
	if idx != -1 {
		off := strings.IndexByte(fieldType[idx:], ']')
		if off == -1 {
			return nil, false, errInvalidFieldLine
		}

		size := fieldType[idx+1 : idx+off]
		switch {
		case size == "":
		case strings.HasPrefix(size, "<="):
			bound, err := strconv.Atoi(size[2:])
			if err != nil {
				return nil, false, err
			}
			field.Bound = bound
		default:
			arraySize, err := strconv.Atoi(size)
			if err != nil {
				return nil, false, err
			}
			field.ArraySize = arraySize
		}

		fieldType = fieldType[:idx]
		field.IsArray = true
	}

	// bounded strings, string<=N
	idx = strings.Index(fieldType, "<=")
	if idx != -1 {
		if !field.IsArray {
			bound, err := strconv.Atoi(fieldType[idx+2:])
			if err != nil {
				return nil, false, err
			}
			field.Bound = bound
		}
		fieldType = fieldType[:idx]
	}

	var isConst bool
	var constRaw string
	field.Name = rest
	idx = strings.IndexAny(rest, " \t=")
	if idx != -1 {
		field.Name = rest[:idx]
		tail := strings.TrimSpace(rest[idx:])
		if strings.HasPrefix(tail, "=") {
			isConst = true
			constRaw = strings.TrimSpace(tail[1:])
		} else {
			field.Default = tail
		}
	}

	if field.Name == "" {
		return nil, false, errInvalidFieldLine
	}

	msgFieldType, ok := messageFieldTypeMap[fieldType]
	if !ok {
		msgFieldType = MessageFieldTypeComplex
		field.TypeName = normalizeTypeID(pkg, fieldType)
	}
	field.Type = msgFieldType

	if isConst {
		value, err := decodeConstValue(msgFieldType, []byte(constRaw))
		if err != nil {
			return nil, false, fmt.Errorf("constant %s: %w", field.Name, err)
		}
		field.Value = value
	}

	return field, isConst, nil
}

func createFieldMapper(structValue reflect.Value, mapper map[string]reflect.Value) {
	structType := structValue.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldName, ok := field.Tag.Lookup(rosbagStructTag)
		if !ok {
			fieldName = field.Name
		}

		mapper[fieldName] = structValue.Field(i)
	}
}

// nestedTarget prepares the destination of a nested message inside a struct field.
func nestedTarget(fieldValue reflect.Value) (interface{}, error) {
	switch fieldValue.Kind() {
	case reflect.Struct:
		return fieldValue.Addr().Interface(), nil
	case reflect.Ptr:
		if fieldValue.Type().Elem().Kind() != reflect.Struct {
			break
		}
		if fieldValue.IsNil() {
			fieldValue.Set(reflect.New(fieldValue.Type().Elem()))
		}
		return fieldValue.Interface(), nil
	case reflect.Map:
		if fieldValue.Type() != reflect.TypeOf(map[string]interface{}{}) {
			break
		}
		if fieldValue.IsNil() {
			fieldValue.Set(reflect.ValueOf(make(map[string]interface{})))
		}
		return fieldValue.Interface(), nil
	}

	return nil, fmt.Errorf("struct field of type %s can't hold a message", fieldValue.Type())
}

func assignField(k string, fieldValue reflect.Value, v interface{}) error {
	reflectValue := reflect.ValueOf(v)
	if reflectValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(reflectValue)
		return nil
	}

	// fixed-size arrays decode into slices, copy them into Go arrays of the same length
	if fieldValue.Kind() == reflect.Array && reflectValue.Kind() == reflect.Slice &&
		fieldValue.Len() == reflectValue.Len() &&
		reflectValue.Type().Elem().AssignableTo(fieldValue.Type().Elem()) {
		reflect.Copy(fieldValue, reflectValue)
		return nil
	}

	return fmt.Errorf("message field %s is %s, but the struct field is %s", k, reflectValue.Type(), fieldValue.Type())
}

// decodeMessageData decodes one message described by def from r into data. data
// must be a map[string]interface{} or a pointer to a struct whose fields are
// matched by their rosbag tag, or by name when untagged. Message fields without a
// matching struct field are decoded and dropped.
func decodeMessageData(def *MessageDefinition, r *cdrReader, data interface{}) error {
	value := reflect.ValueOf(data)
	if value.Kind() == reflect.Ptr {
		value = reflect.Indirect(value)
	}

	var getFn func(string) (interface{}, error)
	var getFieldTypeFn func(string) reflect.Type
	var setFn func(string, interface{}) error
	switch value.Kind() {
	case reflect.Map:
		m, ok := data.(map[string]interface{})
		if !ok {
			return errInvalidDataType
		}
		setFn = func(k string, v interface{}) error {
			m[k] = v
			return nil
		}
		getFn = func(k string) (interface{}, error) {
			child := make(map[string]interface{})
			m[k] = child
			return child, nil
		}
		getFieldTypeFn = func(k string) reflect.Type {
			return mapSliceType
		}
	case reflect.Struct:
		if !value.CanAddr() {
			return errInvalidDataType
		}
		mapper := make(map[string]reflect.Value)
		createFieldMapper(value, mapper)
		setFn = func(k string, v interface{}) error {
			fieldValue, ok := mapper[k]
			if !ok {
				return nil
			}
			return assignField(k, fieldValue, v)
		}
		getFn = func(k string) (interface{}, error) {
			fieldValue, ok := mapper[k]
			if !ok {
				// keep reading the payload even though nobody wants this field
				return make(map[string]interface{}), nil
			}
			return nestedTarget(fieldValue)
		}
		getFieldTypeFn = func(k string) reflect.Type {
			fieldValue, ok := mapper[k]
			if !ok || fieldValue.Kind() != reflect.Slice {
				return mapSliceType
			}
			return fieldValue.Type()
		}
	default:
		return errInvalidDataType
	}

	// empty messages still occupy one byte on the wire
	if len(def.Fields) == 0 {
		if _, ok := r.next(1); !ok {
			return fmt.Errorf("%s: %w", def.Type, errInvalidFormat)
		}
		return nil
	}

	var err error
	var v interface{}
	for _, field := range def.Fields {
		switch {
		case field.Type != MessageFieldTypeComplex:
			v, err = decodeFieldBasic(field, r)
		case field.MsgType == nil:
			return fmt.Errorf("%s.%s (%s): %w", def.Type, field.Name, field.TypeName, errUnresolvedMsgType)
		case field.IsArray:
			v, err = decodeFieldComplexSlice(field, r, getFieldTypeFn(field.Name))
		default:
			var target interface{}
			target, err = getFn(field.Name)
			if err != nil {
				return err
			}

			// No need to set the field value since the change happens in place
			err = decodeMessageData(field.MsgType, r, target)
			if err != nil {
				return err
			}
			continue
		}

		if err != nil {
			return fmt.Errorf("%s.%s: %w", def.Type, field.Name, err)
		}

		err = setFn(field.Name, v)
		if err != nil {
			return err
		}
	}

	return nil
}

func decodeFieldBasic(field *MessageFieldDefinition, r *cdrReader) (interface{}, error) {
	var decodeFuncs map[MessageFieldType]fieldDecodeFunc
	if field.IsArray {
		decodeFuncs = fieldDecodeSliceHelper
	} else {
		decodeFuncs = fieldDecodeBasicHelper
	}

	v, ok := decodeFuncs[field.Type](r, field.ArraySize)
	if !ok {
		return nil, errInvalidFormat
	}

	return v, nil
}

func decodeFieldComplexSlice(field *MessageFieldDefinition, r *cdrReader, fieldType reflect.Type) (interface{}, error) {
	length, ok := r.readLength(field.ArraySize)
	if !ok {
		return nil, errInvalidFormat
	}

	vs := reflect.MakeSlice(fieldType, length, length)
	for i := 0; i < length; i++ {
		v := vs.Index(i)
		switch v.Kind() {
		case reflect.Map:
			v.Set(reflect.ValueOf(make(map[string]interface{})))
		case reflect.Struct:
			v = v.Addr()
		case reflect.Ptr:
			v.Set(reflect.New(v.Type().Elem()))
		default:
			return nil, fmt.Errorf("slice element of type %s can't hold a message", v.Type())
		}

		// No need to check types as it'll be checked by decodeMessageData
		if err := decodeMessageData(field.MsgType, r, v.Interface()); err != nil {
			return nil, err
		}
	}

	return vs.Interface(), nil
}
