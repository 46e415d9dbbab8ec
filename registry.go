package rosbag2

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

const msgExt = ".msg"

//go:embed msgs
var builtinMsgs embed.FS

// DecodeFunc turns a serialized payload into its native structured form.
type DecodeFunc func(payload []byte) (interface{}, error)

// Registry resolves message type ids to decoders. Decoders either come from
// message definitions, decoded as CDR, or are registered explicitly.
// A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]*MessageDefinition
	linked   map[string]*MessageDefinition
	decoders map[string]DecodeFunc
}

func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]*MessageDefinition),
		linked:   make(map[string]*MessageDefinition),
		decoders: make(map[string]DecodeFunc),
	}
}

// NewDefaultRegistry returns a registry preloaded with the common ROS 2 interfaces:
// builtin_interfaces, std_msgs, geometry_msgs, sensor_msgs, nav_msgs, tf2_msgs and
// rcl_interfaces/msg/Log.
func NewDefaultRegistry() (*Registry, error) {
	reg := NewRegistry()
	if err := reg.LoadFS(builtinMsgs, "msgs"); err != nil {
		return nil, err
	}

	return reg, nil
}

// AddDefinition registers the .msg text of typeID. Definitions of other types may
// be appended to text after "MSG: pkg/msg/Type" lines; they're registered as well
// unless the registry already knows them.
func (reg *Registry) AddDefinition(typeID string, text []byte) error {
	typeID = NormalizeTypeID(typeID)
	defs, err := parseMessageDefinitions(typeID, text)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.defs[typeID] = defs[0]
	for _, def := range defs[1:] {
		if _, ok := reg.defs[def.Type]; !ok {
			reg.defs[def.Type] = def
		}
	}

	// definitions may now point somewhere else, relink lazily. Linked copies
	// handed out earlier stay untouched.
	reg.linked = make(map[string]*MessageDefinition)
	return nil
}

// LoadFS registers every <pkg>/msg/<Type>.msg file found under root.
func (reg *Registry) LoadFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || path.Ext(p) != msgExt {
			return nil
		}

		parts := strings.Split(p, "/")
		if len(parts) < 3 || parts[len(parts)-2] != "msg" {
			return nil
		}

		text, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		pkg := parts[len(parts)-3]
		name := strings.TrimSuffix(parts[len(parts)-1], msgExt)
		return reg.AddDefinition(pkg+"/msg/"+name, text)
	})
}

// LoadDir registers the definitions found in a directory laid out like a ROS 2
// share directory, <root>/<pkg>/msg/<Type>.msg.
func (reg *Registry) LoadDir(root string) error {
	if err := reg.LoadFS(os.DirFS(root), "."); err != nil {
		return fmt.Errorf("loading message definitions from %s: %w", root, err)
	}

	return nil
}

// Register installs fn as the decoder of typeID, taking precedence over any
// definition of the same type.
func (reg *Registry) Register(typeID string, fn DecodeFunc) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.decoders[NormalizeTypeID(typeID)] = fn
}

// Types lists every type id the registry can decode.
func (reg *Registry) Types() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	seen := make(map[string]bool, len(reg.defs)+len(reg.decoders))
	for k := range reg.defs {
		seen[k] = true
	}
	for k := range reg.decoders {
		seen[k] = true
	}

	types := make([]string, 0, len(seen))
	for k := range seen {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Definition returns the definition of typeID with every nested type resolved.
func (reg *Registry) Definition(typeID string) (*MessageDefinition, error) {
	typeID = NormalizeTypeID(typeID)

	reg.mu.RLock()
	def, ok := reg.linked[typeID]
	reg.mu.RUnlock()
	if ok {
		return def, nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.linkLocked(typeID, make(map[string]bool))
}

// linkLocked builds a copy of the definition of typeID whose complex fields point
// at linked copies of their types. Parsed definitions are never modified.
func (reg *Registry) linkLocked(typeID string, visiting map[string]bool) (*MessageDefinition, error) {
	if def, ok := reg.linked[typeID]; ok {
		return def, nil
	}

	def, ok := reg.defs[typeID]
	if !ok {
		return nil, &UnknownTypeError{Type: typeID}
	}

	if visiting[typeID] {
		return nil, fmt.Errorf("%s: %w", typeID, errRecursiveMsgType)
	}
	visiting[typeID] = true
	defer delete(visiting, typeID)

	out := &MessageDefinition{
		Type:      def.Type,
		Fields:    make([]*MessageFieldDefinition, len(def.Fields)),
		Constants: def.Constants,
	}
	for i, field := range def.Fields {
		linked := *field
		if field.Type == MessageFieldTypeComplex {
			nested, err := reg.linkLocked(field.TypeName, visiting)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", typeID, field.Name, err)
			}
			linked.MsgType = nested
		}
		out.Fields[i] = &linked
	}

	reg.linked[typeID] = out
	return out, nil
}

// Resolve returns the decoder capability of typeID. It fails with an
// *UnknownTypeError when neither a decoder nor a definition is registered.
func (reg *Registry) Resolve(typeID string) (DecodeFunc, error) {
	typeID = NormalizeTypeID(typeID)

	reg.mu.RLock()
	fn, ok := reg.decoders[typeID]
	reg.mu.RUnlock()
	if ok {
		return fn, nil
	}

	def, err := reg.Definition(typeID)
	if err != nil {
		return nil, err
	}

	return func(payload []byte) (interface{}, error) {
		data := make(map[string]interface{})
		if err := unmarshall(def, payload, data); err != nil {
			return nil, err
		}
		return data, nil
	}, nil
}

// Decode deserializes payload as typeID and lowers the result into a Value.
// Malformed payloads fail with a *DecodeError.
func (reg *Registry) Decode(typeID string, payload []byte) (Value, error) {
	fn, err := reg.Resolve(typeID)
	if err != nil {
		return Value{}, err
	}

	native, err := fn(payload)
	if err != nil {
		return Value{}, &DecodeError{Type: NormalizeTypeID(typeID), Err: err}
	}

	return Lower(native), nil
}

// UnmarshallTo deserializes payload as typeID into v, a pointer to a struct or a
// map[string]interface{}. It only works with definition-backed types.
func (reg *Registry) UnmarshallTo(typeID string, payload []byte, v interface{}) error {
	def, err := reg.Definition(typeID)
	if err != nil {
		return err
	}

	if err := unmarshall(def, payload, v); err != nil {
		return &DecodeError{Type: def.Type, Err: err}
	}

	return nil
}

func unmarshall(def *MessageDefinition, payload []byte, v interface{}) error {
	r, err := newCDRReader(payload)
	if err != nil {
		return err
	}

	return decodeMessageData(def, r, v)
}
