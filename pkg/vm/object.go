package vm

import (
	"math"
	"strconv"
	"sync"

	"github.com/dlclark/regexp2"
)

// Class distinguishes exotic objects that keep state outside their shape.
type Class uint8

const (
	ClassObject Class = iota
	ClassArray
	ClassRegExp
	ClassFunction
	ClassNumber
	ClassString
)

// MaxDenseArrayLength bounds how far an array grows to hold an index.
// Larger indices are stored as named properties and do not count toward length.
const MaxDenseArrayLength = 1 << 24

func (c Class) String() string {
	switch c {
	case ClassArray:
		return "Array"
	case ClassRegExp:
		return "RegExp"
	case ClassFunction:
		return "Function"
	case ClassNumber:
		return "Number"
	case ClassString:
		return "String"
	default:
		return "Object"
	}
}

type Field struct {
	offset     int
	name       string
	enumerable bool
}

// Shape is the ordered layout of an object's own properties. Objects that
// gain the same keys in the same order share shapes through transitions.
type Shape struct {
	parent      *Shape
	fields      []Field
	transitions map[string]*Shape // keyed by name, "_nonenum" suffix for hidden fields
	mu          sync.RWMutex      // Protects transitions map
}

// RootShape is the empty layout every new object starts from.
var RootShape = &Shape{transitions: make(map[string]*Shape)}

func (s *Shape) lookup(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	return Field{}, false
}

// transition returns the shape reached by appending name to s.
func (s *Shape) transition(name string, enumerable bool) *Shape {
	hashKey := name
	if !enumerable {
		hashKey += "_nonenum"
	}
	s.mu.RLock()
	next, ok := s.transitions[hashKey]
	s.mu.RUnlock()
	if ok {
		return next
	}
	newFields := make([]Field, len(s.fields)+1)
	copy(newFields, s.fields)
	newFields[len(s.fields)] = Field{offset: len(s.fields), name: name, enumerable: enumerable}
	next = &Shape{parent: s, fields: newFields, transitions: make(map[string]*Shape)}
	s.mu.Lock()
	if existing, exists := s.transitions[hashKey]; exists {
		next = existing
	} else {
		s.transitions[hashKey] = next
	}
	s.mu.Unlock()
	return next
}

// PlainObject is a node in the inheritance graph: own properties plus at most
// one delegate. All exported methods synchronize on the owning realm.
type PlainObject struct {
	realm      *Realm
	class      Class
	shape      *Shape
	prototype  *PlainObject
	properties []Value

	// ClassArray
	elements []Value
	// ClassRegExp
	regex  *regexp2.Regexp
	source string
	flags  string
	// ClassFunction
	fn NativeFn
	// ClassNumber, ClassString
	primitive Value
}

// Realm returns the realm that owns the object.
func (o *PlainObject) Realm() *Realm { return o.realm }

// Class returns the object's exotic kind.
func (o *PlainObject) Class() Class { return o.class }

// --- lock-free accessors; the caller holds o.realm.mu ---

func (o *PlainObject) getOwn(name string) (Value, bool) {
	if o.class == ClassArray {
		if name == "length" {
			return IntegerValue(int32(len(o.elements))), true
		}
		if idx, ok := arrayIndex(name); ok && idx < len(o.elements) {
			return o.elements[idx], true
		}
	}
	if f, ok := o.shape.lookup(name); ok {
		if f.offset < len(o.properties) {
			return o.properties[f.offset], true
		}
		return Undefined, true
	}
	return Undefined, false
}

func (o *PlainObject) setOwn(name string, v Value, enumerable bool) {
	if o.class == ClassArray {
		if idx, ok := arrayIndex(name); ok && (idx < len(o.elements) || idx < MaxDenseArrayLength) {
			switch {
			case idx < len(o.elements):
				o.elements[idx] = v
			case idx == len(o.elements):
				o.elements = append(o.elements, v)
			default:
				grown := make([]Value, idx+1)
				copy(grown, o.elements)
				for i := len(o.elements); i < idx; i++ {
					grown[i] = Undefined
				}
				grown[idx] = v
				o.elements = grown
			}
			return
		}
		if name == "length" {
			return
		}
	}
	if f, ok := o.shape.lookup(name); ok {
		o.properties[f.offset] = v
		return
	}
	o.shape = o.shape.transition(name, enumerable)
	o.properties = append(o.properties, v)
}

func (o *PlainObject) deleteOwn(name string) bool {
	if o.class == ClassArray {
		if idx, ok := arrayIndex(name); ok && idx < len(o.elements) {
			o.elements[idx] = Undefined
			return true
		}
	}
	f, ok := o.shape.lookup(name)
	if !ok {
		return false
	}
	newFields := make([]Field, 0, len(o.shape.fields)-1)
	for _, fld := range o.shape.fields {
		if fld.offset == f.offset {
			continue
		}
		nf := fld
		if fld.offset > f.offset {
			nf.offset = fld.offset - 1
		}
		newFields = append(newFields, nf)
	}
	newProps := make([]Value, 0, len(o.properties)-1)
	for i := range o.properties {
		if i != f.offset {
			newProps = append(newProps, o.properties[i])
		}
	}
	// Shapes reached by deletion are not shared
	o.shape = &Shape{parent: o.shape.parent, fields: newFields, transitions: make(map[string]*Shape)}
	o.properties = newProps
	return true
}

func (o *PlainObject) ownKeys() []string {
	keys := make([]string, 0, len(o.elements)+len(o.shape.fields))
	for i := range o.elements {
		keys = append(keys, strconv.Itoa(i))
	}
	for _, f := range o.shape.fields {
		if f.enumerable {
			keys = append(keys, f.name)
		}
	}
	return keys
}

// arrayIndex parses a canonical array index: a decimal integer below 2^32-1.
// Anything else is a named property, even on arrays.
func arrayIndex(name string) (int, bool) {
	if name == "" || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	idx, err := strconv.ParseUint(name, 10, 32)
	if err != nil || idx == math.MaxUint32 {
		return 0, false
	}
	return int(idx), true
}

// --- synchronized own-property API ---

// GetOwn looks up a direct (own) property by name. Returns (value, true) if present.
func (o *PlainObject) GetOwn(name string) (Value, bool) {
	o.realm.mu.RLock()
	defer o.realm.mu.RUnlock()
	return o.getOwn(name)
}

// HasOwn reports whether name is an own property.
func (o *PlainObject) HasOwn(name string) bool {
	_, ok := o.GetOwn(name)
	return ok
}

// SetOwn sets or defines an own enumerable property. Delegators of o observe
// the new value on their next lookup.
func (o *PlainObject) SetOwn(name string, v Value) {
	r := o.realm
	r.mu.Lock()
	defer r.mu.Unlock()
	o.setOwn(name, v, true)
	r.bumpEpoch()
}

// SetOwnNonEnumerable sets or defines an own property hidden from OwnKeys and Inspect.
// An existing property keeps its enumerability.
func (o *PlainObject) SetOwnNonEnumerable(name string, v Value) {
	r := o.realm
	r.mu.Lock()
	defer r.mu.Unlock()
	o.setOwn(name, v, false)
	r.bumpEpoch()
}

// DeleteOwn removes an own property. Returns true if the property existed.
func (o *PlainObject) DeleteOwn(name string) bool {
	r := o.realm
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := o.deleteOwn(name)
	if deleted {
		r.bumpEpoch()
	}
	return deleted
}

// OwnKeys returns the enumerable own keys: array indices first, then named
// properties in insertion order.
func (o *PlainObject) OwnKeys() []string {
	o.realm.mu.RLock()
	defer o.realm.mu.RUnlock()
	return o.ownKeys()
}

// GetPrototype returns the object's delegate, or nil at the end of a chain.
func (o *PlainObject) GetPrototype() *PlainObject {
	o.realm.mu.RLock()
	defer o.realm.mu.RUnlock()
	return o.prototype
}

// Elements returns a copy of an array's elements; nil for other classes.
func (o *PlainObject) Elements() []Value {
	if o.class != ClassArray {
		return nil
	}
	o.realm.mu.RLock()
	defer o.realm.mu.RUnlock()
	out := make([]Value, len(o.elements))
	copy(out, o.elements)
	return out
}
