package vm

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"protochain/pkg/errors"
)

// Realm represents an isolated object graph: its intrinsic prototypes, the
// lock every object in it synchronizes on, and the lookup cache.
type Realm struct {
	id uuid.UUID

	// mu guards every object's properties and delegate. Readers share it;
	// any write excludes all readers so shared-prototype updates are seen
	// atomically by every delegator.
	mu sync.RWMutex
	// epoch is bumped on every graph write while mu is held for writing.
	epoch uint64

	cache        *PrototypeCache
	logger       *zap.Logger
	inspectDepth int

	// Built-in prototypes
	ObjectPrototype   *PlainObject
	FunctionPrototype *PlainObject
	ArrayPrototype    *PlainObject
	RegExpPrototype   *PlainObject
	NumberPrototype   *PlainObject
	StringPrototype   *PlainObject

	// Constructors
	ObjectConstructor   *ConstructorObject
	FunctionConstructor *ConstructorObject
	ArrayConstructor    *ConstructorObject
	RegExpConstructor   *ConstructorObject
	NumberConstructor   *ConstructorObject
	StringConstructor   *ConstructorObject
}

// RealmOption configures a Realm at construction.
type RealmOption func(*Realm)

// WithLogger routes debug events (rebinding, shared mutation, rejected cycles) to l.
func WithLogger(l *zap.Logger) RealmOption {
	return func(r *Realm) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPrototypeCache enables the lookup cache with at most maxEntries entries.
func WithPrototypeCache(maxEntries int) RealmOption {
	return func(r *Realm) {
		r.cache = NewPrototypeCache(maxEntries)
	}
}

// WithInspectDepth sets how deep Inspect descends before abbreviating.
func WithInspectDepth(depth int) RealmOption {
	return func(r *Realm) {
		if depth >= 0 {
			r.inspectDepth = depth
		}
	}
}

// NewRealm creates a realm with its intrinsic prototypes and constructors.
// Intrinsic methods are installed separately by the builtins package.
func NewRealm(opts ...RealmOption) *Realm {
	r := &Realm{
		id:           uuid.New(),
		logger:       zap.NewNop(),
		inspectDepth: DefaultInspectDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache != nil {
		r.cache.logger = r.logger
	}

	r.ObjectPrototype = &PlainObject{realm: r, shape: RootShape}
	// Some intrinsic prototypes are instances of their own kind:
	// Function.prototype is a no-op function, Number.prototype wraps 0 and
	// String.prototype wraps "".
	r.FunctionPrototype = &PlainObject{realm: r, class: ClassFunction, shape: RootShape, prototype: r.ObjectPrototype,
		fn: func(this Value, args []Value) (Value, error) { return Undefined, nil }}
	r.ArrayPrototype = &PlainObject{realm: r, shape: RootShape, prototype: r.ObjectPrototype}
	r.RegExpPrototype = &PlainObject{realm: r, shape: RootShape, prototype: r.ObjectPrototype}
	r.NumberPrototype = &PlainObject{realm: r, class: ClassNumber, shape: RootShape, prototype: r.ObjectPrototype, primitive: IntegerValue(0)}
	r.StringPrototype = &PlainObject{realm: r, class: ClassString, shape: RootShape, prototype: r.ObjectPrototype, primitive: NewString("")}

	r.ObjectConstructor = r.intrinsicConstructor("Object", r.ObjectPrototype)
	r.FunctionConstructor = r.intrinsicConstructor("Function", r.FunctionPrototype)
	r.ArrayConstructor = r.intrinsicConstructor("Array", r.ArrayPrototype)
	r.RegExpConstructor = r.intrinsicConstructor("RegExp", r.RegExpPrototype)
	r.NumberConstructor = r.intrinsicConstructor("Number", r.NumberPrototype)
	r.StringConstructor = r.intrinsicConstructor("String", r.StringPrototype)
	r.installConstructHooks()

	// RegExp.prototype is the empty pattern
	r.RegExpPrototype.setOwn("source", NewString("(?:)"), false)
	r.RegExpPrototype.setOwn("flags", NewString(""), false)

	r.logger.Debug("realm created", zap.String("realm", r.id.String()))
	return r
}

func (r *Realm) intrinsicConstructor(name string, proto *PlainObject) *ConstructorObject {
	c := &ConstructorObject{Name: name, Prototype: proto}
	proto.setOwn("constructor", NewConstructorValue(c), false)
	return c
}

// ID returns the realm's unique identifier.
func (r *Realm) ID() uuid.UUID { return r.id }

// Logger returns the realm's logger.
func (r *Realm) Logger() *zap.Logger { return r.logger }

// Cache returns the lookup cache, or nil when caching is disabled.
func (r *Realm) Cache() *PrototypeCache { return r.cache }

// bumpEpoch invalidates every cached lookup. Caller holds mu for writing.
func (r *Realm) bumpEpoch() {
	r.epoch++
}

func (r *Realm) owns(o *PlainObject) bool {
	return o == nil || o.realm == r
}

func (r *Realm) mustOwn(o *PlainObject) {
	if !r.owns(o) {
		panic(fmt.Sprintf("object belongs to realm %s, not %s", o.realm.id, r.id))
	}
}

// NewObject creates an empty object delegating to Object.prototype, like {}.
func (r *Realm) NewObject() *PlainObject {
	return &PlainObject{realm: r, shape: RootShape, prototype: r.ObjectPrototype}
}

// NewObjectWithPrototype creates an empty object delegating to proto.
// A nil proto creates an object with no delegate. proto must belong to r.
func (r *Realm) NewObjectWithPrototype(proto *PlainObject) *PlainObject {
	r.mustOwn(proto)
	return &PlainObject{realm: r, shape: RootShape, prototype: proto}
}

// NewArray creates an array delegating to Array.prototype.
func (r *Realm) NewArray(elements ...Value) *PlainObject {
	elems := make([]Value, len(elements))
	copy(elems, elements)
	return r.newArray(r.ArrayPrototype, elems)
}

// NewConstructor creates a constructor function. Its prototype is a fresh
// object delegating to Object.prototype whose hidden constructor property
// points back at the function.
func (r *Realm) NewConstructor(name string, init InitFunc) *ConstructorObject {
	c := &ConstructorObject{Name: name, Init: init}
	c.Prototype = r.NewObject()
	c.Prototype.setOwn("constructor", NewConstructorValue(c), false)
	return c
}

// NewClass creates a class. With a parent, the class prototype delegates to
// the parent's prototype and a nil init falls through to the parent's.
func (r *Realm) NewClass(name string, parent *ConstructorObject, init InitFunc) *ConstructorObject {
	proto := r.ObjectPrototype
	if parent != nil {
		r.mustOwn(parent.Prototype)
		proto = parent.Prototype
	}
	c := &ConstructorObject{Name: name, Parent: parent, IsClass: true, Init: init}
	c.Prototype = r.NewObjectWithPrototype(proto)
	c.Prototype.setOwn("constructor", NewConstructorValue(c), false)
	return c
}

// Construct implements new: a fresh object delegating to c.Prototype as it is
// at this moment, initialized with itself as receiver. Array, RegExp,
// Number and String (and classes extending them) build instances of their
// own kind.
func (r *Realm) Construct(c *ConstructorObject, args ...Value) (*PlainObject, error) {
	r.mustOwn(c.Prototype)
	var instance *PlainObject
	if build := c.exotic(); build != nil {
		built, err := build(c.Prototype, args)
		if err != nil {
			return nil, err
		}
		instance = built
	} else {
		instance = r.NewObjectWithPrototype(c.Prototype)
	}
	if init := c.initializer(); init != nil {
		if err := init(instance, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func (r *Realm) installConstructHooks() {
	r.ObjectConstructor.callFn = func(args []Value) (Value, error) {
		if len(args) > 0 && args[0].IsObject() {
			return args[0], nil
		}
		return NewValueFromPlainObject(r.NewObject()), nil
	}

	r.FunctionConstructor.construct = func(proto *PlainObject, args []Value) (*PlainObject, error) {
		return nil, errors.NewRuntimeError("Function constructor cannot compile source text")
	}
	r.FunctionConstructor.callFn = func(args []Value) (Value, error) {
		return Undefined, errors.NewRuntimeError("Function constructor cannot compile source text")
	}

	r.ArrayConstructor.construct = func(proto *PlainObject, args []Value) (*PlainObject, error) {
		// new Array(n) makes n empty slots; any other arguments become the elements
		if len(args) == 1 && args[0].IsNumber() {
			n := args[0].ToFloat()
			if n < 0 || n != math.Trunc(n) || n >= math.MaxUint32 {
				return nil, errors.NewRuntimeError("Invalid array length")
			}
			if n > MaxDenseArrayLength {
				return nil, errors.NewRuntimeError("array length %v exceeds %d", n, MaxDenseArrayLength)
			}
			elems := make([]Value, int(n))
			for i := range elems {
				elems[i] = Undefined
			}
			return r.newArray(proto, elems), nil
		}
		elems := make([]Value, len(args))
		copy(elems, args)
		return r.newArray(proto, elems), nil
	}
	r.ArrayConstructor.callFn = r.constructCall(r.ArrayConstructor)

	r.RegExpConstructor.construct = func(proto *PlainObject, args []Value) (*PlainObject, error) {
		source, flags := "", ""
		if len(args) > 0 {
			switch pattern := args[0]; {
			case pattern.IsObject() && pattern.AsPlainObject().class == ClassRegExp:
				source, flags = pattern.AsPlainObject().source, pattern.AsPlainObject().flags
			case !pattern.IsUndefined():
				source = pattern.ToString()
			}
		}
		if len(args) > 1 && !args[1].IsUndefined() {
			flags = args[1].ToString()
		}
		re, err := r.NewRegExp(source, flags)
		if err != nil {
			return nil, errors.NewRuntimeError("%s", err.Error()).CausedBy(err)
		}
		re.prototype = proto
		return re, nil
	}
	r.RegExpConstructor.callFn = r.constructCall(r.RegExpConstructor)

	r.NumberConstructor.construct = func(proto *PlainObject, args []Value) (*PlainObject, error) {
		return &PlainObject{realm: r, class: ClassNumber, shape: RootShape, prototype: proto, primitive: toNumber(args)}, nil
	}
	r.NumberConstructor.callFn = func(args []Value) (Value, error) { return toNumber(args), nil }

	r.StringConstructor.construct = func(proto *PlainObject, args []Value) (*PlainObject, error) {
		return &PlainObject{realm: r, class: ClassString, shape: RootShape, prototype: proto, primitive: toStringValue(args)}, nil
	}
	r.StringConstructor.callFn = func(args []Value) (Value, error) { return toStringValue(args), nil }
}

// constructCall makes calling c without new behave like new c(...).
func (r *Realm) constructCall(c *ConstructorObject) func(args []Value) (Value, error) {
	return func(args []Value) (Value, error) {
		o, err := r.Construct(c, args...)
		if err != nil {
			return Undefined, err
		}
		return NewValueFromPlainObject(o), nil
	}
}

func (r *Realm) newArray(proto *PlainObject, elems []Value) *PlainObject {
	return &PlainObject{realm: r, class: ClassArray, shape: RootShape, prototype: proto, elements: elems}
}

func toNumber(args []Value) Value {
	if len(args) == 0 {
		return IntegerValue(0)
	}
	v := toPrimitive(args[0])
	if v.typ == TypeIntegerNumber {
		return v
	}
	return NumberValue(v.ToFloat())
}

func toStringValue(args []Value) Value {
	if len(args) == 0 {
		return NewString("")
	}
	return NewString(args[0].ToString())
}
