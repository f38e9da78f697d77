package vm

import (
	"unsafe"
)

// NativeFn is a Go function stored as a property. this is the receiver the
// call was made on, not the object the function was found on.
type NativeFn func(this Value, args []Value) (Value, error)

type NativeFunctionObject struct {
	Arity    int
	Variadic bool
	Name     string
	Fn       NativeFn
}

func NewNativeFunction(arity int, variadic bool, name string, fn NativeFn) Value {
	fnObj := &NativeFunctionObject{
		Arity:    arity,
		Variadic: variadic,
		Name:     name,
		Fn:       fn,
	}
	return Value{typ: TypeNativeFunction, obj: unsafe.Pointer(fnObj)}
}

// InitFunc populates a freshly constructed instance.
type InitFunc func(this *PlainObject, args []Value) error

// ConstructorObject pairs an initializer with the prototype object its
// instances delegate to.
type ConstructorObject struct {
	Name      string
	Prototype *PlainObject
	// Parent is the extended class; nil for base classes and constructor functions.
	Parent  *ConstructorObject
	IsClass bool
	Init    InitFunc

	// Intrinsic constructors build exotic instances (arrays, regexps,
	// wrappers) and have their own result when called without new.
	construct func(proto *PlainObject, args []Value) (*PlainObject, error)
	callFn    func(args []Value) (Value, error)
}

// NewConstructorValue wraps a constructor so it can be stored as a property value.
func NewConstructorValue(c *ConstructorObject) Value {
	return Value{typ: TypeConstructor, obj: unsafe.Pointer(c)}
}

// initializer returns the Init that runs for c: classes without their own
// initializer inherit the parent's, like an implicit super(...args).
func (c *ConstructorObject) initializer() InitFunc {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur.Init != nil {
			return cur.Init
		}
		if !cur.IsClass {
			return nil
		}
	}
	return nil
}

// exotic returns the nearest construct hook along the Parent links, so a
// class extending Array still builds arrays.
func (c *ConstructorObject) exotic() func(proto *PlainObject, args []Value) (*PlainObject, error) {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur.construct != nil {
			return cur.construct
		}
	}
	return nil
}
