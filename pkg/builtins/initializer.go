package builtins

import (
	"protochain/pkg/vm"
)

// BuiltinInitializer is implemented by each builtin module
type BuiltinInitializer interface {
	// Name returns the module name (e.g., "Array", "RegExp")
	Name() string

	// Priority returns initialization order (lower = earlier)
	Priority() int

	// InitRuntime installs the module's methods on the realm's intrinsic prototypes
	InitRuntime(ctx *RuntimeContext) error
}

// RuntimeContext provides everything needed for runtime initialization
type RuntimeContext struct {
	// The realm being populated
	Realm *vm.Realm

	// Built-in prototypes
	ObjectPrototype   *vm.PlainObject
	FunctionPrototype *vm.PlainObject
	ArrayPrototype    *vm.PlainObject
	RegExpPrototype   *vm.PlainObject
}

// Priority constants for initialization order
const (
	PriorityObject = 0  // Object must be first (base prototype)
	PriorityArray  = 3  // Array third (inherits from Object)
	PriorityRegExp = 13 // RegExp constructor
)
