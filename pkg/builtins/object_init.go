package builtins

import (
	"protochain/pkg/vm"
)

// ObjectInitializer implements the Object builtin
type ObjectInitializer struct{}

func (o *ObjectInitializer) Name() string {
	return "Object"
}

func (o *ObjectInitializer) Priority() int {
	return PriorityObject // Must be first (base prototype)
}

func (o *ObjectInitializer) InitRuntime(ctx *RuntimeContext) error {
	objectProto := ctx.ObjectPrototype

	objectProto.SetOwnNonEnumerable("hasOwnProperty", vm.NewNativeFunction(1, false, "hasOwnProperty", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if len(args) < 1 || !this.IsObject() {
			return vm.BooleanValue(false), nil
		}
		return vm.BooleanValue(this.AsPlainObject().HasOwn(args[0].ToString())), nil
	}))

	objectProto.SetOwnNonEnumerable("isPrototypeOf", vm.NewNativeFunction(1, false, "isPrototypeOf", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if len(args) < 1 || !this.IsObject() || !args[0].IsObject() {
			return vm.BooleanValue(false), nil
		}
		target := this.AsPlainObject()
		// The chain starts at the argument's delegate, not the argument itself
		for _, link := range args[0].AsPlainObject().Chain()[1:] {
			if link == target {
				return vm.BooleanValue(true), nil
			}
		}
		return vm.BooleanValue(false), nil
	}))

	objectProto.SetOwnNonEnumerable("toString", vm.NewNativeFunction(0, false, "toString", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		switch this.Type() {
		case vm.TypeUndefined:
			return vm.NewString("[object Undefined]"), nil
		case vm.TypeNull:
			return vm.NewString("[object Null]"), nil
		}
		return vm.NewString("[object Object]"), nil
	}))

	return nil
}
