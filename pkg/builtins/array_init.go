package builtins

import (
	"strconv"
	"strings"

	"protochain/pkg/errors"
	"protochain/pkg/vm"
)

// ArrayInitializer implements the Array builtin
type ArrayInitializer struct{}

func (a *ArrayInitializer) Name() string {
	return "Array"
}

func (a *ArrayInitializer) Priority() int {
	return PriorityArray
}

// arrayLength reads length through the chain so array-likes work too.
func arrayLength(this vm.Value) int {
	if !this.IsObject() {
		return 0
	}
	lv, ok := this.AsPlainObject().Get("length")
	if !ok || !lv.IsNumber() {
		return 0
	}
	if n := int(lv.ToFloat()); n > 0 {
		return n
	}
	return 0
}

func arrayElement(this vm.Value, i int) vm.Value {
	v, _ := this.AsPlainObject().Get(strconv.Itoa(i))
	return v
}

func (a *ArrayInitializer) InitRuntime(ctx *RuntimeContext) error {
	realm := ctx.Realm
	arrayProto := ctx.ArrayPrototype

	arrayProto.SetOwnNonEnumerable("push", vm.NewNativeFunction(1, true, "push", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if !this.IsObject() {
			return vm.IntegerValue(0), nil
		}
		arr := this.AsPlainObject()
		length := arrayLength(this)
		for i, arg := range args {
			arr.SetOwn(strconv.Itoa(length+i), arg)
		}
		return vm.IntegerValue(int32(length + len(args))), nil
	}))

	arrayProto.SetOwnNonEnumerable("join", vm.NewNativeFunction(1, false, "join", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		separator := ","
		if len(args) >= 1 && !args[0].IsUndefined() {
			separator = args[0].ToString()
		}
		length := arrayLength(this)
		parts := make([]string, length)
		for i := 0; i < length; i++ {
			el := arrayElement(this, i)
			if !el.IsUndefined() && !el.IsNull() {
				parts[i] = el.ToString()
			}
		}
		return vm.NewString(strings.Join(parts, separator)), nil
	}))

	arrayProto.SetOwnNonEnumerable("map", vm.NewNativeFunction(1, false, "map", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if this.IsUndefined() || this.IsNull() {
			return vm.Undefined, errors.NewRuntimeError("Array.prototype.map called on null or undefined")
		}

		// length is read before the callback is checked
		length := arrayLength(this)

		callback := vm.Undefined
		if len(args) >= 1 {
			callback = args[0]
		}
		if !callback.IsCallable() {
			return vm.Undefined, &errors.NotCallableError{Key: "callback", TypeName: vm.TypeOf(callback)}
		}
		thisArg := vm.Undefined
		if len(args) >= 2 {
			thisArg = args[1]
		}

		results := make([]vm.Value, length)
		for i := 0; i < length; i++ {
			mapped, err := realm.Call(callback, thisArg, []vm.Value{arrayElement(this, i), vm.IntegerValue(int32(i)), this})
			if err != nil {
				return vm.Undefined, err
			}
			results[i] = mapped
		}
		return vm.NewValueFromPlainObject(realm.NewArray(results...)), nil
	}))

	arrayProto.SetOwnNonEnumerable("toString", vm.NewNativeFunction(0, false, "toString", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		// Array.prototype.toString is join() with no arguments
		if !this.IsObject() {
			return vm.NewString(""), nil
		}
		join, err := this.AsPlainObject().Invoke("join")
		if err != nil {
			return vm.Undefined, err
		}
		return join, nil
	}))

	return nil
}
