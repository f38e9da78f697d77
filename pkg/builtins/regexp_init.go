package builtins

import (
	"strings"

	"protochain/pkg/vm"
)

// RegExpInitializer implements the RegExp builtin
type RegExpInitializer struct{}

func (r *RegExpInitializer) Name() string {
	return "RegExp"
}

func (r *RegExpInitializer) Priority() int {
	return PriorityRegExp
}

func (r *RegExpInitializer) InitRuntime(ctx *RuntimeContext) error {
	regexpProto := ctx.RegExpPrototype

	regexpProto.SetOwnNonEnumerable("test", vm.NewNativeFunction(1, false, "test", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if !this.IsObject() || this.AsPlainObject().Class() != vm.ClassRegExp {
			return vm.BooleanValue(false), nil
		}
		regex := this.AsPlainObject()
		str := "undefined"
		if len(args) > 0 {
			str = args[0].ToString()
		}

		// Check for global and sticky flags
		flags := regex.Flags()
		isGlobal := strings.Contains(flags, "g")
		isSticky := strings.Contains(flags, "y")
		if !isGlobal && !isSticky {
			found, err := regex.MatchString(str)
			return vm.BooleanValue(found), err
		}

		// Use lastIndex for stateful matching
		baseIndex := 0
		if lv, ok := regex.GetOwn("lastIndex"); ok && lv.IsNumber() {
			baseIndex = int(lv.ToFloat())
		}
		if baseIndex < 0 || baseIndex > len([]rune(str)) {
			regex.SetOwnNonEnumerable("lastIndex", vm.IntegerValue(0))
			return vm.BooleanValue(false), nil
		}
		index, length, found, err := regex.FindFrom(str, baseIndex)
		if err != nil {
			return vm.Undefined, err
		}
		if !found || (isSticky && index != baseIndex) {
			regex.SetOwnNonEnumerable("lastIndex", vm.IntegerValue(0))
			return vm.BooleanValue(false), nil
		}
		regex.SetOwnNonEnumerable("lastIndex", vm.IntegerValue(int32(index+length)))
		return vm.BooleanValue(true), nil
	}))

	regexpProto.SetOwnNonEnumerable("toString", vm.NewNativeFunction(0, false, "toString", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if !this.IsObject() {
			return vm.NewString("/(?:)/"), nil
		}
		source, flags := "(?:)", ""
		o := this.AsPlainObject()
		if v, ok := o.Get("source"); ok {
			source = v.ToString()
		}
		if v, ok := o.Get("flags"); ok {
			flags = v.ToString()
		}
		return vm.NewString("/" + source + "/" + flags), nil
	}))

	return nil
}
