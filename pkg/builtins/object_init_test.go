package builtins

import (
	"testing"

	"protochain/pkg/vm"
)

func newTestRealm(t *testing.T) *vm.Realm {
	t.Helper()
	r := vm.NewRealm()
	if err := InitRealm(r); err != nil {
		t.Fatalf("InitRealm failed: %v", err)
	}
	return r
}

func TestObjectInitializer(t *testing.T) {
	// Test that ObjectInitializer implements the interface correctly
	var initializer BuiltinInitializer = &ObjectInitializer{}

	if initializer.Name() != "Object" {
		t.Errorf("Expected name 'Object', got %s", initializer.Name())
	}

	if initializer.Priority() != PriorityObject {
		t.Errorf("Expected priority %d, got %d", PriorityObject, initializer.Priority())
	}
}

func TestStandardInitializersOrder(t *testing.T) {
	inits := GetStandardInitializers()
	want := []string{"Object", "Array", "RegExp"}
	if len(inits) != len(want) {
		t.Fatalf("Expected %d initializers, got %d", len(want), len(inits))
	}
	for i, name := range want {
		if inits[i].Name() != name {
			t.Errorf("Initializer %d: expected %s, got %s", i, name, inits[i].Name())
		}
	}
}

func TestHasOwnPropertyInherited(t *testing.T) {
	r := newTestRealm(t)
	proto := r.NewObject()
	proto.SetOwn("shared", vm.IntegerValue(1))
	o := r.NewObjectWithPrototype(proto)
	o.SetOwn("own", vm.IntegerValue(2))

	for key, want := range map[string]bool{"own": true, "shared": false, "missing": false} {
		got, err := o.Invoke("hasOwnProperty", vm.NewString(key))
		if err != nil {
			t.Fatalf("hasOwnProperty(%q) failed: %v", key, err)
		}
		if got.AsBoolean() != want {
			t.Errorf("hasOwnProperty(%q): expected %v, got %v", key, want, got.AsBoolean())
		}
	}

	// Methods on Object.prototype are hidden from enumeration
	if keys := o.Keys(); len(keys) != 2 {
		t.Errorf("Expected keys [own shared], got %v", keys)
	}

	// Objects with no delegate do not reach Object.prototype
	bare := r.NewObjectWithPrototype(nil)
	if _, err := bare.Invoke("hasOwnProperty", vm.NewString("x")); err == nil {
		t.Errorf("Expected an error invoking hasOwnProperty on a null-prototype object")
	}
}

func TestIsPrototypeOf(t *testing.T) {
	r := newTestRealm(t)
	box := r.NewConstructor("Box", nil)
	b, err := r.Construct(box)
	if err != nil {
		t.Fatalf("Construct failed: %v", err)
	}
	cases := []struct {
		proto *vm.PlainObject
		want  bool
	}{
		{box.Prototype, true},
		{r.ObjectPrototype, true},
		{b, false},
		{r.ArrayPrototype, false},
	}
	for _, c := range cases {
		got, err := c.proto.Invoke("isPrototypeOf", vm.NewValueFromPlainObject(b))
		if err != nil {
			t.Fatalf("isPrototypeOf failed: %v", err)
		}
		if got.AsBoolean() != c.want {
			t.Errorf("isPrototypeOf(%s): expected %v", r.Inspect(vm.NewValueFromPlainObject(c.proto)), c.want)
		}
	}
}

func TestArrayMethods(t *testing.T) {
	r := newTestRealm(t)
	arr := r.NewArray(vm.IntegerValue(1), vm.IntegerValue(2), vm.IntegerValue(3))

	double := vm.NewNativeFunction(1, false, "double", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		return vm.Add(args[0], args[0]), nil
	})
	mapped, err := arr.Invoke("map", double)
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}
	if got := r.Inspect(mapped); got != "[ 2, 4, 6 ]" {
		t.Errorf("Expected [ 2, 4, 6 ], got %s", got)
	}

	// Array.prototype is not itself an array here, so map over it yields []
	empty, err := r.ArrayPrototype.Invoke("map", double)
	if err != nil {
		t.Fatalf("map on Array.prototype failed: %v", err)
	}
	if got := r.Inspect(empty); got != "[]" {
		t.Errorf("Expected [], got %s", got)
	}

	if _, err := arr.Invoke("map", vm.IntegerValue(1)); err == nil {
		t.Errorf("Expected map with a non-callable callback to fail")
	}

	n, err := arr.Invoke("push", vm.IntegerValue(4), vm.IntegerValue(5))
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if n.AsInteger() != 5 {
		t.Errorf("Expected push to return 5, got %d", n.AsInteger())
	}

	joined, err := arr.Invoke("join", vm.NewString("-"))
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if joined.AsString() != "1-2-3-4-5" {
		t.Errorf("Expected 1-2-3-4-5, got %s", joined.AsString())
	}

	str, err := arr.Invoke("toString")
	if err != nil {
		t.Fatalf("toString failed: %v", err)
	}
	if str.AsString() != "1,2,3,4,5" {
		t.Errorf("Expected 1,2,3,4,5, got %s", str.AsString())
	}
}

func TestRegExpMethods(t *testing.T) {
	r := newTestRealm(t)
	re, err := r.NewRegExp("o+", "")
	if err != nil {
		t.Fatalf("NewRegExp failed: %v", err)
	}
	got, err := re.Invoke("test", vm.NewString("box"))
	if err != nil || !got.AsBoolean() {
		t.Errorf("Expected /o+/ to match box, got %v (err=%v)", got, err)
	}

	global, err := r.NewRegExp("a", "g")
	if err != nil {
		t.Fatalf("NewRegExp failed: %v", err)
	}
	input := vm.NewString("aXa")
	for i, want := range []bool{true, true, false, true} {
		got, err := global.Invoke("test", input)
		if err != nil {
			t.Fatalf("test #%d failed: %v", i, err)
		}
		if got.AsBoolean() != want {
			t.Errorf("test #%d: expected %v", i, want)
		}
	}

	sticky, err := r.NewRegExp("a", "y")
	if err != nil {
		t.Fatalf("NewRegExp failed: %v", err)
	}
	if got, _ := sticky.Invoke("test", vm.NewString("ba")); got.AsBoolean() {
		t.Errorf("Expected sticky /a/y not to match ba at 0")
	}

	// RegExp.prototype renders as the empty pattern
	str, err := r.RegExpPrototype.Invoke("toString")
	if err != nil {
		t.Fatalf("toString failed: %v", err)
	}
	if str.AsString() != "/(?:)/" {
		t.Errorf("Expected /(?:)/, got %s", str.AsString())
	}
}
