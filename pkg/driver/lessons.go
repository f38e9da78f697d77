package driver

import (
	"fmt"

	"protochain/pkg/vm"
)

// Lesson is one walkthrough of the delegation model, printing through the
// session console.
type Lesson struct {
	Name string
	Run  func(s *Session) error
}

// Title is the heading shown before the lesson runs.
func (l Lesson) Title() string { return titleFromName(l.Name) }

// Lessons returns the lessons in teaching order.
func Lessons() []Lesson {
	return []Lesson{
		{Name: "inheriting-properties", Run: inheritingProperties},
		{Name: "inheriting-methods", Run: inheritingMethods},
		{Name: "constructors", Run: constructors},
		{Name: "implicit-constructors", Run: implicitConstructors},
		{Name: "longer-chains", Run: longerChains},
		{Name: "inspecting-prototypes", Run: inspectingPrototypes},
	}
}

// literal builds an object from alternating keys and values, like an
// object literal with a __proto__ entry.
func (s *Session) literal(proto *vm.PlainObject, kv ...any) *vm.PlainObject {
	o := s.realm.NewObjectWithPrototype(proto)
	for i := 0; i+1 < len(kv); i += 2 {
		o.SetOwn(kv[i].(string), kv[i+1].(vm.Value))
	}
	return o
}

// get reads key through the chain; absent keys read as undefined.
func get(o *vm.PlainObject, key string) vm.Value {
	v, _ := o.Get(key)
	return v
}

// readField returns a method computing this[field] + add, resolved on the receiver.
func readField(name, field string, add vm.Value) vm.Value {
	return vm.NewNativeFunction(0, false, name, func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if !this.IsObject() {
			return vm.Undefined, fmt.Errorf("%s called on %s", name, vm.TypeOf(this))
		}
		v := get(this.AsPlainObject(), field)
		if add.IsUndefined() {
			return v, nil
		}
		return vm.Add(v, add), nil
	})
}

// assignFields is an initializer storing positional arguments as own properties.
func assignFields(fields ...string) vm.InitFunc {
	return func(this *vm.PlainObject, args []vm.Value) error {
		for i, field := range fields {
			v := vm.Undefined
			if i < len(args) {
				v = args[i]
			}
			this.SetOwn(field, v)
		}
		return nil
	}
}

func obj(o *vm.PlainObject) vm.Value { return vm.NewValueFromPlainObject(o) }

func inheritingProperties(s *Session) error {
	c, r := s.console, s.realm
	one, two := vm.IntegerValue(1), vm.IntegerValue(2)

	proto := s.literal(r.ObjectPrototype, "b", vm.IntegerValue(3), "c", vm.IntegerValue(4))
	o := s.literal(proto, "a", one, "b", two)
	c.Log(obj(o))
	c.Print("%s", r.DescribeChain(o))

	c.Log(get(o, "a"))
	c.Log(get(o, "b")) // shadowed on the delegate
	c.Log(get(o, "c"))
	c.Log(get(o, "d"))

	top := s.literal(r.ObjectPrototype, "d", vm.IntegerValue(5))
	mid := s.literal(top, "b", vm.IntegerValue(3), "c", vm.IntegerValue(4))
	ob := s.literal(mid, "a", one, "b", two)
	c.Print("%s", r.DescribeChain(ob))
	c.Log(get(ob, "d"))
	return nil
}

func inheritingMethods(s *Session) error {
	c, r := s.console, s.realm

	parent := s.literal(r.ObjectPrototype,
		"value", vm.IntegerValue(2),
		"method", readField("method", "value", vm.IntegerValue(1)))
	v, err := parent.Invoke("method")
	if err != nil {
		return err
	}
	c.Log(v)

	child := s.literal(parent)
	if v, err = child.Invoke("method"); err != nil {
		return err
	}
	c.Log(v)

	child.SetOwn("value", vm.IntegerValue(4))
	c.Log(obj(child))
	if v, err = child.Invoke("method"); err != nil {
		return err
	}
	c.Log(v)
	return nil
}

func constructors(s *Session) error {
	c, r := s.console, s.realm

	boxPrototype := s.literal(r.ObjectPrototype, "getValue", readField("getValue", "value", vm.Undefined))
	boxes := make([]vm.Value, 3)
	for i := range boxes {
		boxes[i] = obj(s.literal(boxPrototype, "value", vm.IntegerValue(int32(i+1))))
	}
	boxList := obj(r.NewArray(boxes...))
	c.Log(vm.NewString(vm.TypeOf(boxList)), boxList)

	boxOne := r.NewClass("BoxOne", nil, assignFields("value"))
	boxOne.Prototype.SetOwnNonEnumerable("getValue", readField("getValue", "value", vm.Undefined))
	boxesO := make([]vm.Value, 3)
	for i := range boxesO {
		b, err := r.Construct(boxOne, vm.IntegerValue(int32(i+1)))
		if err != nil {
			return err
		}
		boxesO[i] = obj(b)
	}
	c.Log(vm.NewString("boxesO:"), obj(r.NewArray(boxesO...)))

	box := r.NewConstructor("Box", assignFields("value"))
	if err := r.MutateShared(box.Prototype, "getValue", readField("getValue", "value", vm.Undefined)); err != nil {
		return err
	}
	b, err := r.Construct(box, vm.IntegerValue(1))
	if err != nil {
		return err
	}
	// The instance was created before the prototype changed
	if err := r.MutateShared(box.Prototype, "getValue", readField("getValue", "value", vm.IntegerValue(1))); err != nil {
		return err
	}
	v, err := b.Invoke("getValue")
	if err != nil {
		return err
	}
	c.Log(v)
	return nil
}

func implicitConstructors(s *Session) error {
	c, r := s.console, s.realm

	object := s.literal(r.ObjectPrototype, "a", vm.IntegerValue(1))
	c.Log(vm.BooleanValue(r.GetPrototypeOf(obj(object)) == r.ObjectPrototype))

	array := r.NewArray(vm.IntegerValue(1), vm.IntegerValue(2), vm.IntegerValue(3))
	c.Log(vm.BooleanValue(r.GetPrototypeOf(obj(array)) == r.ArrayPrototype))

	regexp, err := r.NewRegExp("abc", "")
	if err != nil {
		return err
	}
	c.Log(vm.BooleanValue(r.GetPrototypeOf(obj(regexp)) == r.RegExpPrototype))

	// The same objects built through their constructors
	arrayA, err := r.Construct(r.ArrayConstructor, vm.IntegerValue(1), vm.IntegerValue(2), vm.IntegerValue(3))
	if err != nil {
		return err
	}
	regexpR, err := r.Construct(r.RegExpConstructor, vm.NewString("abc"))
	if err != nil {
		return err
	}
	if arrayA.GetPrototype() != r.ArrayPrototype || regexpR.GetPrototype() != r.RegExpPrototype {
		return fmt.Errorf("constructed objects do not delegate to their intrinsic prototypes")
	}

	// Some intrinsic prototypes are instances themselves
	c.Log(vm.Add(obj(r.NumberPrototype), vm.IntegerValue(1)))
	increment := vm.NewNativeFunction(1, false, "", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		return vm.Add(args[0], vm.IntegerValue(1)), nil
	})
	mapped, err := r.ArrayPrototype.Invoke("map", increment)
	if err != nil {
		return err
	}
	c.Log(mapped)
	c.Log(vm.Add(obj(r.StringPrototype), vm.NewString("a")))
	c.Log(get(r.RegExpPrototype, "source"))
	v, err := r.Call(obj(r.FunctionPrototype), vm.Undefined, nil)
	if err != nil {
		return err
	}
	c.Log(v)
	return nil
}

func longerChains(s *Session) error {
	c, r := s.console, s.realm

	constructor := r.NewConstructor("Constructor", nil)
	o, err := r.Construct(constructor)
	if err != nil {
		return err
	}
	c.Print("%s", r.DescribeChain(o))

	base := r.NewConstructor("Base", nil)
	derived := r.NewConstructor("Derived", nil)
	if err := derived.Prototype.SetPrototype(base.Prototype); err != nil {
		return err
	}
	objO, err := r.Construct(derived)
	if err != nil {
		return err
	}
	c.Print("%s", r.DescribeChain(objO))

	baseB := r.NewClass("BaseB", nil, nil)
	derivedD := r.NewClass("DerivedD", baseB, nil)
	objOb, err := r.Construct(derivedD)
	if err != nil {
		return err
	}
	c.Log(vm.NewConstructorValue(derivedD))
	c.Print("%s", r.DescribeChain(objOb))
	return nil
}

func inspectingPrototypes(s *Session) error {
	c, r := s.console, s.realm

	item := r.NewConstructor("Item", assignFields("name", "value"))
	// getProps reads a single value
	if err := r.MutateShared(item.Prototype, "getProps", readField("getProps", "value", vm.Undefined)); err != nil {
		return err
	}
	instance, err := r.Construct(item, vm.NewString("Bill"), vm.IntegerValue(200))
	if err != nil {
		return err
	}
	c.Log(obj(instance))
	c.Log(vm.NewString("Item is a"), vm.NewString(vm.TypeOf(vm.NewConstructorValue(item))),
		vm.NewString("and item is an"), vm.NewString(vm.TypeOf(obj(instance))))

	if err := r.MutateShared(item.Prototype, "getProps", readField("getProps", "value", vm.IntegerValue(1))); err != nil {
		return err
	}
	v, err := instance.Invoke("getProps")
	if err != nil {
		return err
	}
	c.Log(v)

	pto := s.literal(r.ObjectPrototype, "balance", vm.NumberValue(28.01))
	c.Log(vm.BooleanValue(r.GetPrototypeOf(obj(pto)) == r.ObjectPrototype))

	bill := r.NewConstructor("Bill", nil)
	if err := bill.Prototype.SetPrototype(item.Prototype); err != nil {
		return err
	}
	b, err := r.Construct(bill)
	if err != nil {
		return err
	}
	c.Log(obj(b))
	c.Print("%s", r.DescribeChain(b))

	itemsI := r.NewClass("ItemsI", nil, nil)
	expenses := r.NewClass("Expenses", itemsI, nil)
	expense, err := r.Construct(expenses)
	if err != nil {
		return err
	}
	c.Log(obj(expense))
	return nil
}
