package vm

import (
	stderrors "errors"
	"testing"

	"protochain/pkg/errors"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// literal builds an object with the given delegate and integer properties in order.
func literal(r *Realm, proto *PlainObject, kv ...any) *PlainObject {
	o := r.NewObjectWithPrototype(proto)
	for i := 0; i+1 < len(kv); i += 2 {
		o.SetOwn(kv[i].(string), IntegerValue(int32(kv[i+1].(int))))
	}
	return o
}

// readField returns a method that reads this[field] and adds delta.
func readField(field string, delta int32) Value {
	return NewNativeFunction(0, false, "read_"+field, func(this Value, args []Value) (Value, error) {
		v, _ := this.AsPlainObject().Get(field)
		if delta == 0 {
			return v, nil
		}
		return Add(v, IntegerValue(delta)), nil
	})
}

func realms() map[string]func() *Realm {
	return map[string]func() *Realm{
		"Uncached": func() *Realm { return NewRealm() },
		"Cached":   func() *Realm { return NewRealm(WithPrototypeCache(0)) },
	}
}

func TestGetShadowing(t *testing.T) {
	for name, newRealm := range realms() {
		t.Run(name, func(t *testing.T) {
			r := newRealm()
			proto := literal(r, r.ObjectPrototype, "b", 3, "c", 4)
			o := literal(r, proto, "a", 1, "b", 2)

			cases := []struct {
				key   string
				want  int32
				found bool
			}{
				{"a", 1, true},
				{"b", 2, true}, // own b shadows proto b
				{"c", 4, true},
				{"d", 0, false},
			}
			for _, tc := range cases {
				v, ok := o.Get(tc.key)
				require.Equal(t, tc.found, ok, "key %q", tc.key)
				if tc.found {
					assert.Equal(t, tc.want, v.AsInteger(), "key %q", tc.key)
				} else {
					assert.True(t, v.IsUndefined(), "absent key %q should read as undefined", tc.key)
				}
			}
		})
	}
}

func TestGetShadowingIgnoresValue(t *testing.T) {
	r := NewRealm()
	proto := literal(r, r.ObjectPrototype, "x", 1)
	o := r.NewObjectWithPrototype(proto)
	o.SetOwn("x", Undefined)

	v, ok := o.Get("x")
	require.True(t, ok, "an own undefined still counts as found")
	assert.True(t, v.IsUndefined())

	require.True(t, o.DeleteOwn("x"))
	v, ok = o.Get("x")
	require.True(t, ok)
	assert.Equal(t, int32(1), v.AsInteger(), "removing the shadowing entry exposes the deeper value")
}

func TestGetMultiLevelChain(t *testing.T) {
	for name, newRealm := range realms() {
		t.Run(name, func(t *testing.T) {
			r := newRealm()
			z := literal(r, r.ObjectPrototype, "d", 5)
			y := literal(r, z, "b", 3, "c", 4)
			x := literal(r, y, "a", 1, "b", 2)

			v, holder, depth, ok := x.GetWithHolder("d")
			require.True(t, ok)
			assert.Equal(t, int32(5), v.AsInteger())
			assert.Same(t, z, holder)
			assert.Equal(t, 2, depth)

			_, holder, depth, ok = x.GetWithHolder("missing")
			assert.False(t, ok)
			assert.Nil(t, holder)
			assert.Equal(t, -1, depth)
		})
	}
}

func TestGetDepthForEveryLevel(t *testing.T) {
	r := NewRealm(WithPrototypeCache(0))
	const length = 12
	// chain[0] -> chain[1] -> ... -> chain[length-1]; chain[i] owns "k<i>"
	chain := make([]*PlainObject, length)
	var proto *PlainObject
	for i := length - 1; i >= 0; i-- {
		chain[i] = r.NewObjectWithPrototype(proto)
		chain[i].SetOwn(keyAt(i), IntegerValue(int32(i)))
		proto = chain[i]
	}
	for d := 0; d < length; d++ {
		v, _, depth, ok := chain[0].GetWithHolder(keyAt(d))
		require.True(t, ok, "depth %d", d)
		assert.Equal(t, int32(d), v.AsInteger())
		assert.Equal(t, d, depth)
	}
	_, ok := chain[0].Get("k-none")
	assert.False(t, ok)
}

func keyAt(i int) string {
	return "k" + string(rune('a'+i))
}

func TestInvokeReceiverBinding(t *testing.T) {
	for name, newRealm := range realms() {
		t.Run(name, func(t *testing.T) {
			r := newRealm()
			parent := r.NewObject()
			parent.SetOwn("value", IntegerValue(2))
			parent.SetOwn("method", readField("value", 1))

			got, err := parent.Invoke("method")
			require.NoError(t, err)
			assert.Equal(t, int32(3), got.AsInteger())

			child := r.NewObjectWithPrototype(parent)
			got, err = child.Invoke("method")
			require.NoError(t, err)
			assert.Equal(t, int32(3), got.AsInteger(), "child reads parent.value through the chain")

			child.SetOwn("value", IntegerValue(4))
			got, err = child.Invoke("method")
			require.NoError(t, err)
			assert.Equal(t, int32(5), got.AsInteger(), "child's own value shadows parent.value")

			parent.SetOwn("value", IntegerValue(100))
			got, err = child.Invoke("method")
			require.NoError(t, err)
			assert.Equal(t, int32(5), got.AsInteger(), "parent.value no longer affects child")
		})
	}
}

func TestInvokeReceiverIsOriginalObject(t *testing.T) {
	r := NewRealm()
	var seen *PlainObject
	proto := r.NewObject()
	proto.SetOwn("who", NewNativeFunction(0, false, "who", func(this Value, args []Value) (Value, error) {
		seen = this.AsPlainObject()
		return Undefined, nil
	}))
	mid := r.NewObjectWithPrototype(proto)
	leaf := r.NewObjectWithPrototype(mid)

	_, err := leaf.Invoke("who")
	require.NoError(t, err)
	assert.Same(t, leaf, seen)
}

func TestInvokeArguments(t *testing.T) {
	r := NewRealm()
	o := r.NewObject()
	o.SetOwn("sum", NewNativeFunction(0, true, "sum", func(this Value, args []Value) (Value, error) {
		total := IntegerValue(0)
		for _, a := range args {
			total = Add(total, a)
		}
		return total, nil
	}))
	got, err := o.Invoke("sum", IntegerValue(1), IntegerValue(2), IntegerValue(3))
	require.NoError(t, err)
	assert.Equal(t, int32(6), got.AsInteger())
}

func TestInvokeErrors(t *testing.T) {
	r := NewRealm()
	o := r.NewObject()
	o.SetOwn("value", IntegerValue(1))

	_, err := o.Invoke("missing")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrPropertyNotFound))
	var notFound *errors.PropertyNotFoundError
	require.True(t, stderrors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.Key)

	_, err = o.Invoke("value")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNotCallable))
	var notCallable *errors.NotCallableError
	require.True(t, stderrors.As(err, &notCallable))
	assert.Equal(t, "number", notCallable.TypeName)

	// Calling a class without new is rejected too
	cls := r.NewClass("Thing", nil, nil)
	o.SetOwn("Thing", NewConstructorValue(cls))
	_, err = o.Invoke("Thing")
	assert.True(t, stderrors.Is(err, errors.ErrNotCallable))

	// Errors raised by the method come back unchanged
	boom := stderrors.New("boom")
	o.SetOwn("fail", NewNativeFunction(0, false, "fail", func(this Value, args []Value) (Value, error) {
		return Undefined, boom
	}))
	_, err = o.Invoke("fail")
	assert.Same(t, boom, err)
}

func TestMutateSharedVisibleToAllDelegators(t *testing.T) {
	for name, newRealm := range realms() {
		t.Run(name, func(t *testing.T) {
			r := newRealm()
			shared := r.NewObject()
			a := r.NewObjectWithPrototype(shared)
			b := r.NewObjectWithPrototype(shared)
			grandchild := r.NewObjectWithPrototype(a)

			_, ok := a.Get("k")
			require.False(t, ok)

			require.NoError(t, r.MutateShared(shared, "k", NewString("v1")))
			c := r.NewObjectWithPrototype(shared) // created after the mutation

			for _, o := range []*PlainObject{a, b, c, grandchild} {
				v, ok := o.Get("k")
				require.True(t, ok)
				assert.Equal(t, "v1", v.AsString())
			}

			require.NoError(t, r.MutateShared(shared, "k", NewString("v2")))
			for _, o := range []*PlainObject{a, b, c, grandchild} {
				v, _ := o.Get("k")
				assert.Equal(t, "v2", v.AsString(), "no stale reads after a second mutation")
			}
		})
	}
}

func TestMutateSharedReplacesMethod(t *testing.T) {
	r := NewRealm(WithPrototypeCache(0))
	box := r.NewConstructor("Box", func(this *PlainObject, args []Value) error {
		this.SetOwn("value", args[0])
		return nil
	})
	require.NoError(t, r.MutateShared(box.Prototype, "getValue", readField("value", 0)))
	instance, err := r.Construct(box, IntegerValue(1))
	require.NoError(t, err)

	got, err := instance.Invoke("getValue")
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.AsInteger())

	require.NoError(t, r.MutateShared(box.Prototype, "getValue", readField("value", 1)))
	got, err = instance.Invoke("getValue")
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.AsInteger())
}

func TestSetPrototypeCycles(t *testing.T) {
	r := NewRealm()
	n := r.NewObject()
	err := n.SetPrototype(n)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrCycleDetected))
	assert.Same(t, r.ObjectPrototype, n.GetPrototype(), "rejected rebinding leaves the delegate unchanged")

	a := r.NewObject()
	b := r.NewObject()
	require.NoError(t, a.SetPrototype(b))
	err = b.SetPrototype(a)
	require.Error(t, err)
	var cycle *errors.CycleDetectedError
	require.True(t, stderrors.As(err, &cycle))
	assert.Same(t, r.ObjectPrototype, b.GetPrototype())

	// longer cycle through an intermediate object
	c := r.NewObjectWithPrototype(a)
	assert.True(t, stderrors.Is(b.SetPrototype(c), errors.ErrCycleDetected))

	// rebinding to the current delegate is a no-op, nil ends the chain
	require.NoError(t, a.SetPrototype(b))
	require.NoError(t, a.SetPrototype(nil))
	assert.Nil(t, a.GetPrototype())
	require.NoError(t, b.SetPrototype(a), "no cycle once a no longer delegates to b")
}

func TestSetPrototypeAcrossRealms(t *testing.T) {
	r1 := NewRealm()
	r2 := NewRealm()
	err := r1.NewObject().SetPrototype(r2.NewObject())
	assert.True(t, stderrors.Is(err, errors.ErrRealmMismatch))
	assert.True(t, stderrors.Is(r1.MutateShared(r2.NewObject(), "k", Null), errors.ErrRealmMismatch))
}

func TestSetPrototypeInvalidatesLookups(t *testing.T) {
	for name, newRealm := range realms() {
		t.Run(name, func(t *testing.T) {
			r := newRealm()
			first := literal(r, r.ObjectPrototype, "k", 1)
			second := literal(r, r.ObjectPrototype, "k", 2)
			o := r.NewObjectWithPrototype(first)

			v, _ := o.Get("k")
			require.Equal(t, int32(1), v.AsInteger())
			require.NoError(t, o.SetPrototype(second))
			v, _ = o.Get("k")
			assert.Equal(t, int32(2), v.AsInteger())

			// a closer own entry added later shadows the cached holder
			o.SetOwn("k", IntegerValue(3))
			v, _ = o.Get("k")
			assert.Equal(t, int32(3), v.AsInteger())
		})
	}
}

func TestGetIdempotent(t *testing.T) {
	r := NewRealm(WithPrototypeCache(0))
	proto := literal(r, r.ObjectPrototype, "x", 10)
	o := r.NewObjectWithPrototype(proto)
	first, ok := o.Get("x")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		v, ok := o.Get("x")
		require.True(t, ok)
		assert.True(t, first.Is(v))
	}
	stats := r.Cache().Stats()
	assert.Equal(t, uint64(5), stats.Hits)
	assert.Equal(t, uint64(5), stats.ProtoHits)
}

func TestChainAndKeys(t *testing.T) {
	r := NewRealm()
	z := literal(r, r.ObjectPrototype, "d", 5)
	y := literal(r, z, "b", 3, "c", 4)
	x := literal(r, y, "a", 1, "b", 2)

	chain := x.Chain()
	require.Len(t, chain, 4)
	assert.Same(t, x, chain[0])
	assert.Same(t, r.ObjectPrototype, chain[3])

	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, x.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t,
		"{ a: 1, b: 2 } ---> { b: 3, c: 4 } ---> { d: 5 } ---> Object.prototype ---> null",
		r.DescribeChain(x))
}

func TestGetPrototypeOf(t *testing.T) {
	r := NewRealm()
	assert.Same(t, r.ObjectPrototype, r.GetPrototypeOf(NewValueFromPlainObject(r.NewObject())))
	assert.Same(t, r.ArrayPrototype, r.GetPrototypeOf(NewValueFromPlainObject(r.NewArray())))
	re, err := r.NewRegExp("abc", "")
	require.NoError(t, err)
	assert.Same(t, r.RegExpPrototype, r.GetPrototypeOf(NewValueFromPlainObject(re)))
	assert.Same(t, r.FunctionPrototype, r.GetPrototypeOf(readField("x", 0)))
	assert.Same(t, r.NumberPrototype, r.GetPrototypeOf(IntegerValue(1)))
	assert.Same(t, r.StringPrototype, r.GetPrototypeOf(NewString("a")))
	assert.Nil(t, r.GetPrototypeOf(True))
	assert.Nil(t, r.GetPrototypeOf(Undefined))
	assert.Nil(t, r.ObjectPrototype.GetPrototype())
}
