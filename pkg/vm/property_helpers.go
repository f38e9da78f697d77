package vm

import (
	"fmt"

	"protochain/pkg/errors"

	"go.uber.org/zap"
)

// lookup walks the delegate chain from o and returns the first own match, the
// object holding it and its depth (0 = own). Caller holds r.mu.
func (r *Realm) lookup(o *PlainObject, name string) (Value, *PlainObject, int, bool) {
	if r.cache != nil {
		if holder, depth, hit := r.cache.Lookup(o, name, r.epoch); hit {
			if holder == nil {
				return Undefined, nil, -1, false
			}
			if v, ok := holder.getOwn(name); ok {
				return v, holder, depth, true
			}
		}
	}

	depth := 0
	for current := o; current != nil; current = current.prototype {
		if v, ok := current.getOwn(name); ok {
			r.cache.Update(o, name, r.epoch, current, depth)
			return v, current, depth, true
		}
		depth++
	}
	r.cache.Update(o, name, r.epoch, nil, -1)
	return Undefined, nil, -1, false
}

// Get reads a property through the delegate chain. The closest own match
// wins; (Undefined, false) means no object along the chain has the key.
func (o *PlainObject) Get(name string) (Value, bool) {
	r := o.realm
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, _, _, ok := r.lookup(o, name)
	return v, ok
}

// GetWithHolder is Get that also reports which object along the chain held
// the property and how many delegate hops away it was. holder is nil and
// depth is -1 when the key is absent.
func (o *PlainObject) GetWithHolder(name string) (v Value, holder *PlainObject, depth int, found bool) {
	r := o.realm
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(o, name)
}

// Invoke resolves name through the chain and calls it with o as the receiver,
// regardless of which object along the chain defined the function.
func (o *PlainObject) Invoke(name string, args ...Value) (Value, error) {
	r := o.realm
	r.mu.RLock()
	fn, _, _, found := r.lookup(o, name)
	r.mu.RUnlock()
	if !found {
		return Undefined, &errors.PropertyNotFoundError{Key: name}
	}
	// The lock is released so the method may read and write the graph.
	return r.call(name, fn, NewValueFromPlainObject(o), args)
}

// Call invokes fn with an explicit receiver.
func (r *Realm) Call(fn Value, this Value, args []Value) (Value, error) {
	name := ""
	switch fn.typ {
	case TypeNativeFunction:
		name = fn.AsNativeFunction().Name
	case TypeConstructor:
		name = fn.AsConstructor().Name
	}
	return r.call(name, fn, this, args)
}

func (r *Realm) call(name string, fn Value, this Value, args []Value) (Value, error) {
	switch fn.typ {
	case TypeNativeFunction:
		return fn.AsNativeFunction().Fn(this, args)
	case TypeObject:
		// Function objects such as Function.prototype; fn never changes after creation
		if o := fn.AsPlainObject(); o.class == ClassFunction {
			return o.fn(this, args)
		}
		return Undefined, &errors.NotCallableError{Key: name, TypeName: TypeOf(fn)}
	case TypeConstructor:
		c := fn.AsConstructor()
		if c.callFn != nil {
			return c.callFn(args)
		}
		if c.IsClass {
			return Undefined, &errors.NotCallableError{
				Key:      name,
				TypeName: fmt.Sprintf("class constructor %s cannot be invoked without 'new'", c.Name),
			}
		}
		// Calling a constructor function without new runs it against the receiver.
		if init := c.initializer(); init != nil && this.IsObject() {
			if err := init(this.AsPlainObject(), args); err != nil {
				return Undefined, err
			}
		}
		return Undefined, nil
	default:
		return Undefined, &errors.NotCallableError{Key: name, TypeName: TypeOf(fn)}
	}
}

// SetPrototype rebinds o's delegate. A nil proto ends the chain at o.
// Rebinding that would make o reachable from itself fails with
// CycleDetectedError and leaves the graph unchanged.
func (o *PlainObject) SetPrototype(proto *PlainObject) error {
	r := o.realm
	if !r.owns(proto) {
		return &errors.RealmMismatchError{
			Msg: fmt.Sprintf("prototype belongs to realm %s, object to realm %s", proto.realm.id, r.id),
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.prototype == proto {
		return nil
	}
	for p := proto; p != nil; p = p.prototype {
		if p == o {
			err := &errors.CycleDetectedError{
				Object:    r.inspect(NewValueFromPlainObject(o), 0, 0),
				Prototype: r.inspect(NewValueFromPlainObject(proto), 0, 0),
			}
			if ce := r.logger.Check(zap.DebugLevel, "delegate rebinding rejected"); ce != nil {
				ce.Write(zap.String("realm", r.id.String()), zap.Error(err))
			}
			return err
		}
	}
	o.prototype = proto
	r.bumpEpoch()
	if ce := r.logger.Check(zap.DebugLevel, "delegate rebound"); ce != nil {
		ce.Write(
			zap.String("realm", r.id.String()),
			zap.String("object", r.inspect(NewValueFromPlainObject(o), 0, 0)),
			zap.String("prototype", r.inspect(NewValueFromPlainObject(proto), 0, 0)),
		)
	}
	return nil
}

// MutateShared writes name directly into proto's own properties. Every object
// delegating to proto, directly or transitively and including objects created
// before the write, observes the new value on its next Get or Invoke.
func (r *Realm) MutateShared(proto *PlainObject, name string, v Value) error {
	if proto == nil {
		return errors.NewRuntimeError("cannot mutate a missing prototype")
	}
	if !r.owns(proto) {
		return &errors.RealmMismatchError{
			Msg: fmt.Sprintf("prototype belongs to realm %s, not %s", proto.realm.id, r.id),
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := proto.getOwn(name)
	proto.setOwn(name, v, true)
	r.bumpEpoch()
	if ce := r.logger.Check(zap.DebugLevel, "shared prototype mutated"); ce != nil {
		ce.Write(
			zap.String("realm", r.id.String()),
			zap.String("key", name),
			zap.Bool("replaced", existed),
			zap.String("value", r.inspect(v, 1, 0)),
		)
	}
	return nil
}

// Chain returns o followed by every delegate up to the end of the chain.
func (o *PlainObject) Chain() []*PlainObject {
	o.realm.mu.RLock()
	defer o.realm.mu.RUnlock()
	var chain []*PlainObject
	for current := o; current != nil; current = current.prototype {
		chain = append(chain, current)
	}
	return chain
}

// Keys returns every enumerable key readable on o, shallowest first. A key
// shadowed further down the chain is listed once.
func (o *PlainObject) Keys() []string {
	o.realm.mu.RLock()
	defer o.realm.mu.RUnlock()
	seen := make(map[string]bool)
	var keys []string
	for current := o; current != nil; current = current.prototype {
		for _, k := range current.ownKeys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		// Hidden own keys still shadow deeper enumerable ones
		for _, f := range current.shape.fields {
			seen[f.name] = true
		}
	}
	return keys
}

// GetPrototypeOf returns the delegate of any value: objects report their own
// delegate, functions report Function.prototype, numbers and strings report
// their wrapper prototypes, and other primitives report nil.
func (r *Realm) GetPrototypeOf(v Value) *PlainObject {
	switch v.typ {
	case TypeObject:
		return v.AsPlainObject().GetPrototype()
	case TypeNativeFunction, TypeConstructor:
		return r.FunctionPrototype
	case TypeFloatNumber, TypeIntegerNumber:
		return r.NumberPrototype
	case TypeString:
		return r.StringPrototype
	default:
		return nil
	}
}
