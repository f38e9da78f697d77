package vm

import (
	"encoding/json"
	"math"
	"strings"

	"protochain/pkg/errors"
)

// MarshalJSON implements json.Marshaler for vm.Value, following
// JSON.stringify: undefined and functions are dropped from objects and become
// null inside arrays, non-finite numbers become null, and only own enumerable
// properties are written. Delegates are never followed.
func (v Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	if v.typ == TypeObject {
		r := v.AsPlainObject().realm
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	if err := appendJSON(&b, v, nil); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// appendJSON writes v to b; stack holds the objects currently being written.
// Caller must hold the realm lock when v is an object.
func appendJSON(b *strings.Builder, v Value, stack []*PlainObject) error {
	switch v.typ {
	case TypeBoolean:
		if v.AsBoolean() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case TypeFloatNumber, TypeIntegerNumber:
		f := v.ToFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			b.WriteString("null")
		} else {
			b.WriteString(formatNumber(f))
		}
	case TypeString:
		// Use Go's json.Marshal for proper string escaping
		s, err := json.Marshal(v.AsString())
		if err != nil {
			return err
		}
		b.Write(s)
	case TypeObject:
		switch o := v.AsPlainObject(); o.class {
		case ClassFunction:
			b.WriteString("null")
			return nil
		case ClassNumber, ClassString:
			return appendJSON(b, o.primitive, stack)
		}
		return appendObjectJSON(b, v.AsPlainObject(), stack)
	default:
		b.WriteString("null")
	}
	return nil
}

func appendObjectJSON(b *strings.Builder, o *PlainObject, stack []*PlainObject) error {
	for _, seen := range stack {
		if seen == o {
			return errors.NewRuntimeError("converting circular structure to JSON")
		}
	}
	stack = append(stack, o)

	if o.class == ClassArray {
		b.WriteByte('[')
		for i, el := range o.elements {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := appendJSON(b, el, stack); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	}

	b.WriteByte('{')
	first := true
	for _, f := range o.shape.fields {
		if !f.enumerable {
			continue
		}
		prop := o.properties[f.offset]
		if prop.typ == TypeUndefined || prop.IsCallable() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(f.name)
		if err != nil {
			return err
		}
		b.Write(key)
		b.WriteByte(':')
		if err := appendJSON(b, prop, stack); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}
