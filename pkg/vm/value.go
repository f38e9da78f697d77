package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"
)

// cleanExponentialFormat removes leading zeros from exponent to match JS format
// e.g., "1e-07" -> "1e-7", "1e+25" -> "1e+25"
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' || s[i] == 'E' {
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				sign := s[i+1]
				j := i + 2
				for j < len(s) && s[j] == '0' {
					j++
				}
				if j >= len(s) {
					return s[:i+2] + "0"
				}
				return s[:i+1] + string(sign) + s[j:]
			}
			break
		}
	}
	return s
}

type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull

	TypeString

	TypeFloatNumber
	TypeIntegerNumber

	TypeBoolean

	TypeNativeFunction
	TypeConstructor

	TypeObject
)

// String returns a human-readable string representation of the ValueType
func (vt ValueType) String() string {
	switch vt {
	case TypeNull:
		return "null"
	case TypeUndefined:
		return "undefined"
	case TypeString:
		return "string"
	case TypeFloatNumber, TypeIntegerNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeNativeFunction:
		return "native function"
	case TypeConstructor:
		return "constructor"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the tagged union stored in object properties.
// Primitives live in payload; heap values live behind obj.
type Value struct {
	typ     ValueType
	payload uint64
	obj     unsafe.Pointer
}

type StringObject struct {
	value string
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, payload: 1}
	False     = Value{typ: TypeBoolean, payload: 0}
	NaN       = Value{typ: TypeFloatNumber, payload: math.Float64bits(math.NaN())}
)

func NumberValue(value float64) Value {
	return Value{typ: TypeFloatNumber, payload: math.Float64bits(value)}
}

func IntegerValue(value int32) Value {
	return Value{typ: TypeIntegerNumber, payload: uint64(int64(value))}
}

func BooleanValue(value bool) Value {
	if value {
		return True
	}
	return False
}

func NewString(value string) Value {
	return Value{typ: TypeString, obj: unsafe.Pointer(&StringObject{value: value})}
}

// NewValueFromPlainObject wraps an object so it can be stored as a property value.
func NewValueFromPlainObject(o *PlainObject) Value {
	if o == nil {
		return Null
	}
	return Value{typ: TypeObject, obj: unsafe.Pointer(o)}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsNumber() bool {
	return v.typ == TypeFloatNumber || v.typ == TypeIntegerNumber
}

func (v Value) IsString() bool  { return v.typ == TypeString }
func (v Value) IsBoolean() bool { return v.typ == TypeBoolean }
func (v Value) IsObject() bool  { return v.typ == TypeObject }
func (v Value) IsNull() bool    { return v.typ == TypeNull }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }

// IsCallable reports whether the value can be invoked as a method.
func (v Value) IsCallable() bool {
	switch v.typ {
	case TypeNativeFunction, TypeConstructor:
		return true
	case TypeObject:
		return v.AsPlainObject().class == ClassFunction
	}
	return false
}

// toPrimitive unwraps Number and String wrapper objects. A wrapper's
// primitive never changes, so no lock is needed.
func toPrimitive(v Value) Value {
	if v.typ == TypeObject {
		if o := v.AsPlainObject(); o.class == ClassNumber || o.class == ClassString {
			return o.primitive
		}
	}
	return v
}

func (v Value) AsFloat() float64 {
	if v.typ != TypeFloatNumber {
		panic("value is not a float")
	}
	return math.Float64frombits(v.payload)
}

func (v Value) AsInteger() int32 {
	if v.typ != TypeIntegerNumber {
		panic("value is not an integer")
	}
	return int32(int64(v.payload))
}

func (v Value) AsString() string {
	if v.typ != TypeString {
		panic("value is not a string")
	}
	return (*StringObject)(v.obj).value
}

func (v Value) AsBoolean() bool {
	if v.typ != TypeBoolean {
		panic("value is not a boolean")
	}
	return v.payload != 0
}

func (v Value) AsPlainObject() *PlainObject {
	if v.typ != TypeObject {
		panic("value is not an object")
	}
	return (*PlainObject)(v.obj)
}

func (v Value) AsNativeFunction() *NativeFunctionObject {
	if v.typ != TypeNativeFunction {
		panic("value is not a native function")
	}
	return (*NativeFunctionObject)(v.obj)
}

func (v Value) AsConstructor() *ConstructorObject {
	if v.typ != TypeConstructor {
		panic("value is not a constructor")
	}
	return (*ConstructorObject)(v.obj)
}

// ToFloat converts numbers (and numeric-looking primitives) to float64.
func (v Value) ToFloat() float64 {
	switch v.typ {
	case TypeFloatNumber:
		return v.AsFloat()
	case TypeIntegerNumber:
		return float64(v.AsInteger())
	case TypeBoolean:
		if v.AsBoolean() {
			return 1
		}
		return 0
	case TypeNull:
		return 0
	case TypeObject:
		if p := toPrimitive(v); p.typ != TypeObject {
			return p.ToFloat()
		}
		return math.NaN()
	case TypeString:
		s := strings.TrimSpace(v.AsString())
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == 0 {
		return "0"
	}
	absF := math.Abs(f)
	if absF < 1e-6 || absF >= 1e21 {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString converts a value to its string form as used by string concatenation.
func (v Value) ToString() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeString:
		return v.AsString()
	case TypeFloatNumber:
		return formatNumber(v.AsFloat())
	case TypeIntegerNumber:
		return strconv.FormatInt(int64(v.AsInteger()), 10)
	case TypeBoolean:
		if v.AsBoolean() {
			return "true"
		}
		return "false"
	case TypeNativeFunction:
		return fmt.Sprintf("function %s() { [native code] }", v.AsNativeFunction().Name)
	case TypeConstructor:
		c := v.AsConstructor()
		if c.IsClass {
			return fmt.Sprintf("class %s { }", c.Name)
		}
		return fmt.Sprintf("function %s() { [native code] }", c.Name)
	case TypeObject:
		o := v.AsPlainObject()
		switch o.class {
		case ClassArray:
			parts := make([]string, len(o.elements))
			for i, el := range o.elements {
				if el.typ != TypeUndefined && el.typ != TypeNull {
					parts[i] = el.ToString()
				}
			}
			return strings.Join(parts, ",")
		case ClassRegExp:
			return "/" + o.source + "/" + o.flags
		case ClassNumber, ClassString:
			return o.primitive.ToString()
		case ClassFunction:
			return "function () { [native code] }"
		}
		return "[object Object]"
	default:
		return fmt.Sprintf("<unknown %d>", v.typ)
	}
}

// Is implements SameValueZero: numbers compare numerically across int/float,
// heap values compare by identity.
func (v Value) Is(other Value) bool {
	if v.typ != other.typ {
		if v.IsNumber() && other.IsNumber() {
			return v.ToFloat() == other.ToFloat()
		}
		return false
	}
	switch v.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return v.AsBoolean() == other.AsBoolean()
	case TypeIntegerNumber:
		return v.AsInteger() == other.AsInteger()
	case TypeFloatNumber:
		vf, of := v.AsFloat(), other.AsFloat()
		if math.IsNaN(vf) && math.IsNaN(of) {
			return true
		}
		return vf == of
	case TypeString:
		return v.AsString() == other.AsString()
	default:
		return v.obj == other.obj
	}
}

// TypeOf returns the result of the typeof operator.
func TypeOf(v Value) string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeObject:
		if v.AsPlainObject().class == ClassFunction {
			return "function"
		}
		return "object"
	case TypeNull:
		return "object"
	case TypeBoolean:
		return "boolean"
	case TypeFloatNumber, TypeIntegerNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeNativeFunction, TypeConstructor:
		return "function"
	default:
		return "undefined"
	}
}

// Add implements the + operator for the primitives methods work with:
// string concatenation when either side is a string, numeric addition otherwise.
// Number and String wrappers take part as their primitive.
func Add(a, b Value) Value {
	a, b = toPrimitive(a), toPrimitive(b)
	if a.typ == TypeString || b.typ == TypeString {
		return NewString(a.ToString() + b.ToString())
	}
	if a.typ == TypeIntegerNumber && b.typ == TypeIntegerNumber {
		sum := int64(a.AsInteger()) + int64(b.AsInteger())
		if sum >= math.MinInt32 && sum <= math.MaxInt32 {
			return IntegerValue(int32(sum))
		}
		return NumberValue(float64(sum))
	}
	if a.typ == TypeObject || b.typ == TypeObject {
		return NewString(a.ToString() + b.ToString())
	}
	return NumberValue(a.ToFloat() + b.ToFloat())
}
