package vm

import (
	"strconv"
	"strings"
)

// DefaultInspectDepth is how many levels of nesting Inspect renders before
// abbreviating to [Object] / [Array].
const DefaultInspectDepth = 2

// Inspect renders v the way a JS console prints a logged value.
func (r *Realm) Inspect(v Value) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inspect(v, 0, r.inspectDepth)
}

// InspectNested renders v as it appears inside an object or array, where strings are quoted.
func (r *Realm) InspectNested(v Value) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inspect(v, 1, r.inspectDepth+1)
}

// inspect is the lock-free renderer; the caller holds r.mu. depth is the
// current nesting level, maxDepth the deepest level rendered in full.
func (r *Realm) inspect(v Value, depth int, maxDepth int) string {
	switch v.typ {
	case TypeString:
		if depth > 0 {
			return quoteString(v.AsString())
		}
		return v.AsString()
	case TypeUndefined, TypeNull, TypeBoolean, TypeFloatNumber, TypeIntegerNumber:
		return v.ToString()
	case TypeNativeFunction:
		fn := v.AsNativeFunction()
		if fn.Name != "" {
			return "[Function: " + fn.Name + "]"
		}
		return "[Function (anonymous)]"
	case TypeConstructor:
		c := v.AsConstructor()
		if c.IsClass {
			if c.Parent != nil {
				return "[class " + c.Name + " extends " + c.Parent.Name + "]"
			}
			return "[class " + c.Name + "]"
		}
		if c.Name != "" {
			return "[Function: " + c.Name + "]"
		}
		return "[Function (anonymous)]"
	case TypeObject:
		return r.inspectObject(v.AsPlainObject(), depth, maxDepth)
	default:
		return "<unknown " + strconv.Itoa(int(v.typ)) + ">"
	}
}

func (r *Realm) inspectObject(o *PlainObject, depth int, maxDepth int) string {
	switch o.class {
	case ClassRegExp:
		return "/" + o.source + "/" + o.flags
	case ClassFunction:
		return "[Function (anonymous)]"
	case ClassNumber, ClassString:
		return "[" + o.class.String() + ": " + r.inspect(o.primitive, 1, 1) + "]"
	}
	if depth > maxDepth {
		if o.class == ClassArray {
			return "[Array]"
		}
		return "[Object]"
	}

	var parts []string
	if o.class == ClassArray {
		for _, el := range o.elements {
			parts = append(parts, r.inspect(el, depth+1, maxDepth))
		}
	}
	for _, f := range o.shape.fields {
		if !f.enumerable {
			continue
		}
		parts = append(parts, inspectKey(f.name)+": "+r.inspect(o.properties[f.offset], depth+1, maxDepth))
	}

	prefix := r.inspectPrefix(o)
	open, closing := "{", "}"
	if o.class == ClassArray {
		open, closing = "[", "]"
	}
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString(" ")
	}
	if len(parts) == 0 {
		b.WriteString(open + closing)
		return b.String()
	}
	b.WriteString(open + " ")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(" " + closing)
	return b.String()
}

// inspectPrefix names the object's constructor the way console output does:
// nothing for plain objects and arrays, the class name for instances, a marker
// for objects with no delegate.
func (r *Realm) inspectPrefix(o *PlainObject) string {
	if o.prototype == nil {
		if o.class == ClassArray {
			return "[Array: null prototype]"
		}
		return "[Object: null prototype]"
	}
	// The constructor an object reports comes from its delegates; a
	// prototype's own back-reference does not name the prototype itself.
	ctor, _, _, found := r.lookup(o.prototype, "constructor")
	if !found || ctor.typ != TypeConstructor {
		return ""
	}
	name := ctor.AsConstructor().Name
	switch {
	case name == "Object" && o.class == ClassObject:
		return ""
	case name == "Array" && o.class == ClassArray:
		return ""
	}
	return name
}

func inspectKey(name string) string {
	if isIdentifier(name) {
		return name
	}
	return quoteString(name)
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_' || c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, c := range s {
		switch c {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// DescribeChain renders a chain as "{ a: 1 } ---> { b: 3 } ---> Object.prototype ---> null".
// Intrinsic prototypes are shown by name.
func (r *Realm) DescribeChain(o *PlainObject) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var parts []string
	for current := o; current != nil; current = current.prototype {
		parts = append(parts, r.describeLink(current))
	}
	parts = append(parts, "null")
	return strings.Join(parts, " ---> ")
}

func (r *Realm) describeLink(o *PlainObject) string {
	// Prototype objects are named after the constructor that owns them.
	if ctor, ok := o.getOwn("constructor"); ok && ctor.typ == TypeConstructor {
		if c := ctor.AsConstructor(); c.Prototype == o {
			return c.Name + ".prototype"
		}
	}
	return r.inspect(NewValueFromPlainObject(o), 0, r.inspectDepth)
}
