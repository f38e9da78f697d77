package source

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"protochain/pkg/vm"
)

// Document is the YAML form of an object graph.
type Document struct {
	Constructors []ConstructorSpec `yaml:"constructors"`
	Objects      []ObjectSpec      `yaml:"objects"`
}

// ConstructorSpec declares a constructor function or class. Its initializer
// assigns constructor arguments positionally to Fields.
type ConstructorSpec struct {
	Name    string    `yaml:"name"`
	Class   bool      `yaml:"class"`
	Extends string    `yaml:"extends"`
	Fields  []string  `yaml:"fields"`
	Methods yaml.Node `yaml:"methods"`

	Line int `yaml:"-"`
}

// ObjectSpec declares a node. New constructs it from a constructor; Proto
// names its delegate: an object, "Ctor.prototype", or "null".
type ObjectSpec struct {
	Name       string      `yaml:"name"`
	New        string      `yaml:"new"`
	Args       []yaml.Node `yaml:"args"`
	Proto      string      `yaml:"proto"`
	Properties yaml.Node   `yaml:"properties"`
	Methods    yaml.Node   `yaml:"methods"`

	Line int `yaml:"-"`
}

// MethodSpec is a method reading this[Field] through the receiver's chain and
// adding Add to it.
type MethodSpec struct {
	Field string    `yaml:"field"`
	Add   yaml.Node `yaml:"add"`
}

func (c *ConstructorSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain ConstructorSpec
	if err := n.Decode((*plain)(c)); err != nil {
		return err
	}
	c.Line = n.Line
	return nil
}

func (o *ObjectSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain ObjectSpec
	if err := n.Decode((*plain)(o)); err != nil {
		return err
	}
	o.Line = n.Line
	return nil
}

// Parse decodes a graph document.
func Parse(sf *SourceFile) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal([]byte(sf.Content), &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", sf.DisplayPath())
	}
	return &doc, nil
}

// valueBuilder converts YAML values into realm values. An anchored node is
// built once and every alias to it yields that same value, so aliases share
// objects the way repeated references do in a script.
type valueBuilder struct {
	realm *vm.Realm
	built map[*yaml.Node]vm.Value
}

func newValueBuilder(r *vm.Realm) *valueBuilder {
	return &valueBuilder{realm: r, built: make(map[*yaml.Node]vm.Value)}
}

// value converts n. Mappings become objects with keys in document order;
// sequences become arrays.
func (b *valueBuilder) value(n *yaml.Node) (vm.Value, error) {
	if v, ok := b.built[n]; ok {
		return v, nil
	}
	r := b.realm
	switch n.Kind {
	case 0:
		return vm.Undefined, nil
	case yaml.AliasNode:
		if n.Alias == nil {
			return vm.Undefined, errors.Errorf("line %d: unknown anchor %q", n.Line, n.Value)
		}
		return b.value(n.Alias)
	case yaml.SequenceNode:
		arr := r.NewArray()
		// registered before the elements so an element may alias its own array
		b.built[n] = vm.NewValueFromPlainObject(arr)
		for i, child := range n.Content {
			v, err := b.value(child)
			if err != nil {
				return vm.Undefined, err
			}
			arr.SetOwn(strconv.Itoa(i), v)
		}
		return b.built[n], nil
	case yaml.MappingNode:
		o := r.NewObject()
		b.built[n] = vm.NewValueFromPlainObject(o)
		if err := eachPair(n, func(key string, value *yaml.Node) error {
			v, err := b.value(value)
			if err != nil {
				return err
			}
			o.SetOwn(key, v)
			return nil
		}); err != nil {
			return vm.Undefined, err
		}
		return b.built[n], nil
	}

	v, err := scalarValue(n)
	if err != nil {
		return vm.Undefined, err
	}
	if n.Anchor != "" {
		b.built[n] = v
	}
	return v, nil
}

func scalarValue(n *yaml.Node) (vm.Value, error) {
	var scalar any
	if err := n.Decode(&scalar); err != nil {
		return vm.Undefined, errors.Wrapf(err, "line %d", n.Line)
	}
	switch s := scalar.(type) {
	case nil:
		return vm.Null, nil
	case bool:
		return vm.BooleanValue(s), nil
	case int:
		if s >= math.MinInt32 && s <= math.MaxInt32 {
			return vm.IntegerValue(int32(s)), nil
		}
		return vm.NumberValue(float64(s)), nil
	case int64:
		return vm.NumberValue(float64(s)), nil
	case uint64:
		return vm.NumberValue(float64(s)), nil
	case float64:
		return vm.NumberValue(s), nil
	case string:
		return vm.NewString(s), nil
	default:
		return vm.NewString(n.Value), nil
	}
}

// eachPair visits a mapping's entries in document order.
func eachPair(n *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind == 0 {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// ParseValue reads a single YAML value, such as a command-line argument,
// into a realm value.
func ParseValue(r *vm.Realm, text string) (vm.Value, error) {
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(text), &n); err != nil {
		return vm.Undefined, errors.Wrapf(err, "parsing value %q", text)
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return newValueBuilder(r).value(n.Content[0])
	}
	return vm.Undefined, nil
}
