package source

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"protochain/pkg/vm"
)

// Graph is a loaded document: named objects and constructors living in one realm.
type Graph struct {
	Realm        *vm.Realm
	Objects      map[string]*vm.PlainObject
	Constructors map[string]*vm.ConstructorObject

	values *valueBuilder
}

// Object returns the named object.
func (g *Graph) Object(name string) (*vm.PlainObject, error) {
	if o, ok := g.Objects[name]; ok {
		return o, nil
	}
	// Ctor.prototype is addressable too
	if ctor, ok := strings.CutSuffix(name, ".prototype"); ok {
		if c, ok := g.Constructors[ctor]; ok {
			return c.Prototype, nil
		}
	}
	return nil, errors.Errorf("no object named %q", name)
}

// Names lists object names in sorted order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.Objects))
	for name := range g.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the document's graph in r. Objects are created first and
// delegates linked afterwards through SetPrototype, so objects may refer to
// ones declared later and a cyclic document fails with CycleDetected.
func Load(r *vm.Realm, sf *SourceFile) (*Graph, error) {
	doc, err := Parse(sf)
	if err != nil {
		return nil, err
	}
	g := &Graph{
		Realm:        r,
		Objects:      make(map[string]*vm.PlainObject),
		Constructors: make(map[string]*vm.ConstructorObject),
		values:       newValueBuilder(r),
	}
	for i := range doc.Constructors {
		if err := g.defineConstructor(&doc.Constructors[i]); err != nil {
			return nil, errors.Wrap(err, sf.Location(doc.Constructors[i].Line))
		}
	}
	for i := range doc.Objects {
		if err := g.createObject(&doc.Objects[i]); err != nil {
			return nil, errors.Wrap(err, sf.Location(doc.Objects[i].Line))
		}
	}
	for i := range doc.Objects {
		if err := g.linkObject(&doc.Objects[i]); err != nil {
			return nil, errors.Wrap(err, sf.Location(doc.Objects[i].Line))
		}
	}
	r.Logger().Debug("graph loaded",
		zap.String("source", sf.DisplayPath()),
		zap.Int("objects", len(g.Objects)),
		zap.Int("constructors", len(g.Constructors)),
	)
	return g, nil
}

func (g *Graph) defineConstructor(spec *ConstructorSpec) error {
	if spec.Name == "" {
		return errors.New("constructor without a name")
	}
	if _, dup := g.Constructors[spec.Name]; dup {
		return errors.Errorf("constructor %q declared twice", spec.Name)
	}
	var parent *vm.ConstructorObject
	if spec.Extends != "" {
		p, ok := g.Constructors[spec.Extends]
		if !ok {
			return errors.Errorf("constructor %q extends unknown constructor %q", spec.Name, spec.Extends)
		}
		parent = p
	}

	var init vm.InitFunc
	if len(spec.Fields) > 0 {
		fields := spec.Fields
		init = func(this *vm.PlainObject, args []vm.Value) error {
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

	r := g.Realm
	var c *vm.ConstructorObject
	if spec.Class {
		c = r.NewClass(spec.Name, parent, init)
	} else {
		c = r.NewConstructor(spec.Name, init)
		if parent != nil {
			// Derived.prototype = Object.create(Base.prototype) style wiring
			if err := c.Prototype.SetPrototype(parent.Prototype); err != nil {
				return err
			}
		}
	}

	if err := eachPair(&spec.Methods, func(name string, value *yaml.Node) error {
		fn, err := g.method(name, value)
		if err != nil {
			return errors.Wrapf(err, "method %s.%s", spec.Name, name)
		}
		if spec.Class {
			// class methods are not enumerable
			c.Prototype.SetOwnNonEnumerable(name, fn)
			return nil
		}
		return r.MutateShared(c.Prototype, name, fn)
	}); err != nil {
		return err
	}
	g.Constructors[spec.Name] = c
	return nil
}

func (g *Graph) createObject(spec *ObjectSpec) error {
	if spec.Name == "" {
		return errors.New("object without a name")
	}
	if _, dup := g.Objects[spec.Name]; dup {
		return errors.Errorf("object %q declared twice", spec.Name)
	}
	r := g.Realm

	var o *vm.PlainObject
	if spec.New != "" {
		c, ok := g.Constructors[spec.New]
		if !ok {
			return errors.Errorf("object %q: unknown constructor %q", spec.Name, spec.New)
		}
		if spec.Proto != "" {
			return errors.Errorf("object %q: new and proto are mutually exclusive", spec.Name)
		}
		args := make([]vm.Value, len(spec.Args))
		for i := range spec.Args {
			v, err := g.values.value(&spec.Args[i])
			if err != nil {
				return errors.Wrapf(err, "object %q argument %d", spec.Name, i)
			}
			args[i] = v
		}
		instance, err := r.Construct(c, args...)
		if err != nil {
			return errors.Wrapf(err, "constructing %q", spec.Name)
		}
		o = instance
	} else {
		o = r.NewObject()
	}

	if err := eachPair(&spec.Properties, func(key string, value *yaml.Node) error {
		v, err := g.values.value(value)
		if err != nil {
			return errors.Wrapf(err, "object %q property %s", spec.Name, key)
		}
		o.SetOwn(key, v)
		return nil
	}); err != nil {
		return err
	}
	if err := eachPair(&spec.Methods, func(name string, value *yaml.Node) error {
		fn, err := g.method(name, value)
		if err != nil {
			return errors.Wrapf(err, "method %s.%s", spec.Name, name)
		}
		o.SetOwn(name, fn)
		return nil
	}); err != nil {
		return err
	}
	g.Objects[spec.Name] = o
	return nil
}

func (g *Graph) linkObject(spec *ObjectSpec) error {
	if spec.Proto == "" {
		return nil
	}
	o := g.Objects[spec.Name]
	if spec.Proto == "null" {
		return o.SetPrototype(nil)
	}
	proto, err := g.Object(spec.Proto)
	if err != nil {
		return errors.Wrapf(err, "object %q: unknown prototype", spec.Name)
	}
	if err := o.SetPrototype(proto); err != nil {
		return errors.Wrapf(err, "linking %q to %q", spec.Name, spec.Proto)
	}
	return nil
}

// method builds a native function reading this[field] through the
// receiver's chain, plus an optional addend.
func (g *Graph) method(name string, n *yaml.Node) (vm.Value, error) {
	var spec MethodSpec
	if err := n.Decode(&spec); err != nil {
		return vm.Undefined, err
	}
	if spec.Field == "" {
		return vm.Undefined, errors.New("method needs a field")
	}
	add, err := g.values.value(&spec.Add)
	if err != nil {
		return vm.Undefined, err
	}
	field := spec.Field
	return vm.NewNativeFunction(0, false, name, func(this vm.Value, args []vm.Value) (vm.Value, error) {
		if !this.IsObject() {
			return vm.Undefined, errors.Errorf("%s called on %s", name, vm.TypeOf(this))
		}
		v, _ := this.AsPlainObject().Get(field)
		if add.IsUndefined() {
			return v, nil
		}
		return vm.Add(v, add), nil
	}), nil
}
