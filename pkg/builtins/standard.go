package builtins

import (
	"sort"

	"protochain/pkg/vm"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// GetStandardInitializers returns all built-in initializers sorted by priority
func GetStandardInitializers() []BuiltinInitializer {
	initializers := []BuiltinInitializer{
		&ObjectInitializer{},
		&ArrayInitializer{},
		&RegExpInitializer{},
	}

	// Sort by priority (lower numbers first)
	sort.Slice(initializers, func(i, j int) bool {
		return initializers[i].Priority() < initializers[j].Priority()
	})

	return initializers
}

// InitRealm installs the standard intrinsic methods into r.
func InitRealm(r *vm.Realm) error {
	ctx := &RuntimeContext{
		Realm:             r,
		ObjectPrototype:   r.ObjectPrototype,
		FunctionPrototype: r.FunctionPrototype,
		ArrayPrototype:    r.ArrayPrototype,
		RegExpPrototype:   r.RegExpPrototype,
	}
	for _, init := range GetStandardInitializers() {
		if err := init.InitRuntime(ctx); err != nil {
			return errors.Wrapf(err, "initializing %s", init.Name())
		}
		r.Logger().Debug("builtin initialized", zap.String("builtin", init.Name()))
	}
	return nil
}
