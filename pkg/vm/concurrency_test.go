package vm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Readers running alongside a writer must only ever observe a value the
// writer actually stored, and every delegator sees the same value once the
// writer is done.
func TestConcurrentReadersAndSharedWriter(t *testing.T) {
	for name, newRealm := range realms() {
		t.Run(name, func(t *testing.T) {
			r := newRealm()
			proto := literal(r, r.ObjectPrototype, "counter", 0)
			proto.SetOwn("read", readField("counter", 0))

			delegators := make([]*PlainObject, 8)
			for i := range delegators {
				delegators[i] = literal(r, proto, "id", i)
			}

			const writes = 200
			var g errgroup.Group
			g.Go(func() error {
				for i := 1; i <= writes; i++ {
					if err := r.MutateShared(proto, "counter", IntegerValue(int32(i))); err != nil {
						return err
					}
				}
				return nil
			})
			for _, d := range delegators {
				g.Go(func() error {
					last := int32(-1)
					for i := 0; i < writes; i++ {
						v, err := d.Invoke("read")
						if err != nil {
							return err
						}
						n := v.AsInteger()
						if n < last || n > writes {
							return fmt.Errorf("observed %d after %d", n, last)
						}
						last = n
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			for _, d := range delegators {
				v, ok := d.Get("counter")
				require.True(t, ok)
				assert.Equal(t, int32(writes), v.AsInteger())
			}
		})
	}
}

func TestConcurrentRebinding(t *testing.T) {
	r := NewRealm(WithPrototypeCache(16))
	left := literal(r, r.ObjectPrototype, "side", 1)
	right := literal(r, r.ObjectPrototype, "side", 2)
	o := literal(r, left)

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < 100; i++ {
			target := left
			if i%2 == 1 {
				target = right
			}
			if err := o.SetPrototype(target); err != nil {
				return err
			}
		}
		return nil
	})
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				v, ok := o.Get("side")
				if !ok {
					return fmt.Errorf("side vanished")
				}
				if n := v.AsInteger(); n != 1 && n != 2 {
					return fmt.Errorf("unexpected side %d", n)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Same(t, right, o.GetPrototype())
}
