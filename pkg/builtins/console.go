package builtins

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"protochain/pkg/vm"
)

// Console prints values the way console.log does, rendering each argument
// with the realm's Inspect and separating them with spaces.
type Console struct {
	realm *vm.Realm

	mu         sync.Mutex
	out        io.Writer
	groupLevel int
	counters   map[string]int
}

// NewConsole creates a console over w that renders values from realm.
func NewConsole(realm *vm.Realm, w io.Writer) *Console {
	return &Console{
		realm:    realm,
		out:      w,
		counters: make(map[string]int),
	}
}

// Log implements console.log(...args)
func (c *Console) Log(args ...vm.Value) {
	c.printConsoleMessage(args, "")
}

// Error implements console.error(...args)
func (c *Console) Error(args ...vm.Value) {
	c.printConsoleMessage(args, "ERROR: ")
}

// Warn implements console.warn(...args)
func (c *Console) Warn(args ...vm.Value) {
	c.printConsoleMessage(args, "WARN: ")
}

// Info implements console.info(...args)
func (c *Console) Info(args ...vm.Value) {
	c.printConsoleMessage(args, "INFO: ")
}

// Debug implements console.debug(...args)
func (c *Console) Debug(args ...vm.Value) {
	c.printConsoleMessage(args, "DEBUG: ")
}

// Print logs a plain line of text, for labels between logged values.
func (c *Console) Print(format string, a ...any) {
	c.Log(vm.NewString(fmt.Sprintf(format, a...)))
}

// Count implements console.count(label?)
func (c *Console) Count(label string) {
	if label == "" {
		label = "default"
	}
	c.mu.Lock()
	c.counters[label]++
	n := c.counters[label]
	c.mu.Unlock()
	c.Print("%s: %d", label, n)
}

// CountReset implements console.countReset(label?)
func (c *Console) CountReset(label string) {
	if label == "" {
		label = "default"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, label)
}

// Group implements console.group(...args)
func (c *Console) Group(args ...vm.Value) {
	if len(args) > 0 {
		c.printConsoleMessage(args, "")
	}
	c.mu.Lock()
	c.groupLevel++
	c.mu.Unlock()
}

// GroupEnd implements console.groupEnd()
func (c *Console) GroupEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.groupLevel > 0 {
		c.groupLevel--
	}
}

// Object exposes the console as a realm object whose log/info/warn/error
// methods forward to c, so graph methods can print through it.
func (c *Console) Object() *vm.PlainObject {
	obj := c.realm.NewObject()
	methods := []struct {
		name string
		fn   func(...vm.Value)
	}{
		{"log", c.Log},
		{"info", c.Info},
		{"warn", c.Warn},
		{"error", c.Error},
		{"group", c.Group},
	}
	for _, m := range methods {
		obj.SetOwnNonEnumerable(m.name, vm.NewNativeFunction(-1, true, m.name, func(this vm.Value, args []vm.Value) (vm.Value, error) {
			m.fn(args...)
			return vm.Undefined, nil
		}))
	}
	obj.SetOwnNonEnumerable("groupEnd", vm.NewNativeFunction(0, false, "groupEnd", func(this vm.Value, args []vm.Value) (vm.Value, error) {
		c.GroupEnd()
		return vm.Undefined, nil
	}))
	return obj
}

// --- Helper Functions ---

// printConsoleMessage is a helper function that formats and prints console messages
func (c *Console) printConsoleMessage(args []vm.Value, prefix string) {
	// Inspect takes the realm's read lock, so it runs before the console lock is held
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = c.realm.Inspect(arg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	indent := strings.Repeat("  ", c.groupLevel)
	line := indent + prefix + strings.Join(parts, " ")
	if len(parts) == 0 && prefix == "" {
		line = ""
	}
	fmt.Fprintln(c.out, line)
}
