package main

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"protochain/pkg/driver"
	"protochain/pkg/source"
	"protochain/pkg/vm"
)

// lessonsCmd lists the built-in lessons
func (a *app) lessonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List the built-in lessons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, lesson := range driver.Lessons() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %-24s %s\n", i+1, lesson.Name, lesson.Title())
			}
			return nil
		},
	}
}

// runCmd runs lessons
func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [lesson...]",
		Short: "Run all lessons, or the named ones in order",
		Long: `Runs lessons that walk through property lookup, method receivers,
constructors and longer delegate chains, printing what a JavaScript console
would print.

Example:
  protochain run
  protochain run inheriting-methods constructors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session.RunLessons(args...)
		},
	}
}

// graphFlag registers -f/--file on cmd and returns a loader for it.
func (a *app) graphFlag(cmd *cobra.Command) func() (*source.Graph, error) {
	var path string
	cmd.Flags().StringVarP(&path, "file", "f", "", "YAML graph document (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return func() (*source.Graph, error) {
		sf, err := source.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return a.session.LoadGraph(sf)
	}
}

// printValue writes v as console output, or as JSON.stringify would when asJSON is set.
func (a *app) printValue(cmd *cobra.Command, v vm.Value, asJSON bool) error {
	if !asJSON {
		a.session.DisplayResult(cmd.ErrOrStderr(), v)
		return nil
	}
	// JSON.stringify has no text for undefined or functions
	if v.IsUndefined() || v.IsCallable() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// getCmd resolves a key through an object's chain
func (a *app) getCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get -f graph.yaml [object] [key]",
		Short: "Resolve a property through an object's prototype chain",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the value as JSON; undefined and functions print nothing")
	load := a.graphFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		g, err := load()
		if err != nil {
			return err
		}
		o, err := g.Object(args[0])
		if err != nil {
			return err
		}
		v, holder, depth, found := o.GetWithHolder(args[1])
		if err := a.printValue(cmd, v, asJSON); err != nil {
			return err
		}
		if found && !asJSON {
			fmt.Fprintf(cmd.OutOrStdout(), "found at depth %d on %s\n", depth, g.Realm.Inspect(vm.NewValueFromPlainObject(holder)))
		}
		return nil
	}
	return cmd
}

// invokeCmd calls a method with the object as receiver
func (a *app) invokeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "invoke -f graph.yaml [object] [method] [args...]",
		Short: "Call a method found along an object's chain with the object as receiver",
		Long: `Arguments are read as YAML values: 1 is a number, true a boolean,
"1" a string, [1, 2] an array.`,
		Args: cobra.MinimumNArgs(2),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON; undefined and functions print nothing")
	load := a.graphFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		g, err := load()
		if err != nil {
			return err
		}
		o, err := g.Object(args[0])
		if err != nil {
			return err
		}
		callArgs := make([]vm.Value, 0, len(args)-2)
		for _, text := range args[2:] {
			v, err := source.ParseValue(g.Realm, text)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, v)
		}
		v, err := o.Invoke(args[1], callArgs...)
		if err != nil {
			return errors.Wrapf(err, "invoking %s.%s", args[0], args[1])
		}
		return a.printValue(cmd, v, asJSON)
	}
	return cmd
}

// chainCmd prints an object's delegate chain
func (a *app) chainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain -f graph.yaml [object]",
		Short: "Print an object's prototype chain",
		Args:  cobra.ExactArgs(1),
	}
	load := a.graphFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		g, err := load()
		if err != nil {
			return err
		}
		o, err := g.Object(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), g.Realm.DescribeChain(o))
		return nil
	}
	return cmd
}

// keysCmd lists enumerable keys reachable from an object
func (a *app) keysCmd() *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "keys -f graph.yaml [object]",
		Short: "List enumerable keys readable on an object, shallowest first",
		Long: `Lists every enumerable key an object can read, including inherited ones.
A key shadowed deeper in the chain is listed once.

Example:
  protochain keys -f graph.yaml box --match '^get'`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&match, "match", "", "Only list keys matching this ECMAScript regular expression")
	load := a.graphFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var filter *vm.PlainObject
		g, err := load()
		if err != nil {
			return err
		}
		if match != "" {
			if filter, err = g.Realm.NewRegExp(match, ""); err != nil {
				return err
			}
		}
		o, err := g.Object(args[0])
		if err != nil {
			return err
		}
		for _, key := range o.Keys() {
			if filter != nil {
				ok, err := filter.MatchString(key)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	}
	return cmd
}
