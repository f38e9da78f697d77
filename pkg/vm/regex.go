package vm

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// CompileRegExp compiles an ECMAScript pattern with JS flag letters.
// Supported flags: g, i, m, u, y; g, u and y only affect how callers iterate.
// regexp2's ECMAScript mode has no dotAll, so s is rejected.
func CompileRegExp(source, flags string) (*regexp2.Regexp, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 'g', 'u', 'y':
		default:
			return nil, fmt.Errorf("invalid regular expression flags '%s'", flags)
		}
	}
	return regexp2.Compile(source, opts)
}

// NewRegExp creates a RegExp object delegating to RegExp.prototype, like /source/flags.
func (r *Realm) NewRegExp(source, flags string) (*PlainObject, error) {
	if source == "" {
		source = "(?:)"
	}
	re, err := CompileRegExp(source, flags)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression /%s/%s: %w", source, flags, err)
	}
	o := &PlainObject{
		realm:     r,
		class:     ClassRegExp,
		shape:     RootShape,
		prototype: r.RegExpPrototype,
		regex:     re,
		source:    source,
		flags:     flags,
	}
	o.setOwn("source", NewString(source), false)
	o.setOwn("flags", NewString(flags), false)
	o.setOwn("lastIndex", IntegerValue(0), false)
	return o, nil
}

// MatchString reports whether a RegExp object matches s. Non-RegExp objects never match.
func (o *PlainObject) MatchString(s string) (bool, error) {
	if o.class != ClassRegExp || o.regex == nil {
		return false, nil
	}
	return o.regex.MatchString(s)
}

// Source returns the pattern of a RegExp object.
func (o *PlainObject) Source() string { return o.source }

// Flags returns the flag letters of a RegExp object.
func (o *PlainObject) Flags() string { return o.flags }

// FindFrom searches s starting at rune offset start and returns the rune
// offset and length of the first match.
func (o *PlainObject) FindFrom(s string, start int) (index, length int, found bool, err error) {
	if o.class != ClassRegExp || o.regex == nil {
		return 0, 0, false, nil
	}
	m, err := o.regex.FindStringMatchStartingAt(s, start)
	if err != nil || m == nil {
		return 0, 0, false, err
	}
	return m.Index, m.Length, true, nil
}
