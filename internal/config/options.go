// Package config provides the typed options dictionary used to configure
// backends and searches, plus the YAML file the binary reads its defaults
// from.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Options is a string-keyed configuration dictionary with typed getters and
// optional named sub-dictionaries. Every lookup marks its key as consumed so
// that CheckAllConsumed can flag options nobody read.
//
// Options is not safe for concurrent use; build and hand it over.
type Options struct {
	name     string
	values   map[string]string
	consumed map[string]bool
	subdicts map[string]*Options
}

// NewOptions creates an empty dictionary. The name is used in error messages.
func NewOptions(name string) *Options {
	return &Options{
		name:     name,
		values:   make(map[string]string),
		consumed: make(map[string]bool),
		subdicts: make(map[string]*Options),
	}
}

// Set stores a raw value.
func (o *Options) Set(key, value string) {
	o.values[key] = value
	o.consumed[key] = false
}

// Has reports whether a key is present, without consuming it.
func (o *Options) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// GetString returns the value for key, or def when absent.
func (o *Options) GetString(key, def string) string {
	v, ok := o.values[key]
	if !ok {
		return def
	}
	o.consumed[key] = true
	return v
}

// GetFloat returns the value for key parsed as a float, or def when absent.
func (o *Options) GetFloat(key string, def float64) (float64, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	o.consumed[key] = true
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: option %q: %w", o.name, key, err)
	}
	return f, nil
}

// GetInt returns the value for key parsed as an int, or def when absent.
func (o *Options) GetInt(key string, def int) (int, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	o.consumed[key] = true
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: option %q: %w", o.name, key, err)
	}
	return n, nil
}

// GetBool returns the value for key parsed as a bool, or def when absent.
func (o *Options) GetBool(key string, def bool) (bool, error) {
	v, ok := o.values[key]
	if !ok {
		return def, nil
	}
	o.consumed[key] = true
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: option %q: %w", o.name, key, err)
	}
	return b, nil
}

// Subdict returns the named sub-dictionary, creating it on first use.
func (o *Options) Subdict(name string) *Options {
	sd, ok := o.subdicts[name]
	if !ok {
		sd = NewOptions(o.name + "." + name)
		o.subdicts[name] = sd
	}
	return sd
}

// SubdictNames lists the sub-dictionaries in sorted order.
func (o *Options) SubdictNames() []string {
	names := make([]string, 0, len(o.subdicts))
	for name := range o.subdicts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnconsumedKeys lists every key, including sub-dictionary keys, that no
// getter has read, in sorted order.
func (o *Options) UnconsumedKeys() []string {
	var keys []string
	for key, consumed := range o.consumed {
		if !consumed {
			keys = append(keys, key)
		}
	}
	for name, sd := range o.subdicts {
		for _, key := range sd.UnconsumedKeys() {
			keys = append(keys, name+"."+key)
		}
	}
	sort.Strings(keys)
	return keys
}

// CheckAllConsumed returns an error naming every unread key. Unread keys are
// configuration mistakes, never ignored silently.
func (o *Options) CheckAllConsumed() error {
	keys := o.UnconsumedKeys()
	if len(keys) == 0 {
		return nil
	}
	return fmt.Errorf("%s: unknown options: %s", o.name, strings.Join(keys, ", "))
}

// ParseSubdict parses a delimited backend-options string such as
// "threads=2,cache(size=64,path=/tmp),verbose" into an Options tree.
// A bare token becomes a boolean flag, a parenthesized token a
// sub-dictionary.
func ParseSubdict(name, s string) (*Options, error) {
	o := NewOptions(name)
	if strings.TrimSpace(s) == "" {
		return o, nil
	}
	for _, tok := range splitTopLevel(s) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if open := strings.IndexByte(tok, '('); open >= 0 {
			if !strings.HasSuffix(tok, ")") {
				return nil, fmt.Errorf("%s: unbalanced parentheses in %q", name, tok)
			}
			subName := tok[:open]
			sub, err := ParseSubdict(name+"."+subName, tok[open+1:len(tok)-1])
			if err != nil {
				return nil, err
			}
			o.subdicts[subName] = sub
			continue
		}
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			o.Set(strings.TrimSpace(tok[:eq]), strings.TrimSpace(tok[eq+1:]))
			continue
		}
		o.Set(tok, "true")
	}
	return o, nil
}

// splitTopLevel splits on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
