package pipeline

import (
	"sort"
	"time"
)

// Options is an immutable key/value configuration passed unchanged to every
// step, hook and error handler of a run. The zero value is empty and usable.
type Options struct {
	m map[string]interface{}
}

// NewOptions copies kv into a new Options.
func NewOptions(kv map[string]interface{}) Options {
	if len(kv) == 0 {
		return Options{}
	}
	m := make(map[string]interface{}, len(kv))
	for k, v := range kv {
		m[k] = v
	}
	return Options{m: m}
}

// Get returns the value for key.
func (o Options) Get(key string) (interface{}, bool) {
	v, ok := o.m[key]
	return v, ok
}

// String returns key as a string, or def if missing or not a string.
func (o Options) String(key, def string) string {
	if s, ok := o.m[key].(string); ok {
		return s
	}
	return def
}

// Int returns key as an int. Integer and float values (as decoded from YAML or
// JSON) are converted; anything else yields def.
func (o Options) Int(key string, def int) int {
	switch v := o.m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns key as a float64, converting integer values.
func (o Options) Float(key string, def float64) float64 {
	switch v := o.m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Bool returns key as a bool, or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o.m[key].(bool); ok {
		return b
	}
	return def
}

// Duration returns key as a time.Duration. Strings are parsed with
// time.ParseDuration; unparsable values yield def.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	switch v := o.m[key].(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return def
		}
		return d
	default:
		return def
	}
}

// Len returns the number of keys.
func (o Options) Len() int { return len(o.m) }

// Keys returns the keys in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o.m))
	for k := range o.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of o with key set to value.
func (o Options) With(key string, value interface{}) Options {
	m := make(map[string]interface{}, len(o.m)+1)
	for k, v := range o.m {
		m[k] = v
	}
	m[key] = value
	return Options{m: m}
}

// Merge returns a copy of o overlaid with other; keys in other win.
func (o Options) Merge(other Options) Options {
	if other.Len() == 0 {
		return o
	}
	if o.Len() == 0 {
		return other
	}
	m := make(map[string]interface{}, len(o.m)+len(other.m))
	for k, v := range o.m {
		m[k] = v
	}
	for k, v := range other.m {
		m[k] = v
	}
	return Options{m: m}
}

// Map returns a copy of the underlying map.
func (o Options) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(o.m))
	for k, v := range o.m {
		m[k] = v
	}
	return m
}
