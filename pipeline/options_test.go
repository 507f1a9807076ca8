package pipeline

import (
	"reflect"
	"testing"
	"time"
)

func TestOptions_CopiesInput(t *testing.T) {
	src := map[string]interface{}{"k": "v"}
	opts := NewOptions(src)
	src["k"] = "changed"
	src["new"] = 1
	if opts.String("k", "") != "v" || opts.Len() != 1 {
		t.Errorf("options changed with source map: %v", opts.Map())
	}
	m := opts.Map()
	m["k"] = "changed"
	if opts.String("k", "") != "v" {
		t.Error("Map() must return a copy")
	}
}

func TestOptions_TypedAccessors(t *testing.T) {
	opts := NewOptions(map[string]interface{}{
		"s":     "text",
		"i":     3,
		"f":     2.5,
		"whole": float64(4),
		"b":     true,
		"d":     "150ms",
		"dd":    2 * time.Second,
		"bad":   "not a duration",
	})
	if got := opts.String("s", ""); got != "text" {
		t.Errorf("String: %q", got)
	}
	if got := opts.String("i", "def"); got != "def" {
		t.Errorf("String wrong type: %q", got)
	}
	if got := opts.Int("i", 0); got != 3 {
		t.Errorf("Int: %d", got)
	}
	if got := opts.Int("whole", 0); got != 4 {
		t.Errorf("Int from float: %d", got)
	}
	if got := opts.Float("f", 0); got != 2.5 {
		t.Errorf("Float: %v", got)
	}
	if got := opts.Float("i", 0); got != 3 {
		t.Errorf("Float from int: %v", got)
	}
	if !opts.Bool("b", false) || opts.Bool("missing", false) {
		t.Error("Bool")
	}
	if got := opts.Duration("d", 0); got != 150*time.Millisecond {
		t.Errorf("Duration string: %v", got)
	}
	if got := opts.Duration("dd", 0); got != 2*time.Second {
		t.Errorf("Duration value: %v", got)
	}
	if got := opts.Duration("bad", time.Minute); got != time.Minute {
		t.Errorf("Duration unparsable: %v", got)
	}
	if _, ok := opts.Get("missing"); ok {
		t.Error("Get(missing) should be false")
	}
}

func TestOptions_WithAndMerge(t *testing.T) {
	base := NewOptions(map[string]interface{}{"a": 1, "b": 2})
	with := base.With("c", 3)
	if base.Len() != 2 || with.Len() != 3 {
		t.Errorf("With must not mutate: base=%d with=%d", base.Len(), with.Len())
	}
	merged := base.Merge(NewOptions(map[string]interface{}{"b": 20}))
	if merged.Int("a", 0) != 1 || merged.Int("b", 0) != 20 || base.Int("b", 0) != 2 {
		t.Errorf("Merge: merged=%v base=%v", merged.Map(), base.Map())
	}
	if got := (Options{}).Merge(base); !reflect.DeepEqual(got.Keys(), []string{"a", "b"}) {
		t.Errorf("Merge into empty: %v", got.Keys())
	}
}
