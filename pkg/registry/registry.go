// Package registry holds the builtin function table: name, arity, argument
// type masks, purity, and JIT eligibility (spec.md §4.4). Grounded on the
// teacher's pkg/interpreter/builtins.go dispatch-table-by-name pattern
// (builtinFuncs map[string]builtinFunc populated in init()), extended with
// the metadata the tiered compiler/JIT need that a plain dispatch table
// doesn't carry.
package registry

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ordo-lang/ordo/pkg/value"
)

// TypeMask is a bitset over value.Kind used to describe which argument
// kinds a builtin accepts. It is descriptive only: no caller in this module
// reads it, and each builtin's Impl checks its own argument kinds.
type TypeMask uint8

const (
	MaskNull TypeMask = 1 << iota
	MaskBool
	MaskInt
	MaskFloat
	MaskStr
	MaskArray
	MaskObject
)

const MaskNumeric = MaskInt | MaskFloat
const MaskAny = MaskNull | MaskBool | MaskInt | MaskFloat | MaskStr | MaskArray | MaskObject

func maskOf(k value.Kind) TypeMask {
	switch k {
	case value.KindNull:
		return MaskNull
	case value.KindBool:
		return MaskBool
	case value.KindInt:
		return MaskInt
	case value.KindFloat:
		return MaskFloat
	case value.KindStr:
		return MaskStr
	case value.KindArray:
		return MaskArray
	case value.KindObject:
		return MaskObject
	default:
		return 0
	}
}

// Fn is a builtin implementation: pure, total over its documented domain,
// and free of side effects other than returning an error for a domain
// violation (spec.md §4.4 requires purity so the optimizer can fold calls
// with all-constant arguments).
type Fn func(args []value.Value) (value.Value, error)

// Descriptor carries the metadata the compiler/optimizer/JIT consult
// around a builtin, beyond the raw callable the teacher's builtinFuncs map
// carried alone.
type Descriptor struct {
	Name         string
	MinArity     int
	MaxArity     int // -1 means unbounded (e.g. min/max/join take N args)
	ArgMask      TypeMask // argument kinds accepted (descriptive; not checked by Call)
	Pure         bool     // true: safe to constant-fold when all args are literals (spec.md §4.2)
	JITEligible  bool     // true: safe to inline into a schema-specialized closure (spec.md §4.6)
	Impl         Fn
}

// Registry is a read-mostly table of builtins, looked up by name both at
// compile time and on every Call.
type Registry struct {
	byName map[string]*Descriptor
	names  []string
}

// NewRegistry builds the default builtin set (spec.md §4.4), grounded on
// the name surface of the teacher's builtinFuncs map, narrowed to pure
// value-in/value-out functions (no Ok/Err result wrapping, no environment
// mutation, no map/filter/reduce-over-closures — those require first-class
// functions, which spec.md's expression language does not have).
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Descriptor)}
	for _, d := range defaultBuiltins() {
		r.register(d)
	}
	return r
}

func (r *Registry) register(d *Descriptor) {
	r.byName[d.Name] = d
	r.names = append(r.names, d.Name)
	sort.Strings(r.names)
}

// Lookup returns the descriptor for name, or false if unregistered.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns every registered builtin name, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Call invokes name with args after checking arity; the callee itself
// checks argument kinds (ArgMask is not consulted).
func (r *Registry) Call(name string, args []value.Value) (value.Value, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return value.Null, fmt.Errorf("registry: unknown function %q", name)
	}
	if len(args) < d.MinArity || (d.MaxArity >= 0 && len(args) > d.MaxArity) {
		return value.Null, fmt.Errorf("registry: %s expects %d..%d arguments, got %d", name, d.MinArity, d.MaxArity, len(args))
	}
	return d.Impl(args)
}

// defaultBuiltins is the fixed table spec.md §4.4 names: arithmetic
// (abs/min/max/floor/ceil/round), string (len/lower/upper/contains/
// starts_with/ends_with), array (len/contains/any/all/sum/avg), time
// (now/date_diff_days) — plus trim/split/join/substring, which the
// teacher's builtinFuncs table also carries and spec.md does not forbid.
func defaultBuiltins() []*Descriptor {
	return []*Descriptor{
		{Name: "len", MinArity: 1, MaxArity: 1, ArgMask: MaskStr | MaskArray, Pure: true, JITEligible: true, Impl: fnLength},
		{Name: "upper", MinArity: 1, MaxArity: 1, ArgMask: MaskStr, Pure: true, JITEligible: true, Impl: fnUpper},
		{Name: "lower", MinArity: 1, MaxArity: 1, ArgMask: MaskStr, Pure: true, JITEligible: true, Impl: fnLower},
		{Name: "trim", MinArity: 1, MaxArity: 1, ArgMask: MaskStr, Pure: true, JITEligible: true, Impl: fnTrim},
		{Name: "contains", MinArity: 2, MaxArity: 2, ArgMask: MaskStr | MaskArray, Pure: true, JITEligible: false, Impl: fnContains},
		{Name: "starts_with", MinArity: 2, MaxArity: 2, ArgMask: MaskStr, Pure: true, JITEligible: false, Impl: fnStartsWith},
		{Name: "ends_with", MinArity: 2, MaxArity: 2, ArgMask: MaskStr, Pure: true, JITEligible: false, Impl: fnEndsWith},
		{Name: "split", MinArity: 2, MaxArity: 2, ArgMask: MaskStr, Pure: true, JITEligible: false, Impl: fnSplit},
		{Name: "join", MinArity: 2, MaxArity: 2, ArgMask: MaskArray | MaskStr, Pure: true, JITEligible: false, Impl: fnJoin},
		{Name: "substring", MinArity: 2, MaxArity: 3, ArgMask: MaskStr | MaskInt, Pure: true, JITEligible: false, Impl: fnSubstring},
		{Name: "abs", MinArity: 1, MaxArity: 1, ArgMask: MaskNumeric, Pure: true, JITEligible: true, Impl: fnAbs},
		{Name: "min", MinArity: 1, MaxArity: -1, ArgMask: MaskNumeric, Pure: true, JITEligible: true, Impl: fnMin},
		{Name: "max", MinArity: 1, MaxArity: -1, ArgMask: MaskNumeric, Pure: true, JITEligible: true, Impl: fnMax},
		{Name: "floor", MinArity: 1, MaxArity: 1, ArgMask: MaskNumeric, Pure: true, JITEligible: true, Impl: fnFloor},
		{Name: "ceil", MinArity: 1, MaxArity: 1, ArgMask: MaskNumeric, Pure: true, JITEligible: true, Impl: fnCeil},
		{Name: "round", MinArity: 1, MaxArity: 1, ArgMask: MaskNumeric, Pure: true, JITEligible: true, Impl: fnRound},
		{Name: "any", MinArity: 1, MaxArity: 1, ArgMask: MaskArray, Pure: true, JITEligible: false, Impl: fnAny},
		{Name: "all", MinArity: 1, MaxArity: 1, ArgMask: MaskArray, Pure: true, JITEligible: false, Impl: fnAll},
		{Name: "sum", MinArity: 1, MaxArity: 1, ArgMask: MaskArray, Pure: true, JITEligible: false, Impl: fnSum},
		{Name: "avg", MinArity: 1, MaxArity: 1, ArgMask: MaskArray, Pure: true, JITEligible: false, Impl: fnAvg},
		// now is deliberately not Pure: its result depends on wall-clock
		// time, so the optimizer's constant-folding pass (spec.md §4.2)
		// must never fold a call to it even when it has zero arguments.
		{Name: "now", MinArity: 0, MaxArity: 0, ArgMask: 0, Pure: false, JITEligible: false, Impl: fnNow},
		{Name: "date_diff_days", MinArity: 2, MaxArity: 2, ArgMask: MaskNumeric, Pure: true, JITEligible: false, Impl: fnDateDiffDays},
	}
}

func argErr(fn string, i int, want TypeMask, got value.Value) error {
	return fmt.Errorf("registry: %s: argument %d has kind %s, expected mask %08b", fn, i, got.Kind(), want)
}

func fnLength(args []value.Value) (value.Value, error) {
	n := args[0].Len()
	if n < 0 {
		return value.Null, argErr("len", 0, MaskStr|MaskArray, args[0])
	}
	return value.Int(int64(n)), nil
}

func fnUpper(args []value.Value) (value.Value, error) {
	s, ok := args[0].AsStr()
	if !ok {
		return value.Null, argErr("upper", 0, MaskStr, args[0])
	}
	return value.Str(strings.ToUpper(s)), nil
}

func fnLower(args []value.Value) (value.Value, error) {
	s, ok := args[0].AsStr()
	if !ok {
		return value.Null, argErr("lower", 0, MaskStr, args[0])
	}
	return value.Str(strings.ToLower(s)), nil
}

func fnTrim(args []value.Value) (value.Value, error) {
	s, ok := args[0].AsStr()
	if !ok {
		return value.Null, argErr("trim", 0, MaskStr, args[0])
	}
	return value.Str(strings.TrimSpace(s)), nil
}

func fnContains(args []value.Value) (value.Value, error) {
	if elems, ok := args[0].AsArray(); ok {
		for _, e := range elems {
			if value.Equal(e, args[1]) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	}
	haystack, ok1 := args[0].AsStr()
	needle, ok2 := args[1].AsStr()
	if !ok1 || !ok2 {
		return value.Null, argErr("contains", 0, MaskStr|MaskArray, args[0])
	}
	return value.Bool(strings.Contains(haystack, needle)), nil
}

func fnStartsWith(args []value.Value) (value.Value, error) {
	s, ok1 := args[0].AsStr()
	prefix, ok2 := args[1].AsStr()
	if !ok1 || !ok2 {
		return value.Null, argErr("starts_with", 0, MaskStr, args[0])
	}
	return value.Bool(strings.HasPrefix(s, prefix)), nil
}

func fnEndsWith(args []value.Value) (value.Value, error) {
	s, ok1 := args[0].AsStr()
	suffix, ok2 := args[1].AsStr()
	if !ok1 || !ok2 {
		return value.Null, argErr("ends_with", 0, MaskStr, args[0])
	}
	return value.Bool(strings.HasSuffix(s, suffix)), nil
}

func fnSplit(args []value.Value) (value.Value, error) {
	s, ok1 := args[0].AsStr()
	sep, ok2 := args[1].AsStr()
	if !ok1 || !ok2 {
		return value.Null, argErr("split", 0, MaskStr, args[0])
	}
	parts := strings.Split(s, sep)
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = value.Str(p)
	}
	return value.Array(elems...), nil
}

func fnJoin(args []value.Value) (value.Value, error) {
	elems, ok1 := args[0].AsArray()
	sep, ok2 := args[1].AsStr()
	if !ok1 || !ok2 {
		return value.Null, argErr("join", 0, MaskArray, args[0])
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	return value.Str(strings.Join(parts, sep)), nil
}

func fnSubstring(args []value.Value) (value.Value, error) {
	s, ok := args[0].AsStr()
	if !ok {
		return value.Null, argErr("substring", 0, MaskStr, args[0])
	}
	start, ok := args[1].AsInt()
	if !ok {
		return value.Null, argErr("substring", 1, MaskInt, args[1])
	}
	end := int64(len(s))
	if len(args) == 3 {
		end, ok = args[2].AsInt()
		if !ok {
			return value.Null, argErr("substring", 2, MaskInt, args[2])
		}
	}
	if start < 0 {
		start = 0
	}
	if end > int64(len(s)) {
		end = int64(len(s))
	}
	if start > end {
		start = end
	}
	return value.Str(s[start:end]), nil
}

func numeric(v value.Value) (float64, bool) {
	if n, ok := v.AsInt(); ok {
		return float64(n), true
	}
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	return 0, false
}

func fnAbs(args []value.Value) (value.Value, error) {
	if n, ok := args[0].AsInt(); ok {
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	}
	if f, ok := args[0].AsFloat(); ok {
		return value.Float(math.Abs(f)), nil
	}
	return value.Null, argErr("abs", 0, MaskNumeric, args[0])
}

func fnMin(args []value.Value) (value.Value, error) {
	return fold(args, "min", func(a, b float64) bool { return a < b })
}

func fnMax(args []value.Value) (value.Value, error) {
	return fold(args, "max", func(a, b float64) bool { return a > b })
}

func fold(args []value.Value, name string, better func(a, b float64) bool) (value.Value, error) {
	best := args[0]
	bestN, ok := numeric(best)
	if !ok {
		return value.Null, argErr(name, 0, MaskNumeric, best)
	}
	for i := 1; i < len(args); i++ {
		n, ok := numeric(args[i])
		if !ok {
			return value.Null, argErr(name, i, MaskNumeric, args[i])
		}
		if better(n, bestN) {
			best, bestN = args[i], n
		}
	}
	return best, nil
}

func fnFloor(args []value.Value) (value.Value, error) {
	if _, ok := args[0].AsInt(); ok {
		return args[0], nil
	}
	f, ok := args[0].AsFloat()
	if !ok {
		return value.Null, argErr("floor", 0, MaskNumeric, args[0])
	}
	return value.Float(math.Floor(f)), nil
}

func fnCeil(args []value.Value) (value.Value, error) {
	if _, ok := args[0].AsInt(); ok {
		return args[0], nil
	}
	f, ok := args[0].AsFloat()
	if !ok {
		return value.Null, argErr("ceil", 0, MaskNumeric, args[0])
	}
	return value.Float(math.Ceil(f)), nil
}

func fnRound(args []value.Value) (value.Value, error) {
	if _, ok := args[0].AsInt(); ok {
		return args[0], nil
	}
	f, ok := args[0].AsFloat()
	if !ok {
		return value.Null, argErr("round", 0, MaskNumeric, args[0])
	}
	return value.Float(math.Round(f)), nil
}

func fnAny(args []value.Value) (value.Value, error) {
	elems, ok := args[0].AsArray()
	if !ok {
		return value.Null, argErr("any", 0, MaskArray, args[0])
	}
	for _, e := range elems {
		if b, ok := e.AsBool(); ok && b {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func fnAll(args []value.Value) (value.Value, error) {
	elems, ok := args[0].AsArray()
	if !ok {
		return value.Null, argErr("all", 0, MaskArray, args[0])
	}
	for _, e := range elems {
		b, ok := e.AsBool()
		if !ok || !b {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func fnSum(args []value.Value) (value.Value, error) {
	elems, ok := args[0].AsArray()
	if !ok {
		return value.Null, argErr("sum", 0, MaskArray, args[0])
	}
	var intTotal int64
	var floatTotal float64
	isFloat := false
	for i, e := range elems {
		if f, ok := e.AsFloat(); ok {
			isFloat = true
			floatTotal += f
			continue
		}
		n, ok := e.AsInt()
		if !ok {
			return value.Null, argErr("sum", i, MaskNumeric, e)
		}
		intTotal += n
	}
	if isFloat {
		return value.Float(floatTotal + float64(intTotal)), nil
	}
	return value.Int(intTotal), nil
}

func fnAvg(args []value.Value) (value.Value, error) {
	elems, ok := args[0].AsArray()
	if !ok {
		return value.Null, argErr("avg", 0, MaskArray, args[0])
	}
	if len(elems) == 0 {
		return value.Null, fmt.Errorf("registry: avg: empty array")
	}
	var total float64
	for i, e := range elems {
		n, ok := numeric(e)
		if !ok {
			return value.Null, argErr("avg", i, MaskNumeric, e)
		}
		total += n
	}
	return value.Float(total / float64(len(elems))), nil
}

func fnNow(args []value.Value) (value.Value, error) {
	return value.Int(time.Now().Unix()), nil
}

func fnDateDiffDays(args []value.Value) (value.Value, error) {
	a, ok1 := numeric(args[0])
	b, ok2 := numeric(args[1])
	if !ok1 || !ok2 {
		return value.Null, argErr("date_diff_days", 0, MaskNumeric, args[0])
	}
	const secondsPerDay = 86400
	return value.Int(int64(math.Floor((a - b) / secondsPerDay))), nil
}
