package value

import "strings"

// FieldMissingBehavior controls how Context.MissingFieldResolution treats a
// field that Context.Resolve did not find, per spec.md §4.3 / §6.
type FieldMissingBehavior int

const (
	FieldMissingLenient FieldMissingBehavior = iota
	FieldMissingStrict
	FieldMissingDefault
)

// Context carries the root fact, variables set by action steps, and
// optional iteration state, mirroring the teacher's (now-external)
// step-flow context shape and the original Rust context/store.rs.
type Context struct {
	data         Value
	variables    map[string]Value
	currentItem  *Value
	currentIndex int
	hasItem      bool

	// FieldMissing selects what MissingFieldResolution answers for a path
	// that Resolve did not find; Resolve itself does not read it.
	// FieldMissingDefault substitutes FieldDefault, which the caller sets.
	FieldMissing FieldMissingBehavior

	// FieldDefault is the value substituted for a missing field when
	// FieldMissing is FieldMissingDefault (spec.md §4.3/§6).
	FieldDefault Value
}

// MissingFieldResolution applies FieldMissing to a failed Resolve, so every
// evaluation tier (tree, bytecode, JIT) reacts identically to an absent
// field instead of re-deriving the lenient/strict/default switch three
// times. ok reports whether the caller should use v as the field's value;
// ok == false means the caller must raise its own MissingField error.
func (c *Context) MissingFieldResolution() (v Value, ok bool) {
	switch c.FieldMissing {
	case FieldMissingStrict:
		return Null, false
	case FieldMissingDefault:
		return c.FieldDefault, true
	default:
		return Null, true
	}
}

// NewContext creates a Context over a root fact, with FieldMissing set to
// FieldMissingStrict.
func NewContext(data Value) *Context {
	return &Context{data: data, variables: make(map[string]Value), FieldMissing: FieldMissingStrict}
}

// Data returns the root fact.
func (c *Context) Data() Value { return c.data }

// SetVariable assigns a variable visible to `$name` lookups.
func (c *Context) SetVariable(name string, v Value) {
	c.variables[name] = v
}

// Variable looks up a variable by name.
func (c *Context) Variable(name string) (Value, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// EnterIteration sets the current batch-scope item and index.
func (c *Context) EnterIteration(item Value, index int) {
	c.currentItem = &item
	c.currentIndex = index
	c.hasItem = true
}

// ExitIteration clears iteration state.
func (c *Context) ExitIteration() {
	c.currentItem = nil
	c.hasItem = false
}

// CurrentItem returns the active iteration item, if any.
func (c *Context) CurrentItem() (Value, bool) {
	if !c.hasItem {
		return Null, false
	}
	return *c.currentItem, true
}

// CurrentIndex returns the active iteration index, if any.
func (c *Context) CurrentIndex() (int, bool) {
	return c.currentIndex, c.hasItem
}

// Resolve implements the path lookup rules of spec.md §3:
//
//	$name      -> variable "name"
//	item, item.* -> current iteration item / sub-path
//	data.*     -> absolute root path
//	other      -> looked up from the root
//
// "_index" is left deliberately unsupported per spec.md §9 (Open
// Questions): it always resolves as missing, regardless of
// FieldMissingBehavior, matching the source's own unimplemented getter.
func (c *Context) Resolve(path string) (Value, bool) {
	switch {
	case path == "_index":
		return Null, false
	case strings.HasPrefix(path, "$"):
		return c.Variable(path[1:])
	case path == "item":
		return c.CurrentItem()
	case strings.HasPrefix(path, "item."):
		item, ok := c.CurrentItem()
		if !ok {
			return Null, false
		}
		return getPath(item, path[len("item."):])
	case strings.HasPrefix(path, "data."):
		return getPath(c.data, path[len("data."):])
	default:
		return getPath(c.data, path)
	}
}

// getPath walks a dotted path (no bracket-index support here; ArrayIndexExpr
// handles indexing explicitly at evaluation time) over Object values.
func getPath(root Value, path string) (Value, bool) {
	if path == "" {
		return root, true
	}
	cur := root
	for _, segment := range strings.Split(path, ".") {
		obj, ok := cur.AsObject()
		if !ok {
			return Null, false
		}
		next, ok := obj[segment]
		if !ok {
			return Null, false
		}
		cur = next
	}
	return cur, true
}

// Clone returns a child context sharing the root fact but with an
// independent copy of variables and iteration state (grounded on the
// original Rust Context::child()).
func (c *Context) Clone() *Context {
	vars := make(map[string]Value, len(c.variables))
	for k, v := range c.variables {
		vars[k] = v
	}
	child := &Context{
		data:         c.data,
		variables:    vars,
		currentIndex: c.currentIndex,
		hasItem:      c.hasItem,
		FieldMissing: c.FieldMissing,
		FieldDefault: c.FieldDefault,
	}
	if c.currentItem != nil {
		item := *c.currentItem
		child.currentItem = &item
	}
	return child
}
