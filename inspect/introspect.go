// CLAUDE:SUMMARY Recursive reflection walker turning Go values into Parsed Nodes with depth and cycle guards.
package inspect

import (
	"cmp"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

// Introspect converts v into a Parsed Node. It never fails and never
// mutates v.
func Introspect(v any, opts ...Option) Node {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}
	w := &walker{cfg: cfg, seen: make(map[identity]bool)}
	return w.walk(reflect.ValueOf(v), 0)
}

// identity keys the ancestor chain. Slices use their data pointer and
// length so two views of one backing array at different lengths differ.
type identity struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type walker struct {
	cfg  config
	seen map[identity]bool
}

func (w *walker) walk(v reflect.Value, depth int) Node {
	switch classify(v) {
	case KindNull:
		return Null()
	case KindElement:
		return w.element(v)
	case KindArray:
		return w.array(v, depth)
	case KindObject:
		return w.object(v, depth)
	case KindScalar:
		return scalar(indirect(v))
	case KindFunction:
		return Function(funcName(indirect(v)))
	default:
		n := Empty()
		n.Truncated = pointerLoop(v)
		return n
	}
}

// indirect strips interfaces and pointers.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// indirectTo strips interfaces and pointers until v itself carries the
// capability checked by has.
func indirectTo(v reflect.Value, has func(reflect.Value) bool) reflect.Value {
	for !has(v) && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		v = v.Elem()
	}
	return v
}

func (w *walker) element(v reflect.Value) Node {
	v = indirectTo(v, isElement)
	e, ok := asElement(v)
	if !ok {
		return ElementOf("")
	}
	return introspectElement(e)
}

// enter records v in the ancestor chain. It reports false when v is
// already an ancestor.
func (w *walker) enter(v reflect.Value) (identity, bool) {
	if !w.cfg.detectCycles {
		return identity{}, true
	}
	var id identity
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		id = identity{ptr: v.Pointer(), typ: v.Type()}
	case reflect.Slice:
		id = identity{ptr: v.Pointer(), typ: v.Type(), n: v.Len()}
	default:
		return identity{}, true
	}
	if id.ptr == 0 {
		return identity{}, true
	}
	if w.seen[id] {
		return id, false
	}
	w.seen[id] = true
	return id, true
}

func (w *walker) leave(id identity) {
	if id.ptr != 0 {
		delete(w.seen, id)
	}
}

// ancestors enters every pointer hop between v and its target, so a
// pointer cycle is caught at the first repeated hop.
func (w *walker) ancestors(v reflect.Value, has func(reflect.Value) bool) (reflect.Value, []identity, bool) {
	var ids []identity
	for {
		if v.Kind() == reflect.Pointer || v.Kind() == reflect.Map || v.Kind() == reflect.Slice {
			id, ok := w.enter(v)
			if !ok {
				return v, ids, false
			}
			ids = append(ids, id)
		}
		if has(v) || !(v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
			return v, ids, true
		}
		v = v.Elem()
	}
}

func (w *walker) leaveAll(ids []identity) {
	for _, id := range ids {
		w.leave(id)
	}
}

func (w *walker) array(v reflect.Value, depth int) Node {
	v, ids, fresh := w.ancestors(v, isArrayLike)
	defer w.leaveAll(ids)
	if !fresh || depth >= w.cfg.maxDepth {
		n := Array(nil)
		n.Truncated = true
		return n
	}

	if isArrayLike(v) {
		a, ok := asArrayLike(v)
		if !ok {
			return Array(nil)
		}
		items := make([]Node, 0, a.Len())
		for i := range a.Len() {
			x, present := a.Index(i)
			if !present {
				if w.cfg.holes == HolesEmpty {
					items = append(items, Empty())
				}
				continue
			}
			items = append(items, w.walk(reflect.ValueOf(x), depth+1))
		}
		return Array(items)
	}

	items := make([]Node, 0, v.Len())
	for i := range v.Len() {
		items = append(items, w.walk(v.Index(i), depth+1))
	}
	return Array(items)
}

func (w *walker) object(v reflect.Value, depth int) Node {
	v, ids, fresh := w.ancestors(v, func(reflect.Value) bool { return false })
	defer w.leaveAll(ids)
	class := typeTag(v.Type())
	if !fresh || depth >= w.cfg.maxDepth {
		n := Object(class, nil)
		n.Truncated = true
		return n
	}

	if v.Kind() == reflect.Map {
		return Object(class, w.mapProps(v, depth))
	}
	return Object(class, w.structProps(v, depth))
}

// structProps enumerates exported fields in declaration order, including
// fields promoted from embedded structs. Tag `inspect:"-"` skips a field,
// `inspect:"name"` renames it.
func (w *walker) structProps(v reflect.Value, depth int) []Prop {
	var props []Prop
	for _, f := range reflect.VisibleFields(v.Type()) {
		if f.Anonymous && embedsStruct(f.Type) {
			continue
		}
		if !f.IsExported() {
			continue
		}
		key := f.Name
		if tag, ok := f.Tag.Lookup("inspect"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				key = tag
			}
		}
		fv, err := v.FieldByIndexErr(f.Index)
		if err != nil {
			// promoted through a nil embedded pointer
			continue
		}
		props = append(props, Prop{Key: key, Value: w.walk(fv, depth+1)})
	}
	return props
}

func embedsStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// mapProps sorts keys: ordered kinds by value, everything else by their
// display string.
func (w *walker) mapProps(v reflect.Value, depth int) []Prop {
	keys := v.MapKeys()
	slices.SortFunc(keys, compareKeys)
	props := make([]Prop, 0, len(keys))
	for _, k := range keys {
		props = append(props, Prop{Key: keyString(k), Value: w.walk(v.MapIndex(k), depth+1)})
	}
	return props
}

func compareKeys(a, b reflect.Value) int {
	a, b = indirect(a), indirect(b)
	if a.IsValid() && b.IsValid() && a.Kind() == b.Kind() {
		switch a.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cmp.Compare(a.Int(), b.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return cmp.Compare(a.Uint(), b.Uint())
		case reflect.Float32, reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		}
	}
	return strings.Compare(keyString(a), keyString(b))
}

func keyString(k reflect.Value) string {
	k = indirect(k)
	if !k.IsValid() {
		return "null"
	}
	if classify(k) == KindScalar {
		return scalar(k).Data
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.Type().String()
}

// typeTag is the object type tag: the named type behind any pointers, or
// DefaultClass.
func typeTag(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return DefaultClass
}

// scalar formats v from its underlying kind, so it works on values that
// cannot be converted back to an interface.
func scalar(v reflect.Value) Node {
	if v.Type() == undefinedT {
		return Scalar(TypeUndefined, "undefined")
	}
	switch v.Kind() {
	case reflect.String:
		return Scalar(TypeString, v.String())
	case reflect.Bool:
		return Scalar(TypeBoolean, strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar(TypeNumber, strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Scalar(TypeNumber, strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32:
		return Scalar(TypeNumber, strconv.FormatFloat(v.Float(), 'g', -1, 32))
	case reflect.Float64:
		return Scalar(TypeNumber, strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Complex64:
		return Scalar(TypeNumber, strconv.FormatComplex(v.Complex(), 'g', -1, 64))
	case reflect.Complex128:
		return Scalar(TypeNumber, strconv.FormatComplex(v.Complex(), 'g', -1, 128))
	}
	return Scalar(TypeString, "")
}

// funcName returns the short name of a function value: package path,
// receiver and generic brackets stripped. Closures are anonymous.
func funcName(v reflect.Value) string {
	if !v.IsValid() || v.IsNil() {
		return ""
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return ""
	}
	name := fn.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	name = strings.ReplaceAll(name, "[...]", "")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if isClosureName(name) {
		return ""
	}
	return name
}

func isClosureName(s string) bool {
	rest, ok := strings.CutPrefix(s, "func")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
