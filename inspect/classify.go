package inspect

import (
	"reflect"

	"golang.org/x/net/html"
)

var (
	elementType   = reflect.TypeFor[Element]()
	arrayLikeType = reflect.TypeFor[ArrayLike]()
	htmlNodeType  = reflect.TypeFor[*html.Node]()
	undefinedT    = reflect.TypeFor[undefinedType]()
)

// Classify maps a value to its Kind. It is total: unrecognised values
// classify as KindEmpty.
func Classify(v any) Kind {
	return classify(reflect.ValueOf(v))
}

// classify applies the ordered checks: null, element, array, object,
// scalar, function, empty. Pointers and interfaces are dereferenced first,
// except where the pointer itself carries the element or array capability.
// A pointer chain that loops back on itself classifies as KindEmpty.
func classify(v reflect.Value) Kind {
	var hops map[hop]bool
	for {
		if !v.IsValid() {
			return KindNull
		}
		switch v.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if v.IsNil() {
				return KindNull
			}
		}
		if isElement(v) {
			return KindElement
		}
		if v.Kind() == reflect.Pointer && !isArrayLike(v) {
			h := hop{ptr: v.Pointer(), typ: v.Type()}
			if hops[h] {
				return KindEmpty
			}
			if hops == nil {
				hops = make(map[hop]bool)
			}
			hops[h] = true
		}
		if v.Kind() == reflect.Interface || (v.Kind() == reflect.Pointer && !isArrayLike(v)) {
			v = v.Elem()
			continue
		}
		break
	}

	if isArrayLike(v) {
		return KindArray
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Struct, reflect.Map:
		return KindObject
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return KindScalar
	case reflect.Func:
		return KindFunction
	default:
		return KindEmpty
	}
}

type hop struct {
	ptr uintptr
	typ reflect.Type
}

// pointerLoop reports whether the pointer and interface chain under v
// revisits a pointer.
func pointerLoop(v reflect.Value) bool {
	seen := make(map[hop]bool)
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return false
		}
		if v.Kind() == reflect.Pointer {
			h := hop{ptr: v.Pointer(), typ: v.Type()}
			if seen[h] {
				return true
			}
			seen[h] = true
		}
		v = v.Elem()
	}
	return false
}

func isElement(v reflect.Value) bool {
	t := v.Type()
	return t == htmlNodeType || (t.Kind() != reflect.Interface && t.Implements(elementType))
}

func isArrayLike(v reflect.Value) bool {
	t := v.Type()
	return t.Kind() != reflect.Interface && t.Implements(arrayLikeType)
}

// asElement returns the Element view of v. v must satisfy isElement.
func asElement(v reflect.Value) (Element, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	switch e := v.Interface().(type) {
	case *html.Node:
		return FromHTML(e), true
	case Element:
		return e, true
	}
	return nil, false
}

func asArrayLike(v reflect.Value) (ArrayLike, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	a, ok := v.Interface().(ArrayLike)
	return a, ok
}
