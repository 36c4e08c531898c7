package inspect

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kr/pretty"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestIntrospect_ScalarStringification(t *testing.T) {
	values := []any{
		0, 42, -7, int8(-128), uint16(65535), uint64(1 << 63),
		1.5, -0.25, 1e21, float32(0.1),
		true, false,
	}
	for _, v := range values {
		n := Introspect(v)
		if n.Kind != KindScalar {
			t.Fatalf("%T(%v): kind %s, want scalar", v, v, n.Kind)
		}
		if want := fmt.Sprint(v); n.Data != want {
			t.Errorf("%T(%v): data %q, want %q", v, v, n.Data, want)
		}
	}
}

func TestIntrospect_ScalarTypes(t *testing.T) {
	tests := []struct {
		v    any
		typ  ScalarType
		data string
	}{
		{42, TypeNumber, "42"},
		{"hi", TypeString, "hi"},
		{"", TypeString, ""},
		{true, TypeBoolean, "true"},
		{Undefined, TypeUndefined, "undefined"},
		{complex(1, 2), TypeNumber, "(1+2i)"},
	}
	for _, tt := range tests {
		n := Introspect(tt.v)
		if n.Kind != KindScalar || n.Type != tt.typ || n.Data != tt.data {
			t.Errorf("Introspect(%#v) = {%s %s %q}, want {scalar %s %q}", tt.v, n.Kind, n.Type, n.Data, tt.typ, tt.data)
		}
	}
}

func TestIntrospect_Null(t *testing.T) {
	var p *struct{ X int }
	for _, v := range []any{nil, p} {
		n := Introspect(v)
		if n.Kind != KindNull || n.Data != "null" {
			t.Errorf("Introspect(%#v) = %+v, want null", v, n)
		}
	}
}

func TestIntrospect_ArrayPreservesLengthAndOrder(t *testing.T) {
	in := []any{1, "a", nil, []int{2, 3}}
	n := Introspect(in)
	if n.Kind != KindArray {
		t.Fatalf("kind %s, want array", n.Kind)
	}
	if len(n.Items) != len(in) {
		t.Fatalf("len %d, want %d", len(n.Items), len(in))
	}
	wantKinds := []Kind{KindScalar, KindScalar, KindNull, KindArray}
	for i, k := range wantKinds {
		if n.Items[i].Kind != k {
			t.Errorf("item %d: kind %s, want %s", i, n.Items[i].Kind, k)
		}
	}
	if n.Items[0].Data != "1" || n.Items[1].Data != "a" {
		t.Errorf("items out of order: %+v", n.Items[:2])
	}
	if len(n.Items[3].Items) != 2 {
		t.Errorf("nested len %d, want 2", len(n.Items[3].Items))
	}
}

func TestIntrospect_ArrayLikeHoles(t *testing.T) {
	s := &sparse{vals: []any{1, nil, 3}, present: []bool{true, false, true}}

	n := Introspect(s)
	if len(n.Items) != 3 {
		t.Fatalf("HolesEmpty: len %d, want 3", len(n.Items))
	}
	if n.Items[1].Kind != KindEmpty {
		t.Errorf("hole kind %s, want empty", n.Items[1].Kind)
	}

	n = Introspect(s, WithHoles(HolesSkip))
	if len(n.Items) != 2 {
		t.Fatalf("HolesSkip: len %d, want 2", len(n.Items))
	}
	if n.Items[0].Data != "1" || n.Items[1].Data != "3" {
		t.Errorf("HolesSkip items: %+v", n.Items)
	}
}

type point struct {
	X, Y  int
	label string
}

type base struct {
	ID string
}

type derived struct {
	base
	Name   string
	Secret string `inspect:"-"`
	Alias  string `inspect:"alias"`
}

func TestIntrospect_StructFields(t *testing.T) {
	n := Introspect(point{X: 1, Y: 2, label: "hidden"})
	if n.Kind != KindObject || n.Class != "point" {
		t.Fatalf("got %s %q, want object point", n.Kind, n.Class)
	}
	if got := propKeys(n); got != "X,Y" {
		t.Errorf("keys %q, want X,Y", got)
	}

	n = Introspect(&derived{base: base{ID: "b1"}, Name: "n", Secret: "s", Alias: "a"})
	if got := propKeys(n); got != "ID,Name,alias" {
		t.Errorf("keys %q, want ID,Name,alias", got)
	}
	if id, _ := n.Prop("ID"); id.Data != "b1" {
		t.Errorf("promoted ID = %q, want b1", id.Data)
	}
}

type withNilEmbed struct {
	*base
	Name string
}

func TestIntrospect_NilEmbeddedPointer(t *testing.T) {
	n := Introspect(withNilEmbed{Name: "x"})
	if got := propKeys(n); got != "Name" {
		t.Errorf("keys %q, want Name", got)
	}
}

func TestIntrospect_MapKeysSorted(t *testing.T) {
	n := Introspect(map[string]any{"b": 2, "a": 1, "c": 3})
	if n.Class != DefaultClass {
		t.Errorf("class %q, want %q", n.Class, DefaultClass)
	}
	if got := propKeys(n); got != "a,b,c" {
		t.Errorf("keys %q, want a,b,c", got)
	}

	n = Introspect(map[int]string{10: "x", 2: "y", 1: "z"})
	if got := propKeys(n); got != "1,2,10" {
		t.Errorf("numeric keys %q, want 1,2,10", got)
	}
}

type attrs map[string]string

func TestIntrospect_NamedMapClass(t *testing.T) {
	if n := Introspect(attrs{"k": "v"}); n.Class != "attrs" {
		t.Errorf("class %q, want attrs", n.Class)
	}
}

func TestIntrospect_EveryPropertyOnce(t *testing.T) {
	o := map[string]any{"x": 1, "y": "s", "z": []int{1}}
	n := Introspect(o)
	if len(n.Props) != len(o) {
		t.Fatalf("props %d, want %d", len(n.Props), len(o))
	}
	seen := map[string]bool{}
	for _, p := range n.Props {
		if seen[p.Key] {
			t.Errorf("duplicate key %q", p.Key)
		}
		seen[p.Key] = true
		want := Introspect(o[p.Key])
		if p.Value.Kind != want.Kind || p.Value.Data != want.Data || len(p.Value.Items) != len(want.Items) {
			t.Errorf("key %q: %+v, want %+v", p.Key, p.Value, want)
		}
	}
}

type selfRef struct {
	Name string
	Self *selfRef
}

func TestIntrospect_CycleTerminates(t *testing.T) {
	a := &selfRef{Name: "a"}
	a.Self = a

	n := Introspect(a)
	self, ok := n.Prop("Self")
	if !ok {
		t.Fatal("missing Self")
	}
	if !self.Truncated || len(self.Props) != 0 {
		t.Errorf("cyclic Self not truncated: %+v", self)
	}
	if self.Class != "selfRef" {
		t.Errorf("cyclic class %q, want selfRef", self.Class)
	}
}

type selfPtr *selfPtr

func TestIntrospect_SelfReferencingPointer(t *testing.T) {
	var x any
	x = &x
	p := new(selfPtr)
	*p = p

	for name, v := range map[string]any{"interface": x, "named pointer": p} {
		done := make(chan Node, 1)
		go func() { done <- Introspect(v) }()
		select {
		case n := <-done:
			if n.Kind != KindEmpty || !n.Truncated {
				t.Errorf("%s: got %s truncated=%v, want truncated empty", name, n.Kind, n.Truncated)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: introspection did not terminate", name)
		}
		if k := Classify(v); k != KindEmpty {
			t.Errorf("%s: Classify = %s, want empty", name, k)
		}
	}
}

func TestIntrospect_SelfPointerInsideObject(t *testing.T) {
	var x any
	x = &x
	n := Introspect(map[string]any{"self": x, "n": 1})
	if len(n.Props) != 2 || n.Props[1].Key != "self" || n.Props[1].Value.Kind != KindEmpty {
		t.Errorf("props %+v", n.Props)
	}
}

func TestIntrospect_MapAndSliceCycles(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	n := Introspect(m)
	if v, _ := n.Prop("self"); !v.Truncated {
		t.Errorf("map cycle not truncated: %+v", v)
	}

	s := []any{nil}
	s[0] = s
	n = Introspect(s)
	if !n.Items[0].Truncated {
		t.Errorf("slice cycle not truncated: %+v", n.Items[0])
	}
}

func TestIntrospect_CycleWithoutDetectionBoundedByDepth(t *testing.T) {
	a := &selfRef{Name: "a"}
	a.Self = a

	n := Introspect(a, WithCycleDetection(false), WithMaxDepth(3))
	depth := 0
	for {
		self, ok := n.Prop("Self")
		if !ok {
			break
		}
		depth++
		n = self
	}
	if depth != 3 || !n.Truncated {
		t.Errorf("depth %d truncated %v, want 3 true", depth, n.Truncated)
	}
}

func TestIntrospect_SharedReferenceIsNotACycle(t *testing.T) {
	shared := &point{X: 1}
	n := Introspect([]*point{shared, shared})
	for i, it := range n.Items {
		if it.Truncated {
			t.Errorf("item %d truncated, siblings are not ancestors", i)
		}
	}
}

func TestIntrospect_DepthBound(t *testing.T) {
	var v any = 1
	for range 15 {
		v = []any{v}
	}

	n := Introspect(v)
	depth := 0
	for len(n.Items) == 1 {
		n = n.Items[0]
		depth++
	}
	if depth != DefaultMaxDepth {
		t.Errorf("descended %d levels, want %d", depth, DefaultMaxDepth)
	}
	if n.Kind != KindArray || !n.Truncated || len(n.Items) != 0 {
		t.Errorf("cut node = %+v, want truncated empty array", n)
	}
}

func TestIntrospect_MaxDepthOption(t *testing.T) {
	v := map[string]any{"a": map[string]any{"b": 1}}
	n := Introspect(v, WithMaxDepth(1))
	a, _ := n.Prop("a")
	if !a.Truncated || len(a.Props) != 0 {
		t.Errorf("a = %+v, want truncated", a)
	}

	// Non-positive values keep the default guard.
	if n := Introspect(v, WithMaxDepth(0)); n.Truncated {
		t.Error("WithMaxDepth(0) disabled expansion")
	}
}

func TestIntrospect_Element(t *testing.T) {
	n := Introspect(widget{tag: "DIV", attrs: []Attribute{{"id", "main"}, {"class", "a b"}}})
	if n.Kind != KindElement || n.Data != "div" {
		t.Fatalf("got %s %q, want element div", n.Kind, n.Data)
	}
	if len(n.Attrs) != 2 || n.Attrs[0].Name != "id" || n.Attrs[1].Name != "class" {
		t.Fatalf("attrs %+v", n.Attrs)
	}
	v := n.Attrs[1].Value
	if v.Kind != KindScalar || v.Type != TypeString || v.Data != "a b" {
		t.Errorf("attr value %+v, want string scalar", v)
	}
}

func TestIntrospect_HTMLNode(t *testing.T) {
	frag, err := html.ParseFragment(strings.NewReader(`<a href="/x" data-id="7">link</a>`), &html.Node{
		Type: html.ElementNode, Data: "body", DataAtom: atom.Body,
	})
	if err != nil {
		t.Fatal(err)
	}
	n := Introspect(frag[0])
	if n.Data != "a" {
		t.Fatalf("tag %q, want a", n.Data)
	}
	if len(n.Attrs) != 2 || n.Attrs[0].Name != "href" || n.Attrs[0].Value.Data != "/x" {
		t.Errorf("attrs %+v", n.Attrs)
	}

	text := Introspect(frag[0].FirstChild)
	if text.Kind != KindElement || text.Data != "" {
		t.Errorf("text node = %+v, want element with empty tag", text)
	}
}

func exported() {}

func TestIntrospect_FunctionNames(t *testing.T) {
	w := widget{}
	tests := []struct {
		name string
		fn   any
		want string
	}{
		{"package func", exported, "exported"},
		{"test func", TestIntrospect_FunctionNames, "TestIntrospect_FunctionNames"},
		{"method value", w.TagName, "TagName"},
		{"closure", func() {}, ""},
		{"stdlib", strings.ToUpper, "ToUpper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Introspect(tt.fn)
			if n.Kind != KindFunction || n.Data != tt.want {
				t.Errorf("got %s %q, want function %q", n.Kind, n.Data, tt.want)
			}
		})
	}
}

func TestIntrospect_Empty(t *testing.T) {
	if n := Introspect(make(chan int)); n.Kind != KindEmpty {
		t.Errorf("chan: %s, want empty", n.Kind)
	}
}

func TestIntrospect_DoesNotMutate(t *testing.T) {
	in := map[string]any{"a": []int{3, 1, 2}}
	Introspect(in)
	got := in["a"].([]int)
	if got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("source mutated: %v", got)
	}
}

func propKeys(n Node) string {
	keys := make([]string, len(n.Props))
	for i, p := range n.Props {
		keys[i] = p.Key
	}
	return strings.Join(keys, ",")
}

type shape struct {
	Name string
	Tags []string
	At   point
}

func TestIntrospect_NestedTree(t *testing.T) {
	got := Introspect(&shape{Name: "sq", Tags: []string{"a", "b"}, At: point{X: 1, Y: 2}})
	want := Object("shape", []Prop{
		{Key: "Name", Value: Scalar(TypeString, "sq")},
		{Key: "Tags", Value: Array([]Node{Scalar(TypeString, "a"), Scalar(TypeString, "b")})},
		{Key: "At", Value: Object("point", []Prop{
			{Key: "X", Value: Scalar(TypeNumber, "1")},
			{Key: "Y", Value: Scalar(TypeNumber, "2")},
		})},
	})
	if diff := pretty.Diff(want, got); diff != nil {
		t.Errorf("tree mismatch:\n%s", strings.Join(diff, "\n"))
	}
}
