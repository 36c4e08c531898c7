package inspect

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is a Parsed Node: the typed description of one introspected value.
// Kind determines which payload fields are meaningful; build Nodes through
// the constructors below so shapes are never mixed.
type Node struct {
	Kind Kind

	// Type refines KindScalar.
	Type ScalarType

	// Data holds the scalar display string, "null", the function name
	// or the element tag name.
	Data string

	// Class is the object type tag.
	Class string

	Items []Node // KindArray
	Props []Prop // KindObject, in enumeration order
	Attrs []Attr // KindElement, in source order

	// Truncated marks an array or object whose payload was cut by the
	// depth or cycle guard, or the empty node of a pointer that points
	// back to itself.
	Truncated bool
}

// Prop is one object property.
type Prop struct {
	Key   string
	Value Node
}

// Attr is one element attribute. Value is always a string scalar.
type Attr struct {
	Name  string
	Value Node
}

// DefaultClass is the object type tag used when the runtime type is unnamed.
const DefaultClass = "Object"

func Scalar(t ScalarType, data string) Node {
	return Node{Kind: KindScalar, Type: t, Data: data}
}

func Null() Node { return Node{Kind: KindNull, Data: "null"} }

func Function(name string) Node { return Node{Kind: KindFunction, Data: name} }

func Array(items []Node) Node { return Node{Kind: KindArray, Items: items} }

// Object builds an object node. An empty class falls back to DefaultClass.
func Object(class string, props []Prop) Node {
	if class == "" {
		class = DefaultClass
	}
	return Node{Kind: KindObject, Class: class, Props: props}
}

// ElementOf builds an element node, wrapping every attribute value in a
// string scalar.
func ElementOf(tag string, attrs ...Attribute) Node {
	n := Node{Kind: KindElement, Data: tag}
	for _, a := range attrs {
		n.Attrs = append(n.Attrs, Attr{Name: a.Name, Value: Scalar(TypeString, a.Value)})
	}
	return n
}

func Empty() Node { return Node{Kind: KindEmpty} }

// Category is the presentation category of the node: the scalar type name
// for scalars, the kind name otherwise.
func (n Node) Category() string {
	if n.Kind == KindScalar {
		return n.Type.String()
	}
	return n.Kind.String()
}

// Prop returns the value stored under key and whether it exists.
func (n Node) Prop(key string) (Node, bool) {
	for _, p := range n.Props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Node{}, false
}

// --- JSON ---
//
// The wire shape is {"dataType": ..., "data": ..., "constructor": ...}.
// Object data is written as a JSON object whose key order follows Props.

func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	n.encode(&buf)
	return buf.Bytes(), nil
}

func (n Node) encode(buf *bytes.Buffer) {
	buf.WriteString(`{"dataType":`)
	writeJSONString(buf, n.Category())
	switch n.Kind {
	case KindScalar, KindNull, KindFunction:
		buf.WriteString(`,"data":`)
		writeJSONString(buf, n.Data)
	case KindArray:
		buf.WriteString(`,"data":[`)
		for i, it := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			it.encode(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteString(`,"constructor":`)
		writeJSONString(buf, n.Class)
		buf.WriteString(`,"data":{`)
		for i, p := range n.Props {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, p.Key)
			buf.WriteByte(':')
			p.Value.encode(buf)
		}
		buf.WriteByte('}')
	case KindElement:
		buf.WriteString(`,"data":{"tagName":`)
		writeJSONString(buf, n.Data)
		buf.WriteString(`,"attributes":[`)
		for i, a := range n.Attrs {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"key":`)
			writeJSONString(buf, a.Name)
			buf.WriteString(`,"value":`)
			a.Value.encode(buf)
			buf.WriteByte('}')
		}
		buf.WriteString(`]}`)
	}
	if n.Truncated {
		buf.WriteString(`,"truncated":true`)
	}
	buf.WriteByte('}')
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

type wireNode struct {
	DataType    string          `json:"dataType"`
	Data        json.RawMessage `json:"data"`
	Constructor string          `json:"constructor"`
	Truncated   bool            `json:"truncated"`
}

type wireElement struct {
	TagName    string `json:"tagName"`
	Attributes []struct {
		Key   string `json:"key"`
		Value Node   `json:"value"`
	} `json:"attributes"`
}

func (n *Node) UnmarshalJSON(b []byte) error {
	var w wireNode
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	switch w.DataType {
	case "number", "string", "boolean", "undefined":
		s, err := rawString(w.Data)
		if err != nil {
			return err
		}
		*n = Scalar(scalarTypeOf(w.DataType), s)
	case "null":
		*n = Null()
	case "function":
		s, err := rawString(w.Data)
		if err != nil {
			return err
		}
		*n = Function(s)
	case "array":
		var items []Node
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &items); err != nil {
				return fmt.Errorf("inspect: array data: %w", err)
			}
		}
		*n = Array(items)
	case "object":
		props, err := decodeProps(w.Data)
		if err != nil {
			return err
		}
		*n = Object(w.Constructor, props)
	case "element":
		var e wireElement
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &e); err != nil {
				return fmt.Errorf("inspect: element data: %w", err)
			}
		}
		el := Node{Kind: KindElement, Data: e.TagName}
		for _, a := range e.Attributes {
			if a.Value.Kind != KindScalar || a.Value.Type != TypeString {
				return fmt.Errorf("inspect: attribute %q: value is %s, want string", a.Key, a.Value.Category())
			}
			el.Attrs = append(el.Attrs, Attr{Name: a.Key, Value: a.Value})
		}
		*n = el
	case "empty", "":
		*n = Empty()
	default:
		return fmt.Errorf("inspect: unknown dataType %q", w.DataType)
	}
	n.Truncated = w.Truncated
	return nil
}

func scalarTypeOf(name string) ScalarType {
	switch name {
	case "number":
		return TypeNumber
	case "string":
		return TypeString
	case "boolean":
		return TypeBoolean
	default:
		return TypeUndefined
	}
}

func rawString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("inspect: scalar data: %w", err)
	}
	return s, nil
}

// decodeProps reads a JSON object keeping its key order.
func decodeProps(raw json.RawMessage) ([]Prop, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("inspect: object data: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("inspect: object data: expected '{', got %v", tok)
	}

	var props []Prop
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("inspect: object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("inspect: object key: expected string, got %v", tok)
		}
		var v Node
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("inspect: object value %q: %w", key, err)
		}
		props = append(props, Prop{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("inspect: object data: %w", err)
	}
	return props, nil
}
