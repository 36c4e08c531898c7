// CLAUDE:SUMMARY Defines the closed Kind and ScalarType enumerations that discriminate Parsed Nodes.
// Package inspect converts arbitrary Go values into typed, serialisable
// descriptions (Parsed Nodes) suitable for rendering in a console tree.
//
// The pipeline is:
//
//	value → Classify → Introspect → Node
//
// Introspection never fails: values the classifier does not recognise
// degrade to an empty Node instead of an error.
package inspect

// Kind discriminates the shape of a Node's payload.
type Kind uint8

const (
	KindEmpty    Kind = iota // placeholder / unrepresentable value
	KindScalar               // number, string, boolean, undefined
	KindNull                 // nil
	KindFunction             // func value
	KindArray                // slice, array, ArrayLike
	KindObject               // struct, map
	KindElement              // Element or *html.Node
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindNull:
		return "null"
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindElement:
		return "element"
	default:
		return "empty"
	}
}

// ScalarType refines KindScalar.
type ScalarType uint8

const (
	TypeUndefined ScalarType = iota
	TypeNumber
	TypeString
	TypeBoolean
)

func (t ScalarType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	default:
		return "undefined"
	}
}

// undefinedType is the type of Undefined. It is a non-composite kind so the
// classifier reaches it at the scalar step.
type undefinedType uint8

// Undefined is the "absent value" marker. It introspects to the scalar
// "undefined", distinct from nil which is null.
const Undefined undefinedType = 0
