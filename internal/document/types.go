package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// BasicType enumerates primitive types. Custom names a user type.
type BasicType string

const (
	Natural BasicType = "natural"
	Integer BasicType = "integer"
	Real    BasicType = "real"
	Boolean BasicType = "boolean"
	String  BasicType = "string"
	Symbol  BasicType = "symbol"
	Custom  BasicType = "custom"
)

// TypeKind tags a TypeExpression variant.
type TypeKind string

const (
	KindBasic    TypeKind = "basic"
	KindSet      TypeKind = "set"
	KindUnion    TypeKind = "union"
	KindProduct  TypeKind = "product"
	KindFunction TypeKind = "function"
)

// TypeExpression is an immutable type tree.
//
//	Basic:    Basic (+ Name when Basic == Custom)
//	Set:      Elem
//	Union:    Members
//	Product:  Members
//	Function: Members are the parameters, Elem the result
type TypeExpression struct {
	Kind    TypeKind
	Basic   BasicType
	Name    string
	Elem    *TypeExpression
	Members []TypeExpression
}

// BasicOf builds a primitive type expression.
func BasicOf(b BasicType) TypeExpression {
	return TypeExpression{Kind: KindBasic, Basic: b}
}

// CustomOf builds a reference to a named user type.
func CustomOf(name string) TypeExpression {
	return TypeExpression{Kind: KindBasic, Basic: Custom, Name: name}
}

// SetOf builds Set(elem).
func SetOf(elem TypeExpression) TypeExpression {
	return TypeExpression{Kind: KindSet, Elem: &elem}
}

// UnionOf builds a union of members.
func UnionOf(members ...TypeExpression) TypeExpression {
	return TypeExpression{Kind: KindUnion, Members: members}
}

// ProductOf builds a product of members.
func ProductOf(members ...TypeExpression) TypeExpression {
	return TypeExpression{Kind: KindProduct, Members: members}
}

// FunctionOf builds params → result.
func FunctionOf(result TypeExpression, params ...TypeExpression) TypeExpression {
	return TypeExpression{Kind: KindFunction, Members: params, Elem: &result}
}

// Params returns the parameter types of a function type.
func (t TypeExpression) Params() []TypeExpression {
	if t.Kind != KindFunction {
		return nil
	}
	return t.Members
}

// Result returns the result type of a function type.
func (t TypeExpression) Result() *TypeExpression {
	if t.Kind != KindFunction {
		return nil
	}
	return t.Elem
}

// References returns the custom type names mentioned anywhere in t.
func (t TypeExpression) References() []string {
	var refs []string
	var walk func(TypeExpression)
	walk = func(e TypeExpression) {
		switch e.Kind {
		case KindBasic:
			if e.Basic == Custom {
				refs = append(refs, e.Name)
			}
		case KindSet:
			if e.Elem != nil {
				walk(*e.Elem)
			}
		case KindUnion, KindProduct:
			for _, m := range e.Members {
				walk(m)
			}
		case KindFunction:
			for _, m := range e.Members {
				walk(m)
			}
			if e.Elem != nil {
				walk(*e.Elem)
			}
		}
	}
	walk(t)
	return refs
}

func (t TypeExpression) String() string {
	switch t.Kind {
	case KindBasic:
		if t.Basic == Custom {
			return t.Name
		}
		return string(t.Basic)
	case KindSet:
		if t.Elem == nil {
			return "set<?>"
		}
		return "set<" + t.Elem.String() + ">"
	case KindUnion:
		return "(" + joinTypes(t.Members, " | ") + ")"
	case KindProduct:
		return "(" + joinTypes(t.Members, " x ") + ")"
	case KindFunction:
		result := "?"
		if t.Elem != nil {
			result = t.Elem.String()
		}
		return "(" + joinTypes(t.Members, ", ") + ") -> " + result
	default:
		return "<invalid>"
	}
}

func joinTypes(ts []TypeExpression, sep string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}

// basicAliases maps the accepted scalar spellings, including the AISP
// blackboard glyphs, onto primitive types.
var basicAliases = map[string]BasicType{
	"natural": Natural, "nat": Natural, "ℕ": Natural,
	"integer": Integer, "int": Integer, "ℤ": Integer,
	"real": Real, "ℝ": Real,
	"boolean": Boolean, "bool": Boolean, "𝔹": Boolean,
	"string": String, "str": String, "𝕊": String,
	"symbol": Symbol,
}

func parseScalarType(s string) (TypeExpression, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeExpression{}, fmt.Errorf("empty type name")
	}
	if b, ok := basicAliases[strings.ToLower(s)]; ok {
		return BasicOf(b), nil
	}
	return CustomOf(s), nil
}

// UnmarshalYAML accepts either a scalar shorthand ("real", "Pocket") or a
// single-key mapping: basic, custom, set, union, product, function.
func (t *TypeExpression) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := parseScalarType(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*t = parsed
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: type mapping must have exactly one key", node.Line)
		}
		key, val := node.Content[0].Value, node.Content[1]
		switch key {
		case "basic":
			b, ok := basicAliases[strings.ToLower(val.Value)]
			if !ok {
				return fmt.Errorf("line %d: unknown basic type %q", val.Line, val.Value)
			}
			*t = BasicOf(b)
		case "custom":
			if val.Value == "" {
				return fmt.Errorf("line %d: custom type needs a name", val.Line)
			}
			*t = CustomOf(val.Value)
		case "set":
			var elem TypeExpression
			if err := val.Decode(&elem); err != nil {
				return err
			}
			*t = SetOf(elem)
		case "union", "product":
			var members []TypeExpression
			if err := val.Decode(&members); err != nil {
				return err
			}
			if len(members) < 2 {
				return fmt.Errorf("line %d: %s needs at least two members", val.Line, key)
			}
			if key == "union" {
				*t = UnionOf(members...)
			} else {
				*t = ProductOf(members...)
			}
		case "function":
			var fn struct {
				Params []TypeExpression `yaml:"params"`
				Result *TypeExpression  `yaml:"result"`
			}
			if err := val.Decode(&fn); err != nil {
				return err
			}
			if fn.Result == nil {
				return fmt.Errorf("line %d: function type needs a result", val.Line)
			}
			*t = FunctionOf(*fn.Result, fn.Params...)
		default:
			return fmt.Errorf("line %d: unknown type constructor %q", node.Line, key)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported type expression node", node.Line)
	}
}

// MarshalYAML writes the shortest form UnmarshalYAML accepts.
func (t TypeExpression) MarshalYAML() (interface{}, error) {
	switch t.Kind {
	case KindBasic:
		if t.Basic == Custom {
			if _, clash := basicAliases[strings.ToLower(t.Name)]; clash {
				return map[string]string{"custom": t.Name}, nil
			}
			return t.Name, nil
		}
		return string(t.Basic), nil
	case KindSet:
		return map[string]interface{}{"set": t.Elem}, nil
	case KindUnion:
		return map[string]interface{}{"union": t.Members}, nil
	case KindProduct:
		return map[string]interface{}{"product": t.Members}, nil
	case KindFunction:
		return map[string]interface{}{"function": map[string]interface{}{
			"params": t.Members,
			"result": t.Elem,
		}}, nil
	default:
		return nil, fmt.Errorf("cannot marshal type expression of kind %q", t.Kind)
	}
}

// MarshalText makes type expressions readable in JSON output.
func (t TypeExpression) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
