package bridge

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/eson/eson"
)

// ============================================================
// ESON -> YAML
// ============================================================

// ToYAMLNode converts v into a YAML node tree. Object member order is
// kept. A tag directly inside another tag has no YAML form and is a type
// error.
func ToYAMLNode(v *eson.Value) (*yaml.Node, error) {
	return toYAML(v, 0)
}

// MarshalYAML renders v as a YAML document.
func MarshalYAML(v *eson.Value) ([]byte, error) {
	n, err := ToYAMLNode(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(n)
}

func toYAML(v *eson.Value, depth int) (*yaml.Node, error) {
	if depth > eson.DefaultMaxDepth {
		return nil, depthErr()
	}
	switch v.Type() {
	case eson.TypeNull:
		return scalar("!!null", "null"), nil
	case eson.TypeBool:
		b, _ := v.AsBool()
		return scalar("!!bool", strconv.FormatBool(b)), nil
	case eson.TypeInt:
		n, _ := v.AsBigInt()
		return scalar("!!int", n.String()), nil
	case eson.TypeFloat:
		f, _ := v.AsFloat()
		return scalar("!!float", yamlFloat(f)), nil
	case eson.TypeStr:
		s, _ := v.AsStr()
		return scalar("!!str", s), nil
	case eson.TypeArray:
		items, _ := v.AsArray()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range items {
			c, err := toYAML(item, depth+1)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case eson.TypeObject:
		members, _ := v.AsObject()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range members {
			c, err := toYAML(m.Value, depth+1)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, scalar("!!str", m.Key), c)
		}
		return n, nil
	case eson.TypeTag:
		path, inner, _ := v.AsTag()
		n, err := toYAML(inner, depth+1)
		if err != nil {
			return nil, err
		}
		if isLocalTag(n.Tag) {
			return nil, typeErr("tag %s wraps another tag; YAML nodes carry one tag", path)
		}
		n.Tag = "!" + path
		return n, nil
	case eson.TypeOpaque:
		plain, err := materialize(v)
		if err != nil {
			return nil, err
		}
		return toYAML(plain, depth)
	default:
		return nil, typeErr("value of type %s has no YAML form", v.Type())
	}
}

func isLocalTag(tag string) bool {
	return strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!")
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// ============================================================
// YAML -> ESON
// ============================================================

// FromYAMLNode converts a YAML node tree into a value. Local tags (!a/b)
// become ESON tags; the standard !! tags become plain values. Aliases are
// expanded.
func FromYAMLNode(n *yaml.Node) (*eson.Value, error) {
	return fromYAML(n, 0)
}

// UnmarshalYAML parses the first document in data. Empty input is null.
func UnmarshalYAML(data []byte) (*eson.Value, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return FromYAMLNode(&n)
}

func fromYAML(n *yaml.Node, depth int) (*eson.Value, error) {
	if n == nil {
		return eson.Null(), nil
	}
	if depth > eson.DefaultMaxDepth {
		return nil, depthErr()
	}

	switch n.Kind {
	case 0:
		return eson.Null(), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return eson.Null(), nil
		}
		return fromYAML(n.Content[0], depth)
	case yaml.AliasNode:
		return fromYAML(n.Alias, depth+1)
	}

	tag := n.ShortTag()
	if isLocalTag(tag) {
		path := tag[1:]
		if !eson.ValidPath(path) {
			return nil, typeErr("yaml tag %s is not a valid tag path (line %d)", tag, n.Line)
		}
		plain := *n
		plain.Tag = ""
		plain.Style &^= yaml.TaggedStyle
		inner, err := fromYAML(&plain, depth+1)
		if err != nil {
			return nil, err
		}
		return eson.NewTag(path, inner), nil
	}

	switch n.Kind {
	case yaml.SequenceNode:
		items := make([]*eson.Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromYAML(c, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return eson.Array(items...), nil

	case yaml.MappingNode:
		obj := eson.Object()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			for k.Kind == yaml.AliasNode {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return nil, typeErr("yaml mapping key must be a scalar (line %d)", k.Line)
			}
			val, err := fromYAML(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, val)
		}
		return obj, nil

	case yaml.ScalarNode:
		return yamlScalar(n, tag)
	}
	return nil, typeErr("unsupported yaml node kind %d (line %d)", n.Kind, n.Line)
}

func yamlScalar(n *yaml.Node, tag string) (*eson.Value, error) {
	switch tag {
	case "!!null":
		return eson.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return eson.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return eson.Int(i), nil
		}
		b, ok := new(big.Int).SetString(n.Value, 0)
		if !ok {
			return nil, typeErr("invalid yaml integer %q (line %d)", n.Value, n.Line)
		}
		return eson.BigInt(b), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return eson.Float(f), nil
	case "!!str", "!!binary", "!!timestamp":
		return eson.Str(n.Value), nil
	default:
		return nil, typeErr("unsupported yaml tag %s (line %d)", tag, n.Line)
	}
}
