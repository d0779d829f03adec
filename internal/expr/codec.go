package expr

import (
	"encoding/json"
	"fmt"
)

type node struct {
	Kind     string   `json:"kind"`
	Value    *float64 `json:"value,omitempty"`
	Name     string   `json:"name,omitempty"`
	Children []node   `json:"children,omitempty"`
}

// Marshal encodes e as nested JSON nodes for run records.
func Marshal(e Expr) ([]byte, error) {
	n, err := toNode(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

// Unmarshal decodes a tree produced by Marshal.
func Unmarshal(data []byte) (Expr, error) {
	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return fromNode(n)
}

func toNode(e Expr) (node, error) {
	switch x := e.(type) {
	case Const:
		v := x.Value
		return node{Kind: KindConst.String(), Value: &v}, nil
	case Param:
		return node{Kind: KindParam.String(), Name: x.Name}, nil
	case Add, Sub, Mul, Gt, If:
		children := Children(e)
		out := node{Kind: e.Kind().String(), Children: make([]node, 0, len(children))}
		for _, child := range children {
			encoded, err := toNode(child)
			if err != nil {
				return node{}, err
			}
			out.Children = append(out.Children, encoded)
		}
		return out, nil
	case nil:
		return node{}, fmt.Errorf("encode expression: nil node")
	default:
		return node{}, fmt.Errorf("encode expression: %w: %T", ErrUnknownKind, e)
	}
}

func fromNode(n node) (Expr, error) {
	kind, err := ParseKind(n.Kind)
	if err != nil {
		return nil, err
	}
	if len(n.Children) != kind.Arity() {
		return nil, fmt.Errorf("decode %s: expected %d children, got %d", kind, kind.Arity(), len(n.Children))
	}

	children := make([]Expr, 0, len(n.Children))
	for _, child := range n.Children {
		decoded, err := fromNode(child)
		if err != nil {
			return nil, err
		}
		children = append(children, decoded)
	}

	switch kind {
	case KindConst:
		if n.Value == nil {
			return nil, fmt.Errorf("decode const: missing value")
		}
		return Const{Value: *n.Value}, nil
	case KindParam:
		if n.Name == "" {
			return nil, fmt.Errorf("decode param: missing name")
		}
		return Param{Name: n.Name}, nil
	case KindAdd:
		return Add{Left: children[0], Right: children[1]}, nil
	case KindSub:
		return Sub{Left: children[0], Right: children[1]}, nil
	case KindMul:
		return Mul{Left: children[0], Right: children[1]}, nil
	case KindGt:
		return Gt{Left: children[0], Right: children[1]}, nil
	case KindIf:
		return If{Cond: children[0], Then: children[1], Else: children[2]}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}
