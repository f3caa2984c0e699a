package compiler

import (
	"fmt"
	"strings"

	"github.com/halvard/ddbexpr/entity"
	"github.com/halvard/ddbexpr/predicate"
)

// translator renders predicate trees into DSL fragments, allocating
// placeholders as a side effect. One translator per compilation session.
type translator struct {
	meta *entity.Metadata
	ph   *placeholders
	// index scopes key-role checks to a GSI's keys instead of the
	// table's when non-empty
	index string
}

type mode int

const (
	// modeCondition renders condition and filter expressions.
	modeCondition mode = iota
	// modeKeyCondition restricts operators to the key-condition subset.
	modeKeyCondition
)

func (t *translator) translate(n predicate.Node, m mode) (string, error) {
	switch node := n.(type) {
	case predicate.Comparison:
		return t.comparison(node, m)
	case predicate.Call:
		return t.call(node, m)
	case predicate.Logical:
		return t.logical(node, m)
	default:
		return "", fmt.Errorf("%w: node type %T", ErrUnsupportedShape, n)
	}
}

func (t *translator) comparison(c predicate.Comparison, m mode) (string, error) {
	p, ok := t.meta.Property(c.Property)
	if !ok {
		return "", fmt.Errorf("%w: unknown property %q", ErrUnsupportedShape, c.Property)
	}
	switch c.Op {
	case predicate.OpEqual, predicate.OpNotEqual, predicate.OpLess,
		predicate.OpLessOrEqual, predicate.OpGreater, predicate.OpGreaterOrEqual:
	default:
		return "", fmt.Errorf("%w: operator %q on property %q", ErrUnsupportedShape, c.Op, c.Property)
	}
	if m == modeKeyCondition {
		if err := t.checkKeyOperator(p, string(c.Op)); err != nil {
			return "", err
		}
	}
	val, err := t.allocate(p, c.Rhs.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", t.ph.name(p.Attribute), c.Op, val), nil
}

func (t *translator) call(c predicate.Call, m mode) (string, error) {
	p, ok := t.meta.Property(c.Property)
	if !ok {
		return "", fmt.Errorf("%w: unknown property %q", ErrUnsupportedShape, c.Property)
	}
	if got, want := len(c.Args), c.Fn.Arity(); got != want {
		return "", fmt.Errorf("%w: %s on %q takes %d arguments, got %d", ErrUnsupportedShape, c.Fn, c.Property, want, got)
	}
	if m == modeKeyCondition {
		if err := t.checkKeyOperator(p, string(c.Fn)); err != nil {
			return "", err
		}
	}
	attr := t.ph.name(p.Attribute)
	switch c.Fn {
	case predicate.FnBetween:
		lo, err := t.allocate(p, c.Args[0].Value)
		if err != nil {
			return "", err
		}
		hi, err := t.allocate(p, c.Args[1].Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", attr, lo, hi), nil
	case predicate.FnBeginsWith, predicate.FnEndsWith:
		if _, ok := c.Args[0].Value.(string); !ok {
			return "", fmt.Errorf("%w: %s on %q requires a string argument, got %T", ErrTypeMismatch, c.Fn, c.Property, c.Args[0].Value)
		}
		val, err := t.allocate(p, c.Args[0].Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s, %s)", c.Fn, attr, val), nil
	case predicate.FnContains:
		val, err := t.allocateMember(p, c.Args[0].Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("contains(%s, %s)", attr, val), nil
	case predicate.FnAttributeExists, predicate.FnAttributeNotExists:
		return fmt.Sprintf("%s(%s)", c.Fn, attr), nil
	default:
		return "", fmt.Errorf("%w: function %q", ErrUnsupportedShape, c.Fn)
	}
}

func (t *translator) logical(l predicate.Logical, m mode) (string, error) {
	if m == modeKeyCondition && l.Op != predicate.LogicalAnd {
		return "", fmt.Errorf("%w: logical %s", ErrKeyCondition, l.Op)
	}
	switch l.Op {
	case predicate.LogicalNot:
		if len(l.Children) != 1 {
			return "", fmt.Errorf("%w: NOT takes exactly one child, got %d", ErrUnsupportedShape, len(l.Children))
		}
		frag, err := t.translate(l.Children[0], m)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (%s)", frag), nil
	case predicate.LogicalAnd, predicate.LogicalOr:
		if len(l.Children) == 0 {
			return "", fmt.Errorf("%w: %s has no children", ErrUnsupportedShape, l.Op)
		}
		if len(l.Children) == 1 {
			return t.translate(l.Children[0], m)
		}
		frags := make([]string, len(l.Children))
		for i, child := range l.Children {
			frag, err := t.translate(child, m)
			if err != nil {
				return "", err
			}
			frags[i] = frag
		}
		joined := strings.Join(frags, " "+string(l.Op)+" ")
		if m == modeKeyCondition {
			// the key condition grammar rejects parentheses around
			// the pk/sk conjunction
			return joined, nil
		}
		return "(" + joined + ")", nil
	default:
		return "", fmt.Errorf("%w: logical operator %q", ErrUnsupportedShape, l.Op)
	}
}

// sort-key operators legal in a key condition
var sortKeyOperators = map[string]bool{
	"=": true, "<": true, "<=": true, ">": true, ">=": true,
	string(predicate.FnBetween):    true,
	string(predicate.FnBeginsWith): true,
}

func (t *translator) checkKeyOperator(p *entity.Property, op string) error {
	isPartition, isSort := p.PartitionKey, p.SortKey
	if t.index != "" {
		g, ok := t.meta.GSI(t.index)
		if !ok {
			return fmt.Errorf("%w: unknown index %q", ErrUnsupportedShape, t.index)
		}
		isPartition = p.Attribute == g.PartitionKey
		isSort = g.SortKey != "" && p.Attribute == g.SortKey
	}
	switch {
	case isPartition:
		if op != "=" {
			return fmt.Errorf("%w: %q on partition key %q, only = is allowed", ErrKeyCondition, op, p.Name)
		}
	case isSort:
		if !sortKeyOperators[op] {
			return fmt.Errorf("%w: %q on sort key %q", ErrKeyCondition, op, p.Name)
		}
	default:
		return fmt.Errorf("%w: property %q is not a key attribute", ErrKeyCondition, p.Name)
	}
	return nil
}

func (t *translator) allocate(p *entity.Property, v any) (string, error) {
	av, err := Coerce(p, v)
	if err != nil {
		return "", err
	}
	return t.ph.value(Param{
		Value:              av,
		Property:           p.Name,
		Attribute:          p.Attribute,
		RequiresEncryption: false, // reads never defer encryption
		Sensitive:          p.Sensitive,
	}), nil
}

// allocateMember coerces a containment-test argument. For set and list
// properties the argument is an element, not a full value of the
// declared type, so the declared-type check is relaxed to the element.
func (t *translator) allocateMember(p *entity.Property, v any) (string, error) {
	elem := *p
	switch p.Type {
	case entity.TypeStringSet:
		elem.Type = entity.TypeString
	case entity.TypeNumberSet:
		elem.Type = entity.TypeNumber
	case entity.TypeList:
		elem.Type = "" // heterogeneous, accept any scalar
	}
	return t.allocate(&elem, v)
}
