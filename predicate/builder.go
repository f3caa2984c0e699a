package predicate

// Constructor helpers. These are the only intended way to build trees;
// they keep the node structs valid by construction.

// Eq compares a property for equality.
func Eq(property string, v any) Node {
	return Comparison{Property: property, Op: OpEqual, Rhs: Literal{Value: v}}
}

// Ne compares a property for inequality.
func Ne(property string, v any) Node {
	return Comparison{Property: property, Op: OpNotEqual, Rhs: Literal{Value: v}}
}

// Lt compares with <.
func Lt(property string, v any) Node {
	return Comparison{Property: property, Op: OpLess, Rhs: Literal{Value: v}}
}

// Le compares with <=.
func Le(property string, v any) Node {
	return Comparison{Property: property, Op: OpLessOrEqual, Rhs: Literal{Value: v}}
}

// Gt compares with >.
func Gt(property string, v any) Node {
	return Comparison{Property: property, Op: OpGreater, Rhs: Literal{Value: v}}
}

// Ge compares with >=.
func Ge(property string, v any) Node {
	return Comparison{Property: property, Op: OpGreaterOrEqual, Rhs: Literal{Value: v}}
}

// BeginsWith tests a string property for a prefix.
func BeginsWith(property string, prefix string) Node {
	return Call{Fn: FnBeginsWith, Property: property, Args: []Literal{{Value: prefix}}}
}

// EndsWith tests a string property for a suffix.
func EndsWith(property string, suffix string) Node {
	return Call{Fn: FnEndsWith, Property: property, Args: []Literal{{Value: suffix}}}
}

// Contains tests a string or set property for containment.
func Contains(property string, v any) Node {
	return Call{Fn: FnContains, Property: property, Args: []Literal{{Value: v}}}
}

// Between tests a property against an inclusive range.
func Between(property string, lo, hi any) Node {
	return Call{Fn: FnBetween, Property: property, Args: []Literal{{Value: lo}, {Value: hi}}}
}

// Exists tests that the attribute is present on the item.
func Exists(property string) Node {
	return Call{Fn: FnAttributeExists, Property: property}
}

// NotExists tests that the attribute is absent from the item.
func NotExists(property string) Node {
	return Call{Fn: FnAttributeNotExists, Property: property}
}

// And combines nodes conjunctively.
func And(children ...Node) Node {
	return Logical{Op: LogicalAnd, Children: children}
}

// Or combines nodes disjunctively.
func Or(children ...Node) Node {
	return Logical{Op: LogicalOr, Children: children}
}

// Not negates a node.
func Not(child Node) Node {
	return Logical{Op: LogicalNot, Children: []Node{child}}
}
