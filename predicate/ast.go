// Package predicate defines the expression tree that application code
// builds to describe conditions, filters and key conditions. The tree
// is language-neutral: it knows property names and literal values, not
// attribute names or placeholder tokens. Compilation to DynamoDB's
// expression DSL happens in the compiler package.
//
// Trees are request-scoped and never mutated after construction, so
// subtrees can safely be reused across retries of the same request.
package predicate

import "fmt"

// Node is a tagged variant over the expression tree node types.
type Node interface {
	isNode()
	String() string
}

// Operator is a comparison operator, spelled as in the target DSL.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "<>"
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
)

// Function names the built-in tests the DSL supports.
type Function string

const (
	FnBeginsWith         Function = "begins_with"
	FnEndsWith           Function = "ends_with"
	FnContains           Function = "contains"
	FnBetween            Function = "between"
	FnAttributeExists    Function = "attribute_exists"
	FnAttributeNotExists Function = "attribute_not_exists"
)

// Arity returns the number of literal arguments the function takes.
func (f Function) Arity() int {
	switch f {
	case FnBetween:
		return 2
	case FnAttributeExists, FnAttributeNotExists:
		return 0
	default:
		return 1
	}
}

// Literal wraps a raw value supplied by the caller. The compiler
// coerces it according to the target property's metadata.
type Literal struct {
	Value any
}

func (l Literal) String() string { return fmt.Sprintf("%v", l.Value) }

// Comparison compares a property against a literal.
type Comparison struct {
	Property string
	Op       Operator
	Rhs      Literal
}

func (Comparison) isNode() {}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %v", c.Property, c.Op, c.Rhs)
}

// Call applies a built-in function test to a property.
type Call struct {
	Fn       Function
	Property string
	Args     []Literal
}

func (Call) isNode() {}

func (c Call) String() string {
	return fmt.Sprintf("%s(%s, %d args)", c.Fn, c.Property, len(c.Args))
}

// LogicalOp combines child nodes.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
	LogicalNot LogicalOp = "NOT"
)

// Logical combines children with AND/OR, or negates a single child.
type Logical struct {
	Op       LogicalOp
	Children []Node
}

func (Logical) isNode() {}

func (l Logical) String() string {
	return fmt.Sprintf("%s(%d children)", l.Op, len(l.Children))
}
