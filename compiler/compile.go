// Package compiler translates predicate trees and update models into
// DynamoDB expression strings plus the placeholder tables the wire
// protocol requires. Compilation is synchronous and purely functional
// over its inputs: metadata is shared read-only, while the placeholder
// session is created and discarded with each compilation call.
package compiler

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/halvard/ddbexpr/entity"
	"github.com/halvard/ddbexpr/predicate"
)

// Compiled is the output of one compilation call. Immutable once
// returned; Redacted produces the diagnostics copy.
type Compiled struct {
	// KeyConditionExpression, or empty when compiling a plain condition.
	KeyCondition string
	// FilterExpression accompanying a key condition.
	Filter string
	// ConditionExpression for writes.
	Condition string
	// UpdateExpression, update path only.
	Update string
	// ProjectionExpression, query path only.
	Projection string
	// Clauses holds the rendered update clause fragments in emission
	// order (SET, REMOVE, ADD, DELETE).
	Clauses []string

	// Names maps "#n{i}" tokens to physical attribute names.
	Names map[string]string
	// Values maps ":p{i}" tokens to wire values.
	Values map[string]types.AttributeValue
	// Params carries per-placeholder metadata in allocation order.
	Params []Param
	// Pending lists the value placeholders awaiting encryption.
	// The expression must not be transmitted until they are resolved.
	Pending []PendingEncryption
}

// Compiler accumulates predicates for one logical request and renders
// them in a single placeholder session, so tokens never collide across
// chained calls. Not safe for concurrent use; build one per request.
type Compiler struct {
	meta  *entity.Metadata
	ph    *placeholders
	index string

	keyCond predicate.Node
	// successive Where calls merge with implicit AND
	wheres        []predicate.Node
	projection    []string
	discriminator bool

	err error
}

// New starts a compilation session for the given entity.
func New(meta *entity.Metadata) *Compiler {
	return &Compiler{meta: meta, ph: newPlaceholders()}
}

// WithIndex targets a GSI. The index's discriminator scope, when
// configured, replaces the table-level one.
func (c *Compiler) WithIndex(name string) *Compiler {
	if _, ok := c.meta.GSI(name); !ok {
		c.fail(fmt.Errorf("%w: unknown index %q on table %q", ErrUnsupportedShape, name, c.meta.TableName()))
		return c
	}
	c.index = name
	return c
}

// KeyCondition sets the key condition predicate. Only equality on the
// partition key and the restricted sort-key subset are legal; violations
// surface from Build as ErrKeyCondition.
func (c *Compiler) KeyCondition(n predicate.Node) *Compiler {
	if c.keyCond != nil {
		c.fail(fmt.Errorf("%w: key condition already set", ErrUnsupportedShape))
		return c
	}
	c.keyCond = n
	return c
}

// Where adds a filter (or, for writes, condition) predicate. Repeated
// calls are combined with AND.
func (c *Compiler) Where(n predicate.Node) *Compiler {
	c.wheres = append(c.wheres, n)
	return c
}

// IncludeDiscriminator forces the scope's discriminator clause into a
// plain filter compile (scans). Key-condition compiles always get it.
// Write conditions never do: on the write path the discriminator is a
// stamped attribute value, not a clause.
func (c *Compiler) IncludeDiscriminator() *Compiler {
	c.discriminator = true
	return c
}

// Projection limits the attributes returned by a query. Properties are
// resolved to physical attributes and share the session's name tokens.
func (c *Compiler) Projection(properties ...string) *Compiler {
	c.projection = append(c.projection, properties...)
	return c
}

func (c *Compiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Build renders the accumulated predicates. The configured
// discriminator for the active scope contributes an implicit AND term.
func (c *Compiler) Build() (*Compiled, error) {
	if c.err != nil {
		return nil, c.err
	}
	tr := &translator{meta: c.meta, ph: c.ph, index: c.index}
	out := &Compiled{}

	if c.keyCond != nil {
		frag, err := tr.translate(c.keyCond, modeKeyCondition)
		if err != nil {
			return nil, err
		}
		out.KeyCondition = frag
	}

	var terms []string
	for _, w := range c.wheres {
		frag, err := tr.translate(w, modeCondition)
		if err != nil {
			return nil, err
		}
		terms = append(terms, frag)
	}
	if d := c.meta.DiscriminatorFor(c.index); d != nil && (c.keyCond != nil || c.discriminator) {
		frag, err := discriminatorFragment(d, tr)
		if err != nil {
			return nil, err
		}
		terms = append(terms, frag)
	}
	merged := strings.Join(terms, " AND ")
	if c.keyCond != nil {
		out.Filter = merged
	} else {
		out.Condition = merged
	}

	if len(c.projection) > 0 {
		toks := make([]string, 0, len(c.projection))
		for _, property := range c.projection {
			p, ok := c.meta.Property(property)
			if !ok {
				return nil, fmt.Errorf("%w: unknown property %q in projection", ErrUnsupportedShape, property)
			}
			toks = append(toks, c.ph.name(p.Attribute))
		}
		out.Projection = strings.Join(toks, ", ")
	}

	out.Names = c.ph.nameMap()
	out.Values = c.ph.valueMap()
	out.Params = c.ph.paramList()
	return out, nil
}
