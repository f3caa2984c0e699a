package compiler

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/halvard/ddbexpr/entity"
	"github.com/halvard/ddbexpr/predicate"
)

// Update renders SET/REMOVE/ADD/DELETE clauses from an update model.
// The builder never encrypts: values of encrypted properties are
// returned as pending tasks for the caller to resolve before
// transmission.
type Update struct {
	meta *entity.Metadata

	sets    []fieldValue
	removes []string
	adds    []fieldValue
	deletes []fieldValue
	wheres  []predicate.Node
}

type fieldValue struct {
	property string
	value    any
}

// NewUpdate starts an update model for the given entity.
func NewUpdate(meta *entity.Metadata) *Update {
	return &Update{meta: meta}
}

// Set assigns a new value to a property.
func (u *Update) Set(property string, v any) *Update {
	u.sets = append(u.sets, fieldValue{property, v})
	return u
}

// Remove deletes the attribute from the item.
func (u *Update) Remove(property string) *Update {
	u.removes = append(u.removes, property)
	return u
}

// Add applies an arithmetic delta to a number property or appends
// members to a set property.
func (u *Update) Add(property string, delta any) *Update {
	u.adds = append(u.adds, fieldValue{property, delta})
	return u
}

// Delete removes members from a set property.
func (u *Update) Delete(property string, members any) *Update {
	u.deletes = append(u.deletes, fieldValue{property, members})
	return u
}

// Where adds a condition for a conditional update. Repeated calls
// merge with AND, sharing the update's placeholder session.
func (u *Update) Where(n predicate.Node) *Update {
	u.wheres = append(u.wheres, n)
	return u
}

// AddNumber is a typed convenience for numeric deltas.
func AddNumber[T constraints.Integer | constraints.Float](u *Update, property string, delta T) *Update {
	return u.Add(property, delta)
}

// Build renders the update expression, its condition, and the pending
// encryption tasks. Fails before any clause is emitted if the model
// references unknown properties or incompatible literals.
func (u *Update) Build() (*Compiled, error) {
	ph := newPlaceholders()
	tr := &translator{meta: u.meta, ph: ph}
	out := &Compiled{}

	if len(u.sets) == 0 && len(u.removes) == 0 && len(u.adds) == 0 && len(u.deletes) == 0 {
		return nil, fmt.Errorf("%w: update model is empty", ErrUnsupportedShape)
	}

	if clause, err := u.setClause(ph, out); err != nil {
		return nil, err
	} else if clause != "" {
		out.Clauses = append(out.Clauses, clause)
	}
	if clause, err := u.removeClause(ph); err != nil {
		return nil, err
	} else if clause != "" {
		out.Clauses = append(out.Clauses, clause)
	}
	if clause, err := u.deltaClause(ph, "ADD", u.adds); err != nil {
		return nil, err
	} else if clause != "" {
		out.Clauses = append(out.Clauses, clause)
	}
	if clause, err := u.deltaClause(ph, "DELETE", u.deletes); err != nil {
		return nil, err
	} else if clause != "" {
		out.Clauses = append(out.Clauses, clause)
	}
	out.Update = strings.Join(out.Clauses, " ")

	var terms []string
	for _, w := range u.wheres {
		frag, err := tr.translate(w, modeCondition)
		if err != nil {
			return nil, err
		}
		terms = append(terms, frag)
	}
	out.Condition = strings.Join(terms, " AND ")

	out.Names = ph.nameMap()
	out.Values = ph.valueMap()
	out.Params = ph.paramList()
	return out, nil
}

func (u *Update) setClause(ph *placeholders, out *Compiled) (string, error) {
	if len(u.sets) == 0 {
		return "", nil
	}
	assignments := make([]string, 0, len(u.sets))
	for _, s := range u.sets {
		p, ok := u.meta.Property(s.property)
		if !ok {
			return "", fmt.Errorf("%w: unknown property %q", ErrUnsupportedShape, s.property)
		}
		if p.Encrypted {
			tok, pending, err := allocateEncrypted(ph, p, s.value)
			if err != nil {
				return "", err
			}
			out.Pending = append(out.Pending, pending)
			assignments = append(assignments, fmt.Sprintf("%s = %s", ph.name(p.Attribute), tok))
			continue
		}
		av, err := Coerce(p, s.value)
		if err != nil {
			return "", err
		}
		tok := ph.value(Param{Value: av, Property: p.Name, Attribute: p.Attribute, Sensitive: p.Sensitive})
		assignments = append(assignments, fmt.Sprintf("%s = %s", ph.name(p.Attribute), tok))
	}
	return "SET " + strings.Join(assignments, ", "), nil
}

func (u *Update) removeClause(ph *placeholders) (string, error) {
	if len(u.removes) == 0 {
		return "", nil
	}
	names := make([]string, 0, len(u.removes))
	for _, property := range u.removes {
		p, ok := u.meta.Property(property)
		if !ok {
			return "", fmt.Errorf("%w: unknown property %q", ErrUnsupportedShape, property)
		}
		names = append(names, ph.name(p.Attribute))
	}
	return "REMOVE " + strings.Join(names, ", "), nil
}

func (u *Update) deltaClause(ph *placeholders, keyword string, fields []fieldValue) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		p, ok := u.meta.Property(f.property)
		if !ok {
			return "", fmt.Errorf("%w: unknown property %q", ErrUnsupportedShape, f.property)
		}
		switch p.Type {
		case entity.TypeNumber, entity.TypeStringSet, entity.TypeNumberSet:
		default:
			return "", fmt.Errorf("%w: %s requires a number or set property, %q is %s", ErrTypeMismatch, keyword, p.Name, p.Type)
		}
		if keyword == "DELETE" && p.Type == entity.TypeNumber {
			return "", fmt.Errorf("%w: DELETE requires a set property, %q is a number", ErrTypeMismatch, p.Name)
		}
		if p.Format != "" {
			// formatted numbers are stored as strings; arithmetic on
			// them would corrupt the rendered representation
			return "", fmt.Errorf("%w: cannot %s to formatted property %q", ErrTypeMismatch, keyword, p.Name)
		}
		av, err := Coerce(p, f.value)
		if err != nil {
			return "", err
		}
		tok := ph.value(Param{Value: av, Property: p.Name, Attribute: p.Attribute, Sensitive: p.Sensitive})
		parts = append(parts, fmt.Sprintf("%s %s", ph.name(p.Attribute), tok))
	}
	return keyword + " " + strings.Join(parts, ", "), nil
}
