package compiler

import (
	"bytes"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Param records everything known about one allocated value placeholder.
// It is consumed by the update and redaction layers and, for deferred
// encryption, by the encryption provider before transmission.
type Param struct {
	// Token is the ":p{i}" placeholder the value is referenced by.
	Token string
	// Value is the coerced wire value.
	Value types.AttributeValue
	// Property is the logical source property, Attribute its physical name.
	Property  string
	Attribute string

	RequiresEncryption bool
	Sensitive          bool
}

// placeholders issues "#n{i}" and ":p{i}" tokens for one compilation
// session. Identical attribute names and identical (type, value) pairs
// are de-duplicated so repeated references share a token. Owned by a
// single compilation call; never shared between goroutines.
type placeholders struct {
	names     map[string]string // attribute -> token
	nameOrder []string
	nameSeq   int

	params   []*Param
	valueSeq int
}

func newPlaceholders() *placeholders {
	return &placeholders{names: make(map[string]string)}
}

// name returns the token for a physical attribute name, allocating on
// first use.
func (p *placeholders) name(attr string) string {
	if tok, ok := p.names[attr]; ok {
		return tok
	}
	tok := fmt.Sprintf("#n%d", p.nameSeq)
	p.nameSeq++
	p.names[attr] = tok
	p.nameOrder = append(p.nameOrder, attr)
	return tok
}

// value returns the token for a coerced value, reusing a previous token
// when an equal value was already allocated. Values pending encryption
// are never de-duplicated: each gets its own token so ciphertexts can
// be patched independently.
func (p *placeholders) value(param Param) string {
	if !param.RequiresEncryption {
		for _, prev := range p.params {
			if prev.RequiresEncryption {
				continue
			}
			if attributeValuesEqual(prev.Value, param.Value) {
				prev.Sensitive = prev.Sensitive || param.Sensitive
				return prev.Token
			}
		}
	}
	tok := fmt.Sprintf(":p%d", p.valueSeq)
	p.valueSeq++
	param.Token = tok
	p.params = append(p.params, &param)
	return tok
}

// nameMap materializes the ExpressionAttributeNames table.
func (p *placeholders) nameMap() map[string]string {
	if len(p.names) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.names))
	for attr, tok := range p.names {
		out[tok] = attr
	}
	return out
}

// valueMap materializes the ExpressionAttributeValues table.
func (p *placeholders) valueMap() map[string]types.AttributeValue {
	if len(p.params) == 0 {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(p.params))
	for _, param := range p.params {
		out[param.Token] = param.Value
	}
	return out
}

func (p *placeholders) paramList() []Param {
	out := make([]Param, len(p.params))
	for i, param := range p.params {
		out[i] = *param
	}
	return out
}

// attributeValuesEqual compares two wire values structurally.
func attributeValuesEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		bv, ok := b.(*types.AttributeValueMemberNULL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && stringSlicesEqual(av.Value, bv.Value)
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && stringSlicesEqual(av.Value, bv.Value)
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !bytes.Equal(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !attributeValuesEqual(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			w, ok := bv.Value[k]
			if !ok || !attributeValuesEqual(v, w) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
