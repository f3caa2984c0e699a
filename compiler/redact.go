package compiler

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// RedactedMarker replaces sensitive values in diagnostic copies.
const RedactedMarker = "<redacted>"

// Redacted returns a copy for diagnostics with every sensitive or
// encryption-pending parameter value replaced by RedactedMarker, names
// left visible. The receiver is untouched: the caller-facing result
// always carries the true values.
func (c *Compiled) Redacted() *Compiled {
	out := *c
	out.Names = make(map[string]string, len(c.Names))
	for k, v := range c.Names {
		out.Names[k] = v
	}
	out.Values = make(map[string]types.AttributeValue, len(c.Values))
	for k, v := range c.Values {
		out.Values[k] = v
	}
	out.Params = make([]Param, len(c.Params))
	copy(out.Params, c.Params)
	out.Pending = nil

	marker := &types.AttributeValueMemberS{Value: RedactedMarker}
	for i, p := range out.Params {
		if !p.Sensitive && !p.RequiresEncryption {
			continue
		}
		out.Params[i].Value = marker
		out.Values[p.Token] = marker
	}
	return &out
}

// MarshalZerologObject emits the redacted view of the expression to a
// log event. Compiled itself deliberately does not implement the
// interface: only the redacted copy is ever handed to a sink.
type logView struct {
	c *Compiled
}

// LogView adapts the compiled expression for structured logging.
// The view is built from a redacted copy, so a sink can never observe
// a sensitive literal.
func (c *Compiled) LogView() zerolog.LogObjectMarshaler {
	return logView{c: c.Redacted()}
}

func (v logView) MarshalZerologObject(e *zerolog.Event) {
	if v.c.KeyCondition != "" {
		e.Str("key_condition", v.c.KeyCondition)
	}
	if v.c.Filter != "" {
		e.Str("filter", v.c.Filter)
	}
	if v.c.Condition != "" {
		e.Str("condition", v.c.Condition)
	}
	if v.c.Update != "" {
		e.Str("update", v.c.Update)
	}
	names := zerolog.Dict()
	for tok, attr := range v.c.Names {
		names.Str(tok, attr)
	}
	e.Dict("names", names)
	values := zerolog.Dict()
	for tok, av := range v.c.Values {
		values.Str(tok, renderValue(av))
	}
	e.Dict("values", values)
}

func renderValue(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%t", v.Value)
	case *types.AttributeValueMemberNULL:
		return "null"
	case *types.AttributeValueMemberB:
		return fmt.Sprintf("<%d bytes>", len(v.Value))
	default:
		return fmt.Sprintf("%T", av)
	}
}
