package compiler

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/halvard/ddbexpr/entity"
)

// discriminatorFragment renders the implicit clause constraining the
// discriminator attribute to its configured value or pattern. Complex
// patterns are rejected at config build time and again here, because a
// silently skipped discriminator would leak other entity types into
// query results.
func discriminatorFragment(d *entity.Discriminator, t *translator) (string, error) {
	attr := t.ph.name(d.Attribute())
	val := t.ph.value(discriminatorParam(d, t.meta))
	switch d.Strategy() {
	case entity.MatchExact:
		return fmt.Sprintf("%s = %s", attr, val), nil
	case entity.MatchStartsWith:
		return fmt.Sprintf("begins_with(%s, %s)", attr, val), nil
	case entity.MatchEndsWith:
		return fmt.Sprintf("ends_with(%s, %s)", attr, val), nil
	case entity.MatchContains:
		return fmt.Sprintf("contains(%s, %s)", attr, val), nil
	default:
		return "", fmt.Errorf("%w: strategy %q on attribute %q", ErrInvalidDiscriminatorPattern, d.Strategy(), d.Attribute())
	}
}

func discriminatorParam(d *entity.Discriminator, meta *entity.Metadata) Param {
	param := Param{
		Value:     &types.AttributeValueMemberS{Value: d.Text()},
		Attribute: d.Attribute(),
	}
	// the discriminator attribute is not necessarily a mapped property
	if p, ok := meta.ByAttribute(d.Attribute()); ok {
		param.Property = p.Name
		param.Sensitive = p.Sensitive
	}
	return param
}
