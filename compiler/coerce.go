package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/halvard/ddbexpr/entity"
)

// Value coercion is shared by the write path (building items) and the
// query path (building filter literals). A formatted value must be
// byte-for-byte identical on both sides or filters silently stop
// matching items, so there is exactly one pipeline.

var fixedDecimalFormat = regexp.MustCompile(`^F(\d+)$`)

// Coerce renders a raw literal into the property's wire representation.
func Coerce(p *entity.Property, v any) (types.AttributeValue, error) {
	if v == nil {
		if !p.Nullable {
			return nil, fmt.Errorf("%w: property %q is not nullable", ErrTypeMismatch, p.Name)
		}
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}

	if t, ok := asTime(v); ok {
		return coerceTime(p, t)
	}
	if p.Type == entity.TypeTime {
		return nil, fmt.Errorf("%w: property %q expects a time value, got %T", ErrTypeMismatch, p.Name, v)
	}

	if m := fixedDecimalFormat.FindStringSubmatch(p.Format); m != nil {
		decimals, _ := strconv.Atoi(m[1])
		s, err := formatDecimal(v, decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: property %q format %q: %v", ErrTypeMismatch, p.Name, p.Format, err)
		}
		// formatted numbers are stored as strings so ordering and
		// equality follow the rendered text
		return &types.AttributeValueMemberS{Value: s}, nil
	}

	if p.Type == entity.TypeStringSet || p.Type == entity.TypeNumberSet {
		return coerceSet(p, v)
	}

	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: property %q: %v", ErrTypeMismatch, p.Name, err)
	}
	if err := matchesDeclaredType(p, av); err != nil {
		return nil, err
	}
	return av, nil
}

// attributevalue marshals Go slices as lists, so set-typed properties
// convert the list members into the declared set representation.
func coerceSet(p *entity.Property, v any) (types.AttributeValue, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: property %q: %v", ErrTypeMismatch, p.Name, err)
	}
	switch typed := av.(type) {
	case *types.AttributeValueMemberSS:
		if p.Type == entity.TypeStringSet {
			return typed, nil
		}
	case *types.AttributeValueMemberNS:
		if p.Type == entity.TypeNumberSet {
			return typed, nil
		}
	case *types.AttributeValueMemberL:
		if len(typed.Value) == 0 {
			return nil, fmt.Errorf("%w: property %q: sets cannot be empty", ErrTypeMismatch, p.Name)
		}
		if p.Type == entity.TypeStringSet {
			members := make([]string, 0, len(typed.Value))
			for _, el := range typed.Value {
				s, ok := el.(*types.AttributeValueMemberS)
				if !ok {
					return nil, fmt.Errorf("%w: property %q declared %s, member is %T", ErrTypeMismatch, p.Name, p.Type, el)
				}
				members = append(members, s.Value)
			}
			return &types.AttributeValueMemberSS{Value: members}, nil
		}
		members := make([]string, 0, len(typed.Value))
		for _, el := range typed.Value {
			n, ok := el.(*types.AttributeValueMemberN)
			if !ok {
				return nil, fmt.Errorf("%w: property %q declared %s, member is %T", ErrTypeMismatch, p.Name, p.Type, el)
			}
			members = append(members, n.Value)
		}
		return &types.AttributeValueMemberNS{Value: members}, nil
	}
	return nil, fmt.Errorf("%w: property %q declared %s, literal is %T", ErrTypeMismatch, p.Name, p.Type, av)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}

func coerceTime(p *entity.Property, t time.Time) (types.AttributeValue, error) {
	if p.Type != entity.TypeTime && p.Type != entity.TypeString {
		return nil, fmt.Errorf("%w: property %q of type %s cannot hold a time value", ErrTypeMismatch, p.Name, p.Type)
	}
	switch p.Timezone {
	case entity.TimezoneUTC:
		t = t.UTC()
	case entity.TimezoneLocal:
		t = t.Local()
	}
	layout := p.Format
	if layout == "" {
		layout = time.RFC3339
	}
	return &types.AttributeValueMemberS{Value: t.Format(layout)}, nil
}

func formatDecimal(v any, decimals int) (string, error) {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', decimals, 64), nil
	case float32:
		return strconv.FormatFloat(float64(n), 'f', decimals, 32), nil
	case int:
		return strconv.FormatFloat(float64(n), 'f', decimals, 64), nil
	case int32:
		return strconv.FormatFloat(float64(n), 'f', decimals, 64), nil
	case int64:
		return strconv.FormatFloat(float64(n), 'f', decimals, 64), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return "", fmt.Errorf("cannot parse %q as a number", n)
		}
		return strconv.FormatFloat(f, 'f', decimals, 64), nil
	default:
		return "", fmt.Errorf("cannot format %T to fixed decimals", v)
	}
}

func matchesDeclaredType(p *entity.Property, av types.AttributeValue) error {
	var got entity.ValueType
	switch av.(type) {
	case *types.AttributeValueMemberS:
		got = entity.TypeString
	case *types.AttributeValueMemberN:
		got = entity.TypeNumber
	case *types.AttributeValueMemberB:
		got = entity.TypeBinary
	case *types.AttributeValueMemberBOOL:
		got = entity.TypeBool
	case *types.AttributeValueMemberSS:
		got = entity.TypeStringSet
	case *types.AttributeValueMemberNS:
		got = entity.TypeNumberSet
	case *types.AttributeValueMemberL:
		got = entity.TypeList
	case *types.AttributeValueMemberM:
		got = entity.TypeMap
	case *types.AttributeValueMemberNULL:
		return nil
	default:
		return fmt.Errorf("%w: property %q: unexpected wire type %T", ErrTypeMismatch, p.Name, av)
	}
	if p.Type != "" && p.Type != got {
		return fmt.Errorf("%w: property %q declared %s, literal is %s", ErrTypeMismatch, p.Name, p.Type, got)
	}
	return nil
}
