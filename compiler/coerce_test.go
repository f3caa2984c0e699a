package compiler_test

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvard/ddbexpr/compiler"
	"github.com/halvard/ddbexpr/entity"
)

func TestCoerce_FixedDecimals(t *testing.T) {
	p := &entity.Property{Name: "Amount", Attribute: "amount", Type: entity.TypeNumber, Format: "F2"}

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"rounds down", 1234.5678, "1234.57"},
		{"pads", 12.5, "12.50"},
		{"integer", 7, "7.00"},
		{"string decimal", "3.14159", "3.14"},
		{"negative", -0.005, "-0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, err := compiler.Coerce(p, tt.in)
			require.NoError(t, err)
			assert.Equal(t, &types.AttributeValueMemberS{Value: tt.want}, av)
		})
	}

	_, err := compiler.Coerce(p, []string{"nope"})
	require.ErrorIs(t, err, compiler.ErrTypeMismatch)
}

// A formatted literal must render identically whether it appears in an
// item payload or in a filter; both run through Coerce, so comparing a
// write-side and query-side call pins the round-trip property.
func TestCoerce_WriteQueryRoundTrip(t *testing.T) {
	p := &entity.Property{Name: "Amount", Attribute: "amount", Type: entity.TypeNumber, Format: "F2"}

	write, err := compiler.Coerce(p, 1234.5678)
	require.NoError(t, err)
	query, err := compiler.Coerce(p, 1234.5678)
	require.NoError(t, err)
	assert.Equal(t, write, query)
	assert.Equal(t, "1234.57", write.(*types.AttributeValueMemberS).Value)
}

func TestCoerce_Time(t *testing.T) {
	in := time.Date(2024, 6, 1, 22, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	t.Run("utc normalization", func(t *testing.T) {
		p := &entity.Property{Name: "CreatedAt", Type: entity.TypeTime, Timezone: entity.TimezoneUTC}
		av, err := compiler.Coerce(p, in)
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "2024-06-01T20:30:00Z"}, av)
	})

	t.Run("custom layout", func(t *testing.T) {
		p := &entity.Property{Name: "CreatedAt", Type: entity.TypeTime, Timezone: entity.TimezoneUTC, Format: "2006-01-02"}
		av, err := compiler.Coerce(p, in)
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "2024-06-01"}, av)
	})

	t.Run("non-time literal rejected", func(t *testing.T) {
		p := &entity.Property{Name: "CreatedAt", Type: entity.TypeTime}
		_, err := compiler.Coerce(p, "2024-06-01")
		require.ErrorIs(t, err, compiler.ErrTypeMismatch)
	})
}

func TestCoerce_DeclaredTypes(t *testing.T) {
	tests := []struct {
		name    string
		prop    entity.Property
		in      any
		want    types.AttributeValue
		wantErr bool
	}{
		{"string", entity.Property{Name: "A", Type: entity.TypeString}, "x", &types.AttributeValueMemberS{Value: "x"}, false},
		{"bool", entity.Property{Name: "A", Type: entity.TypeBool}, true, &types.AttributeValueMemberBOOL{Value: true}, false},
		{"number", entity.Property{Name: "A", Type: entity.TypeNumber}, 42, &types.AttributeValueMemberN{Value: "42"}, false},
		{"string into number", entity.Property{Name: "A", Type: entity.TypeNumber}, "42", nil, true},
		{"bool into string", entity.Property{Name: "A", Type: entity.TypeString}, true, nil, true},
		{"undeclared type accepts anything", entity.Property{Name: "A"}, "x", &types.AttributeValueMemberS{Value: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, err := compiler.Coerce(&tt.prop, tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, compiler.ErrTypeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, av)
		})
	}
}

func TestCoerce_Sets(t *testing.T) {
	ss := &entity.Property{Name: "Tags", Type: entity.TypeStringSet}
	av, err := compiler.Coerce(ss, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberSS{Value: []string{"a", "b"}}, av)

	ns := &entity.Property{Name: "Scores", Type: entity.TypeNumberSet}
	av, err = compiler.Coerce(ns, []int{3, 1})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberNS{Value: []string{"3", "1"}}, av)

	_, err = compiler.Coerce(ss, []int{1})
	require.ErrorIs(t, err, compiler.ErrTypeMismatch)
	_, err = compiler.Coerce(ss, []string{})
	require.ErrorIs(t, err, compiler.ErrTypeMismatch)
}

func TestCoerce_Null(t *testing.T) {
	nullable := &entity.Property{Name: "A", Type: entity.TypeString, Nullable: true}
	av, err := compiler.Coerce(nullable, nil)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, av)

	required := &entity.Property{Name: "A", Type: entity.TypeString}
	_, err = compiler.Coerce(required, nil)
	require.ErrorIs(t, err, compiler.ErrTypeMismatch)
}
