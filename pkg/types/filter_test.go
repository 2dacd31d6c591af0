package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterUnmarshal_Literal(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"email":"a@x.com"}`), &f)
	require.NoError(t, err)

	require.Len(t, f["email"], 1)
	assert.Equal(t, OpEq, f["email"][0].Op)
	assert.Equal(t, "a@x.com", f["email"][0].Value)
}

func TestFilterUnmarshal_OperatorObject(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"age":{"gte":18,"lt":65}}`), &f)
	require.NoError(t, err)

	require.Len(t, f["age"], 2)
	ops := map[Op]any{}
	for _, c := range f["age"] {
		ops[c.Op] = c.Value
	}
	assert.Equal(t, float64(18), ops[OpGte])
	assert.Equal(t, float64(65), ops[OpLt])
}

func TestFilterUnmarshal_InRequiresArray(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"status":{"in":"active"}}`), &f)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"status":{"in":["active","pending"]}}`), &f)
	require.NoError(t, err)
	assert.Equal(t, OpIn, f["status"][0].Op)
}

func TestFilterUnmarshal_UnknownOperator(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"age":{"$gte":18}}`), &f)
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestFilterMarshal_RoundTrip(t *testing.T) {
	f := Filter{
		"email": {Eq("a@x.com")},
		"age":   {Gte(18)},
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var back Filter
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, OpEq, back["email"][0].Op)
	assert.Equal(t, OpGte, back["age"][0].Op)
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  CollectionSchema
		wantErr error
	}{
		{
			name: "valid",
			schema: CollectionSchema{
				Collection: "users",
				Fields: []SchemaField{
					{Name: "email", Type: FieldString},
					{Name: "age", Type: FieldNumber, Nullable: true},
				},
			},
		},
		{
			name:    "empty collection",
			schema:  CollectionSchema{},
			wantErr: ErrEmptyCollection,
		},
		{
			name: "reserved field",
			schema: CollectionSchema{
				Collection: "users",
				Fields:     []SchemaField{{Name: "version", Type: FieldNumber}},
			},
			wantErr: ErrReservedFieldName,
		},
		{
			name: "bad type",
			schema: CollectionSchema{
				Collection: "users",
				Fields:     []SchemaField{{Name: "x", Type: "blob"}},
			},
			wantErr: ErrInvalidFieldType,
		},
		{
			name: "duplicate field",
			schema: CollectionSchema{
				Collection: "users",
				Fields: []SchemaField{
					{Name: "email", Type: FieldString},
					{Name: "email", Type: FieldString},
				},
			},
			wantErr: ErrDuplicateField,
		},
		{
			name: "index references unknown field",
			schema: CollectionSchema{
				Collection: "users",
				Fields:     []SchemaField{{Name: "email", Type: FieldString}},
				Indexes:    []CompositeIndex{{Name: "by_age", Fields: []string{"age"}}},
			},
			wantErr: ErrInvalidIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
