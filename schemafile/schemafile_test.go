package schemafile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ran1979/bitschema/schemafile"
)

func TestLoadPreservesFieldOrder(t *testing.T) {
	t.Parallel()

	doc := []byte(`
version: "1"
name: Account
fields:
  active:
    type: bool
  age:
    type: int
    min: 0
    max: 130
  tier:
    type: enum
    values: [free, pro, enterprise]
    nullable: true
  joined:
    type: date
    resolution: day
    min_date: "2020-01-01"
    max_date: "2030-12-31"
  perms:
    type: bitmask
    flags:
      read: 0
      write: 1
      admin: 3
`)

	raw, err := schemafile.Load(doc)
	require.NoError(t, err)

	assert.Equal(t, "Account", raw.Name)
	assert.Equal(t, "1", raw.Version)
	require.Len(t, raw.Fields, 5)

	names := make([]string, len(raw.Fields))
	for i, f := range raw.Fields {
		names[i] = f.Name
	}

	assert.Equal(t, []string{"active", "age", "tier", "joined", "perms"}, names)

	age := raw.Fields[1]
	assert.Equal(t, "int", age.Type)
	require.NotNil(t, age.Min)
	assert.Equal(t, int64(0), *age.Min)
	require.NotNil(t, age.Max)
	assert.Equal(t, int64(130), *age.Max)

	tier := raw.Fields[2]
	assert.True(t, tier.IsNullable)
	assert.Equal(t, []string{"free", "pro", "enterprise"}, tier.Values)

	perms := raw.Fields[4]
	assert.Equal(t, map[string]int{"read": 0, "write": 1, "admin": 3}, perms.Flags)
}

func TestLoadAcceptsJSONAsYAMLSubset(t *testing.T) {
	t.Parallel()

	doc := []byte(`{
		"version": "1",
		"name": "Account",
		"fields": {
			"active": {"type": "bool"},
			"age": {"type": "int", "min": 0, "max": 130}
		}
	}`)

	raw, err := schemafile.Load(doc)
	require.NoError(t, err)
	assert.Equal(t, "Account", raw.Name)
	require.Len(t, raw.Fields, 2)
	assert.Equal(t, "active", raw.Fields[0].Name)
	assert.Equal(t, "age", raw.Fields[1].Name)
}

func TestLoadRejectsMissingFieldsKey(t *testing.T) {
	t.Parallel()

	_, err := schemafile.Load([]byte("name: Account\nversion: \"1\"\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, schemafile.ErrInvalidDocument)
}

func TestLoadRejectsNonMappingFields(t *testing.T) {
	t.Parallel()

	_, err := schemafile.Load([]byte("name: Account\nfields: [a, b]\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, schemafile.ErrInvalidDocument)
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	t.Parallel()

	_, err := schemafile.Load([]byte("name: [unterminated\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, schemafile.ErrInvalidDocument)
}
