package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFlexIntCoercion(t *testing.T) {
	type doc struct {
		V FlexInt `bson:"v"`
	}

	cases := []struct {
		name string
		in   interface{}
		want int
	}{
		{"int32", int32(7), 7},
		{"int64", int64(42), 42},
		{"double", 10.0, 10},
		{"string", "15", 15},
		{"float string", "10.0", 10},
		{"empty string", "", 0},
		{"null", nil, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{"v": tc.in})
			require.NoError(t, err)

			var out doc
			require.NoError(t, bson.Unmarshal(raw, &out))
			assert.Equal(t, tc.want, out.V.Int())
		})
	}
}

func TestFlexIntRejectsGarbage(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"v": "ten"})
	require.NoError(t, err)

	var out struct {
		V FlexInt `bson:"v"`
	}
	assert.Error(t, bson.Unmarshal(raw, &out))
}

func TestParseFlexDate(t *testing.T) {
	d, err := ParseFlexDate("2025-08-25")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-25", d.String())

	d, err = ParseFlexDate("2025-08-25T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-25", d.String())

	_, err = ParseFlexDate("not a date")
	assert.Error(t, err)
}

func TestFlexDateFromBSONDatetime(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"v": time.Date(2025, 8, 25, 23, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	var out struct {
		V FlexDate `bson:"v"`
	}
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, "2025-08-25", out.V.String())
}

func TestFlexDateComparisons(t *testing.T) {
	d, err := ParseFlexDate("2025-08-25")
	require.NoError(t, err)

	assert.True(t, d.Before(time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC)))
	assert.False(t, d.Before(time.Date(2025, 8, 25, 23, 59, 0, 0, time.UTC)))
	assert.True(t, d.After(time.Date(2025, 8, 24, 23, 59, 0, 0, time.UTC)))
	assert.False(t, d.After(time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)))
}

func TestFlexIDFromObjectIDAndString(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"a": oid, "b": "plain-id"})
	require.NoError(t, err)

	var out struct {
		A FlexID `bson:"a"`
		B FlexID `bson:"b"`
	}
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, oid.Hex(), out.A.String())
	assert.Equal(t, "plain-id", out.B.String())
}
